package service

import (
	"context"
	"errors"
	"testing"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
)

func TestReportRedactionForExecutiveViewers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewReportService(env.store, env.profile, env.audit)

	member := env.seedRole(t, "Membro", false, memberTriples("reports")...)
	exec := env.seedRole(t, "TI", true)
	exec.Flags = model.RoleFlags{ExecutiveHidePII: true}
	if err := env.store.UpdateRole(ctx, exec); err != nil {
		t.Fatal(err)
	}

	author := env.seedUser(t, "author", strptr("l1"), nil, member.ID)
	viewer := env.seedUser(t, "exec", nil, nil, exec.ID)
	if !viewer.ExecutiveHidePII {
		t.Fatal("viewer context must carry the PII flag from the role")
	}

	report := &model.Report{Title: "Monthly", Body: "..."}
	if err := svc.Create(ctx, author, report); err != nil {
		t.Fatal(err)
	}

	// The executive viewer sees the report, but not who wrote it.
	got, err := svc.Get(ctx, viewer, report.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AuthorName != redactedValue || got.AuthorEmail != redactedValue {
		t.Errorf("author identity not redacted: %+v", got)
	}
	if got.AuthorID != "author" {
		t.Errorf("author id must survive for own-record checks, got %q", got.AuthorID)
	}

	// The author always sees their own identity.
	own, err := svc.Get(ctx, author, report.ID)
	if err != nil {
		t.Fatal(err)
	}
	if own.AuthorName == redactedValue {
		t.Error("own report must not be redacted")
	}
}

func TestReportOwnRecordVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewReportService(env.store, env.profile, env.audit)

	member := env.seedRole(t, "Membro", false, memberTriples("reports")...)

	// Two members in different localities.
	alice := env.seedUser(t, "alice", strptr("l1"), nil, member.ID)
	bob := env.seedUser(t, "bob", strptr("l2"), nil, member.ID)

	report := &model.Report{Title: "Alice's report"}
	if err := svc.Create(ctx, alice, report); err != nil {
		t.Fatal(err)
	}
	if report.LocalityID == nil || *report.LocalityID != "l1" {
		t.Fatalf("report must inherit the author's locality: %+v", report)
	}

	mine, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 {
		t.Errorf("author must see their own report, got %d", len(mine))
	}

	others, err := svc.List(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if len(others) != 0 {
		t.Errorf("out-of-locality member must see nothing, got %d", len(others))
	}
}

func TestReportUpdateAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewReportService(env.store, env.profile, env.audit)

	member := env.seedRole(t, "Membro", false, memberTriples("reports")...)
	author := env.seedUser(t, "author", strptr("l1"), nil, member.ID)
	neighbor := env.seedUser(t, "neighbor", strptr("l1"), nil, member.ID)

	report := &model.Report{Title: "Draft"}
	if err := svc.Create(ctx, author, report); err != nil {
		t.Fatal(err)
	}

	// A neighbor can see the report but not rewrite it.
	edit := &model.Report{ID: report.ID, Title: "Vandalized"}
	if err := svc.Update(ctx, neighbor, edit); !errors.Is(err, rbac.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	edit = &model.Report{ID: report.ID, Title: "Final", Body: "done"}
	if err := svc.Update(ctx, author, edit); err != nil {
		t.Fatal(err)
	}
	got, err := env.store.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Final" {
		t.Errorf("update not applied: %+v", got)
	}
}
