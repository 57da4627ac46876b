package service

import (
	"context"
	"errors"
	"testing"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/store"
)

func TestTaskVisibilityDoesNotImplyOperate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewTaskService(env.store, env.profile, env.audit)

	member := env.seedRole(t, "Membro", false, memberTriples("tasks")...)
	ti := env.seedRole(t, "TI", true)

	l1 := strptr("l1")
	admin := env.seedUser(t, "admin", nil, nil, ti.ID)
	responsible := env.seedUser(t, "resp", l1, nil, member.ID)
	bystander := env.seedUser(t, "other", l1, nil, member.ID)

	task := &model.Task{
		Title:        "Prepare camp",
		LocalityID:   l1,
		Responsibles: []string{"resp"},
	}
	if err := svc.Create(ctx, admin, task); err != nil {
		t.Fatal(err)
	}

	// Both members in the locality can see the task.
	for _, ac := range []*model.AccessContext{responsible, bystander} {
		if _, err := svc.Get(ctx, ac, task.ID); err != nil {
			t.Errorf("user %s cannot see task: %v", ac.UserID, err)
		}
	}

	// Only the assigned responsible may complete it.
	if _, err := svc.Complete(ctx, bystander, task.ID); !errors.Is(err, rbac.ErrForbidden) {
		t.Errorf("bystander completed task, err=%v", err)
	}
	done, err := svc.Complete(ctx, responsible, task.ID)
	if err != nil {
		t.Fatalf("responsible blocked: %v", err)
	}
	if done.Status != model.TaskDone {
		t.Errorf("task not marked done: %q", done.Status)
	}

	// TI can always operate.
	if _, err := svc.Complete(ctx, admin, task.ID); err != nil {
		t.Errorf("TI blocked: %v", err)
	}
}

func TestTaskScopeMissReadsAsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewTaskService(env.store, env.profile, env.audit)

	member := env.seedRole(t, "Membro", false, memberTriples("tasks")...)
	ti := env.seedRole(t, "TI", true)

	admin := env.seedUser(t, "admin", nil, nil, ti.ID)
	outsider := env.seedUser(t, "outsider", strptr("l2"), nil, member.ID)

	task := &model.Task{Title: "Local business", LocalityID: strptr("l1")}
	if err := svc.Create(ctx, admin, task); err != nil {
		t.Fatal(err)
	}

	// A record outside the caller's scope reads as missing, never as
	// forbidden.
	if _, err := svc.Get(ctx, outsider, task.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTaskCreateScopedToOwnLocality(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewTaskService(env.store, env.profile, env.audit)

	member := env.seedRole(t, "Membro", false, memberTriples("tasks")...)
	ac := env.seedUser(t, "u1", strptr("l1"), nil, member.ID)

	// Creating into another locality is refused.
	task := &model.Task{Title: "Not yours", LocalityID: strptr("l2")}
	if err := svc.Create(ctx, ac, task); !errors.Is(err, rbac.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	// Own locality works, and the creator is stamped.
	task = &model.Task{Title: "Ours", LocalityID: strptr("l1")}
	if err := svc.Create(ctx, ac, task); err != nil {
		t.Fatal(err)
	}
	if task.CreatedBy != "u1" || task.ID == "" {
		t.Errorf("creator not stamped: %+v", task)
	}
}

func TestTaskListFiltering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewTaskService(env.store, env.profile, env.audit)

	member := env.seedRole(t, "Membro", false, memberTriples("tasks")...)
	ti := env.seedRole(t, "TI", true)

	admin := env.seedUser(t, "admin", nil, nil, ti.ID)
	local := env.seedUser(t, "local", strptr("l1"), nil, member.ID)

	for _, loc := range []string{"l1", "l1", "l2"} {
		task := &model.Task{Title: "t", LocalityID: strptr(loc)}
		if err := svc.Create(ctx, admin, task); err != nil {
			t.Fatal(err)
		}
	}

	all, err := svc.List(ctx, admin)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("TI sees everything, got %d", len(all))
	}

	mine, err := svc.List(ctx, local)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Errorf("member must see only their locality, got %d", len(mine))
	}
}

func TestTaskResponsibleSeesOutOfGroupTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewTaskService(env.store, env.profile, env.audit)

	member := env.seedRole(t, "Membro", false, memberTriples("tasks")...)
	ti := env.seedRole(t, "TI", true)

	admin := env.seedUser(t, "admin", nil, nil, ti.ID)
	// Member anchored to specialty s1.
	viewer := env.seedUser(t, "viewer", strptr("l1"), strptr("s1"), member.ID)

	// Task in the viewer's locality but another specialty; normally out of
	// reach, but explicit responsibility pulls it in.
	task := &model.Task{
		Title:        "Cross-specialty",
		LocalityID:   strptr("l1"),
		SpecialtyID:  strptr("s2"),
		Responsibles: []string{"viewer"},
	}
	if err := svc.Create(ctx, admin, task); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, viewer, task.ID); err != nil {
		t.Errorf("responsible must see the task: %v", err)
	}
}

func TestTaskDeleteHighTrustOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewTaskService(env.store, env.profile, env.audit)

	ti := env.seedRole(t, "TI", true)
	locAdmin := env.seedRole(t, "GSD Localidade", false, append(memberTriples("tasks"), [3]string{"tasks", "delete", "locality"})...)

	admin := env.seedUser(t, "admin", nil, nil, ti.ID)
	localAdmin := env.seedUser(t, "gsd", strptr("l1"), nil, locAdmin.ID)

	task := &model.Task{Title: "Doomed", LocalityID: strptr("l1")}
	if err := svc.Create(ctx, admin, task); err != nil {
		t.Fatal(err)
	}

	// Even with the delete permission, a locality admin cannot hard-delete.
	if err := svc.Delete(ctx, localAdmin, task.ID); !errors.Is(err, rbac.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, admin, task.ID); err != nil {
		t.Errorf("TI delete failed: %v", err)
	}
}

func TestTaskComments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewTaskService(env.store, env.profile, env.audit)

	member := env.seedRole(t, "Membro", false, memberTriples("tasks")...)
	ti := env.seedRole(t, "TI", true)

	admin := env.seedUser(t, "admin", nil, nil, ti.ID)
	responsible := env.seedUser(t, "resp", strptr("l1"), nil, member.ID)
	bystander := env.seedUser(t, "other", strptr("l1"), nil, member.ID)

	task := &model.Task{Title: "Discussed", LocalityID: strptr("l1"), Responsibles: []string{"resp"}}
	if err := svc.Create(ctx, admin, task); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Comment(ctx, bystander, task.ID, "drive-by"); !errors.Is(err, rbac.ErrForbidden) {
		t.Errorf("commenting is operate-restricted, got %v", err)
	}
	if _, err := svc.Comment(ctx, responsible, task.ID, "on it"); err != nil {
		t.Fatal(err)
	}

	// Reading comments only needs visibility.
	comments, err := svc.Comments(ctx, bystander, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 1 || comments[0].Body != "on it" {
		t.Errorf("unexpected comments: %+v", comments)
	}
}
