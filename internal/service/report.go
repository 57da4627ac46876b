package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/store"
)

// reportScoping: reports carry locality and specialty; the author is the
// responsible party, which gives plain members own-record access.
var reportScoping = rbac.ResourceScoping{
	HasSpecialty:      true,
	ResponsibleClause: "author_id = ?",
}

// redactedValue replaces personally identifying fields for viewers with the
// executive PII-hiding flag.
const redactedValue = "[redacted]"

// ReportService implements the report module, including executive PII
// redaction on the way out.
type ReportService struct {
	store   *store.Store
	profile *rbac.ProfileResolver
	audit   *AuditLogger
}

// NewReportService creates a ReportService.
func NewReportService(st *store.Store, profile *rbac.ProfileResolver, audit *AuditLogger) *ReportService {
	return &ReportService{store: st, profile: profile, audit: audit}
}

// List returns the reports visible to the caller. A plain member sees
// reports in their locality/specialty reach plus their own.
func (s *ReportService) List(ctx context.Context, ac *model.AccessContext) ([]model.Report, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "reports", Action: "read"}); err != nil {
		return nil, err
	}
	cond := rbac.ScopeFilter(s.profile.Profile(ac), ac, reportScoping)
	reports, err := s.store.ListReports(ctx, cond.Clause, cond.Args)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		s.redact(ac, &reports[i])
	}
	return reports, nil
}

// Get returns one report if it falls within the caller's scope.
func (s *ReportService) Get(ctx context.Context, ac *model.AccessContext, id string) (*model.Report, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "reports", Action: "read"}); err != nil {
		return nil, err
	}
	report, err := s.getScoped(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	s.redact(ac, report)
	return report, nil
}

func (s *ReportService) getScoped(ctx context.Context, ac *model.AccessContext, id string) (*model.Report, error) {
	cond := rbac.ScopeFilter(s.profile.Profile(ac), ac, reportScoping)
	where := "id = ?"
	args := []interface{}{id}
	if !cond.Empty() {
		where += " AND " + cond.Clause
		args = append(args, cond.Args...)
	}
	reports, err := s.store.ListReports(ctx, where, args)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, store.ErrNotFound
	}
	return &reports[0], nil
}

// Create inserts a report authored by the caller. The record inherits the
// author's locality and specialty.
func (s *ReportService) Create(ctx context.Context, ac *model.AccessContext, r *model.Report) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "reports", Action: "create"}); err != nil {
		return err
	}

	r.ID = uuid.NewString()
	r.AuthorID = ac.UserID
	r.AuthorName = ac.Name
	r.AuthorEmail = ac.Email
	r.LocalityID = ac.LocalityID
	r.SpecialtyID = ac.SpecialtyID
	if err := s.store.CreateReport(ctx, r); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "reports", "create", r.ID, nil)
	return nil
}

// Update rewrites a report's content. Only the author or TI may update.
func (s *ReportService) Update(ctx context.Context, ac *model.AccessContext, r *model.Report) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "reports", Action: "update"}); err != nil {
		return err
	}
	existing, err := s.getScoped(ctx, ac, r.ID)
	if err != nil {
		return err
	}
	if err := rbac.AssertOperateAllowed(s.profile.Profile(ac), ac.UserID, []string{existing.AuthorID}); err != nil {
		return err
	}

	existing.Title = r.Title
	existing.Body = r.Body
	if err := s.store.UpdateReport(ctx, existing); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "reports", "update", r.ID, nil)
	return nil
}

// Delete removes a report; high-trust roles only.
func (s *ReportService) Delete(ctx context.Context, ac *model.AccessContext, id string) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "reports", Action: "delete"}); err != nil {
		return err
	}
	if err := rbac.AssertDeleteAllowed(s.profile.Profile(ac)); err != nil {
		return err
	}
	if err := s.store.DeleteReport(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "reports", "delete", id, nil)
	return nil
}

// redact strips author identity for executive-PII viewers, except on the
// viewer's own reports.
func (s *ReportService) redact(ac *model.AccessContext, r *model.Report) {
	if !ac.ExecutiveHidePII || r.AuthorID == ac.UserID {
		return
	}
	r.AuthorName = redactedValue
	r.AuthorEmail = redactedValue
}
