package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/store"
)

// checklistScoping: checklists carry locality and specialty, no individual
// responsibility and no elo-role grouping.
var checklistScoping = rbac.ResourceScoping{HasSpecialty: true}

// ChecklistService implements the checklist module.
type ChecklistService struct {
	store   *store.Store
	profile *rbac.ProfileResolver
	audit   *AuditLogger
}

// NewChecklistService creates a ChecklistService.
func NewChecklistService(st *store.Store, profile *rbac.ProfileResolver, audit *AuditLogger) *ChecklistService {
	return &ChecklistService{store: st, profile: profile, audit: audit}
}

// List returns the checklists visible to the caller.
func (s *ChecklistService) List(ctx context.Context, ac *model.AccessContext) ([]model.Checklist, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "checklists", Action: "read"}); err != nil {
		return nil, err
	}
	cond := rbac.ScopeFilter(s.profile.Profile(ac), ac, checklistScoping)
	return s.store.ListChecklists(ctx, cond.Clause, cond.Args)
}

// Get returns one checklist if it falls within the caller's scope.
func (s *ChecklistService) Get(ctx context.Context, ac *model.AccessContext, id string) (*model.Checklist, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "checklists", Action: "read"}); err != nil {
		return nil, err
	}
	return s.getScoped(ctx, ac, id)
}

func (s *ChecklistService) getScoped(ctx context.Context, ac *model.AccessContext, id string) (*model.Checklist, error) {
	cond := rbac.ScopeFilter(s.profile.Profile(ac), ac, checklistScoping)
	where := "id = ?"
	args := []interface{}{id}
	if !cond.Empty() {
		where += " AND " + cond.Clause
		args = append(args, cond.Args...)
	}
	checklists, err := s.store.ListChecklists(ctx, where, args)
	if err != nil {
		return nil, err
	}
	if len(checklists) == 0 {
		return nil, store.ErrNotFound
	}
	return &checklists[0], nil
}

// Create inserts a checklist after the mutation assertion.
func (s *ChecklistService) Create(ctx context.Context, ac *model.AccessContext, c *model.Checklist) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "checklists", Action: "create"}); err != nil {
		return err
	}
	if err := rbac.AssertMutationAllowed(s.profile.Profile(ac), c.LocalityID, c.SpecialtyID); err != nil {
		return err
	}

	c.ID = uuid.NewString()
	c.CreatedBy = ac.UserID
	if err := s.store.CreateChecklist(ctx, c); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "checklists", "create", c.ID, nil)
	return nil
}

// Update rewrites a checklist, items included.
func (s *ChecklistService) Update(ctx context.Context, ac *model.AccessContext, c *model.Checklist) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "checklists", Action: "update"}); err != nil {
		return err
	}
	existing, err := s.getScoped(ctx, ac, c.ID)
	if err != nil {
		return err
	}
	profile := s.profile.Profile(ac)
	if err := rbac.AssertMutationAllowed(profile, existing.LocalityID, existing.SpecialtyID); err != nil {
		return err
	}
	if err := rbac.AssertMutationAllowed(profile, c.LocalityID, c.SpecialtyID); err != nil {
		return err
	}
	if err := s.store.UpdateChecklist(ctx, c); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "checklists", "update", c.ID, nil)
	return nil
}

// Delete removes a checklist; high-trust roles only.
func (s *ChecklistService) Delete(ctx context.Context, ac *model.AccessContext, id string) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "checklists", Action: "delete"}); err != nil {
		return err
	}
	if err := rbac.AssertDeleteAllowed(s.profile.Profile(ac)); err != nil {
		return err
	}
	if err := s.store.DeleteChecklist(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "checklists", "delete", id, nil)
	return nil
}
