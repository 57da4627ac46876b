package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/store"
)

// meetingScoping: meetings are locality-scoped only.
var meetingScoping = rbac.ResourceScoping{}

// MeetingService implements the meeting module.
type MeetingService struct {
	store   *store.Store
	profile *rbac.ProfileResolver
	audit   *AuditLogger
}

// NewMeetingService creates a MeetingService.
func NewMeetingService(st *store.Store, profile *rbac.ProfileResolver, audit *AuditLogger) *MeetingService {
	return &MeetingService{store: st, profile: profile, audit: audit}
}

// List returns the meetings visible to the caller.
func (s *MeetingService) List(ctx context.Context, ac *model.AccessContext) ([]model.Meeting, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "meetings", Action: "read"}); err != nil {
		return nil, err
	}
	cond := rbac.ScopeFilter(s.profile.Profile(ac), ac, meetingScoping)
	return s.store.ListMeetings(ctx, cond.Clause, cond.Args)
}

// Get returns one meeting if it falls within the caller's scope.
func (s *MeetingService) Get(ctx context.Context, ac *model.AccessContext, id string) (*model.Meeting, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "meetings", Action: "read"}); err != nil {
		return nil, err
	}
	return s.getScoped(ctx, ac, id)
}

func (s *MeetingService) getScoped(ctx context.Context, ac *model.AccessContext, id string) (*model.Meeting, error) {
	cond := rbac.ScopeFilter(s.profile.Profile(ac), ac, meetingScoping)
	where := "id = ?"
	args := []interface{}{id}
	if !cond.Empty() {
		where += " AND " + cond.Clause
		args = append(args, cond.Args...)
	}
	meetings, err := s.store.ListMeetings(ctx, where, args)
	if err != nil {
		return nil, err
	}
	if len(meetings) == 0 {
		return nil, store.ErrNotFound
	}
	return &meetings[0], nil
}

// Create inserts a meeting after the mutation assertion.
func (s *MeetingService) Create(ctx context.Context, ac *model.AccessContext, m *model.Meeting) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "meetings", Action: "create"}); err != nil {
		return err
	}
	if err := rbac.AssertMutationAllowed(s.profile.Profile(ac), m.LocalityID, nil); err != nil {
		return err
	}

	m.ID = uuid.NewString()
	m.CreatedBy = ac.UserID
	if err := s.store.CreateMeeting(ctx, m); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "meetings", "create", m.ID, nil)
	return nil
}

// Update rewrites a meeting's fields.
func (s *MeetingService) Update(ctx context.Context, ac *model.AccessContext, m *model.Meeting) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "meetings", Action: "update"}); err != nil {
		return err
	}
	existing, err := s.getScoped(ctx, ac, m.ID)
	if err != nil {
		return err
	}
	profile := s.profile.Profile(ac)
	if err := rbac.AssertMutationAllowed(profile, existing.LocalityID, nil); err != nil {
		return err
	}
	if err := rbac.AssertMutationAllowed(profile, m.LocalityID, nil); err != nil {
		return err
	}
	if err := s.store.UpdateMeeting(ctx, m); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "meetings", "update", m.ID, nil)
	return nil
}

// Delete removes a meeting; high-trust roles only.
func (s *MeetingService) Delete(ctx context.Context, ac *model.AccessContext, id string) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "meetings", Action: "delete"}); err != nil {
		return err
	}
	if err := rbac.AssertDeleteAllowed(s.profile.Profile(ac)); err != nil {
		return err
	}
	if err := s.store.DeleteMeeting(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "meetings", "delete", id, nil)
	return nil
}
