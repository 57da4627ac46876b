package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orgdesk/orgdesk/internal/model"
	"github.com/orgdesk/orgdesk/internal/rbac"
	"github.com/orgdesk/orgdesk/internal/store"
)

// taskScoping declares how tasks participate in scope filtering: they carry
// a specialty, may be grouped by elo role, and track individual
// responsibles.
var taskScoping = rbac.ResourceScoping{
	HasSpecialty:      true,
	GroupsByEloRole:   true,
	ResponsibleClause: "id IN (SELECT task_id FROM task_responsibles WHERE user_id = ?)",
}

// TaskService implements the task module. Every operation checks the
// authorization guard first and the scope constraints second; row filters
// on reads, mutation/operate/delete assertions on writes.
type TaskService struct {
	store   *store.Store
	profile *rbac.ProfileResolver
	audit   *AuditLogger
}

// NewTaskService creates a TaskService.
func NewTaskService(st *store.Store, profile *rbac.ProfileResolver, audit *AuditLogger) *TaskService {
	return &TaskService{store: st, profile: profile, audit: audit}
}

// List returns the tasks visible to the caller.
func (s *TaskService) List(ctx context.Context, ac *model.AccessContext) ([]model.Task, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "tasks", Action: "read"}); err != nil {
		return nil, err
	}
	cond := rbac.ScopeFilter(s.profile.Profile(ac), ac, taskScoping)
	return s.store.ListTasks(ctx, cond.Clause, cond.Args)
}

// Get returns one task if it falls within the caller's scope. Records
// outside the scope surface as not found, never as forbidden.
func (s *TaskService) Get(ctx context.Context, ac *model.AccessContext, id string) (*model.Task, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "tasks", Action: "read"}); err != nil {
		return nil, err
	}
	return s.getScoped(ctx, ac, id)
}

func (s *TaskService) getScoped(ctx context.Context, ac *model.AccessContext, id string) (*model.Task, error) {
	cond := rbac.ScopeFilter(s.profile.Profile(ac), ac, taskScoping)
	where := "id = ?"
	args := []interface{}{id}
	if !cond.Empty() {
		where += " AND " + cond.Clause
		args = append(args, cond.Args...)
	}
	tasks, err := s.store.ListTasks(ctx, where, args)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, store.ErrNotFound
	}
	return &tasks[0], nil
}

// Create inserts a task after asserting the target locality/specialty is
// within the caller's scope.
func (s *TaskService) Create(ctx context.Context, ac *model.AccessContext, t *model.Task) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "tasks", Action: "create"}); err != nil {
		return err
	}
	if err := rbac.AssertMutationAllowed(s.profile.Profile(ac), t.LocalityID, t.SpecialtyID); err != nil {
		return err
	}

	t.ID = uuid.NewString()
	t.CreatedBy = ac.UserID
	if err := s.store.CreateTask(ctx, t); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "tasks", "create", t.ID, nil)
	return nil
}

// Update rewrites a task's fields. Both the stored record and the new
// target must be inside the caller's scope.
func (s *TaskService) Update(ctx context.Context, ac *model.AccessContext, t *model.Task) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "tasks", Action: "update"}); err != nil {
		return err
	}
	existing, err := s.getScoped(ctx, ac, t.ID)
	if err != nil {
		return err
	}
	profile := s.profile.Profile(ac)
	if err := rbac.AssertMutationAllowed(profile, existing.LocalityID, existing.SpecialtyID); err != nil {
		return err
	}
	if err := rbac.AssertMutationAllowed(profile, t.LocalityID, t.SpecialtyID); err != nil {
		return err
	}
	if err := s.store.UpdateTask(ctx, t); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "tasks", "update", t.ID, nil)
	return nil
}

// Complete marks a task done. Visibility does not imply the right to
// operate: only TI or an assigned responsible passes.
func (s *TaskService) Complete(ctx context.Context, ac *model.AccessContext, id string) (*model.Task, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "tasks", Action: "operate"}); err != nil {
		return nil, err
	}
	task, err := s.getScoped(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	if err := rbac.AssertOperateAllowed(s.profile.Profile(ac), ac.UserID, task.Responsibles); err != nil {
		return nil, err
	}

	task.Status = model.TaskDone
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	s.audit.Record(ac.UserID, "tasks", "complete", id, nil)
	return task, nil
}

// Comment appends a comment to a task, restricted like Complete.
func (s *TaskService) Comment(ctx context.Context, ac *model.AccessContext, taskID, body string) (*model.TaskComment, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "tasks", Action: "operate"}); err != nil {
		return nil, err
	}
	task, err := s.getScoped(ctx, ac, taskID)
	if err != nil {
		return nil, err
	}
	if err := rbac.AssertOperateAllowed(s.profile.Profile(ac), ac.UserID, task.Responsibles); err != nil {
		return nil, err
	}

	comment := &model.TaskComment{TaskID: taskID, AuthorID: ac.UserID, Body: body}
	if err := s.store.CreateTaskComment(ctx, comment); err != nil {
		return nil, err
	}
	s.audit.Record(ac.UserID, "tasks", "comment", taskID, nil)
	return comment, nil
}

// Comments lists a task's comments for callers who can see the task.
func (s *TaskService) Comments(ctx context.Context, ac *model.AccessContext, taskID string) ([]model.TaskComment, error) {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "tasks", Action: "read"}); err != nil {
		return nil, err
	}
	if _, err := s.getScoped(ctx, ac, taskID); err != nil {
		return nil, err
	}
	return s.store.ListTaskComments(ctx, taskID)
}

// Delete removes a task. Hard deletion is reserved for the high-trust
// roles regardless of locality/specialty scope.
func (s *TaskService) Delete(ctx context.Context, ac *model.AccessContext, id string) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "tasks", Action: "delete"}); err != nil {
		return err
	}
	if err := rbac.AssertDeleteAllowed(s.profile.Profile(ac)); err != nil {
		return err
	}
	if _, err := s.store.GetTask(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ac.UserID, "tasks", "delete", id, nil)
	return nil
}

// SetResponsibles replaces the task's responsible set.
func (s *TaskService) SetResponsibles(ctx context.Context, ac *model.AccessContext, taskID string, userIDs []string) error {
	if err := rbac.Require(ac, &rbac.Requirement{Resource: "tasks", Action: "update"}); err != nil {
		return err
	}
	task, err := s.getScoped(ctx, ac, taskID)
	if err != nil {
		return err
	}
	if err := rbac.AssertMutationAllowed(s.profile.Profile(ac), task.LocalityID, task.SpecialtyID); err != nil {
		return err
	}
	if err := s.store.SetTaskResponsibles(ctx, taskID, userIDs); err != nil {
		return fmt.Errorf("set responsibles: %w", err)
	}
	s.audit.Record(ac.UserID, "tasks", "assign", taskID, map[string]interface{}{"responsibles": userIDs})
	return nil
}
