package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orgdesk/orgdesk/internal/model"
)

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// CreateTask inserts a task and its responsible assignments.
func (s *Store) CreateTask(ctx context.Context, t *model.Task) error {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Status == "" {
		t.Status = model.TaskOpen
	}

	const q = `INSERT INTO tasks
		(id, title, description, status, locality_id, specialty_id, elo_role_id, due_at, created_by, created_at, updated_at)
		VALUES
		(:id, :title, :description, :status, :locality_id, :specialty_id, :elo_role_id, :due_at, :created_by, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, t); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return s.SetTaskResponsibles(ctx, t.ID, t.Responsibles)
}

// GetTask returns a task by ID with its responsibles loaded.
func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	if err := s.db.GetContext(ctx, &t, s.rebind("SELECT * FROM tasks WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	responsibles, err := s.GetTaskResponsibles(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Responsibles = responsibles
	return &t, nil
}

// ListTasks returns tasks matching the given scope predicate. An empty
// where clause returns everything.
func (s *Store) ListTasks(ctx context.Context, where string, args []interface{}) ([]model.Task, error) {
	q := "SELECT * FROM tasks"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY created_at DESC"

	var tasks []model.Task
	if err := s.db.SelectContext(ctx, &tasks, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i := range tasks {
		responsibles, err := s.GetTaskResponsibles(ctx, tasks[i].ID)
		if err != nil {
			return nil, err
		}
		tasks[i].Responsibles = responsibles
	}
	return tasks, nil
}

// UpdateTask updates a task's fields and replaces its responsibles.
func (s *Store) UpdateTask(ctx context.Context, t *model.Task) error {
	t.UpdatedAt = time.Now().UTC()

	const q = `UPDATE tasks SET
		title = :title, description = :description, status = :status,
		locality_id = :locality_id, specialty_id = :specialty_id, elo_role_id = :elo_role_id,
		due_at = :due_at, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, t)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return s.SetTaskResponsibles(ctx, t.ID, t.Responsibles)
}

// DeleteTask removes a task. Responsibles and comments cascade.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM tasks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetTaskResponsibles replaces a task's responsible set transactionally.
func (s *Store) SetTaskResponsibles(ctx context.Context, taskID string, userIDs []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	del := s.rebind("DELETE FROM task_responsibles WHERE task_id = ?")
	if _, err := tx.ExecContext(ctx, del, taskID); err != nil {
		return fmt.Errorf("delete task responsibles: %w", err)
	}
	ins := s.rebind("INSERT INTO task_responsibles (task_id, user_id) VALUES (?, ?)")
	for _, uid := range userIDs {
		if _, err := tx.ExecContext(ctx, ins, taskID, uid); err != nil {
			return fmt.Errorf("insert task responsible: %w", err)
		}
	}
	return tx.Commit()
}

// GetTaskResponsibles returns the user IDs responsible for a task.
func (s *Store) GetTaskResponsibles(ctx context.Context, taskID string) ([]string, error) {
	var ids []string
	q := s.rebind("SELECT user_id FROM task_responsibles WHERE task_id = ? ORDER BY user_id")
	if err := s.db.SelectContext(ctx, &ids, q, taskID); err != nil {
		return nil, fmt.Errorf("get task responsibles: %w", err)
	}
	return ids, nil
}

// CreateTaskComment appends a comment to a task.
func (s *Store) CreateTaskComment(ctx context.Context, c *model.TaskComment) error {
	c.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO task_comments (task_id, author_id, body, created_at)
		VALUES (:task_id, :author_id, :body, :created_at)`

	id, err := s.namedInsertID(ctx, q, c)
	if err != nil {
		return fmt.Errorf("insert task comment: %w", err)
	}
	c.ID = id
	return nil
}

// ListTaskComments returns a task's comments oldest first.
func (s *Store) ListTaskComments(ctx context.Context, taskID string) ([]model.TaskComment, error) {
	var comments []model.TaskComment
	q := s.rebind("SELECT * FROM task_comments WHERE task_id = ? ORDER BY id")
	if err := s.db.SelectContext(ctx, &comments, q, taskID); err != nil {
		return nil, fmt.Errorf("list task comments: %w", err)
	}
	return comments, nil
}

// ---------------------------------------------------------------------------
// Meetings
// ---------------------------------------------------------------------------

// CreateMeeting inserts a meeting record.
func (s *Store) CreateMeeting(ctx context.Context, m *model.Meeting) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	const q = `INSERT INTO meetings
		(id, title, locality_id, held_at, minutes, created_by, created_at, updated_at)
		VALUES
		(:id, :title, :locality_id, :held_at, :minutes, :created_by, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, m); err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

// GetMeeting returns a meeting by ID.
func (s *Store) GetMeeting(ctx context.Context, id string) (*model.Meeting, error) {
	var m model.Meeting
	if err := s.db.GetContext(ctx, &m, s.rebind("SELECT * FROM meetings WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return &m, nil
}

// ListMeetings returns meetings matching the given scope predicate.
func (s *Store) ListMeetings(ctx context.Context, where string, args []interface{}) ([]model.Meeting, error) {
	q := "SELECT * FROM meetings"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY held_at DESC"

	var meetings []model.Meeting
	if err := s.db.SelectContext(ctx, &meetings, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	return meetings, nil
}

// UpdateMeeting updates a meeting record.
func (s *Store) UpdateMeeting(ctx context.Context, m *model.Meeting) error {
	m.UpdatedAt = time.Now().UTC()

	const q = `UPDATE meetings SET
		title = :title, locality_id = :locality_id, held_at = :held_at, minutes = :minutes, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, m)
	if err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update meeting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMeeting removes a meeting by ID.
func (s *Store) DeleteMeeting(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM meetings WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete meeting rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Checklists
// ---------------------------------------------------------------------------

// checklistRow maps 1:1 to the checklists table; items are a JSON column.
type checklistRow struct {
	ID          string    `db:"id"`
	Title       string    `db:"title"`
	LocalityID  *string   `db:"locality_id"`
	SpecialtyID *string   `db:"specialty_id"`
	ItemsJSON   string    `db:"items_json"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func checklistRowFromModel(c *model.Checklist) (checklistRow, error) {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return checklistRow{}, fmt.Errorf("marshal checklist items: %w", err)
	}
	return checklistRow{
		ID:          c.ID,
		Title:       c.Title,
		LocalityID:  c.LocalityID,
		SpecialtyID: c.SpecialtyID,
		ItemsJSON:   string(itemsJSON),
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}, nil
}

func (r checklistRow) toModel() (model.Checklist, error) {
	var items []model.ChecklistItem
	if r.ItemsJSON != "" && r.ItemsJSON != "[]" {
		if err := json.Unmarshal([]byte(r.ItemsJSON), &items); err != nil {
			return model.Checklist{}, fmt.Errorf("unmarshal checklist items: %w", err)
		}
	}
	if items == nil {
		items = []model.ChecklistItem{}
	}
	return model.Checklist{
		ID:          r.ID,
		Title:       r.Title,
		LocalityID:  r.LocalityID,
		SpecialtyID: r.SpecialtyID,
		Items:       items,
		CreatedBy:   r.CreatedBy,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

// CreateChecklist inserts a checklist.
func (s *Store) CreateChecklist(ctx context.Context, c *model.Checklist) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	row, err := checklistRowFromModel(c)
	if err != nil {
		return err
	}

	const q = `INSERT INTO checklists
		(id, title, locality_id, specialty_id, items_json, created_by, created_at, updated_at)
		VALUES
		(:id, :title, :locality_id, :specialty_id, :items_json, :created_by, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert checklist: %w", err)
	}
	return nil
}

// GetChecklist returns a checklist by ID.
func (s *Store) GetChecklist(ctx context.Context, id string) (*model.Checklist, error) {
	var row checklistRow
	if err := s.db.GetContext(ctx, &row, s.rebind("SELECT * FROM checklists WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get checklist: %w", err)
	}
	c, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChecklists returns checklists matching the given scope predicate.
func (s *Store) ListChecklists(ctx context.Context, where string, args []interface{}) ([]model.Checklist, error) {
	q := "SELECT * FROM checklists"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY created_at DESC"

	var rows []checklistRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list checklists: %w", err)
	}

	checklists := make([]model.Checklist, 0, len(rows))
	for _, r := range rows {
		c, err := r.toModel()
		if err != nil {
			return nil, err
		}
		checklists = append(checklists, c)
	}
	return checklists, nil
}

// UpdateChecklist updates a checklist, items included.
func (s *Store) UpdateChecklist(ctx context.Context, c *model.Checklist) error {
	c.UpdatedAt = time.Now().UTC()
	row, err := checklistRowFromModel(c)
	if err != nil {
		return err
	}

	const q = `UPDATE checklists SET
		title = :title, locality_id = :locality_id, specialty_id = :specialty_id,
		items_json = :items_json, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("update checklist: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update checklist rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChecklist removes a checklist by ID.
func (s *Store) DeleteChecklist(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM checklists WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete checklist: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete checklist rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

// CreateReport inserts a report.
func (s *Store) CreateReport(ctx context.Context, r *model.Report) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	const q = `INSERT INTO reports
		(id, title, body, author_id, author_name, author_email, locality_id, specialty_id, created_at, updated_at)
		VALUES
		(:id, :title, :body, :author_id, :author_name, :author_email, :locality_id, :specialty_id, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, r); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetReport returns a report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var r model.Report
	if err := s.db.GetContext(ctx, &r, s.rebind("SELECT * FROM reports WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &r, nil
}

// ListReports returns reports matching the given scope predicate.
func (s *Store) ListReports(ctx context.Context, where string, args []interface{}) ([]model.Report, error) {
	q := "SELECT * FROM reports"
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY created_at DESC"

	var reports []model.Report
	if err := s.db.SelectContext(ctx, &reports, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// UpdateReport updates a report's content.
func (s *Store) UpdateReport(ctx context.Context, r *model.Report) error {
	r.UpdatedAt = time.Now().UTC()

	const q = `UPDATE reports SET
		title = :title, body = :body, locality_id = :locality_id, specialty_id = :specialty_id, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, r)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReport removes a report by ID.
func (s *Store) DeleteReport(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM reports WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete report rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
