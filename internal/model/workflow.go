package model

import "time"

// TaskStatus enumerates the lifecycle states of a task.
type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskDone      TaskStatus = "done"
	TaskCancelled TaskStatus = "cancelled"
)

// Task is a unit of work scoped to a locality and optionally a specialty or
// elo role. Responsibility is tracked per user: only TI or an explicitly
// assigned responsible may operate on a task (complete, comment).
type Task struct {
	ID           string     `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	Status       TaskStatus `json:"status" db:"status"`
	LocalityID   *string    `json:"locality_id" db:"locality_id"`
	SpecialtyID  *string    `json:"specialty_id" db:"specialty_id"`
	EloRoleID    *string    `json:"elo_role_id" db:"elo_role_id"`
	DueAt        *time.Time `json:"due_at,omitempty" db:"due_at"`
	CreatedBy    string     `json:"created_by" db:"created_by"`
	Responsibles []string   `json:"responsibles"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// TaskComment is a comment on a task, restricted to responsibles (and TI).
type TaskComment struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    string    `json:"task_id" db:"task_id"`
	AuthorID  string    `json:"author_id" db:"author_id"`
	Body      string    `json:"body" db:"body"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Meeting is a locality-scoped meeting record with free-form minutes.
type Meeting struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	LocalityID *string   `json:"locality_id" db:"locality_id"`
	HeldAt     time.Time `json:"held_at" db:"held_at"`
	Minutes    string    `json:"minutes" db:"minutes"`
	CreatedBy  string    `json:"created_by" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Checklist is a locality/specialty-scoped checklist; items live in a JSON
// column.
type Checklist struct {
	ID          string          `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	LocalityID  *string         `json:"locality_id" db:"locality_id"`
	SpecialtyID *string         `json:"specialty_id" db:"specialty_id"`
	Items       []ChecklistItem `json:"items"`
	CreatedBy   string          `json:"created_by" db:"created_by"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ChecklistItem is one entry in a checklist.
type ChecklistItem struct {
	Label string `json:"label"`
	Done  bool   `json:"done"`
}

// Report is a per-user submission. Listing applies own-record semantics for
// plain members; author identity is redacted for executive-PII viewers.
type Report struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	AuthorID    string    `json:"author_id" db:"author_id"`
	AuthorName  string    `json:"author_name" db:"author_name"`
	AuthorEmail string    `json:"author_email" db:"author_email"`
	LocalityID  *string   `json:"locality_id" db:"locality_id"`
	SpecialtyID *string   `json:"specialty_id" db:"specialty_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// AuditEvent is a fire-and-forget record of a mutating operation.
type AuditEvent struct {
	ID        int64     `json:"id" db:"id"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	Resource  string    `json:"resource" db:"resource"`
	Action    string    `json:"action" db:"action"`
	EntityID  string    `json:"entity_id" db:"entity_id"`
	Diff      string    `json:"diff,omitempty" db:"diff"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
