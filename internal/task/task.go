// Package task implements the task hierarchy: creation, reparenting with
// cycle prevention, the progress/status state machine, and tree queries.
package task

// Ref is a resolved domain or milestone reference attached to a task.
type Ref struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Task is a node in the hierarchy and a vertex in the requirement link
// graph. ID is the stable numeric key used for relationships; TaskID is the
// human-facing identifier (domain-prefixed sequence, e.g. "U-001").
type Task struct {
	ID          int64    `json:"id"`
	TaskID      string   `json:"task_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ParentID    *int64   `json:"parent_task_id,omitempty"`
	Labels      []string `json:"labels"`
	Status      string   `json:"status"`
	Progress    int      `json:"progress"`
	Priority    string   `json:"priority"`
	Owner       string   `json:"owner,omitempty"`
	DueDate     string   `json:"due_date,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	Source      string   `json:"source"`
	Blocker     string   `json:"blocker,omitempty"`
	HealthScore int      `json:"health_score"`
	Tags        []string `json:"tags"`
	Domain      *Ref     `json:"domain,omitempty"`
	Milestone   *Ref     `json:"milestone,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// Note is an immutable free-text annotation on a task.
type Note struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	Content   string `json:"content"`
	Author    string `json:"author,omitempty"`
	CreatedAt string `json:"created_at"`
}

// HistoryEntry records one progress value transition.
type HistoryEntry struct {
	ID         int64  `json:"id"`
	TaskID     int64  `json:"task_id"`
	Progress   int    `json:"progress"`
	Summary    string `json:"summary,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

// CreateParams are the inputs for creating a task.
type CreateParams struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	Milestone    string   `json:"milestone,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	Status       string   `json:"status,omitempty"`
	Owner        string   `json:"owner,omitempty"`
	DueDate      string   `json:"due_date,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	ParentTaskID string   `json:"parent_task_id,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Source       string   `json:"source,omitempty"`
}

// UpdateParams is a partial field set; nil fields are left untouched.
// A non-nil ParentTaskID triggers the reparent path, where the empty string
// detaches the task.
type UpdateParams struct {
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Status       *string   `json:"status,omitempty"`
	Priority     *string   `json:"priority,omitempty"`
	Owner        *string   `json:"owner,omitempty"`
	DueDate      *string   `json:"due_date,omitempty"`
	StartDate    *string   `json:"start_date,omitempty"`
	Domain       *string   `json:"domain,omitempty"`
	Milestone    *string   `json:"milestone,omitempty"`
	Blocker      *string   `json:"blocker,omitempty"`
	ParentTaskID *string   `json:"parent_task_id,omitempty"`
	Labels       *[]string `json:"labels,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
}

// Filters select tasks across independent dimensions with AND semantics.
type Filters struct {
	Domain    string
	Milestone string
	Status    string
	Owner     string
	Priority  string
	Label     string
}

// TreeNode is a task with its nested children.
type TreeNode struct {
	*Task
	Children []*TreeNode `json:"children"`
}
