// Package mcp exposes the tracker as Model Context Protocol tools so
// AI coding assistants can drive it over stdio.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/metalagman/clawpm/internal/backlog"
	"github.com/metalagman/clawpm/internal/reqlink"
	"github.com/metalagman/clawpm/internal/task"
)

// Server wraps the tracker services and exposes them as MCP tools.
type Server struct {
	server  *gomcp.Server
	tasks   *task.Service
	links   *reqlink.Service
	backlog *backlog.Service
}

// NewServer creates an MCP server over the given services.
func NewServer(tasks *task.Service, links *reqlink.Service, bl *backlog.Service, version string) *Server {
	if version == "" {
		version = "dev"
	}
	s := &Server{tasks: tasks, links: links, backlog: bl}
	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "clawpm", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the client disconnects or ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Create a task. Title is required; priority (P0-P3), status, domain, milestone, owner, due_date, labels, tags and parent_task_id are optional.",
	}, s.handleCreateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get a task by its string id (e.g. T-001).",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks with optional domain, milestone, status, owner, priority and label filters.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_tree",
		Description: "Get the nested task tree. Filters keep matches attached to their ancestors.",
	}, s.handleGetTree)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "reparent_task",
		Description: "Move a task under a new parent, or detach it with an empty parent_task_id. Moves into a task's own subtree are rejected.",
	}, s.handleReparent)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task",
		Description: "Partially update a task's fields. Omitted fields keep their values.",
	}, s.handleUpdateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_progress",
		Description: "Record progress (0-100) with an optional summary. 100 completes the task; progress on a planned task activates it; an increase clears any blocker.",
	}, s.handleUpdateProgress)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task done with progress 100, clearing any blocker.",
	}, s.handleComplete)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "report_blocker",
		Description: "Record a blocker on a task and move it to the blocked status.",
	}, s.handleReportBlocker)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_note",
		Description: "Append an immutable note to a task.",
	}, s.handleAddNote)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "next_task",
		Description: "Recommend the next task to work on for an optional owner and domain.",
	}, s.handleNextTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_link",
		Description: "Create a typed requirement link between two tasks (blocks, precedes or relates). Blocks and precedes links that would close a cycle are rejected.",
	}, s.handleCreateLink)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_links",
		Description: "List requirement links, either for one task or all of them.",
	}, s.handleListLinks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_link",
		Description: "Delete a requirement link by numeric id. Unknown ids are a no-op.",
	}, s.handleDeleteLink)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_backlog",
		Description: "Pool a requirement in the backlog without scheduling it.",
	}, s.handleAddBacklog)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_backlog",
		Description: "List backlog items with optional domain, priority and status filters.",
	}, s.handleListBacklog)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "schedule_backlog",
		Description: "Promote a backlog item into a tracked task, optionally setting milestone, owner, due date and priority.",
	}, s.handleScheduleBacklog)
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// --- Tool input/output types ---

type taskRefInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task's string id (e.g. T-001)"`
}

type listTasksInput struct {
	Domain    string `json:"domain,omitempty"`
	Milestone string `json:"milestone,omitempty"`
	Status    string `json:"status,omitempty"`
	Owner     string `json:"owner,omitempty"`
	Priority  string `json:"priority,omitempty"`
	Label     string `json:"label,omitempty"`
}

type taskListOutput struct {
	Tasks []*task.Task `json:"tasks"`
	Count int          `json:"count"`
}

type treeOutput struct {
	Roots []*task.TreeNode `json:"roots"`
}

type reparentInput struct {
	TaskID       string `json:"task_id" jsonschema:"required,the task to move"`
	ParentTaskID string `json:"parent_task_id,omitempty" jsonschema:"the new parent's string id; empty detaches the task"`
}

type updateTaskInput struct {
	TaskID string            `json:"task_id" jsonschema:"required,the task to update"`
	Fields task.UpdateParams `json:"fields"`
}

type progressInput struct {
	TaskID   string `json:"task_id" jsonschema:"required,the task to update"`
	Progress int    `json:"progress" jsonschema:"required,progress percentage 0-100"`
	Summary  string `json:"summary,omitempty" jsonschema:"what was done"`
}

type completeInput struct {
	TaskID  string `json:"task_id" jsonschema:"required,the task to complete"`
	Summary string `json:"summary,omitempty"`
}

type blockerInput struct {
	TaskID  string `json:"task_id" jsonschema:"required,the blocked task"`
	Blocker string `json:"blocker" jsonschema:"required,what is blocking the task"`
}

type addNoteInput struct {
	TaskID  string `json:"task_id" jsonschema:"required,the task to annotate"`
	Content string `json:"content" jsonschema:"required,the note text"`
	Author  string `json:"author,omitempty"`
}

type nextTaskInput struct {
	Owner  string `json:"owner,omitempty"`
	Domain string `json:"domain,omitempty"`
}

type nextTaskOutput struct {
	Task    *task.Task `json:"task,omitempty"`
	Message string     `json:"message,omitempty"`
}

type createLinkInput struct {
	SourceTaskID string `json:"source_task_id" jsonschema:"required,the link source task id"`
	TargetTaskID string `json:"target_task_id" jsonschema:"required,the link target task id"`
	LinkType     string `json:"link_type" jsonschema:"required,one of blocks precedes relates"`
}

type listLinksInput struct {
	TaskID string `json:"task_id,omitempty" jsonschema:"restrict to links touching this task"`
}

type linkListOutput struct {
	Links []*reqlink.EnrichedLink `json:"links"`
	Count int                     `json:"count"`
}

type deleteLinkInput struct {
	LinkID int64 `json:"link_id" jsonschema:"required,the numeric link id"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type listBacklogInput struct {
	Domain   string `json:"domain,omitempty"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
}

type backlogListOutput struct {
	Items []*backlog.Item `json:"items"`
	Count int             `json:"count"`
}

type scheduleBacklogInput struct {
	BacklogID string `json:"backlog_id" jsonschema:"required,the backlog item id (e.g. BL-001)"`
	Milestone string `json:"milestone,omitempty"`
	Owner     string `json:"owner,omitempty"`
	DueDate   string `json:"due_date,omitempty"`
	Priority  string `json:"priority,omitempty"`
}

// --- Handlers ---

func (s *Server) handleCreateTask(ctx context.Context, _ *gomcp.CallToolRequest, input task.CreateParams) (*gomcp.CallToolResult, *task.Task, error) {
	created, err := s.tasks.Create(ctx, input)
	if err != nil {
		return errorResult(fmt.Sprintf("creating task: %s", err)), nil, nil
	}
	return nil, created, nil
}

func (s *Server) handleGetTask(ctx context.Context, _ *gomcp.CallToolRequest, input taskRefInput) (*gomcp.CallToolResult, *task.Task, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), nil, nil
	}
	t, err := s.tasks.Get(ctx, input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, err)), nil, nil
	}
	return nil, t, nil
}

func (s *Server) handleListTasks(ctx context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, taskListOutput, error) {
	tasks, err := s.tasks.List(ctx, task.Filters{
		Domain:    input.Domain,
		Milestone: input.Milestone,
		Status:    input.Status,
		Owner:     input.Owner,
		Priority:  input.Priority,
		Label:     input.Label,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), taskListOutput{}, nil
	}
	return nil, taskListOutput{Tasks: tasks, Count: len(tasks)}, nil
}

func (s *Server) handleGetTree(ctx context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, treeOutput, error) {
	roots, err := s.tasks.GetTree(ctx, task.Filters{
		Domain:    input.Domain,
		Milestone: input.Milestone,
		Status:    input.Status,
		Owner:     input.Owner,
		Priority:  input.Priority,
		Label:     input.Label,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("building tree: %s", err)), treeOutput{}, nil
	}
	return nil, treeOutput{Roots: roots}, nil
}

func (s *Server) handleReparent(ctx context.Context, _ *gomcp.CallToolRequest, input reparentInput) (*gomcp.CallToolResult, *task.Task, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), nil, nil
	}
	t, err := s.tasks.Reparent(ctx, input.TaskID, input.ParentTaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("reparenting %s: %s", input.TaskID, err)), nil, nil
	}
	return nil, t, nil
}

func (s *Server) handleUpdateTask(ctx context.Context, _ *gomcp.CallToolRequest, input updateTaskInput) (*gomcp.CallToolResult, *task.Task, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), nil, nil
	}
	t, err := s.tasks.Update(ctx, input.TaskID, input.Fields)
	if err != nil {
		return errorResult(fmt.Sprintf("updating %s: %s", input.TaskID, err)), nil, nil
	}
	return nil, t, nil
}

func (s *Server) handleUpdateProgress(ctx context.Context, _ *gomcp.CallToolRequest, input progressInput) (*gomcp.CallToolResult, *task.Task, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), nil, nil
	}
	t, err := s.tasks.UpdateProgress(ctx, input.TaskID, input.Progress, input.Summary)
	if err != nil {
		return errorResult(fmt.Sprintf("updating progress on %s: %s", input.TaskID, err)), nil, nil
	}
	return nil, t, nil
}

func (s *Server) handleComplete(ctx context.Context, _ *gomcp.CallToolRequest, input completeInput) (*gomcp.CallToolResult, *task.Task, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), nil, nil
	}
	t, err := s.tasks.Complete(ctx, input.TaskID, input.Summary)
	if err != nil {
		return errorResult(fmt.Sprintf("completing %s: %s", input.TaskID, err)), nil, nil
	}
	return nil, t, nil
}

func (s *Server) handleReportBlocker(ctx context.Context, _ *gomcp.CallToolRequest, input blockerInput) (*gomcp.CallToolResult, *task.Task, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), nil, nil
	}
	if input.Blocker == "" {
		return errorResult("blocker is required"), nil, nil
	}
	t, err := s.tasks.ReportBlocker(ctx, input.TaskID, input.Blocker)
	if err != nil {
		return errorResult(fmt.Sprintf("reporting blocker on %s: %s", input.TaskID, err)), nil, nil
	}
	return nil, t, nil
}

func (s *Server) handleAddNote(ctx context.Context, _ *gomcp.CallToolRequest, input addNoteInput) (*gomcp.CallToolResult, *task.Note, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), nil, nil
	}
	if input.Content == "" {
		return errorResult("content is required"), nil, nil
	}
	n, err := s.tasks.AddNote(ctx, input.TaskID, input.Content, input.Author)
	if err != nil {
		return errorResult(fmt.Sprintf("adding note to %s: %s", input.TaskID, err)), nil, nil
	}
	return nil, n, nil
}

func (s *Server) handleNextTask(ctx context.Context, _ *gomcp.CallToolRequest, input nextTaskInput) (*gomcp.CallToolResult, nextTaskOutput, error) {
	t, err := s.tasks.RecommendNext(ctx, input.Owner, input.Domain)
	if err != nil {
		return errorResult(fmt.Sprintf("recommending next task: %s", err)), nextTaskOutput{}, nil
	}
	if t == nil {
		return nil, nextTaskOutput{Message: "no open tasks match"}, nil
	}
	return nil, nextTaskOutput{Task: t}, nil
}

func (s *Server) handleCreateLink(ctx context.Context, _ *gomcp.CallToolRequest, input createLinkInput) (*gomcp.CallToolResult, *reqlink.Link, error) {
	l, err := s.links.Create(ctx, input.SourceTaskID, input.TargetTaskID, input.LinkType)
	if err != nil {
		return errorResult(fmt.Sprintf("creating link: %s", err)), nil, nil
	}
	return nil, l, nil
}

func (s *Server) handleListLinks(ctx context.Context, _ *gomcp.CallToolRequest, input listLinksInput) (*gomcp.CallToolResult, linkListOutput, error) {
	var links []*reqlink.Link
	var err error
	if input.TaskID != "" {
		links, err = s.links.ListForTask(ctx, input.TaskID)
	} else {
		links, err = s.links.ListAll(ctx)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("listing links: %s", err)), linkListOutput{}, nil
	}
	enriched, err := s.links.Enrich(ctx, links)
	if err != nil {
		return errorResult(fmt.Sprintf("listing links: %s", err)), linkListOutput{}, nil
	}
	return nil, linkListOutput{Links: enriched, Count: len(enriched)}, nil
}

func (s *Server) handleDeleteLink(ctx context.Context, _ *gomcp.CallToolRequest, input deleteLinkInput) (*gomcp.CallToolResult, messageOutput, error) {
	if err := s.links.Delete(ctx, input.LinkID); err != nil {
		return errorResult(fmt.Sprintf("deleting link %d: %s", input.LinkID, err)), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("link %d deleted", input.LinkID)}, nil
}

func (s *Server) handleAddBacklog(ctx context.Context, _ *gomcp.CallToolRequest, input backlog.CreateParams) (*gomcp.CallToolResult, *backlog.Item, error) {
	item, err := s.backlog.Create(ctx, input)
	if err != nil {
		return errorResult(fmt.Sprintf("adding backlog item: %s", err)), nil, nil
	}
	return nil, item, nil
}

func (s *Server) handleListBacklog(ctx context.Context, _ *gomcp.CallToolRequest, input listBacklogInput) (*gomcp.CallToolResult, backlogListOutput, error) {
	items, err := s.backlog.List(ctx, backlog.Filters{
		Domain:   input.Domain,
		Priority: input.Priority,
		Status:   input.Status,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("listing backlog: %s", err)), backlogListOutput{}, nil
	}
	return nil, backlogListOutput{Items: items, Count: len(items)}, nil
}

func (s *Server) handleScheduleBacklog(ctx context.Context, _ *gomcp.CallToolRequest, input scheduleBacklogInput) (*gomcp.CallToolResult, *task.Task, error) {
	if input.BacklogID == "" {
		return errorResult("backlog_id is required"), nil, nil
	}
	t, err := s.backlog.Schedule(ctx, input.BacklogID, backlog.ScheduleParams{
		Milestone: input.Milestone,
		Owner:     input.Owner,
		DueDate:   input.DueDate,
		Priority:  input.Priority,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("scheduling %s: %s", input.BacklogID, err)), nil, nil
	}
	return nil, t, nil
}
