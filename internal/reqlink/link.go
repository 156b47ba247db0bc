// Package reqlink maintains typed directed requirement links between tasks,
// independent of the parent/child hierarchy. Ordering-sensitive link types
// (blocks, precedes) are kept acyclic per type at creation time.
package reqlink

// Link is a directed, typed edge between two distinct tasks, keyed by the
// tasks' numeric ids.
type Link struct {
	ID           int64  `json:"id"`
	SourceTaskID int64  `json:"source_task_id"`
	TargetTaskID int64  `json:"target_task_id"`
	LinkType     string `json:"link_type"`
	CreatedAt    string `json:"created_at"`
}

// EnrichedLink is a link carrying the human-facing task ids for consumers
// that render or export the graph.
type EnrichedLink struct {
	Link
	SourceTaskStrID string `json:"source_task_str_id"`
	TargetTaskStrID string `json:"target_task_str_id"`
}
