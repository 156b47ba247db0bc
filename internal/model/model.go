// Package model holds the shared vocabulary of the tracker: statuses,
// priorities, link types and the error taxonomy used across packages.
package model

// Task statuses. Planned is the canonical initial state; a task enters the
// forest already scheduled (the backlog pool is a separate entity).
const (
	StatusPlanned   = "planned"
	StatusActive    = "active"
	StatusReview    = "review"
	StatusBlocked   = "blocked"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPlanned, StatusActive, StatusReview, StatusBlocked, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Priorities, highest first.
const (
	PriorityP0 = "P0"
	PriorityP1 = "P1"
	PriorityP2 = "P2"
	PriorityP3 = "P3"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

// PriorityRank maps a priority to its sort rank (P0 first). Unknown
// priorities sort last.
func PriorityRank(p string) int {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	case PriorityP2:
		return 2
	case PriorityP3:
		return 3
	}
	return 4
}

// Requirement link types. Blocks and precedes are ordering-sensitive: the
// directed subgraph of each must stay acyclic. Relates is a weak symmetric
// association with no cycle constraint.
const (
	LinkBlocks   = "blocks"
	LinkPrecedes = "precedes"
	LinkRelates  = "relates"
)

// ValidLinkType reports whether t is a known link type.
func ValidLinkType(t string) bool {
	switch t {
	case LinkBlocks, LinkPrecedes, LinkRelates:
		return true
	}
	return false
}

// OrderingSensitive reports whether links of type t must stay acyclic.
func OrderingSensitive(t string) bool {
	return t == LinkBlocks || t == LinkPrecedes
}
