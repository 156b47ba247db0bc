package model

import "errors"

// Error taxonomy. All of these are validation-class failures scoped to a
// single operation: the caller gets the error and prior state is untouched.
var (
	// ErrNotFound means a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCycle means the hierarchy or an ordering-sensitive link subgraph
	// would become cyclic.
	ErrCycle = errors.New("cycle detected")
	// ErrInvalidLink means a link references the same task on both ends.
	ErrInvalidLink = errors.New("invalid link")
	// ErrValidation means an input failed a field-level check.
	ErrValidation = errors.New("validation failed")
)
