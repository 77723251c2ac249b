package game

import "errors"

var (
	// ErrStateConflict is returned when an item was consumed, moved or
	// re-owned by a concurrent operation before this one could lock it.
	ErrStateConflict = errors.New("item state conflict")
	// ErrUnknownDefinition is returned for definition ids missing from the catalog.
	ErrUnknownDefinition = errors.New("unknown item definition")
)
