package store

import "errors"

var (
	// ErrNotFound reports a stale or unknown numeric id.
	ErrNotFound = errors.New("not found")

	// ErrEntityInUse reports an attempt to delete a location, category or
	// owner that is still referenced by at least one item.
	ErrEntityInUse = errors.New("entity in use")
)
