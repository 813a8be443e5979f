// Package store provides the relational metadata repositories: projects,
// legacy project keys, and OAuth sessions with their project grants. All
// repositories run against PostgreSQL through a shared pgx pool.
package store

import "errors"

// ErrNotFound is returned when a lookup finds no matching record.
var ErrNotFound = errors.New("record not found")
