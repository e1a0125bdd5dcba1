// Package storage is the persistence gateway: entity-scoped sqlx
// repositories over Postgres. Statement-level atomicity only, no
// business logic.
package storage

import "errors"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")
