// Package database holds helpers shared by the per-domain db layers.
package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// IsUniqueViolation reports whether err is a unique-constraint violation
// from either Postgres (lib/pq) or SQLite (used in tests).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsForeignKeyViolation reports whether err is a foreign-key violation.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// UniqueConstraintContains reports whether the violated unique constraint
// involves the given name fragment. Postgres exposes the constraint name
// directly; SQLite only reports the column list, so the fragment is matched
// against the whole message there.
func UniqueConstraintContains(err error, fragment string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return strings.Contains(pqErr.Constraint, fragment)
	}
	return strings.Contains(err.Error(), fragment)
}
