package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/restaurant-backend/pkg/errors"
)

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether err is a unique violation. When
// constraintName is set the constraint must match as well. SQLite errors have
// no SQLSTATE, so the message is used as a fallback.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	state := pkgerrors.SQLState(err)
	unique := state == sqlStateUniqueViolation ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
	if !unique {
		return false
	}
	if constraintName != "" {
		return pkgerrors.Constraint(err) == constraintName || strings.Contains(msg, constraintName)
	}
	return true
}

// IsTransient reports whether the transaction that produced err was aborted by
// the database and can be replayed as a whole: serialization failures,
// deadlocks and a busy SQLite file.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch pkgerrors.SQLState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
