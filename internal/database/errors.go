package database

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Sentinel errors for constraint and lifecycle conflicts surfaced by the Store.
// Callers match them with errors.Is.
var (
	// ErrDuplicateChallenge is returned when inserting a challenge whose
	// message_id is already registered.
	ErrDuplicateChallenge = errors.New("challenge already exists for message")

	// ErrChallengeNotFound is returned when an operation addresses a
	// message_id with no corresponding challenge row.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeResponded is returned when responding to a challenge that
	// already has a recorded response.
	ErrChallengeResponded = errors.New("challenge already responded to")

	// ErrRoleExists is returned when inserting a match type role whose
	// (guild_id, match_type, role_id) triple is already registered.
	ErrRoleExists = errors.New("role already registered for match type")
)

// isUniqueViolation reports whether err is a SQLite unique or primary key
// constraint failure.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
