package database_test

import (
	"database/sql"
	"testing"
	"time"

	"challengekeeper/internal/database"
)

func TestChallengeIsOpen(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c := database.Challenge{Created: created}
	if !c.IsOpen() {
		t.Error("challenge without a response must be open")
	}

	c.RespondingMemberID = sql.NullInt64{Int64: 42, Valid: true}
	c.RespondedAt = sql.NullTime{Time: created.Add(5 * time.Minute), Valid: true}
	if c.IsOpen() {
		t.Error("challenge with a response must not be open")
	}
}

func TestChallengeElapsed(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	c := database.Challenge{Created: created}
	if _, ok := c.Elapsed(); ok {
		t.Error("open challenge must not report an elapsed duration")
	}

	c.RespondingMemberID = sql.NullInt64{Int64: 42, Valid: true}
	c.RespondedAt = sql.NullTime{Time: created.Add(5 * time.Minute), Valid: true}

	elapsed, ok := c.Elapsed()
	if !ok {
		t.Fatal("answered challenge must report an elapsed duration")
	}
	if elapsed != 5*time.Minute {
		t.Errorf("Elapsed = %v, want %v", elapsed, 5*time.Minute)
	}
}
