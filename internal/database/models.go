package database

import (
	"database/sql"
	"time"
)

// Challenge represents a single challenge issued in a guild, tied to the chat
// message that announced it. A challenge starts open and is answered at most
// once; the responding member and response time are recorded together.
type Challenge struct {
	ID      int64     `db:"id"`
	Created time.Time `db:"created"`

	GuildID       int64  `db:"guild_id"`
	TextChannelID int64  `db:"text_channel_id"`
	MessageID     int64  `db:"message_id"` // globally unique across all challenges
	ChallengeType string `db:"challenge_type"`

	RespondingMemberID sql.NullInt64 `db:"responding_member_id"`
	RespondedAt        sql.NullTime  `db:"responded_at"`
}

// IsOpen reports whether the challenge is still awaiting a response.
func (c *Challenge) IsOpen() bool {
	return !c.RespondedAt.Valid
}

// Elapsed returns the time between creation and response. The second return
// value is false while the challenge is still open.
func (c *Challenge) Elapsed() (time.Duration, bool) {
	if !c.RespondedAt.Valid {
		return 0, false
	}
	return c.RespondedAt.Time.Sub(c.Created), true
}

// MatchTypeRole maps a guild and match type to a role that should be
// associated with matches of that type. A role may appear at most once per
// (guild, match type) pair but can be reused across pairs.
type MatchTypeRole struct {
	ID        int64  `db:"id"`
	GuildID   int64  `db:"guild_id"`
	MatchType string `db:"match_type"`
	RoleID    int64  `db:"role_id"`
}
