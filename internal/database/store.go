package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateChallenge inserts a new challenge row. The ID is assigned by the
	// engine; Created defaults to the current UTC time when zero. Returns
	// ErrDuplicateChallenge if the message ID is already registered.
	CreateChallenge(ctx context.Context, challenge *Challenge) error

	// GetChallengeByMessageID retrieves a challenge by its unique message ID.
	// Returns nil, nil if not found.
	GetChallengeByMessageID(ctx context.Context, messageID int64) (*Challenge, error)

	// RespondToChallenge records a member's response on the challenge
	// addressed by messageID, setting the responding member and response time
	// together. Returns ErrChallengeNotFound if no such challenge exists and
	// ErrChallengeResponded if a response was already recorded.
	RespondToChallenge(ctx context.Context, messageID, memberID int64) (*Challenge, error)

	// GetChallengesInGuild retrieves all challenges for a guild, oldest first.
	// When openOnly is true, only challenges without a response are returned.
	GetChallengesInGuild(ctx context.Context, guildID int64, openOnly bool) ([]Challenge, error)

	// GetAllChallenges retrieves challenges across all guilds, oldest first.
	GetAllChallenges(ctx context.Context, openOnly bool) ([]Challenge, error)

	// GetCompletedChallengesSince retrieves answered challenges created at or
	// after the given time, oldest first. A guildID of 0 spans all guilds.
	GetCompletedChallengesSince(ctx context.Context, guildID int64, since time.Time) ([]Challenge, error)

	// CreateMatchTypeRole registers a role for a (guild, match type) pair.
	// Returns ErrRoleExists if the triple is already registered.
	CreateMatchTypeRole(ctx context.Context, role *MatchTypeRole) error

	// DeleteMatchTypeRole removes a role mapping by row ID.
	DeleteMatchTypeRole(ctx context.Context, id int64) error

	// GetMatchTypeRoles retrieves all roles registered for a guild and match type.
	GetMatchTypeRoles(ctx context.Context, guildID int64, matchType string) ([]MatchTypeRole, error)

	// GetAllMatchTypeRoles retrieves every role mapping across all guilds.
	GetAllMatchTypeRoles(ctx context.Context) ([]MatchTypeRole, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const challengeColumns = `id, created, guild_id, text_channel_id, message_id, challenge_type, responding_member_id, responded_at`

// CreateChallenge inserts a new challenge row.
func (s *sqlxStore) CreateChallenge(ctx context.Context, challenge *Challenge) error {
	if challenge == nil {
		return fmt.Errorf("cannot create nil challenge")
	}
	if challenge.GuildID == 0 {
		return fmt.Errorf("challenge must have a non-zero guild_id")
	}
	if challenge.TextChannelID == 0 {
		return fmt.Errorf("challenge must have a non-zero text_channel_id")
	}
	if challenge.MessageID == 0 {
		return fmt.Errorf("challenge must have a non-zero message_id")
	}
	if challenge.ChallengeType == "" {
		return fmt.Errorf("challenge must have a non-empty challenge_type")
	}

	if challenge.Created.IsZero() {
		challenge.Created = time.Now().UTC()
	}
	challenge.ChallengeType = strings.ToLower(challenge.ChallengeType)

	query := `
        INSERT INTO challenges (created, guild_id, text_channel_id, message_id, challenge_type)
        VALUES (:created, :guild_id, :text_channel_id, :message_id, :challenge_type);
    `

	result, err := s.db.NamedExecContext(ctx, query, challenge)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.WarnContext(ctx, "Duplicate challenge rejected",
				"guild_id", challenge.GuildID, "message_id", challenge.MessageID)
			return fmt.Errorf("message %d: %w", challenge.MessageID, ErrDuplicateChallenge)
		}
		s.logger.ErrorContext(ctx, "Error creating challenge",
			"guild_id", challenge.GuildID, "message_id", challenge.MessageID, "error", err)
		return fmt.Errorf("failed to create challenge for message %d: %w", challenge.MessageID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		// Log if getting LastInsertId fails, but don't fail the operation
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating challenge",
			"guild_id", challenge.GuildID, "message_id", challenge.MessageID, "error", err)
	} else {
		challenge.ID = id
	}

	s.logger.DebugContext(ctx, "Challenge created successfully",
		"id", challenge.ID, "guild_id", challenge.GuildID, "message_id", challenge.MessageID,
		"challenge_type", challenge.ChallengeType)
	return nil
}

// GetChallengeByMessageID retrieves a challenge by its unique message ID.
func (s *sqlxStore) GetChallengeByMessageID(ctx context.Context, messageID int64) (*Challenge, error) {
	if messageID == 0 {
		return nil, fmt.Errorf("message_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var challenge Challenge
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE message_id = ?`

	err := s.db.GetContext(ctx, &challenge, query, messageID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Not found is expected in some cases, not an error
		s.logger.DebugContext(ctx, "No challenge found", "message_id", messageID)
		return nil, nil

	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching challenge",
			"message_id", messageID, "error", err)
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting challenge by message ID", "message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to get challenge for message %d: %w", messageID, err)
	}

	return &challenge, nil
}

// RespondToChallenge records a member's response on an open challenge.
// The responding member and response time are written together in a single
// UPDATE so the pair is never half-set.
func (s *sqlxStore) RespondToChallenge(ctx context.Context, messageID, memberID int64) (*Challenge, error) {
	if messageID == 0 {
		return nil, fmt.Errorf("message_id cannot be zero")
	}
	if memberID == 0 {
		return nil, fmt.Errorf("member_id cannot be zero")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for challenge response",
			"message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	var existing Challenge
	err = tx.GetContext(ctx, &existing,
		`SELECT `+challengeColumns+` FROM challenges WHERE message_id = ?`, messageID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("message %d: %w", messageID, ErrChallengeNotFound)
	case err != nil:
		s.logger.ErrorContext(ctx, "Error fetching challenge for response",
			"message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to fetch challenge for message %d: %w", messageID, err)
	}

	if !existing.IsOpen() {
		s.logger.WarnContext(ctx, "Challenge already responded to",
			"message_id", messageID, "responding_member_id", existing.RespondingMemberID.Int64)
		return nil, fmt.Errorf("message %d: %w", messageID, ErrChallengeResponded)
	}

	respondedAt := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE challenges SET responding_member_id = ?, responded_at = ? WHERE message_id = ?`,
		memberID, respondedAt, messageID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error recording challenge response",
			"message_id", messageID, "member_id", memberID, "error", err)
		return nil, fmt.Errorf("failed to record response for message %d: %w", messageID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when recording response",
			"message_id", messageID, "affected", affected)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction",
			"message_id", messageID, "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	// Successfully committed, set tx to nil to avoid rollback
	tx = nil

	existing.RespondingMemberID = sql.NullInt64{Int64: memberID, Valid: true}
	existing.RespondedAt = sql.NullTime{Time: respondedAt, Valid: true}

	s.logger.DebugContext(ctx, "Challenge response recorded",
		"message_id", messageID, "member_id", memberID)
	return &existing, nil
}

// GetChallengesInGuild retrieves all challenges for a guild, oldest first.
func (s *sqlxStore) GetChallengesInGuild(ctx context.Context, guildID int64, openOnly bool) ([]Challenge, error) {
	if guildID == 0 {
		return nil, fmt.Errorf("guild_id cannot be zero")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE guild_id = ?`
	if openOnly {
		query += ` AND responded_at IS NULL`
	}
	query += ` ORDER BY created ASC`

	var challenges []Challenge
	err := s.db.SelectContext(ctx, &challenges, query, guildID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting challenges in guild",
			"guild_id", guildID, "open_only", openOnly, "error", err)
		return nil, fmt.Errorf("failed to get challenges for guild %d: %w", guildID, err)
	}

	s.logger.DebugContext(ctx, "Fetched challenges in guild",
		"guild_id", guildID, "open_only", openOnly, "count", len(challenges))
	return challenges, nil
}

// GetAllChallenges retrieves challenges across all guilds, oldest first.
func (s *sqlxStore) GetAllChallenges(ctx context.Context, openOnly bool) ([]Challenge, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	query := `SELECT ` + challengeColumns + ` FROM challenges`
	if openOnly {
		query += ` WHERE responded_at IS NULL`
	}
	query += ` ORDER BY created ASC`

	var challenges []Challenge
	err := s.db.SelectContext(ctx, &challenges, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting all challenges", "open_only", openOnly, "error", err)
		return nil, fmt.Errorf("failed to get challenges: %w", err)
	}

	s.logger.DebugContext(ctx, "Fetched all challenges", "open_only", openOnly, "count", len(challenges))
	return challenges, nil
}

// GetCompletedChallengesSince retrieves answered challenges created at or
// after the given time, oldest first.
func (s *sqlxStore) GetCompletedChallengesSince(ctx context.Context, guildID int64, since time.Time) ([]Challenge, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var challenges []Challenge
	var err error
	if guildID == 0 {
		query := `SELECT ` + challengeColumns + ` FROM challenges
		          WHERE responded_at IS NOT NULL AND created >= ?
		          ORDER BY created ASC`
		err = s.db.SelectContext(ctx, &challenges, query, since)
	} else {
		query := `SELECT ` + challengeColumns + ` FROM challenges
		          WHERE guild_id = ? AND responded_at IS NOT NULL AND created >= ?
		          ORDER BY created ASC`
		err = s.db.SelectContext(ctx, &challenges, query, guildID, since)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting completed challenges",
			"guild_id", guildID, "since", since, "error", err)
		return nil, fmt.Errorf("failed to get completed challenges: %w", err)
	}

	s.logger.DebugContext(ctx, "Fetched completed challenges",
		"guild_id", guildID, "since", since, "count", len(challenges))
	return challenges, nil
}

// CreateMatchTypeRole registers a role for a (guild, match type) pair.
func (s *sqlxStore) CreateMatchTypeRole(ctx context.Context, role *MatchTypeRole) error {
	if role == nil {
		return fmt.Errorf("cannot create nil match type role")
	}
	if role.GuildID == 0 {
		return fmt.Errorf("match type role must have a non-zero guild_id")
	}
	if role.MatchType == "" {
		return fmt.Errorf("match type role must have a non-empty match_type")
	}
	if role.RoleID == 0 {
		return fmt.Errorf("match type role must have a non-zero role_id")
	}

	query := `
        INSERT INTO match_type_roles (guild_id, match_type, role_id)
        VALUES (:guild_id, :match_type, :role_id);
    `

	result, err := s.db.NamedExecContext(ctx, query, role)
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.WarnContext(ctx, "Duplicate match type role rejected",
				"guild_id", role.GuildID, "match_type", role.MatchType, "role_id", role.RoleID)
			return fmt.Errorf("role %d for match type %q in guild %d: %w",
				role.RoleID, role.MatchType, role.GuildID, ErrRoleExists)
		}
		s.logger.ErrorContext(ctx, "Error creating match type role",
			"guild_id", role.GuildID, "match_type", role.MatchType, "role_id", role.RoleID, "error", err)
		return fmt.Errorf("failed to create match type role: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after creating match type role",
			"guild_id", role.GuildID, "role_id", role.RoleID, "error", err)
	} else {
		role.ID = id
	}

	s.logger.DebugContext(ctx, "Match type role created successfully",
		"id", role.ID, "guild_id", role.GuildID, "match_type", role.MatchType, "role_id", role.RoleID)
	return nil
}

// DeleteMatchTypeRole removes a role mapping by row ID.
func (s *sqlxStore) DeleteMatchTypeRole(ctx context.Context, id int64) error {
	if id == 0 {
		return fmt.Errorf("id cannot be zero")
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM match_type_roles WHERE id = ?`, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting match type role", "id", id, "error", err)
		return fmt.Errorf("failed to delete match type role %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		s.logger.DebugContext(ctx, "No match type role to delete", "id", id)
	}

	s.logger.DebugContext(ctx, "Match type role deleted", "id", id)
	return nil
}

// GetMatchTypeRoles retrieves all roles registered for a guild and match type.
func (s *sqlxStore) GetMatchTypeRoles(ctx context.Context, guildID int64, matchType string) ([]MatchTypeRole, error) {
	if guildID == 0 {
		return nil, fmt.Errorf("guild_id cannot be zero")
	}
	if matchType == "" {
		return nil, fmt.Errorf("match_type cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var roles []MatchTypeRole
	query := `SELECT id, guild_id, match_type, role_id FROM match_type_roles
	          WHERE guild_id = ? AND match_type = ?
	          ORDER BY id ASC`

	err := s.db.SelectContext(ctx, &roles, query, guildID, matchType)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting match type roles",
			"guild_id", guildID, "match_type", matchType, "error", err)
		return nil, fmt.Errorf("failed to get roles for guild %d match type %q: %w", guildID, matchType, err)
	}

	s.logger.DebugContext(ctx, "Fetched match type roles",
		"guild_id", guildID, "match_type", matchType, "count", len(roles))
	return roles, nil
}

// GetAllMatchTypeRoles retrieves every role mapping across all guilds.
func (s *sqlxStore) GetAllMatchTypeRoles(ctx context.Context) ([]MatchTypeRole, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var roles []MatchTypeRole
	query := `SELECT id, guild_id, match_type, role_id FROM match_type_roles ORDER BY id ASC`

	err := s.db.SelectContext(ctx, &roles, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting all match type roles", "error", err)
		return nil, fmt.Errorf("failed to get all match type roles: %w", err)
	}

	s.logger.DebugContext(ctx, "Fetched all match type roles", "count", len(roles))
	return roles, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
