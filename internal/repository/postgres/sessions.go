package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/repository"
)

var sessionColumns = []string{
	"id",
	"user_id",
	"access_token_hash",
	"refresh_token_hash",
	"ip_address",
	"user_agent",
	"device_info",
	"last_activity",
	"expires_at",
	"is_active",
	"invalidated_for",
	"created_at",
}

// SessionRegistry implements port.SessionRegistry using PostgreSQL.
type SessionRegistry struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewSessionRegistry wires a PostgreSQL-backed session registry.
func NewSessionRegistry(pool *pgxpool.Pool) *SessionRegistry {
	return &SessionRegistry{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new session row.
func (r *SessionRegistry) Create(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.builder.Insert("sharing.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.AccessTokenHash,
			session.RefreshTokenHash,
			session.IPAddress,
			session.UserAgent,
			session.DeviceInfo,
			session.LastActivity,
			session.ExpiresAt,
			session.IsActive,
			session.InvalidatedFor,
			session.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID retrieves a session regardless of its active flag.
func (r *SessionRegistry) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// FindActiveByAccessToken looks up the live session carrying the given
// access token hash for a user. Inactive sessions never match.
func (r *SessionRegistry) FindActiveByAccessToken(ctx context.Context, tokenHash string, userID string) (*domain.Session, error) {
	return r.getOne(ctx, squirrel.Eq{
		"access_token_hash": tokenHash,
		"user_id":           userID,
		"is_active":         true,
	})
}

// FindActiveByRefreshToken looks up the live session carrying the given
// refresh token hash for a user.
func (r *SessionRegistry) FindActiveByRefreshToken(ctx context.Context, tokenHash string, userID string) (*domain.Session, error) {
	return r.getOne(ctx, squirrel.Eq{
		"refresh_token_hash": tokenHash,
		"user_id":            userID,
		"is_active":          true,
	})
}

func (r *SessionRegistry) getOne(ctx context.Context, where squirrel.Eq) (*domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("sharing.sessions").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	session, err := scanSession(r.pool.QueryRow(ctx, stmt, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return session, nil
}

// Touch advances last_activity on an active session. A session that has
// already been invalidated is never resurrected: the conditional update
// matches zero rows and the call reports repository.ErrNotFound.
func (r *SessionRegistry) Touch(ctx context.Context, sessionID string, at time.Time) error {
	stmt, args, err := r.builder.Update("sharing.sessions").
		Set("last_activity", at).
		Where(squirrel.Eq{"id": sessionID, "is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch session sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Invalidate flips an active session to inactive and records why. The
// update is conditional on is_active so the transition happens at most once.
func (r *SessionRegistry) Invalidate(ctx context.Context, sessionID string, reason domain.RevocationReason) error {
	stmt, args, err := r.builder.Update("sharing.sessions").
		Set("is_active", false).
		Set("invalidated_for", string(reason)).
		Where(squirrel.Eq{"id": sessionID, "is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build invalidate session sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListActiveByUser returns the user's live sessions, newest activity first.
func (r *SessionRegistry) ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("sharing.sessions").
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		OrderBy("last_activity DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	return r.list(ctx, stmt, args)
}

// ListStaleActive returns active sessions whose last activity predates the
// cutoff or whose absolute expiry has passed. The sweeper invalidates them.
func (r *SessionRegistry) ListStaleActive(ctx context.Context, activityCutoff time.Time, now time.Time) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("sharing.sessions").
		Where(squirrel.And{
			squirrel.Eq{"is_active": true},
			squirrel.Or{
				squirrel.Lt{"last_activity": activityCutoff},
				squirrel.LtOrEq{"expires_at": now},
			},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list stale sessions sql: %w", err)
	}

	return r.list(ctx, stmt, args)
}

// DeleteExpired removes inactive sessions whose expiry has long passed.
func (r *SessionRegistry) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("sharing.sessions").
		Where(squirrel.And{
			squirrel.Eq{"is_active": false},
			squirrel.LtOrEq{"expires_at": now},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired sessions sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

func (r *SessionRegistry) list(ctx context.Context, stmt string, args []any) ([]domain.Session, error) {
	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		session        domain.Session
		ipAddress      sql.NullString
		userAgent      sql.NullString
		deviceInfo     sql.NullString
		invalidatedFor sql.NullString
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.AccessTokenHash,
		&session.RefreshTokenHash,
		&ipAddress,
		&userAgent,
		&deviceInfo,
		&session.LastActivity,
		&session.ExpiresAt,
		&session.IsActive,
		&invalidatedFor,
		&session.CreatedAt,
	); err != nil {
		return nil, err
	}

	if ipAddress.Valid {
		val := ipAddress.String
		session.IPAddress = &val
	}
	if userAgent.Valid {
		val := userAgent.String
		session.UserAgent = &val
	}
	if deviceInfo.Valid {
		val := deviceInfo.String
		session.DeviceInfo = &val
	}
	if invalidatedFor.Valid {
		val := invalidatedFor.String
		session.InvalidatedFor = &val
	}

	return &session, nil
}
