package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/repository"
)

const uniqueViolationCode = "23505"

var credentialColumns = []string{
	"id",
	"first_name",
	"last_name",
	"email",
	"phone",
	"password_hash",
	"role",
	"token_version",
	"failed_attempts",
	"locked_until",
	"is_blocked",
	"created_at",
	"last_login",
	"last_password_change",
}

// CredentialRepository implements port.CredentialRepository using PostgreSQL.
type CredentialRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewCredentialRepository wires a PostgreSQL-backed credential repository.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepository {
	return &CredentialRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new credential row. Unique violations on the email column
// surface as repository.ErrDuplicate.
func (r *CredentialRepository) Create(ctx context.Context, credential domain.Credential) error {
	var phoneValue any
	if credential.Phone != nil && *credential.Phone != "" {
		phoneValue = *credential.Phone
	}

	stmt, args, err := r.builder.Insert("sharing.users").
		Columns(credentialColumns...).
		Values(
			credential.ID,
			credential.FirstName,
			credential.LastName,
			credential.Email,
			phoneValue,
			credential.PasswordHash,
			credential.Role,
			credential.TokenVersion,
			credential.FailedAttempts,
			credential.LockedUntil,
			credential.IsBlocked,
			credential.CreatedAt,
			credential.LastLogin,
			credential.LastPasswordChange,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert credential sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	return nil
}

// GetByID retrieves a credential by identifier.
func (r *CredentialRepository) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a credential by its unique email.
func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

func (r *CredentialRepository) getBy(ctx context.Context, where squirrel.Eq) (*domain.Credential, error) {
	stmt, args, err := r.builder.
		Select(credentialColumns...).
		From("sharing.users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select credential sql: %w", err)
	}

	row := r.pool.QueryRow(ctx, stmt, args...)

	var (
		phone       sql.NullString
		lockedUntil *time.Time
		lastLogin   *time.Time
		credential  domain.Credential
	)

	if err := row.Scan(
		&credential.ID,
		&credential.FirstName,
		&credential.LastName,
		&credential.Email,
		&phone,
		&credential.PasswordHash,
		&credential.Role,
		&credential.TokenVersion,
		&credential.FailedAttempts,
		&lockedUntil,
		&credential.IsBlocked,
		&credential.CreatedAt,
		&lastLogin,
		&credential.LastPasswordChange,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan credential: %w", err)
	}

	credential.LockedUntil = lockedUntil
	credential.LastLogin = lastLogin
	if phone.Valid {
		val := phone.String
		credential.Phone = &val
	}

	return &credential, nil
}

// UpdatePassword re-hashes and bumps the token version in a single statement,
// so the version increment is atomic with respect to concurrent readers.
// Lockout state resets as part of the same write.
func (r *CredentialRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) (int64, error) {
	const stmt = `
		UPDATE sharing.users
		SET password_hash = $2,
		    token_version = token_version + 1,
		    failed_attempts = 0,
		    locked_until = NULL,
		    last_password_change = $3
		WHERE id = $1
		RETURNING token_version`

	var version int64
	if err := r.pool.QueryRow(ctx, stmt, id, passwordHash, changedAt).Scan(&version); err != nil {
		if err == pgx.ErrNoRows {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("update password: %w", err)
	}

	return version, nil
}

// UpdateLockout persists the failed-attempt counter and optional lock window.
func (r *CredentialRepository) UpdateLockout(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	stmt, args, err := r.builder.Update("sharing.users").
		Set("failed_attempts", failedAttempts).
		Set("locked_until", lockedUntil).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update lockout sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update lockout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RecordLogin clears lockout state and stamps last_login.
func (r *CredentialRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("sharing.users").
		Set("failed_attempts", 0).
		Set("locked_until", nil).
		Set("last_login", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build record login sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetBlocked toggles the administrative block flag.
func (r *CredentialRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	stmt, args, err := r.builder.Update("sharing.users").
		Set("is_blocked", blocked).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set blocked sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
