package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/domain"
	apperrors "github.com/Jasmin-Patel-2110/Authantication-fullstack/pkg/errors"
)

// DB is the subset of pgxpool.Pool the repository uses. pgxmock satisfies it
// as well, which lets the tests run against a mocked pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db DB
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, is_verified,
	       verification_token, verification_issued_at,
	       password_reset_token, password_reset_issued_at, password_reset_expires_at,
	       refresh_token_hash, created_at, updated_at`

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, is_verified,
		                   verification_token, verification_issued_at,
		                   password_reset_token, password_reset_issued_at, password_reset_expires_at,
		                   refresh_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	var (
		verTok, resetTok       *string
		verIssued, resetIssued *time.Time
		resetExpires           *time.Time
		refreshHash            *string
	)
	if u.VerificationToken != nil {
		verTok = &u.VerificationToken.Hash
		verIssued = &u.VerificationToken.IssuedAt
	}
	if u.PasswordResetToken != nil {
		resetTok = &u.PasswordResetToken.Hash
		resetIssued = &u.PasswordResetToken.IssuedAt
		resetExpires = u.PasswordResetToken.ExpiresAt
	}
	if u.RefreshTokenHash != "" {
		refreshHash = &u.RefreshTokenHash
	}

	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.IsVerified,
		verTok,
		verIssued,
		resetTok,
		resetIssued,
		resetExpires,
		refreshHash,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("user with email %q already exists", u.Email))
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, query, id)
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(ctx, query, email)
}

// GetByRefreshToken retrieves a user by id and current refresh token digest.
func (r *UserRepository) GetByRefreshToken(ctx context.Context, id, tokenHash string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND refresh_token_hash = $2`
	return r.scanUser(ctx, query, id, tokenHash)
}

// GetByPasswordResetToken retrieves the user holding the given reset token digest.
func (r *UserRepository) GetByPasswordResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE password_reset_token = $1`
	return r.scanUser(ctx, query, tokenHash)
}

// ConsumeVerificationToken flips is_verified and clears the token in a single
// update so the token cannot be used twice.
func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, tokenHash string) (string, error) {
	query := `
		UPDATE users
		SET is_verified = true, verification_token = NULL, verification_issued_at = NULL, updated_at = $2
		WHERE verification_token = $1
		RETURNING id`

	var id string
	err := r.db.QueryRow(ctx, query, tokenHash, time.Now().UTC()).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("consume verification token: %w", err)
	}

	return id, nil
}

// ConsumePasswordResetToken applies the new password hash and clears the
// pending reset token, guarded by the expiry window.
func (r *UserRepository) ConsumePasswordResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error) {
	query := `
		UPDATE users
		SET password_hash = $2,
		    password_reset_token = NULL, password_reset_issued_at = NULL, password_reset_expires_at = NULL,
		    updated_at = $3
		WHERE password_reset_token = $1 AND password_reset_expires_at > $3
		RETURNING id`

	var id string
	err := r.db.QueryRow(ctx, query, tokenHash, passwordHash, now).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("consume password reset token: %w", err)
	}

	return id, nil
}

// SetPasswordResetToken stores a pending reset token, superseding any previous one.
func (r *UserRepository) SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	query := `
		UPDATE users
		SET password_reset_token = $2, password_reset_issued_at = $3, password_reset_expires_at = $4, updated_at = $3
		WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, userID, tokenHash, now, expiresAt)
	if err != nil {
		return fmt.Errorf("set password reset token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// SetRefreshToken unconditionally replaces the stored refresh token digest.
func (r *UserRepository) SetRefreshToken(ctx context.Context, userID, tokenHash string) error {
	query := `UPDATE users SET refresh_token_hash = $2, updated_at = $3 WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, userID, tokenHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// RotateRefreshToken is a compare-and-swap on the stored refresh token
// digest. Two concurrent refreshes with the same old token cannot both
// succeed; the loser observes zero rows.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string) error {
	query := `
		UPDATE users
		SET refresh_token_hash = $3, updated_at = $4
		WHERE id = $1 AND refresh_token_hash = $2`

	ct, err := r.db.Exec(ctx, query, userID, oldHash, newHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// ClearRefreshToken removes the stored refresh token digest.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	query := `UPDATE users SET refresh_token_hash = NULL, updated_at = $2 WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

// scanUser is a helper that executes a query expected to return a single user row.
func (r *UserRepository) scanUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var (
		u                      domain.User
		verTok, resetTok       *string
		verIssued, resetIssued *time.Time
		resetExpires           *time.Time
		refreshHash            *string
	)

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.IsVerified,
		&verTok,
		&verIssued,
		&resetTok,
		&resetIssued,
		&resetExpires,
		&refreshHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if verTok != nil && verIssued != nil {
		u.VerificationToken = &domain.OneTimeToken{Hash: *verTok, IssuedAt: *verIssued}
	}
	if resetTok != nil && resetIssued != nil {
		u.PasswordResetToken = &domain.OneTimeToken{Hash: *resetTok, IssuedAt: *resetIssued, ExpiresAt: resetExpires}
	}
	if refreshHash != nil {
		u.RefreshTokenHash = *refreshHash
	}

	return &u, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
