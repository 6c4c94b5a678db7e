package repository

import (
	"context"
	"time"

	"github.com/Jasmin-Patel-2110/Authantication-fullstack/internal/domain"
)

// UserRepository defines the interface for user record persistence. Token
// arguments are always SHA-256 digests; raw token material never reaches
// the store.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByRefreshToken retrieves a user by id whose stored refresh token
	// digest matches. A miss means the presented refresh token has been
	// superseded by a later rotation or cleared by logout.
	GetByRefreshToken(ctx context.Context, id, tokenHash string) (*domain.User, error)

	// GetByPasswordResetToken retrieves the user holding the given pending
	// reset token digest.
	GetByPasswordResetToken(ctx context.Context, tokenHash string) (*domain.User, error)

	// ConsumeVerificationToken marks the holder of the token as verified and
	// clears the token in one atomic update, returning the holder's id.
	// Returns ErrNotFound when no user holds the token (unknown or already
	// consumed).
	ConsumeVerificationToken(ctx context.Context, tokenHash string) (string, error)

	// ConsumePasswordResetToken sets the new password hash and clears the
	// reset token and its expiry in one atomic update, guarded by
	// expiry > now, returning the holder's id. Returns ErrNotFound when the
	// token is unknown, consumed, or expired.
	ConsumePasswordResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error)

	// SetPasswordResetToken stores a pending reset token, superseding any
	// previous one.
	SetPasswordResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// SetRefreshToken unconditionally replaces the stored refresh token
	// digest, invalidating any prior session.
	SetRefreshToken(ctx context.Context, userID, tokenHash string) error

	// RotateRefreshToken replaces the stored refresh token digest only if it
	// still equals oldHash (compare-and-swap). Returns ErrNotFound when the
	// stored value has moved on, which signals refresh token reuse.
	RotateRefreshToken(ctx context.Context, userID, oldHash, newHash string) error

	// ClearRefreshToken removes the stored refresh token digest, terminating
	// the user's session.
	ClearRefreshToken(ctx context.Context, userID string) error
}
