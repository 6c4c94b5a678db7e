package domain

import (
	"time"
)

// User represents a registered account in the system.
//
// The three credential fields (VerificationToken, PasswordResetToken,
// RefreshTokenHash) hold SHA-256 digests, never raw token material. A nil
// one-time token means no pending token; consumption clears the field
// atomically with the state change it authorizes.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	IsVerified   bool   `json:"is_verified"`

	VerificationToken  *OneTimeToken `json:"-"`
	PasswordResetToken *OneTimeToken `json:"-"`
	RefreshTokenHash   string        `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OneTimeToken is a pending out-of-band credential. ExpiresAt is nil for
// verification tokens, which the system accepts for as long as they are
// outstanding, and set for password reset tokens.
type OneTimeToken struct {
	Hash      string
	IssuedAt  time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an expiry that has passed.
func (t *OneTimeToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// TokenPair holds a signed access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// Identity is the authenticated principal attached to a request once a
// session is established.
type Identity struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
}

// Profile is the externally visible projection of a user. Password hashes
// and token fields are never part of it.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewProfile builds the public projection of a user.
func NewProfile(u *User) *Profile {
	return &Profile{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Role:       u.Role,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// Summary is the identity summary returned on login.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// NewSummary builds the login identity summary of a user.
func NewSummary(u *User) *Summary {
	return &Summary{
		ID:   u.ID,
		Name: u.Name,
		Role: u.Role,
	}
}
