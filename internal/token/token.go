// Package token issues the random one-time tokens used for email
// verification and password reset.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// tokenBytes is the entropy of a one-time token before encoding.
const tokenBytes = 32

// ResetTokenTTL is the validity window of a password reset token.
const ResetTokenTTL = 10 * time.Minute

// NewVerificationToken returns a random hex-encoded token for email
// verification. Verification tokens carry no expiry; they stay valid until
// consumed or superseded.
func NewVerificationToken() (string, error) {
	return random()
}

// NewPasswordResetToken returns a random hex-encoded token for password
// reset together with its absolute expiry timestamp.
func NewPasswordResetToken(now time.Time) (string, time.Time, error) {
	t, err := random()
	if err != nil {
		return "", time.Time{}, err
	}
	return t, now.Add(ResetTokenTTL), nil
}

// Hash returns the SHA-256 hex digest of a token. Only digests are stored;
// a leaked database dump does not yield usable tokens.
func Hash(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

func random() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
