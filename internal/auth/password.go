package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password with bcrypt. The salt is generated per call
// and embedded in the returned digest.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword verifies a password against a stored bcrypt digest.
// A mismatch returns (false, nil). A malformed digest returns an error, which
// callers must treat as a server fault rather than an authentication failure.
func CheckPassword(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify password: %w", err)
}
