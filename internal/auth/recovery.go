package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
)

const recoveryKeyLength = 10 // 10 bytes = 16 base32 characters

// GenerateRecoveryKey generates a random recovery key for password resets
func GenerateRecoveryKey() (string, error) {
	bytes := make([]byte, recoveryKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate recovery key: %w", err)
	}

	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(bytes), nil
}

// VerifyRecoveryKey compares a submitted key against the stored one in
// constant time
func VerifyRecoveryKey(submitted, stored string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}
