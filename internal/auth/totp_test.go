package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordwell/shopapi/internal/models"
)

// fakeStore records TOTP field updates in memory
type fakeStore struct {
	secret   string
	authURL  string
	enabled  bool
	verified bool
	calls    int
}

func (s *fakeStore) UpdateOTP(id, secret, authURL string, enabled, verified bool) error {
	s.secret = secret
	s.authURL = authURL
	s.enabled = enabled
	s.verified = verified
	s.calls++
	return nil
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	return code
}

func TestEnroll(t *testing.T) {
	store := &fakeStore{}
	engine := NewTOTPEngine("shopapi", store)
	user := &models.User{ID: "u1", Email: "a@b.com"}

	secret, authURL, err := engine.Enroll(user)
	require.NoError(t, err)

	// 21 bytes of entropy -> 34 base32 characters, unpadded
	assert.Len(t, secret, 34)
	assert.NotContains(t, secret, "=")

	assert.True(t, strings.HasPrefix(authURL, "otpauth://totp/shopapi:"), authURL)
	assert.Contains(t, authURL, "secret="+secret)
	assert.Contains(t, authURL, "issuer=shopapi")

	// Enrollment persists the secret but does not enable two-factor
	assert.Equal(t, secret, store.secret)
	assert.False(t, store.enabled)
	assert.False(t, store.verified)
	assert.Equal(t, secret, user.OTPSecret)
	assert.False(t, user.OTPEnabled)
}

func TestConfirmWithValidCode(t *testing.T) {
	store := &fakeStore{}
	engine := NewTOTPEngine("shopapi", store)
	user := &models.User{ID: "u1", Email: "a@b.com"}

	secret, _, err := engine.Enroll(user)
	require.NoError(t, err)

	err = engine.Confirm(user, currentCode(t, secret))
	require.NoError(t, err)

	assert.True(t, user.OTPEnabled)
	assert.True(t, user.OTPVerified)
	assert.True(t, store.enabled)
	assert.True(t, store.verified)
}

func TestConfirmWithInvalidCode(t *testing.T) {
	store := &fakeStore{}
	engine := NewTOTPEngine("shopapi", store)
	user := &models.User{ID: "u1", Email: "a@b.com"}

	_, _, err := engine.Enroll(user)
	require.NoError(t, err)
	callsAfterEnroll := store.calls

	err = engine.Confirm(user, "000000")
	assert.ErrorIs(t, err, ErrInvalidOTPCode)

	// Mismatch must not mutate enrollment state
	assert.False(t, user.OTPEnabled)
	assert.False(t, user.OTPVerified)
	assert.Equal(t, callsAfterEnroll, store.calls)
}

func TestConfirmWithoutSecret(t *testing.T) {
	engine := NewTOTPEngine("shopapi", &fakeStore{})
	user := &models.User{ID: "u1", Email: "a@b.com"}

	err := engine.Confirm(user, "123456")
	assert.ErrorIs(t, err, ErrOTPNotEnabled)
}

func TestValidate(t *testing.T) {
	store := &fakeStore{}
	engine := NewTOTPEngine("shopapi", store)
	user := &models.User{ID: "u1", Email: "a@b.com"}

	secret, _, err := engine.Enroll(user)
	require.NoError(t, err)
	require.NoError(t, engine.Confirm(user, currentCode(t, secret)))

	require.NoError(t, engine.Validate(user, currentCode(t, secret)))
	assert.ErrorIs(t, engine.Validate(user, "000000"), ErrInvalidOTPCode)
}

func TestValidateAcceptsAdjacentWindows(t *testing.T) {
	store := &fakeStore{}
	engine := NewTOTPEngine("shopapi", store)
	user := &models.User{ID: "u1", Email: "a@b.com"}

	secret, _, err := engine.Enroll(user)
	require.NoError(t, err)
	require.NoError(t, engine.Confirm(user, currentCode(t, secret)))

	previous, err := totp.GenerateCode(secret, time.Now().UTC().Add(-30*time.Second))
	require.NoError(t, err)
	next, err := totp.GenerateCode(secret, time.Now().UTC().Add(30*time.Second))
	require.NoError(t, err)

	assert.NoError(t, engine.Validate(user, previous))
	assert.NoError(t, engine.Validate(user, next))

	// Well outside the ±1 step tolerance
	far, err := totp.GenerateCode(secret, time.Now().UTC().Add(2*time.Minute))
	require.NoError(t, err)
	assert.ErrorIs(t, engine.Validate(user, far), ErrInvalidOTPCode)
}

func TestValidateNotEnabled(t *testing.T) {
	engine := NewTOTPEngine("shopapi", &fakeStore{})
	user := &models.User{ID: "u1", Email: "a@b.com"}

	// Enrolled but never confirmed
	secret, _, err := engine.Enroll(user)
	require.NoError(t, err)

	err = engine.Validate(user, currentCode(t, secret))
	assert.ErrorIs(t, err, ErrOTPNotEnabled)
}

func TestDisable(t *testing.T) {
	store := &fakeStore{}
	engine := NewTOTPEngine("shopapi", store)
	user := &models.User{ID: "u1", Email: "a@b.com"}

	secret, _, err := engine.Enroll(user)
	require.NoError(t, err)
	require.NoError(t, engine.Confirm(user, currentCode(t, secret)))

	require.NoError(t, engine.Disable(user))
	assert.Empty(t, user.OTPSecret)
	assert.Empty(t, user.OTPAuthURL)
	assert.False(t, user.OTPEnabled)
	assert.False(t, user.OTPVerified)

	// Disable then validate reports not enabled
	assert.ErrorIs(t, engine.Validate(user, "123456"), ErrOTPNotEnabled)

	// Idempotent
	require.NoError(t, engine.Disable(user))
}
