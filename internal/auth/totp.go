package auth

import (
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/cordwell/shopapi/internal/models"
)

const totpSecretSize = 21 // bytes of entropy behind the base32 secret

// totpOpts are the code parameters every comparison uses: 6 digits, 30 second
// steps, SHA1, and a ±1 step window to absorb clock skew.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// AccountStore persists TOTP enrollment fields. Implemented by the user
// repository.
type AccountStore interface {
	UpdateOTP(id, secret, authURL string, enabled, verified bool) error
}

// TOTPEngine manages TOTP enrollment and code validation
type TOTPEngine struct {
	issuer string
	store  AccountStore
}

// NewTOTPEngine creates a TOTP engine
func NewTOTPEngine(issuer string, store AccountStore) *TOTPEngine {
	if issuer == "" {
		issuer = "shopapi"
	}
	return &TOTPEngine{issuer: issuer, store: store}
}

// Enroll generates a new secret for the account and persists it together with
// the provisioning URI. Enrollment alone does not enable two-factor: the
// enabled/verified flags keep their prior values until Confirm succeeds.
func (e *TOTPEngine) Enroll(user *models.User) (secret, authURL string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: user.Email,
		SecretSize:  totpSecretSize,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	secret = key.Secret()
	authURL = e.provisioningURL(secret, user.Email)

	if err := e.store.UpdateOTP(user.ID, secret, authURL, user.OTPEnabled, user.OTPVerified); err != nil {
		return "", "", fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	user.OTPSecret = secret
	user.OTPAuthURL = authURL

	return secret, authURL, nil
}

// Confirm checks a code against the account's pending secret and, on match,
// marks two-factor enabled and verified. A mismatch returns ErrInvalidOTPCode
// and leaves enrollment state untouched.
func (e *TOTPEngine) Confirm(user *models.User, code string) error {
	if user.OTPSecret == "" {
		return ErrOTPNotEnabled
	}

	if !e.codeMatches(code, user.OTPSecret) {
		return ErrInvalidOTPCode
	}

	if err := e.store.UpdateOTP(user.ID, user.OTPSecret, user.OTPAuthURL, true, true); err != nil {
		return fmt.Errorf("failed to enable TOTP: %w", err)
	}

	user.OTPEnabled = true
	user.OTPVerified = true

	return nil
}

// Validate checks a code for an account with two-factor already enabled.
// It never mutates enrollment state.
func (e *TOTPEngine) Validate(user *models.User, code string) error {
	if !user.OTPEnabled {
		return ErrOTPNotEnabled
	}

	if !e.codeMatches(code, user.OTPSecret) {
		return ErrInvalidOTPCode
	}

	return nil
}

// Disable clears the account's secret, provisioning URI and both flags.
// Idempotent.
func (e *TOTPEngine) Disable(user *models.User) error {
	if err := e.store.UpdateOTP(user.ID, "", "", false, false); err != nil {
		return fmt.Errorf("failed to disable TOTP: %w", err)
	}

	user.OTPSecret = ""
	user.OTPAuthURL = ""
	user.OTPEnabled = false
	user.OTPVerified = false

	return nil
}

func (e *TOTPEngine) codeMatches(code, secret string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totpOpts)
	return err == nil && ok
}

func (e *TOTPEngine) provisioningURL(secret, email string) string {
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s",
		url.QueryEscape(e.issuer),
		url.QueryEscape(email),
		secret,
		url.QueryEscape(e.issuer))
}
