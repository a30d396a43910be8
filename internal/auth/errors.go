package auth

import "errors"

var (
	// ErrInvalidToken is returned for malformed tokens or bad signatures
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the signature is valid but exp has elapsed
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidOTPCode is returned when a submitted TOTP code does not match
	ErrInvalidOTPCode = errors.New("invalid otp code")

	// ErrOTPNotEnabled is returned when validating a code for an account
	// without two-factor enabled
	ErrOTPNotEnabled = errors.New("otp not enabled")
)
