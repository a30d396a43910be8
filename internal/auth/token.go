package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the verified payload of a session token
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IsAdmin   bool
}

type tokenClaims struct {
	IsAdmin bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256-signed session tokens. The signing
// secret is fixed at construction; rotation requires a restart.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a token service
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured token lifetime
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token carrying the subject id, an admin flag captured now,
// and an expiry of now + ttl.
func (s *TokenService) Issue(subject string, isAdmin bool) (string, error) {
	claims := tokenClaims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
// Returns ErrTokenExpired when the signature is valid but exp has elapsed,
// ErrInvalidToken for everything else.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	var claims tokenClaims

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	if claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
		IsAdmin:   claims.IsAdmin,
	}, nil
}
