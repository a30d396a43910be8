package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/shopapi/internal/auth"
)

// ClaimsKey is the gin context key the verified claims are stored under
const ClaimsKey = "auth_claims"

// RequireAuth verifies the bearer token on each request and attaches the
// verified claims to the request context. Any failure aborts with a uniform
// 401; the distinction between missing, invalid and expired tokens is kept
// for the logs only. The middleware never consults the user store: it trusts
// the claims captured at issue time.
func RequireAuth(tokens *auth.TokenService, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			log.WithField("path", c.Request.URL.Path).Debug("missing or malformed authorization header")
			unauthorized(c)
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			switch err {
			case auth.ErrTokenExpired:
				log.WithField("path", c.Request.URL.Path).Info("rejected expired token")
			default:
				log.WithField("path", c.Request.URL.Path).Info("rejected invalid token")
			}
			unauthorized(c)
			return
		}

		// Recheck expiry against the gate's own clock, independent of the
		// check inside Verify.
		if !claims.ExpiresAt.After(time.Now()) {
			log.WithField("path", c.Request.URL.Path).Info("rejected expired token")
			unauthorized(c)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireAdmin aborts with 401 unless the verified claims carry the admin
// flag. The flag is the one captured at token issue time; a role change takes
// effect for new tokens only, bounded by the token TTL.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Admin privilege required",
			})
			return
		}
		c.Next()
	}
}

// GetClaims returns the verified claims attached by RequireAuth, or nil
func GetClaims(c *gin.Context) *auth.Claims {
	value, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": "Authentication required",
	})
}
