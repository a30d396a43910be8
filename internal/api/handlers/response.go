package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RespondError sends an error response
func RespondError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// RespondSuccess sends a success response
func RespondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// GetClientIP gets the real client IP address
func GetClientIP(c *gin.Context) string {
	// Try X-Forwarded-For header first (for proxied requests)
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		return ip
	}

	// Try X-Real-IP header
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}

	return c.ClientIP()
}
