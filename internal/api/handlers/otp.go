package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/shopapi/internal/api/middleware"
	"github.com/cordwell/shopapi/internal/auth"
	"github.com/cordwell/shopapi/internal/db/repository"
	"github.com/cordwell/shopapi/internal/models"
)

// OTPHandler handles TOTP two-factor enrollment and validation
type OTPHandler struct {
	users *repository.UserRepository
	totp  *auth.TOTPEngine
	audit *repository.AuditRepository
	log   *logrus.Logger
}

// NewOTPHandler creates a new OTP handler
func NewOTPHandler(users *repository.UserRepository, totp *auth.TOTPEngine, audit *repository.AuditRepository, log *logrus.Logger) *OTPHandler {
	return &OTPHandler{
		users: users,
		totp:  totp,
		audit: audit,
		log:   log,
	}
}

// OTPCodeRequest carries a submitted TOTP code
type OTPCodeRequest struct {
	Token string `json:"token" binding:"required"`
}

// OTPValidateRequest identifies the account for a pre-login code check
type OTPValidateRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Token  string `json:"token" binding:"required"`
}

// GenerateResponse carries a fresh enrollment secret
type GenerateResponse struct {
	Base32     string `json:"base32"`
	OTPAuthURL string `json:"otpauth_url"`
}

// Generate enrolls the caller: generates a secret and provisioning URI.
// Two-factor stays disabled until the first code is confirmed.
// POST /otp/generate
func (h *OTPHandler) Generate(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	secret, authURL, err := h.totp.Enroll(user)
	if err != nil {
		h.log.WithError(err).Error("failed to enroll TOTP")
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to generate OTP secret")
		return
	}

	h.audit.Create(&models.AuditLog{
		Action:   models.ActionOTPEnroll,
		UserID:   user.ID,
		Email:    user.Email,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	RespondSuccess(c, GenerateResponse{
		Base32:     secret,
		OTPAuthURL: authURL,
	})
}

// Verify confirms enrollment with a first valid code and enables two-factor
// POST /otp/verify
func (h *OTPHandler) Verify(c *gin.Context) {
	var req OTPCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.totp.Confirm(user, req.Token); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidOTPCode), errors.Is(err, auth.ErrOTPNotEnabled):
			h.audit.Create(&models.AuditLog{
				Action:   models.ActionOTPConfirm,
				UserID:   user.ID,
				Email:    user.Email,
				ClientIP: GetClientIP(c),
				Success:  false,
				ErrorMsg: err.Error(),
			})
			RespondError(c, http.StatusForbidden, "invalid_otp", "Invalid OTP code")
		default:
			h.log.WithError(err).Error("failed to confirm TOTP")
			RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to verify OTP code")
		}
		return
	}

	h.audit.Create(&models.AuditLog{
		Action:   models.ActionOTPConfirm,
		UserID:   user.ID,
		Email:    user.Email,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	RespondSuccess(c, gin.H{
		"otp_verified": true,
		"user":         user.ToResponse(),
	})
}

// Validate checks a code as a pre-login second factor. It deliberately sits
// outside the bearer gate: the account is identified by id in the body.
// POST /otp/validate
func (h *OTPHandler) Validate(c *gin.Context) {
	var req OTPValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.users.GetByID(req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusForbidden, "invalid_otp", "Invalid OTP code")
			return
		}
		h.log.WithError(err).Error("failed to look up user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	if err := h.totp.Validate(user, req.Token); err != nil {
		h.audit.Create(&models.AuditLog{
			Action:   models.ActionOTPValidate,
			UserID:   user.ID,
			Email:    user.Email,
			ClientIP: GetClientIP(c),
			Success:  false,
			ErrorMsg: err.Error(),
		})
		RespondError(c, http.StatusForbidden, "invalid_otp", "Invalid OTP code")
		return
	}

	h.audit.Create(&models.AuditLog{
		Action:   models.ActionOTPValidate,
		UserID:   user.ID,
		Email:    user.Email,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	RespondSuccess(c, gin.H{"otp_valid": true})
}

// Disable clears the caller's TOTP enrollment
// POST /otp/disable
func (h *OTPHandler) Disable(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.totp.Disable(user); err != nil {
		h.log.WithError(err).Error("failed to disable TOTP")
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to disable OTP")
		return
	}

	h.audit.Create(&models.AuditLog{
		Action:   models.ActionOTPDisable,
		UserID:   user.ID,
		Email:    user.Email,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	RespondSuccess(c, gin.H{"user": user.ToResponse()})
}

// currentUser fetches the caller's account; TOTP operations need current
// enrollment state, which the token claims do not carry.
func (h *OTPHandler) currentUser(c *gin.Context) (*models.User, bool) {
	claims := middleware.GetClaims(c)

	user, err := h.users.GetByID(claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "user_not_found", "User not found")
			return nil, false
		}
		h.log.WithError(err).Error("failed to look up user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return nil, false
	}

	return user, true
}
