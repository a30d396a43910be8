package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/shopapi/internal/api/middleware"
	"github.com/cordwell/shopapi/internal/auth"
	"github.com/cordwell/shopapi/internal/db/repository"
	"github.com/cordwell/shopapi/internal/models"
)

// AuthHandler handles registration, login and password management
type AuthHandler struct {
	users  *repository.UserRepository
	tokens *auth.TokenService
	audit  *repository.AuditRepository
	log    *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *repository.UserRepository, tokens *auth.TokenService, audit *repository.AuditRepository, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		audit:  audit,
		log:    log,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldpassword" binding:"required"`
	NewPassword string `json:"newpassword" binding:"required,min=8"`
}

// UpdateProfileRequest represents a profile update request
type UpdateProfileRequest struct {
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"firstname" binding:"required"`
	LastName  string `json:"lastname" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}

// RecoveryKeyResponse represents an issued recovery key
type RecoveryKeyResponse struct {
	RecoveryKey string `json:"recoveryKey"`
}

// ResetPasswordRequest represents a password reset request
type ResetPasswordRequest struct {
	RecoveryKey string `json:"recoverykey" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newpassword" binding:"required,min=8"`
}

// Register creates a new user account
// POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	role := models.RoleClient
	if req.Role == models.RoleAdmin {
		role = models.RoleAdmin
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.WithError(err).Error("failed to hash password")
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to hash password")
		return
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := h.users.Create(user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			RespondError(c, http.StatusConflict, "user_exists", "User already exists")
			return
		}
		h.log.WithError(err).Error("failed to create user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Failed to create user")
		return
	}

	h.audit.Create(&models.AuditLog{
		Action:   models.ActionRegister,
		UserID:   user.ID,
		Email:    user.Email,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	c.JSON(http.StatusCreated, user.ToResponse())
}

// Login verifies credentials and issues a session token
// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same response as a bad password: never reveal whether the
			// email exists.
			h.rejectLogin(c, req.Email, "unknown email")
			return
		}
		h.log.WithError(err).Error("failed to look up user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	ok, err := auth.CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		h.log.WithError(err).Error("failed to verify password")
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to verify password")
		return
	}
	if !ok {
		h.rejectLogin(c, req.Email, "password mismatch")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.IsAdmin())
	if err != nil {
		h.log.WithError(err).Error("failed to issue token")
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to generate token")
		return
	}

	h.audit.Create(&models.AuditLog{
		Action:   models.ActionLogin,
		UserID:   user.ID,
		Email:    user.Email,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	RespondSuccess(c, LoginResponse{
		Token: token,
		User:  user.ToResponse(),
	})
}

// ChangePassword verifies the old password and stores a new hash
// PUT /password-change
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	claims := middleware.GetClaims(c)

	user, err := h.users.GetByID(claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		h.log.WithError(err).Error("failed to look up user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	ok, err := auth.CheckPassword(req.OldPassword, user.PasswordHash)
	if err != nil {
		h.log.WithError(err).Error("failed to verify password")
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to verify password")
		return
	}
	if !ok {
		RespondError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.log.WithError(err).Error("failed to hash password")
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to hash password")
		return
	}

	if err := h.users.UpdatePassword(user.ID, passwordHash); err != nil {
		h.log.WithError(err).Error("failed to update password")
		RespondError(c, http.StatusInternalServerError, "database_error", "Failed to update password")
		return
	}

	h.audit.Create(&models.AuditLog{
		Action:   models.ActionPasswordChange,
		UserID:   user.ID,
		Email:    user.Email,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	RespondSuccess(c, gin.H{"status": "password updated"})
}

// UpdateProfile updates the caller's display name, names and email
// PUT /profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	claims := middleware.GetClaims(c)

	err := h.users.UpdateProfile(claims.Subject, req.Username, req.FirstName, req.LastName, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		if errors.Is(err, repository.ErrConflict) {
			RespondError(c, http.StatusConflict, "email_taken", "Email already in use")
			return
		}
		h.log.WithError(err).Error("failed to update profile")
		RespondError(c, http.StatusInternalServerError, "database_error", "Failed to update profile")
		return
	}

	user, err := h.users.GetByID(claims.Subject)
	if err != nil {
		h.log.WithError(err).Error("failed to look up user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	RespondSuccess(c, user.ToResponse())
}

// GetRecoveryKey issues a fresh recovery key for the caller's account
// POST /recovery-key
func (h *AuthHandler) GetRecoveryKey(c *gin.Context) {
	claims := middleware.GetClaims(c)

	user, err := h.users.GetByID(claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		h.log.WithError(err).Error("failed to look up user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	key, err := auth.GenerateRecoveryKey()
	if err != nil {
		h.log.WithError(err).Error("failed to generate recovery key")
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to generate recovery key")
		return
	}

	if err := h.users.UpdateRecoveryKey(user.ID, key); err != nil {
		h.log.WithError(err).Error("failed to store recovery key")
		RespondError(c, http.StatusInternalServerError, "database_error", "Failed to store recovery key")
		return
	}

	RespondSuccess(c, RecoveryKeyResponse{RecoveryKey: key})
}

// ResetPassword resets a password using a recovery key, without a session
// POST /reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.users.GetByEmail(req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.log.WithError(err).Error("failed to look up user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	// Unknown email and wrong key get the same response. The compare is
	// constant time and an empty stored key never matches.
	if err != nil || !auth.VerifyRecoveryKey(req.RecoveryKey, user.RecoveryKey) {
		h.audit.Create(&models.AuditLog{
			Action:   models.ActionPasswordReset,
			Email:    req.Email,
			ClientIP: GetClientIP(c),
			Success:  false,
			ErrorMsg: "recovery key mismatch",
		})
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid input data")
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		h.log.WithError(err).Error("failed to hash password")
		RespondError(c, http.StatusInternalServerError, "internal_error", "Failed to hash password")
		return
	}

	if err := h.users.UpdatePassword(user.ID, passwordHash); err != nil {
		h.log.WithError(err).Error("failed to update password")
		RespondError(c, http.StatusInternalServerError, "database_error", "Failed to update password")
		return
	}

	// A recovery key is single use
	if err := h.users.UpdateRecoveryKey(user.ID, ""); err != nil {
		h.log.WithError(err).Error("failed to clear recovery key")
	}

	h.audit.Create(&models.AuditLog{
		Action:   models.ActionPasswordReset,
		UserID:   user.ID,
		Email:    user.Email,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	RespondSuccess(c, gin.H{"status": "password reset successfully"})
}

func (h *AuthHandler) rejectLogin(c *gin.Context, email, reason string) {
	h.log.WithField("email", email).WithField("reason", reason).Info("login rejected")
	h.audit.Create(&models.AuditLog{
		Action:   models.ActionLogin,
		Email:    email,
		ClientIP: GetClientIP(c),
		Success:  false,
		ErrorMsg: reason,
	})
	RespondError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
}
