package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cordwell/shopapi/internal/api/middleware"
	"github.com/cordwell/shopapi/internal/db/repository"
	"github.com/cordwell/shopapi/internal/models"
)

// AdminHandler handles administrative user management
type AdminHandler struct {
	users *repository.UserRepository
	audit *repository.AuditRepository
	log   *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users *repository.UserRepository, audit *repository.AuditRepository, log *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		users: users,
		audit: audit,
		log:   log,
	}
}

// RoleRequest represents a role update request
type RoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin client"`
}

// UserListResponse represents a paginated user listing
type UserListResponse struct {
	Users      []models.UserResponse `json:"users"`
	Pagination Pagination            `json:"pagination"`
}

// Pagination describes one page of a listing
type Pagination struct {
	CurrentPage int64 `json:"currentPage"`
	TotalPages  int64 `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	Limit       int64 `json:"limit"`
}

// ListUsers lists users with pagination and an optional search
// GET /admin/users?page=&limit=&search=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)
	search := c.Query("search")

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	total, err := h.users.Count()
	if err != nil {
		h.log.WithError(err).Error("failed to count users")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	users, err := h.users.List(limit, (page-1)*limit, search)
	if err != nil {
		h.log.WithError(err).Error("failed to list users")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	responses := make([]models.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, user.ToResponse())
	}

	RespondSuccess(c, UserListResponse{
		Users: responses,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  int64(math.Ceil(float64(total) / float64(limit))),
			TotalItems:  total,
			Limit:       limit,
		},
	})
}

// UpdateUserRole updates a user's role
// PUT /admin/users/:id/role
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	var req RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	userID := c.Param("id")

	if err := h.users.UpdateRole(userID, req.Role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		h.log.WithError(err).Error("failed to update role")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		h.log.WithError(err).Error("failed to look up user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	claims := middleware.GetClaims(c)
	h.audit.Create(&models.AuditLog{
		Action:   models.ActionAdminRoleUpdate,
		UserID:   claims.Subject,
		Email:    user.Email,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	RespondSuccess(c, user.ToResponse())
}

// DeleteUser deletes a user account
// DELETE /admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID := c.Param("id")

	if err := h.users.Delete(userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		h.log.WithError(err).Error("failed to delete user")
		RespondError(c, http.StatusInternalServerError, "database_error", "Database error")
		return
	}

	claims := middleware.GetClaims(c)
	h.audit.Create(&models.AuditLog{
		Action:   models.ActionAdminDeleteUser,
		UserID:   claims.Subject,
		ClientIP: GetClientIP(c),
		Success:  true,
	})

	RespondSuccess(c, gin.H{"message": "User deleted successfully"})
}
