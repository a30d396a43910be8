package models

import "time"

// Role values stored in the users table.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// User represents a user account
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"` // display name
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose password hash in JSON
	Role         string    `json:"role"`
	RecoveryKey  string    `json:"-"` // Never expose recovery key in JSON
	OTPSecret    string    `json:"-"` // Never expose TOTP secret in JSON
	OTPAuthURL   string    `json:"-"`
	OTPEnabled   bool      `json:"otp_enabled"`
	OTPVerified  bool      `json:"otp_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account carries the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserResponse is the wire representation of a user account
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Role        string `json:"role"`
	OTPEnabled  bool   `json:"otp_enabled"`
	OTPVerified bool   `json:"otp_verified"`
}

// ToResponse converts an account into its wire representation.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		OTPEnabled:  u.OTPEnabled,
		OTPVerified: u.OTPVerified,
	}
}
