package models

import "time"

// Audit log actions
const (
	ActionRegister        = "register"
	ActionLogin           = "login"
	ActionPasswordChange  = "password_change"
	ActionPasswordReset   = "password_reset"
	ActionOTPEnroll       = "otp_enroll"
	ActionOTPConfirm      = "otp_confirm"
	ActionOTPValidate     = "otp_validate"
	ActionOTPDisable      = "otp_disable"
	ActionAdminRoleUpdate = "admin_role_update"
	ActionAdminDeleteUser = "admin_delete_user"
	ActionOrderApprove    = "order_approve"
)

// AuditLog represents an audit log entry
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	ClientIP  string    `json:"client_ip"`
	UserAgent string    `json:"user_agent,omitempty"`
	Success   bool      `json:"success"`
	ErrorMsg  string    `json:"error_msg,omitempty"`
}
