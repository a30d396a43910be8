package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/cordwell/shopapi/internal/models"
)

// userColumns is the column list every user SELECT uses, in scanUser order.
const userColumns = `id, username, first_name, last_name, email, password_hash, role,
	recovery_key, otp_secret, otp_auth_url, otp_enabled, otp_verified, created_at, updated_at`

// UserRepository handles user data access
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user. Returns ErrConflict if the email is already taken.
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (id, username, first_name, last_name, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Role,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	return nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanUser(r.db.QueryRow(query, email))
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(r.db.QueryRow(query, id))
}

// UpdatePassword updates a user's password hash
func (r *UserRepository) UpdatePassword(id, passwordHash string) error {
	return r.update(`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, passwordHash, id)
}

// UpdateProfile updates a user's display name, names and email
func (r *UserRepository) UpdateProfile(id, username, firstName, lastName, email string) error {
	return r.update(`
		UPDATE users
		SET username = ?, first_name = ?, last_name = ?, email = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, username, firstName, lastName, email, id)
}

// UpdateRole updates a user's role
func (r *UserRepository) UpdateRole(id, role string) error {
	return r.update(`UPDATE users SET role = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, role, id)
}

// UpdateRecoveryKey updates a user's recovery key
func (r *UserRepository) UpdateRecoveryKey(id, key string) error {
	return r.update(`UPDATE users SET recovery_key = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, key, id)
}

// UpdateOTP updates a user's TOTP enrollment fields
func (r *UserRepository) UpdateOTP(id, secret, authURL string, enabled, verified bool) error {
	return r.update(`
		UPDATE users
		SET otp_secret = ?, otp_auth_url = ?, otp_enabled = ?, otp_verified = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, secret, authURL, boolToInt(enabled), boolToInt(verified), id)
}

// List lists users with pagination and an optional search over username and email
func (r *UserRepository) List(limit, offset int64, search string) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username LIKE ? OR email LIKE ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	pattern := "%" + search + "%"
	rows, err := r.db.Query(query, pattern, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User

	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// Count returns the total number of users
func (r *UserRepository) Count() (int64, error) {
	var count int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// Delete deletes a user
func (r *UserRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row scanner) (*models.User, error) {
	user := &models.User{}
	var enabled, verified int

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.RecoveryKey,
		&user.OTPSecret,
		&user.OTPAuthURL,
		&enabled,
		&verified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.OTPEnabled = enabled == 1
	user.OTPVerified = verified == 1

	return user, nil
}

func (r *UserRepository) update(query string, args ...any) error {
	result, err := r.db.Exec(query, args...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrConflict
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
