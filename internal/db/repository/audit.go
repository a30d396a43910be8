package repository

import (
	"database/sql"
	"fmt"

	"github.com/cordwell/shopapi/internal/models"
)

// AuditRepository handles audit log data access
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create creates a new audit log entry
func (r *AuditRepository) Create(entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (action, user_id, email, client_ip, user_agent, success, error_msg)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	success := 0
	if entry.Success {
		success = 1
	}

	result, err := r.db.Exec(query,
		entry.Action,
		entry.UserID,
		entry.Email,
		entry.ClientIP,
		entry.UserAgent,
		success,
		entry.ErrorMsg,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id

	return nil
}

// ListRecent lists the most recent audit log entries
func (r *AuditRepository) ListRecent(limit int64) ([]*models.AuditLog, error) {
	query := `
		SELECT id, timestamp, action, COALESCE(user_id, ''), COALESCE(email, ''),
			client_ip, COALESCE(user_agent, ''), success, COALESCE(error_msg, '')
		FROM audit_logs
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLog

	for rows.Next() {
		entry := &models.AuditLog{}
		var success int

		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.Action,
			&entry.UserID,
			&entry.Email,
			&entry.ClientIP,
			&entry.UserAgent,
			&success,
			&entry.ErrorMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		entry.Success = success == 1
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
