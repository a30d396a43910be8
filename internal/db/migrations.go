package db

import (
	"database/sql"
	"fmt"
)

// RunMigrations executes all database migrations
func RunMigrations(db *DB) error {
	// Check if schema_version table exists
	var tableExists bool
	err := db.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	}

	if !tableExists {
		// First time initialization
		if err := initializeSchema(db); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		return nil
	}

	// Get current version
	var currentVersion int
	err = db.QueryRow(`
		SELECT version FROM schema_version
		ORDER BY applied_at DESC LIMIT 1
	`).Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Apply migrations if needed
	// Currently only version 1 exists
	if currentVersion < 1 {
		return fmt.Errorf("invalid schema version: %d", currentVersion)
	}

	return nil
}

// initializeSchema creates all tables for a new database
func initializeSchema(db *DB) error {
	tx, err := db.BeginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		schemaVersionTable,
		usersTable,
		usersIndexes,
		categoriesTable,
		productsTable,
		productsIndexes,
		productCategoriesTable,
		ordersTable,
		ordersIndexes,
		orderItemsTable,
		orderItemsIndexes,
		auditLogsTable,
		auditLogsIndexes,
	}

	for _, stmt := range statements {
		if err := execSQL(tx, stmt); err != nil {
			return err
		}
	}

	// Record schema version
	if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (1)`); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return tx.Commit()
}

// execSQL executes a SQL statement within a transaction
func execSQL(tx *sql.Tx, query string) error {
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	return nil
}

const (
	schemaVersionTable = `
CREATE TABLE schema_version (
    version    INTEGER NOT NULL,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

	usersTable = `
CREATE TABLE users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL,
    first_name    TEXT NOT NULL,
    last_name     TEXT NOT NULL,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'client' CHECK (role IN ('admin', 'client')),
    recovery_key  TEXT NOT NULL DEFAULT '',
    otp_secret    TEXT NOT NULL DEFAULT '',
    otp_auth_url  TEXT NOT NULL DEFAULT '',
    otp_enabled   INTEGER NOT NULL DEFAULT 0,
    otp_verified  INTEGER NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

	usersIndexes = `
CREATE INDEX idx_users_email ON users(email);
CREATE INDEX idx_users_role ON users(role)`

	categoriesTable = `
CREATE TABLE categories (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT ''
)`

	productsTable = `
CREATE TABLE products (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    price       REAL NOT NULL,
    image_url   TEXT NOT NULL DEFAULT '',
    stock       INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

	productsIndexes = `
CREATE INDEX idx_products_name ON products(name)`

	productCategoriesTable = `
CREATE TABLE product_categories (
    product_id  TEXT NOT NULL,
    category_id TEXT NOT NULL,

    PRIMARY KEY (product_id, category_id),
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE,
    FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
)`

	ordersTable = `
CREATE TABLE orders (
    id             TEXT PRIMARY KEY,
    user_id        TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved')),
    payed_price    REAL NOT NULL,
    payment_method TEXT NOT NULL,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
)`

	ordersIndexes = `
CREATE INDEX idx_orders_user_id ON orders(user_id);
CREATE INDEX idx_orders_status ON orders(status);
CREATE INDEX idx_orders_created_at ON orders(created_at)`

	orderItemsTable = `
CREATE TABLE order_items (
    id         TEXT PRIMARY KEY,
    order_id   TEXT NOT NULL,
    product_id TEXT NOT NULL,
    quantity   INTEGER NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,

    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
)`

	orderItemsIndexes = `
CREATE INDEX idx_order_items_order_id ON order_items(order_id);
CREATE INDEX idx_order_items_product_id ON order_items(product_id)`

	auditLogsTable = `
CREATE TABLE audit_logs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    action     TEXT NOT NULL,
    user_id    TEXT,
    email      TEXT,
    client_ip  TEXT NOT NULL,
    user_agent TEXT,
    success    INTEGER NOT NULL,
    error_msg  TEXT
)`

	auditLogsIndexes = `
CREATE INDEX idx_audit_timestamp ON audit_logs(timestamp);
CREATE INDEX idx_audit_action ON audit_logs(action);
CREATE INDEX idx_audit_user_id ON audit_logs(user_id)`
)
