package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at the
// end.
var migrations = []string{
	// Migration 1: replace the hard UNIQUE on email with a partial unique
	// index that only covers active users, so a soft-deleted account's
	// address can register again.
	`DROP INDEX IF EXISTS sqlite_autoindex_users_1`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
	     ON users(email) WHERE deleted_at IS NULL`,
}

// defaultCategories are seeded on first run so new installs have something
// to list items under.
var defaultCategories = []struct {
	name, icon, color string
}{
	{"Tools", "construct", "#f4a261"},
	{"Electronics", "hardware-chip", "#2a9d8f"},
	{"Outdoors", "trail-sign", "#588157"},
	{"Home & Garden", "home", "#e9c46a"},
	{"Sports", "basketball", "#e76f51"},
	{"Other", "help", "#adb5bd"},
}

// Migrate runs the database schema migrations and seeds default categories.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	for _, c := range defaultCategories {
		_, err := db.Exec(
			`INSERT OR IGNORE INTO categories (name, icon, color) VALUES (?, ?, ?)`,
			c.name, c.icon, c.color,
		)
		if err != nil {
			return fmt.Errorf("seeding category %q: %w", c.name, err)
		}
	}

	return nil
}
