package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    first_name    TEXT NOT NULL,
    last_name     TEXT NOT NULL,
    bio           TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS categories (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    icon       TEXT,
    color      TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
    id               INTEGER PRIMARY KEY,
    owner_id         INTEGER NOT NULL REFERENCES users(id),
    category_id      INTEGER NOT NULL REFERENCES categories(id),
    title            TEXT NOT NULL,
    description      TEXT,
    condition_rating INTEGER NOT NULL CHECK (condition_rating BETWEEN 1 AND 5),
    daily_rate_cents INTEGER NOT NULL CHECK (daily_rate_cents >= 0),
    latitude         REAL NOT NULL DEFAULT 0,
    longitude        REAL NOT NULL DEFAULT 0,
    address          TEXT,
    is_available     INTEGER NOT NULL DEFAULT 1,
    held_by_loan_id  INTEGER REFERENCES loans(id),
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at       DATETIME
);

CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS item_images (
    id         INTEGER PRIMARY KEY,
    item_id    INTEGER NOT NULL REFERENCES items(id),
    data       BLOB NOT NULL,
    mime       TEXT NOT NULL,
    is_primary INTEGER NOT NULL DEFAULT 0,
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_item_images_primary
    ON item_images(item_id) WHERE is_primary = 1;

CREATE TABLE IF NOT EXISTS loans (
    id                 INTEGER PRIMARY KEY,
    item_id            INTEGER NOT NULL REFERENCES items(id),
    borrower_id        INTEGER NOT NULL REFERENCES users(id),
    lender_id          INTEGER NOT NULL REFERENCES users(id),
    start_date         DATETIME NOT NULL,
    end_date           DATETIME NOT NULL,
    daily_rate_cents   INTEGER NOT NULL,
    total_amount_cents INTEGER NOT NULL,
    status             TEXT NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'approved', 'active', 'completed', 'cancelled')),
    notes              TEXT,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_loans_item_status ON loans(item_id, status);

CREATE TABLE IF NOT EXISTS messages (
    id           TEXT PRIMARY KEY,
    item_id      INTEGER NOT NULL REFERENCES items(id),
    sender_id    INTEGER NOT NULL REFERENCES users(id),
    recipient_id INTEGER NOT NULL REFERENCES users(id),
    body         TEXT NOT NULL,
    read_at      DATETIME,
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient_id) WHERE read_at IS NULL;

CREATE TABLE IF NOT EXISTS reviews (
    id          INTEGER PRIMARY KEY,
    loan_id     INTEGER NOT NULL REFERENCES loans(id),
    reviewer_id INTEGER NOT NULL REFERENCES users(id),
    reviewee_id INTEGER NOT NULL REFERENCES users(id),
    rating      INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
    comment     TEXT,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (loan_id, reviewer_id)
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
