package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lendhub/lendhub/internal/model"
)

// CreateUser creates a new user. Email uniqueness among active accounts is
// enforced by a partial unique index; violations surface as ErrConflict.
func CreateUser(ctx context.Context, db *sql.DB, email, passwordHash, firstName, lastName string) (*model.User, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name) VALUES (?, ?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(email)), passwordHash, firstName, lastName,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u := &model.User{}
	var bio sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, bio, created_at, deleted_at
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &bio, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	u.Bio = bio.String
	return u, nil
}

// GetUserByEmail returns a user by email (including soft-deleted for auth
// checks).
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u := &model.User{}
	var bio sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, bio, created_at, deleted_at
		 FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &bio, &u.CreatedAt, &u.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	u.Bio = bio.String
	return u, nil
}

// UpdateUserProfile updates a user's profile fields.
func UpdateUserProfile(ctx context.Context, db *sql.DB, id int64, firstName, lastName, bio string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, bio = ? WHERE id = ? AND deleted_at IS NULL`,
		firstName, lastName, bio, id,
	)
	if err != nil {
		return fmt.Errorf("updating user profile: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
