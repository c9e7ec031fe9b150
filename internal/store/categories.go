package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lendhub/lendhub/internal/model"
)

// CreateCategory creates a new category.
func CreateCategory(ctx context.Context, db *sql.DB, name, icon, color string) (*model.Category, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO categories (name, icon, color) VALUES (?, ?, ?)`,
		name, icon, color,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("category %q already exists: %w", name, ErrConflict)
		}
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	c := &model.Category{}
	var icon, color sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, icon, color, created_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &icon, &color, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	c.Icon = icon.String
	c.Color = color.String
	return c, nil
}

// ListCategories returns all categories ordered by name.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, icon, color, created_at FROM categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		var icon, color sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &icon, &color, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.Icon = icon.String
		c.Color = color.String
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
