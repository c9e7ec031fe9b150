package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lendhub/lendhub/internal/model"
)

// querier is the subset of *sql.DB and *sql.Tx used by shared read helpers.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ItemInput carries the owner-editable content fields of an item.
type ItemInput struct {
	CategoryID      int64
	Title           string
	Description     string
	ConditionRating int
	DailyRateCents  int64
	Latitude        float64
	Longitude       float64
	Address         string
}

func (in *ItemInput) validate() error {
	if in.Title == "" {
		return fmt.Errorf("title required: %w", ErrValidation)
	}
	if in.ConditionRating < 1 || in.ConditionRating > 5 {
		return fmt.Errorf("condition rating must be between 1 and 5: %w", ErrValidation)
	}
	if in.DailyRateCents < 0 {
		return fmt.Errorf("daily rate must not be negative: %w", ErrValidation)
	}
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return fmt.Errorf("invalid coordinates: %w", ErrValidation)
	}
	return nil
}

// CreateItem creates a new item listing owned by ownerID.
func CreateItem(ctx context.Context, db *sql.DB, ownerID int64, in ItemInput) (*model.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	category, err := GetCategory(ctx, db, in.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %d: %w", in.CategoryID, ErrNotFound)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO items (owner_id, category_id, title, description, condition_rating,
		                    daily_rate_cents, latitude, longitude, address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ownerID, in.CategoryID, in.Title, in.Description, in.ConditionRating,
		in.DailyRateCents, in.Latitude, in.Longitude, in.Address,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

const itemColumns = `id, owner_id, category_id, title, description, condition_rating,
	daily_rate_cents, latitude, longitude, address, is_available, held_by_loan_id,
	created_at, updated_at, deleted_at`

func scanItem(row *sql.Row) (*model.Item, error) {
	item := &model.Item{}
	var description, address sql.NullString
	var available int
	err := row.Scan(&item.ID, &item.OwnerID, &item.CategoryID, &item.Title, &description,
		&item.ConditionRating, &item.DailyRateCents, &item.Latitude, &item.Longitude,
		&address, &available, &item.HeldByLoanID, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	item.Description = description.String
	item.Address = address.String
	item.IsAvailable = available != 0
	return item, nil
}

// GetItem returns an item by ID (including soft-deleted ones, so historical
// loans can still resolve their item).
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	return getItem(ctx, db, id)
}

func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	return scanItem(q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
}

// GetItemDetails returns an item together with owner name, category name and
// image metadata.
func GetItemDetails(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := GetItem(ctx, db, id)
	if err != nil || item == nil {
		return item, err
	}

	err = db.QueryRowContext(ctx,
		`SELECT u.first_name || ' ' || u.last_name, c.name
		 FROM items i
		 JOIN users u ON u.id = i.owner_id
		 JOIN categories c ON c.id = i.category_id
		 WHERE i.id = ?`, id,
	).Scan(&item.OwnerName, &item.CategoryName)
	if err != nil {
		return nil, fmt.Errorf("getting item details: %w", err)
	}

	item.Images, err = ListItemImages(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListItemsByOwner returns all non-deleted items owned by ownerID.
func ListItemsByOwner(ctx context.Context, db *sql.DB, ownerID int64) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE owner_id = ? AND deleted_at IS NULL ORDER BY created_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing items by owner: %w", err)
	}
	defer rows.Close()

	return collectItems(rows)
}

// collectItems scans rows selected with itemColumns.
func collectItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		var item model.Item
		var description, address sql.NullString
		var available int
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.CategoryID, &item.Title, &description,
			&item.ConditionRating, &item.DailyRateCents, &item.Latitude, &item.Longitude,
			&address, &available, &item.HeldByLoanID, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		item.Description = description.String
		item.Address = address.String
		item.IsAvailable = available != 0
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's content fields. Only the owner may edit, and
// availability is deliberately not among the editable fields (see
// SetItemAvailability).
func UpdateItem(ctx context.Context, db *sql.DB, id, actorID int64, in ItemInput) (*model.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	item, err := GetItem(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if item.OwnerID != actorID {
		return nil, fmt.Errorf("only the owner may edit an item: %w", ErrForbidden)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE items SET category_id = ?, title = ?, description = ?, condition_rating = ?,
		        daily_rate_cents = ?, latitude = ?, longitude = ?, address = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		in.CategoryID, in.Title, in.Description, in.ConditionRating,
		in.DailyRateCents, in.Latitude, in.Longitude, in.Address, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	return GetItem(ctx, db, id)
}

// DeleteItem soft-deletes an item. The item must not be held by a loan;
// historical loans keep referencing the deleted row.
func DeleteItem(ctx context.Context, db *sql.DB, id, actorID int64) error {
	item, err := GetItem(ctx, db, id)
	if err != nil {
		return err
	}
	if item == nil || item.DeletedAt != nil {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if item.OwnerID != actorID {
		return fmt.Errorf("only the owner may delete an item: %w", ErrForbidden)
	}
	if item.HeldByLoanID != nil {
		return fmt.Errorf("item is reserved by loan %d: %w", *item.HeldByLoanID, ErrConflict)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}
