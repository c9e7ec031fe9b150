package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lendhub/lendhub/internal/model"
)

// requireItemOwner loads an item and checks the actor owns it.
func requireItemOwner(ctx context.Context, q querier, itemID, actorID int64) (*model.Item, error) {
	item, err := getItem(ctx, q, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if item.OwnerID != actorID {
		return nil, fmt.Errorf("only the owner may manage images: %w", ErrForbidden)
	}
	return item, nil
}

// AddItemImage attaches a processed image to an item. The first image of an
// item automatically becomes the primary one; later images append to the
// end of the gallery.
func AddItemImage(ctx context.Context, db *sql.DB, itemID, actorID int64, data []byte, mime string) (*model.Image, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := requireItemOwner(ctx, tx, itemID, actorID); err != nil {
		return nil, err
	}

	var count, maxOrder int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(sort_order), -1) FROM item_images WHERE item_id = ?`,
		itemID,
	).Scan(&count, &maxOrder)
	if err != nil {
		return nil, fmt.Errorf("counting item images: %w", err)
	}

	primary := 0
	if count == 0 {
		primary = 1
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO item_images (item_id, data, mime, is_primary, sort_order) VALUES (?, ?, ?, ?, ?)`,
		itemID, data, mime, primary, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("adding item image: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting image id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing image: %w", err)
	}

	return getItemImageMeta(ctx, db, id)
}

func getItemImageMeta(ctx context.Context, db *sql.DB, id int64) (*model.Image, error) {
	img := &model.Image{}
	var primary int
	err := db.QueryRowContext(ctx,
		`SELECT id, item_id, mime, is_primary, sort_order, created_at FROM item_images WHERE id = ?`,
		id,
	).Scan(&img.ID, &img.ItemID, &img.MIME, &primary, &img.SortOrder, &img.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}
	img.IsPrimary = primary != 0
	return img, nil
}

// ListItemImages returns an item's image metadata in gallery order.
func ListItemImages(ctx context.Context, db *sql.DB, itemID int64) ([]model.Image, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, item_id, mime, is_primary, sort_order, created_at
		 FROM item_images WHERE item_id = ? ORDER BY sort_order, id`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item images: %w", err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		var img model.Image
		var primary int
		if err := rows.Scan(&img.ID, &img.ItemID, &img.MIME, &primary, &img.SortOrder, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		img.IsPrimary = primary != 0
		images = append(images, img)
	}
	return images, rows.Err()
}

// GetItemImageData returns an image's bytes and MIME type for serving.
func GetItemImageData(ctx context.Context, db *sql.DB, itemID, imageID int64) ([]byte, string, error) {
	var data []byte
	var mime string
	err := db.QueryRowContext(ctx,
		`SELECT data, mime FROM item_images WHERE id = ? AND item_id = ?`,
		imageID, itemID,
	).Scan(&data, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting image data: %w", err)
	}
	return data, mime, nil
}

// SetPrimaryImage makes imageID the item's primary image, demoting the
// previous one. The partial unique index on item_images enforces at most
// one primary per item, so the demote must happen first.
func SetPrimaryImage(ctx context.Context, db *sql.DB, itemID, imageID, actorID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := requireItemOwner(ctx, tx, itemID, actorID); err != nil {
		return err
	}

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM item_images WHERE id = ? AND item_id = ?`, imageID, itemID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking image: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("image %d: %w", imageID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE item_images SET is_primary = 0 WHERE item_id = ? AND is_primary = 1`, itemID,
	); err != nil {
		return fmt.Errorf("demoting primary image: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE item_images SET is_primary = 1 WHERE id = ?`, imageID,
	); err != nil {
		return fmt.Errorf("promoting primary image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing primary change: %w", err)
	}
	return nil
}

// DeleteItemImage removes an image. If the primary image is removed the
// first remaining gallery image is promoted.
func DeleteItemImage(ctx context.Context, db *sql.DB, itemID, imageID, actorID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := requireItemOwner(ctx, tx, itemID, actorID); err != nil {
		return err
	}

	var primary int
	err = tx.QueryRowContext(ctx,
		`SELECT is_primary FROM item_images WHERE id = ? AND item_id = ?`, imageID, itemID,
	).Scan(&primary)
	if err == sql.ErrNoRows {
		return fmt.Errorf("image %d: %w", imageID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking image: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM item_images WHERE id = ?`, imageID,
	); err != nil {
		return fmt.Errorf("deleting image: %w", err)
	}

	if primary != 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE item_images SET is_primary = 1
			 WHERE id = (SELECT id FROM item_images WHERE item_id = ? ORDER BY sort_order, id LIMIT 1)`,
			itemID,
		)
		if err != nil {
			return fmt.Errorf("promoting replacement image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing image deletion: %w", err)
	}
	return nil
}
