package store

import (
	"context"
	"database/sql"
	"fmt"
)

// The availability reconciler. An item's is_available flag must always equal
// "no loan in {approved, active} references this item". The two writers
// below are the only code that touches is_available once loans exist;
// held_by_loan_id records which loan owns the hold so stale releases can be
// detected.

// holdItem marks an item unavailable on behalf of loanID. The conditional
// update doubles as the check-and-set: if another loan already holds the
// item (or the owner switched it off), zero rows match and the caller gets
// ErrConflict. Runs inside the approval transaction.
func holdItem(ctx context.Context, q querier, itemID, loanID int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET is_available = 0, held_by_loan_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND is_available = 1 AND deleted_at IS NULL`,
		loanID, itemID,
	)
	if err != nil {
		return fmt.Errorf("holding item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("holding item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d is not available: %w", itemID, ErrConflict)
	}
	return nil
}

// releaseItem restores availability if loanID is the recorded holder.
// A stale or duplicate release (holder already cleared, or a newer loan
// holds the item) matches zero rows and is a no-op, which makes release
// idempotent.
func releaseItem(ctx context.Context, q querier, itemID, loanID int64) error {
	_, err := q.ExecContext(ctx,
		`UPDATE items SET is_available = 1, held_by_loan_id = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND held_by_loan_id = ?`,
		itemID, loanID,
	)
	if err != nil {
		return fmt.Errorf("releasing item: %w", err)
	}
	return nil
}

// SetItemAvailability is the owner's manual override (e.g. taking an item
// off the market without deleting it). It is rejected while a loan holds
// the item, so it can never fight the reconciler.
func SetItemAvailability(ctx context.Context, db *sql.DB, itemID, actorID int64, available bool) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, itemID)
	if err != nil {
		return err
	}
	if item == nil || item.DeletedAt != nil {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if item.OwnerID != actorID {
		return fmt.Errorf("only the owner may change availability: %w", ErrForbidden)
	}
	if item.HeldByLoanID != nil {
		return fmt.Errorf("item is reserved by loan %d: %w", *item.HeldByLoanID, ErrConflict)
	}

	avail := 0
	if available {
		avail = 1
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE items SET is_available = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		avail, itemID,
	)
	if err != nil {
		return fmt.Errorf("setting item availability: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing availability change: %w", err)
	}
	return nil
}
