package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/lendhub/lendhub/internal/model"
)

// SystemActor is the actor ID used by clock-driven callers (a scheduler
// activating loans on their start date or completing them on their end
// date). It bypasses the participant checks on activate and complete.
const SystemActor int64 = 0

// LoanDays returns the billable duration in whole days. Partial days round
// up, so a six-hour loan bills one full day.
func LoanDays(start, end time.Time) int64 {
	return int64(math.Ceil(end.Sub(start).Hours() / 24))
}

// CreateLoan creates a loan request in the pending state. The item's daily
// rate is snapshotted onto the loan so later price edits never change it.
//
// A request is not a hold: creating a loan never touches the item's
// availability, and requests may pile up while another loan holds the item.
// Availability is only claimed on approval.
func CreateLoan(ctx context.Context, db *sql.DB, itemID, borrowerID int64, start, end time.Time, notes string) (*model.Loan, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("start date must be before end date: %w", ErrValidation)
	}

	policy, err := GetLoanPolicy(ctx, db)
	if err != nil {
		return nil, err
	}
	if !policy.AllowPastDates {
		today := time.Now().Truncate(24 * time.Hour)
		if start.Before(today) {
			return nil, fmt.Errorf("start date is in the past: %w", ErrValidation)
		}
	}

	item, err := GetItem(ctx, db, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if item.OwnerID == borrowerID {
		return nil, fmt.Errorf("cannot borrow your own item: %w", ErrValidation)
	}

	total := item.DailyRateCents * LoanDays(start, end)

	result, err := db.ExecContext(ctx,
		`INSERT INTO loans (item_id, borrower_id, lender_id, start_date, end_date,
		                    daily_rate_cents, total_amount_cents, status, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		itemID, borrowerID, item.OwnerID, start, end,
		item.DailyRateCents, total, model.LoanStatusPending, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("creating loan: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting loan id: %w", err)
	}

	return GetLoan(ctx, db, id)
}

// TransitionLoan applies a lifecycle action to a loan on behalf of actorID
// and returns the updated loan.
//
// The transition table:
//
//	pending  -> approved  (approve, lender)
//	pending  -> cancelled (reject, lender; cancel, either party)
//	approved -> active    (activate, lender or system)
//	approved -> cancelled (cancel, either party)
//	active   -> completed (complete, lender or system)
//	active   -> cancelled (cancel, lender, policy-gated)
//
// Everything else fails: unknown actions with ErrValidation, disallowed
// (state, action) pairs with ErrInvalidState, wrong actors with
// ErrForbidden. Approval claims the item's availability; transitions out of
// approved/active release it.
func TransitionLoan(ctx context.Context, db *sql.DB, loanID int64, action string, actorID int64) (*model.Loan, error) {
	policy, err := GetLoanPolicy(ctx, db)
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	loan, err := getLoan(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, fmt.Errorf("loan %d: %w", loanID, ErrNotFound)
	}

	if model.LoanTerminal(loan.Status) {
		return nil, fmt.Errorf("loan is %s: %w", loan.Status, ErrInvalidState)
	}

	var next string
	switch action {
	case model.LoanActionApprove:
		if loan.Status != model.LoanStatusPending {
			return nil, transitionErr(loan.Status, action)
		}
		if actorID != loan.LenderID {
			return nil, fmt.Errorf("only the lender may approve: %w", ErrForbidden)
		}

		// No other loan may sit in approved/active for this item.
		var conflicting int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM loans WHERE item_id = ? AND id != ? AND status IN (?, ?)`,
			loan.ItemID, loan.ID, model.LoanStatusApproved, model.LoanStatusActive,
		).Scan(&conflicting)
		if err != nil {
			return nil, fmt.Errorf("checking conflicting loans: %w", err)
		}
		if conflicting > 0 {
			return nil, fmt.Errorf("item %d already has an approved loan: %w", loan.ItemID, ErrConflict)
		}

		// Claim availability; the conditional update is the check-and-set
		// that makes concurrent approvals mutually exclusive.
		if err := holdItem(ctx, tx, loan.ItemID, loan.ID); err != nil {
			return nil, err
		}
		next = model.LoanStatusApproved

	case model.LoanActionReject:
		if loan.Status != model.LoanStatusPending {
			return nil, transitionErr(loan.Status, action)
		}
		if actorID != loan.LenderID {
			return nil, fmt.Errorf("only the lender may reject: %w", ErrForbidden)
		}
		next = model.LoanStatusCancelled

	case model.LoanActionCancel:
		switch loan.Status {
		case model.LoanStatusPending, model.LoanStatusApproved:
			if actorID != loan.BorrowerID && actorID != loan.LenderID {
				return nil, fmt.Errorf("only a loan participant may cancel: %w", ErrForbidden)
			}
		case model.LoanStatusActive:
			if actorID != loan.LenderID && actorID != SystemActor {
				return nil, fmt.Errorf("only the lender may cancel an active loan: %w", ErrForbidden)
			}
			if !policy.LenderCancelActive {
				return nil, fmt.Errorf("cancelling active loans is disabled: %w", ErrForbidden)
			}
		default:
			return nil, transitionErr(loan.Status, action)
		}
		if loan.Status == model.LoanStatusApproved || loan.Status == model.LoanStatusActive {
			if err := releaseItem(ctx, tx, loan.ItemID, loan.ID); err != nil {
				return nil, err
			}
		}
		next = model.LoanStatusCancelled

	case model.LoanActionActivate:
		if loan.Status != model.LoanStatusApproved {
			return nil, transitionErr(loan.Status, action)
		}
		if actorID != loan.LenderID && actorID != SystemActor {
			return nil, fmt.Errorf("only the lender may activate: %w", ErrForbidden)
		}
		next = model.LoanStatusActive

	case model.LoanActionComplete:
		if loan.Status != model.LoanStatusActive {
			return nil, transitionErr(loan.Status, action)
		}
		if actorID != loan.LenderID && actorID != SystemActor {
			return nil, fmt.Errorf("only the lender may complete: %w", ErrForbidden)
		}
		if err := releaseItem(ctx, tx, loan.ItemID, loan.ID); err != nil {
			return nil, err
		}
		next = model.LoanStatusCompleted

	default:
		return nil, fmt.Errorf("unknown action %q: %w", action, ErrValidation)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		next, loan.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating loan status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing loan transition: %w", err)
	}

	return GetLoan(ctx, db, loanID)
}

func transitionErr(status, action string) error {
	return fmt.Errorf("cannot %s a %s loan: %w", action, status, ErrInvalidState)
}

// GetLoan returns a loan by ID with the item title joined in.
func GetLoan(ctx context.Context, db *sql.DB, id int64) (*model.Loan, error) {
	l := &model.Loan{}
	var notes sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT l.id, l.item_id, l.borrower_id, l.lender_id, l.start_date, l.end_date,
		        l.daily_rate_cents, l.total_amount_cents, l.status, l.notes,
		        l.created_at, l.updated_at, i.title
		 FROM loans l
		 JOIN items i ON i.id = l.item_id
		 WHERE l.id = ?`, id,
	).Scan(&l.ID, &l.ItemID, &l.BorrowerID, &l.LenderID, &l.StartDate, &l.EndDate,
		&l.DailyRateCents, &l.TotalAmountCents, &l.Status, &notes,
		&l.CreatedAt, &l.UpdatedAt, &l.ItemTitle)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	l.Notes = notes.String
	return l, nil
}

// getLoan reads a loan inside a transaction, without joins.
func getLoan(ctx context.Context, q querier, id int64) (*model.Loan, error) {
	l := &model.Loan{}
	var notes sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT id, item_id, borrower_id, lender_id, start_date, end_date,
		        daily_rate_cents, total_amount_cents, status, notes, created_at, updated_at
		 FROM loans WHERE id = ?`, id,
	).Scan(&l.ID, &l.ItemID, &l.BorrowerID, &l.LenderID, &l.StartDate, &l.EndDate,
		&l.DailyRateCents, &l.TotalAmountCents, &l.Status, &notes, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	l.Notes = notes.String
	return l, nil
}

// ListLoansByBorrower returns loans requested by userID, newest first.
func ListLoansByBorrower(ctx context.Context, db *sql.DB, userID int64) ([]model.Loan, error) {
	return listLoans(ctx, db, `l.borrower_id = ?`, userID)
}

// ListLoansByLender returns loans on items owned by userID, newest first.
func ListLoansByLender(ctx context.Context, db *sql.DB, userID int64) ([]model.Loan, error) {
	return listLoans(ctx, db, `l.lender_id = ?`, userID)
}

func listLoans(ctx context.Context, db *sql.DB, where string, args ...any) ([]model.Loan, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT l.id, l.item_id, l.borrower_id, l.lender_id, l.start_date, l.end_date,
		        l.daily_rate_cents, l.total_amount_cents, l.status, l.notes,
		        l.created_at, l.updated_at, i.title
		 FROM loans l
		 JOIN items i ON i.id = l.item_id
		 WHERE `+where+`
		 ORDER BY l.created_at DESC, l.id DESC`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		var l model.Loan
		var notes sql.NullString
		if err := rows.Scan(&l.ID, &l.ItemID, &l.BorrowerID, &l.LenderID, &l.StartDate, &l.EndDate,
			&l.DailyRateCents, &l.TotalAmountCents, &l.Status, &notes,
			&l.CreatedAt, &l.UpdatedAt, &l.ItemTitle); err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		l.Notes = notes.String
		loans = append(loans, l)
	}
	return loans, rows.Err()
}
