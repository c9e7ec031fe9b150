package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/lendhub/lendhub/internal/model"
)

func TestCreateLoanComputesTotal(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 10000)

	// Two whole days at 100.00/day.
	loan, err := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "weekend project")
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if loan.Status != model.LoanStatusPending {
		t.Errorf("expected pending, got %q", loan.Status)
	}
	if loan.DailyRateCents != 10000 {
		t.Errorf("expected snapshot rate 10000, got %d", loan.DailyRateCents)
	}
	if loan.TotalAmountCents != 20000 {
		t.Errorf("expected total 20000, got %d", loan.TotalAmountCents)
	}
	if loan.LenderID != owner.ID {
		t.Errorf("expected lender %d, got %d", owner.ID, loan.LenderID)
	}
}

func TestCreateLoanRoundsPartialDaysUp(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 10000)

	// 36 hours bills as 2 days.
	start := day(1)
	loan, err := CreateLoan(ctx, database, item.ID, borrower.ID, start, start.Add(36*time.Hour), "")
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	if loan.TotalAmountCents != 20000 {
		t.Errorf("expected 36h to bill 2 days (20000), got %d", loan.TotalAmountCents)
	}
}

func TestCreateLoanSnapshotSurvivesPriceEdit(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 10000)

	loan, err := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(2), "")
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}

	in := ItemInput{
		CategoryID:      item.CategoryID,
		Title:           item.Title,
		ConditionRating: item.ConditionRating,
		DailyRateCents:  99999,
	}
	if _, err := UpdateItem(ctx, database, item.ID, owner.ID, in); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	got, _ := GetLoan(ctx, database, loan.ID)
	if got.DailyRateCents != 10000 || got.TotalAmountCents != 10000 {
		t.Errorf("loan pricing changed after item edit: rate=%d total=%d", got.DailyRateCents, got.TotalAmountCents)
	}
}

func TestCreateLoanValidation(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 5000)

	// Reversed dates.
	if _, err := CreateLoan(ctx, database, item.ID, borrower.ID, day(3), day(1), ""); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for reversed dates, got %v", err)
	}

	// Start in the past (default policy).
	if _, err := CreateLoan(ctx, database, item.ID, borrower.ID, day(-3), day(1), ""); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for past start, got %v", err)
	}

	// Borrowing your own item.
	if _, err := CreateLoan(ctx, database, item.ID, owner.ID, day(1), day(2), ""); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for self-borrow, got %v", err)
	}

	// Missing item.
	if _, err := CreateLoan(ctx, database, 9999, borrower.ID, day(1), day(2), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing item, got %v", err)
	}
}

func TestCreateLoanPastDatesPolicy(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 5000)

	if err := SetLoanPolicy(ctx, database, LoanPolicy{AllowPastDates: true, LenderCancelActive: true}); err != nil {
		t.Fatalf("SetLoanPolicy: %v", err)
	}

	if _, err := CreateLoan(ctx, database, item.ID, borrower.ID, day(-3), day(1), ""); err != nil {
		t.Errorf("expected past-dated loan to be allowed by policy, got %v", err)
	}
}

func TestApproveHoldsItem(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 5000)

	loan, _ := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "")

	// Creating a request must not touch availability.
	got, _ := GetItem(ctx, database, item.ID)
	if !got.IsAvailable {
		t.Error("pending request should not hold the item")
	}

	if _, err := TransitionLoan(ctx, database, loan.ID, model.LoanActionApprove, owner.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	got, _ = GetItem(ctx, database, item.ID)
	if got.IsAvailable {
		t.Error("approved loan should hold the item")
	}
	if got.HeldByLoanID == nil || *got.HeldByLoanID != loan.ID {
		t.Errorf("expected holder %d, got %v", loan.ID, got.HeldByLoanID)
	}
}

// The scenario from the lifecycle design: requests may pile up while a loan
// holds the item, but only one can be approved at a time.
func TestApproveConflictAndRelease(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	alice := seedUser(t, database, "alice@example.com")
	bob := seedUser(t, database, "bob@example.com")
	item := seedItem(t, database, owner.ID, 10000)

	l1, err := CreateLoan(ctx, database, item.ID, alice.ID, day(1), day(3), "")
	if err != nil {
		t.Fatalf("CreateLoan L1: %v", err)
	}
	if l1.TotalAmountCents != 20000 {
		t.Errorf("expected L1 total 20000, got %d", l1.TotalAmountCents)
	}

	if _, err := TransitionLoan(ctx, database, l1.ID, model.LoanActionApprove, owner.ID); err != nil {
		t.Fatalf("approve L1: %v", err)
	}

	// A second request is still allowed while L1 holds the item.
	l2, err := CreateLoan(ctx, database, item.ID, bob.ID, day(4), day(6), "")
	if err != nil {
		t.Fatalf("CreateLoan L2 while held: %v", err)
	}

	// But approving it must collide.
	if _, err := TransitionLoan(ctx, database, l2.ID, model.LoanActionApprove, owner.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict approving L2, got %v", err)
	}

	// Cancelling L1 releases the hold.
	if _, err := TransitionLoan(ctx, database, l1.ID, model.LoanActionCancel, alice.ID); err != nil {
		t.Fatalf("cancel L1: %v", err)
	}
	got, _ := GetItem(ctx, database, item.ID)
	if !got.IsAvailable {
		t.Error("expected item available after cancelling the holder")
	}

	// Now L2 can be approved.
	if _, err := TransitionLoan(ctx, database, l2.ID, model.LoanActionApprove, owner.ID); err != nil {
		t.Errorf("approve L2 after release: %v", err)
	}
}

func TestTransitionActorChecks(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	stranger := seedUser(t, database, "stranger@example.com")
	item := seedItem(t, database, owner.ID, 5000)

	loan, _ := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "")

	// Borrower cannot approve their own request.
	if _, err := TransitionLoan(ctx, database, loan.ID, model.LoanActionApprove, borrower.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for borrower approve, got %v", err)
	}

	// A third party cannot cancel.
	if _, err := TransitionLoan(ctx, database, loan.ID, model.LoanActionCancel, stranger.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for stranger cancel, got %v", err)
	}

	// Borrower may cancel their pending request.
	if _, err := TransitionLoan(ctx, database, loan.ID, model.LoanActionCancel, borrower.ID); err != nil {
		t.Errorf("borrower cancel: %v", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 5000)

	loan, _ := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "")

	for _, step := range []struct {
		action string
		want   string
	}{
		{model.LoanActionApprove, model.LoanStatusApproved},
		{model.LoanActionActivate, model.LoanStatusActive},
		{model.LoanActionComplete, model.LoanStatusCompleted},
	} {
		got, err := TransitionLoan(ctx, database, loan.ID, step.action, owner.ID)
		if err != nil {
			t.Fatalf("%s: %v", step.action, err)
		}
		if got.Status != step.want {
			t.Fatalf("%s: expected %q, got %q", step.action, step.want, got.Status)
		}
	}

	got, _ := GetItem(ctx, database, item.ID)
	if !got.IsAvailable {
		t.Error("expected item available after completion")
	}
	if got.HeldByLoanID != nil {
		t.Errorf("expected holder cleared, got %v", *got.HeldByLoanID)
	}
}

// forceLoanState puts a loan into an arbitrary state, holding the item when
// the state implies a hold.
func forceLoanState(t *testing.T, database *sql.DB, loanID, itemID int64, status string) {
	t.Helper()
	ctx := context.Background()
	if _, err := database.ExecContext(ctx, `UPDATE loans SET status = ? WHERE id = ?`, status, loanID); err != nil {
		t.Fatalf("forcing loan state: %v", err)
	}
	held := status == model.LoanStatusApproved || status == model.LoanStatusActive
	if held {
		_, err := database.ExecContext(ctx,
			`UPDATE items SET is_available = 0, held_by_loan_id = ? WHERE id = ?`, loanID, itemID)
		if err != nil {
			t.Fatalf("forcing item hold: %v", err)
		}
	} else {
		_, err := database.ExecContext(ctx,
			`UPDATE items SET is_available = 1, held_by_loan_id = NULL WHERE id = ?`, itemID)
		if err != nil {
			t.Fatalf("forcing item release: %v", err)
		}
	}
}

// Every (state, action) pair not explicitly allowed must fail with
// ErrInvalidState. The lender is the actor throughout, since actor
// restrictions are checked separately.
func TestTransitionTableExhaustive(t *testing.T) {
	allowed := map[string]map[string]bool{
		model.LoanStatusPending:  {model.LoanActionApprove: true, model.LoanActionReject: true, model.LoanActionCancel: true},
		model.LoanStatusApproved: {model.LoanActionActivate: true, model.LoanActionCancel: true},
		model.LoanStatusActive:   {model.LoanActionComplete: true, model.LoanActionCancel: true},
		model.LoanStatusCompleted: {},
		model.LoanStatusCancelled: {},
	}
	actions := []string{
		model.LoanActionApprove, model.LoanActionReject, model.LoanActionCancel,
		model.LoanActionActivate, model.LoanActionComplete,
	}

	for status, ok := range allowed {
		for _, action := range actions {
			t.Run(status+"_"+action, func(t *testing.T) {
				database := newTestDB(t)
				ctx := context.Background()

				owner := seedUser(t, database, "owner@example.com")
				borrower := seedUser(t, database, "borrower@example.com")
				item := seedItem(t, database, owner.ID, 5000)
				loan, _ := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "")
				forceLoanState(t, database, loan.ID, item.ID, status)

				_, err := TransitionLoan(ctx, database, loan.ID, action, owner.ID)
				if ok[action] {
					if err != nil {
						t.Errorf("expected %s from %s to succeed, got %v", action, status, err)
					}
				} else if !errors.Is(err, ErrInvalidState) {
					t.Errorf("expected ErrInvalidState for %s from %s, got %v", action, status, err)
				}
			})
		}
	}
}

func TestUnknownActionRejected(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 5000)
	loan, _ := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "")

	if _, err := TransitionLoan(ctx, database, loan.ID, "extend", owner.ID); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for unknown action, got %v", err)
	}
}

func TestLenderCancelActivePolicy(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 5000)
	loan, _ := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "")
	forceLoanState(t, database, loan.ID, item.ID, model.LoanStatusActive)

	// Borrower never cancels an active loan.
	if _, err := TransitionLoan(ctx, database, loan.ID, model.LoanActionCancel, borrower.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for borrower cancelling active, got %v", err)
	}

	// With the policy off, neither does the lender.
	SetLoanPolicy(ctx, database, LoanPolicy{LenderCancelActive: false})
	if _, err := TransitionLoan(ctx, database, loan.ID, model.LoanActionCancel, owner.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden with policy off, got %v", err)
	}

	// With the policy on, the lender may.
	SetLoanPolicy(ctx, database, LoanPolicy{LenderCancelActive: true})
	got, err := TransitionLoan(ctx, database, loan.ID, model.LoanActionCancel, owner.ID)
	if err != nil {
		t.Fatalf("lender cancel active: %v", err)
	}
	if got.Status != model.LoanStatusCancelled {
		t.Errorf("expected cancelled, got %q", got.Status)
	}

	item2, _ := GetItem(ctx, database, item.ID)
	if !item2.IsAvailable {
		t.Error("expected item released after cancellation")
	}
}

func TestSystemActorActivatesAndCompletes(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 5000)
	loan, _ := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "")
	TransitionLoan(ctx, database, loan.ID, model.LoanActionApprove, owner.ID)

	if _, err := TransitionLoan(ctx, database, loan.ID, model.LoanActionActivate, SystemActor); err != nil {
		t.Fatalf("system activate: %v", err)
	}
	if _, err := TransitionLoan(ctx, database, loan.ID, model.LoanActionComplete, SystemActor); err != nil {
		t.Fatalf("system complete: %v", err)
	}
}

func TestListLoansBySide(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 5000)
	CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "")

	borrowed, _ := ListLoansByBorrower(ctx, database, borrower.ID)
	if len(borrowed) != 1 {
		t.Errorf("expected 1 borrowed loan, got %d", len(borrowed))
	}
	if borrowed[0].ItemTitle == "" {
		t.Error("expected item title to be joined in")
	}

	lent, _ := ListLoansByLender(ctx, database, owner.ID)
	if len(lent) != 1 {
		t.Errorf("expected 1 lent loan, got %d", len(lent))
	}

	none, _ := ListLoansByLender(ctx, database, borrower.ID)
	if len(none) != 0 {
		t.Errorf("expected 0 loans lent by borrower, got %d", len(none))
	}
}
