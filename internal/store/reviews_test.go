package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lendhub/lendhub/internal/model"
)

// completedLoan runs a loan through the whole lifecycle and returns it.
func completedLoan(t *testing.T, database *sql.DB, lenderID, borrowerID, itemID int64) *model.Loan {
	t.Helper()
	ctx := context.Background()
	loan, err := CreateLoan(ctx, database, itemID, borrowerID, day(1), day(3), "")
	if err != nil {
		t.Fatalf("CreateLoan: %v", err)
	}
	for _, action := range []string{model.LoanActionApprove, model.LoanActionActivate, model.LoanActionComplete} {
		if _, err := TransitionLoan(ctx, database, loan.ID, action, lenderID); err != nil {
			t.Fatalf("%s: %v", action, err)
		}
	}
	return loan
}

func TestCreateReview(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 2000)
	loan := completedLoan(t, database, owner.ID, borrower.ID, item.ID)

	rev, err := CreateReview(ctx, database, loan.ID, borrower.ID, 5, "great drill, fast handover")
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	if rev.RevieweeID != owner.ID {
		t.Errorf("expected borrower's review to target the lender, got %d", rev.RevieweeID)
	}

	// The lender reviews back; reviewee flips.
	rev2, err := CreateReview(ctx, database, loan.ID, owner.ID, 4, "")
	if err != nil {
		t.Fatalf("CreateReview (lender): %v", err)
	}
	if rev2.RevieweeID != borrower.ID {
		t.Errorf("expected lender's review to target the borrower, got %d", rev2.RevieweeID)
	}
}

func TestCreateReviewRequiresCompletedLoan(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 2000)
	loan, _ := CreateLoan(ctx, database, item.ID, borrower.ID, day(1), day(3), "")

	if _, err := CreateReview(ctx, database, loan.ID, borrower.ID, 5, ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for pending loan, got %v", err)
	}
}

func TestCreateReviewParticipantsOnly(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	stranger := seedUser(t, database, "stranger@example.com")
	item := seedItem(t, database, owner.ID, 2000)
	loan := completedLoan(t, database, owner.ID, borrower.ID, item.ID)

	if _, err := CreateReview(ctx, database, loan.ID, stranger.ID, 3, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden for non-participant, got %v", err)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 2000)
	loan := completedLoan(t, database, owner.ID, borrower.ID, item.ID)

	for _, rating := range []int{0, 6} {
		if _, err := CreateReview(ctx, database, loan.ID, borrower.ID, rating, ""); !errors.Is(err, ErrValidation) {
			t.Errorf("expected ErrValidation for rating %d, got %v", rating, err)
		}
	}

	if _, err := CreateReview(ctx, database, 9999, borrower.ID, 5, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing loan, got %v", err)
	}
}

func TestCreateReviewDuplicate(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	borrower := seedUser(t, database, "borrower@example.com")
	item := seedItem(t, database, owner.ID, 2000)
	loan := completedLoan(t, database, owner.ID, borrower.ID, item.ID)

	if _, err := CreateReview(ctx, database, loan.ID, borrower.ID, 5, ""); err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	if _, err := CreateReview(ctx, database, loan.ID, borrower.ID, 4, ""); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate review, got %v", err)
	}
}

func TestUserRatingAggregate(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, database, "owner@example.com")
	alice := seedUser(t, database, "alice@example.com")
	bob := seedUser(t, database, "bob@example.com")
	item1 := seedItemAt(t, database, owner.ID, "Drill", 2000, 0, 0)
	item2 := seedItemAt(t, database, owner.ID, "Saw", 2000, 0, 0)

	l1 := completedLoan(t, database, owner.ID, alice.ID, item1.ID)
	l2 := completedLoan(t, database, owner.ID, bob.ID, item2.ID)

	CreateReview(ctx, database, l1.ID, alice.ID, 5, "")
	CreateReview(ctx, database, l2.ID, bob.ID, 2, "")

	avg, count, err := UserRating(ctx, database, owner.ID)
	if err != nil {
		t.Fatalf("UserRating: %v", err)
	}
	if count != 2 || avg != 3.5 {
		t.Errorf("expected avg 3.5 over 2 reviews, got %.2f over %d", avg, count)
	}

	reviews, err := ListReviewsForUser(ctx, database, owner.ID)
	if err != nil {
		t.Fatalf("ListReviewsForUser: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("expected 2 reviews, got %d", len(reviews))
	}
	if reviews[0].ReviewerName == "" {
		t.Error("expected reviewer name joined in")
	}

	// Unreviewed users report a zero aggregate, not an error.
	avg, count, err = UserRating(ctx, database, alice.ID)
	if err != nil || avg != 0 || count != 0 {
		t.Errorf("expected empty rating, got %.2f/%d/%v", avg, count, err)
	}
}
