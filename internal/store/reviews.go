package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lendhub/lendhub/internal/model"
)

// CreateReview lets a participant of a completed loan review the other
// party. One review per loan per author; duplicates fail with ErrConflict.
func CreateReview(ctx context.Context, db *sql.DB, loanID, reviewerID int64, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5: %w", ErrValidation)
	}

	loan, err := GetLoan(ctx, db, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, fmt.Errorf("loan %d: %w", loanID, ErrNotFound)
	}
	if loan.Status != model.LoanStatusCompleted {
		return nil, fmt.Errorf("loan is %s, reviews require a completed loan: %w", loan.Status, ErrInvalidState)
	}

	var revieweeID int64
	switch reviewerID {
	case loan.BorrowerID:
		revieweeID = loan.LenderID
	case loan.LenderID:
		revieweeID = loan.BorrowerID
	default:
		return nil, fmt.Errorf("only loan participants may review: %w", ErrForbidden)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO reviews (loan_id, reviewer_id, reviewee_id, rating, comment) VALUES (?, ?, ?, ?, ?)`,
		loanID, reviewerID, revieweeID, rating, comment,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("loan %d already reviewed: %w", loanID, ErrConflict)
		}
		return nil, fmt.Errorf("creating review: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting review id: %w", err)
	}

	return GetReview(ctx, db, id)
}

// GetReview returns a review by ID.
func GetReview(ctx context.Context, db *sql.DB, id int64) (*model.Review, error) {
	rev := &model.Review{}
	var comment sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, loan_id, reviewer_id, reviewee_id, rating, comment, created_at
		 FROM reviews WHERE id = ?`, id,
	).Scan(&rev.ID, &rev.LoanID, &rev.ReviewerID, &rev.RevieweeID, &rev.Rating, &comment, &rev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting review: %w", err)
	}
	rev.Comment = comment.String
	return rev, nil
}

// ListReviewsForUser returns reviews received by userID, newest first.
func ListReviewsForUser(ctx context.Context, db *sql.DB, userID int64) ([]model.Review, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.loan_id, r.reviewer_id, r.reviewee_id, r.rating, r.comment, r.created_at,
		        u.first_name || ' ' || u.last_name
		 FROM reviews r
		 JOIN users u ON u.id = r.reviewer_id
		 WHERE r.reviewee_id = ?
		 ORDER BY r.created_at DESC, r.id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rev model.Review
		var comment sql.NullString
		if err := rows.Scan(&rev.ID, &rev.LoanID, &rev.ReviewerID, &rev.RevieweeID, &rev.Rating,
			&comment, &rev.CreatedAt, &rev.ReviewerName); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}
		rev.Comment = comment.String
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

// UserRating returns the average rating and review count for a user.
func UserRating(ctx context.Context, db *sql.DB, userID int64) (float64, int, error) {
	var avg sql.NullFloat64
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT AVG(rating), COUNT(*) FROM reviews WHERE reviewee_id = ?`, userID,
	).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("computing user rating: %w", err)
	}
	return avg.Float64, count, nil
}
