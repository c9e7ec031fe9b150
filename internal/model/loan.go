package model

import "time"

// Loan is a reservation of an item by a borrower for a date range.
// DailyRateCents is snapshotted from the item at creation so later price
// edits never change historical loans. TotalAmountCents is the snapshot
// rate times the loan duration in whole days (partial days round up).
type Loan struct {
	ID               int64     `json:"id"`
	ItemID           int64     `json:"item_id"`
	BorrowerID       int64     `json:"borrower_id"`
	LenderID         int64     `json:"lender_id"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	DailyRateCents   int64     `json:"daily_rate_cents"`
	TotalAmountCents int64     `json:"total_amount_cents"`
	Status           string    `json:"status"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Joined fields (not always populated).
	ItemTitle string `json:"item_title,omitempty"`
}

// Loan statuses. Pending is the initial state; completed and cancelled are
// terminal.
const (
	LoanStatusPending   = "pending"
	LoanStatusApproved  = "approved"
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusCancelled = "cancelled"
)

// Loan actions accepted by the lifecycle.
const (
	LoanActionApprove  = "approve"
	LoanActionReject   = "reject"
	LoanActionCancel   = "cancel"
	LoanActionActivate = "activate"
	LoanActionComplete = "complete"
)

// LoanTerminal reports whether a status permits no further transitions.
func LoanTerminal(status string) bool {
	return status == LoanStatusCompleted || status == LoanStatusCancelled
}
