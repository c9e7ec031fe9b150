package model

import "time"

// Review is feedback left by one loan participant about the other after the
// loan completed. One review per loan per author.
type Review struct {
	ID         int64     `json:"id"`
	LoanID     int64     `json:"loan_id"`
	ReviewerID int64     `json:"reviewer_id"`
	RevieweeID int64     `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`

	// Joined fields (not always populated).
	ReviewerName string `json:"reviewer_name,omitempty"`
}
