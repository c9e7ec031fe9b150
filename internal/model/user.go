package model

import "time"

// User is a marketplace member. Every user can both list items and borrow
// from others; there are no separate roles.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Bio          string     `json:"bio,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	// Aggregated from reviews (not always populated).
	AverageRating float64 `json:"average_rating,omitempty"`
	ReviewsCount  int     `json:"reviews_count,omitempty"`
}
