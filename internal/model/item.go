package model

import "time"

// Item is a rentable object listed by its owner. Soft-deleted items
// (DeletedAt set) stay referenced by historical loans but are excluded
// from search and cannot receive new loan requests.
//
// IsAvailable is owned by the loan lifecycle: once a loan is approved the
// item is held (HeldByLoanID records the holding loan) and stays unavailable
// until that loan completes or is cancelled. Owners may only toggle
// availability while no loan holds the item.
type Item struct {
	ID              int64      `json:"id"`
	OwnerID         int64      `json:"owner_id"`
	CategoryID      int64      `json:"category_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	ConditionRating int        `json:"condition_rating"`
	DailyRateCents  int64      `json:"daily_rate_cents"`
	Latitude        float64    `json:"latitude"`
	Longitude       float64    `json:"longitude"`
	Address         string     `json:"address,omitempty"`
	IsAvailable     bool       `json:"is_available"`
	HeldByLoanID    *int64     `json:"held_by_loan_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	OwnerName    string  `json:"owner_name,omitempty"`
	CategoryName string  `json:"category_name,omitempty"`
	Images       []Image `json:"images,omitempty"`

	// Distance in kilometers from the search origin. Only set on search
	// results when a location filter was supplied; never stored.
	Distance *float64 `json:"distance,omitempty"`
}

// Image is a photo attached to an item. At most one image per item is
// primary; SortOrder fixes the gallery order.
type Image struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	MIME      string    `json:"mime"`
	IsPrimary bool      `json:"is_primary"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}
