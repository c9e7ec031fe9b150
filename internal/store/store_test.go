package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lendhub/lendhub/internal/db"
	"github.com/lendhub/lendhub/internal/model"
)

// seedUser creates a user with a dummy password hash.
func seedUser(t *testing.T, database *sql.DB, email string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, email, "x", "Test", "User")
	if err != nil {
		t.Fatalf("seeding user %s: %v", email, err)
	}
	return u
}

// testCategory returns one of the seeded default categories.
func testCategory(t *testing.T, database *sql.DB) int64 {
	t.Helper()
	categories, err := ListCategories(context.Background(), database)
	if err != nil || len(categories) == 0 {
		t.Fatalf("listing seeded categories: %v", err)
	}
	return categories[0].ID
}

// seedItem creates an item with the given daily rate at coordinates (0, 0).
func seedItem(t *testing.T, database *sql.DB, ownerID, rateCents int64) *model.Item {
	t.Helper()
	return seedItemAt(t, database, ownerID, "Cordless Drill", rateCents, 0, 0)
}

func seedItemAt(t *testing.T, database *sql.DB, ownerID int64, title string, rateCents int64, lat, lng float64) *model.Item {
	t.Helper()
	item, err := CreateItem(context.Background(), database, ownerID, ItemInput{
		CategoryID:      testCategory(t, database),
		Title:           title,
		Description:     "test item",
		ConditionRating: 4,
		DailyRateCents:  rateCents,
		Latitude:        lat,
		Longitude:       lng,
	})
	if err != nil {
		t.Fatalf("seeding item %s: %v", title, err)
	}
	return item
}

// dayBase is captured once so that day(a) and day(b) are exactly
// (b-a)*24h apart; calling time.Now() per call would add a few
// microseconds of drift and bill an extra day via LoanDays's ceil.
var dayBase = time.Now()

// day returns a timestamp n whole days from now.
func day(n int) time.Time {
	return dayBase.Add(time.Duration(n) * 24 * time.Hour)
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return db.NewTestDB(t)
}
