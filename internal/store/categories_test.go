package store

import (
	"context"
	"errors"
	"testing"
)

func TestSeededCategories(t *testing.T) {
	database := newTestDB(t)

	categories, err := ListCategories(context.Background(), database)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(categories) == 0 {
		t.Fatal("expected default categories to be seeded")
	}
}

func TestCreateCategoryDuplicate(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateCategory(ctx, database, "Drones", "drone", "#3366ff"); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if _, err := CreateCategory(ctx, database, "Drones", "drone", "#3366ff"); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for duplicate category, got %v", err)
	}
}
