package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/lendhub/lendhub/internal/geo"
	"github.com/lendhub/lendhub/internal/model"
)

var dialect = goqu.Dialect("sqlite3")

// MaxPageSize caps the per-page result count.
const MaxPageSize = 100

// SearchFilters are the optional item search criteria. Zero values mean
// "not filtered" (nil for the pointer fields, since zero is meaningful for
// prices and coordinates).
type SearchFilters struct {
	Query         string
	CategoryID    int64
	MinPriceCents *int64
	MaxPriceCents *int64
	MinCondition  int
	AvailableOnly bool

	// Location filter: all three must be set together.
	Latitude  *float64
	Longitude *float64
	RadiusKm  float64
}

func (f *SearchFilters) hasLocation() bool {
	return f.Latitude != nil && f.Longitude != nil && f.RadiusKm > 0
}

// SearchResult is one page of matching items.
type SearchResult struct {
	Items   []model.Item `json:"items"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	HasMore bool         `json:"has_more"`
}

// SearchItems queries active items with the given filters and returns one
// page of results.
//
// Ordering is distance ascending when a location filter is present and
// recency otherwise, with the item ID as secondary key in both cases so
// pagination stays stable when the primary key ties. With a location
// filter the SQL bounding box over-selects and the exact haversine check,
// ordering and paging happen here; each result then carries its distance
// from the search origin.
func SearchItems(ctx context.Context, db *sql.DB, f SearchFilters, page, limit int) (*SearchResult, error) {
	if page < 1 {
		return nil, fmt.Errorf("page must be at least 1: %w", ErrValidation)
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive: %w", ErrValidation)
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	ds := dialect.From("items").
		Select(goqu.L(itemColumns)).
		Where(goqu.C("deleted_at").IsNull())

	if f.Query != "" {
		pattern := "%" + strings.ToLower(f.Query) + "%"
		ds = ds.Where(goqu.Or(
			goqu.L("LOWER(title) LIKE ?", pattern),
			goqu.L("LOWER(COALESCE(description, '')) LIKE ?", pattern),
		))
	}
	if f.CategoryID > 0 {
		ds = ds.Where(goqu.C("category_id").Eq(f.CategoryID))
	}
	if f.MinPriceCents != nil {
		ds = ds.Where(goqu.C("daily_rate_cents").Gte(*f.MinPriceCents))
	}
	if f.MaxPriceCents != nil {
		ds = ds.Where(goqu.C("daily_rate_cents").Lte(*f.MaxPriceCents))
	}
	if f.MinCondition > 0 {
		ds = ds.Where(goqu.C("condition_rating").Gte(f.MinCondition))
	}
	if f.AvailableOnly {
		ds = ds.Where(goqu.C("is_available").Eq(1))
	}

	if f.hasLocation() {
		return searchByDistance(ctx, db, ds, f, page, limit)
	}
	return searchByRecency(ctx, db, ds, page, limit)
}

// searchByRecency pages entirely in SQL, newest first.
func searchByRecency(ctx context.Context, db *sql.DB, ds *goqu.SelectDataset, page, limit int) (*SearchResult, error) {
	countSQL, countArgs, err := ds.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building count query: %w", err)
	}

	var total int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting search results: %w", err)
	}

	pageSQL, pageArgs, err := ds.
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(limit)).
		Offset(uint((page - 1) * limit)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building search query: %w", err)
	}

	rows, err := db.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	defer rows.Close()

	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Item{}
	}

	return &SearchResult{
		Items:   items,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: page*limit < total,
	}, nil
}

// searchByDistance fetches every bounding-box candidate, applies the exact
// radius check, sorts by distance and pages in memory.
func searchByDistance(ctx context.Context, db *sql.DB, ds *goqu.SelectDataset, f SearchFilters, page, limit int) (*SearchResult, error) {
	dLat, dLng := geo.BoundingBox(*f.Latitude, f.RadiusKm)
	ds = ds.Where(
		goqu.C("latitude").Between(goqu.Range(*f.Latitude-dLat, *f.Latitude+dLat)),
		goqu.C("longitude").Between(goqu.Range(*f.Longitude-dLng, *f.Longitude+dLng)),
	)

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building search query: %w", err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}
	defer rows.Close()

	candidates, err := collectItems(rows)
	if err != nil {
		return nil, err
	}

	matches := candidates[:0]
	for i := range candidates {
		d := geo.Distance(*f.Latitude, *f.Longitude, candidates[i].Latitude, candidates[i].Longitude)
		if d <= f.RadiusKm {
			candidates[i].Distance = &d
			matches = append(matches, candidates[i])
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if *matches[i].Distance != *matches[j].Distance {
			return *matches[i].Distance < *matches[j].Distance
		}
		return matches[i].ID < matches[j].ID
	})

	total := len(matches)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	items := make([]model.Item, end-start)
	copy(items, matches[start:end])

	return &SearchResult{
		Items:   items,
		Total:   total,
		Page:    page,
		Limit:   limit,
		HasMore: page*limit < total,
	}, nil
}
