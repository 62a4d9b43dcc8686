package domain

import (
	"sort"
	"strconv"
	"strings"
)

type SortKey string

const (
	SortPriceAsc  SortKey = "priceAsc"
	SortPriceDesc SortKey = "priceDesc"
	SortNameAsc   SortKey = "nameAsc"
	SortNameDesc  SortKey = "nameDesc"
	SortNewest    SortKey = "newest"
	SortPopular   SortKey = "popular"
	SortRelevance SortKey = "relevance"
)

// NormalizeSortKey maps a raw sort parameter to a known key. Unknown values
// fall back to relevance rather than erroring.
func NormalizeSortKey(raw string) SortKey {
	switch SortKey(raw) {
	case SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc, SortNewest, SortPopular, SortRelevance:
		return SortKey(raw)
	default:
		return SortRelevance
	}
}

// SearchQuery is the per-request value object the catalog query engine runs
// on. Optional filters are pointers or empty slices; an unset field applies
// no restriction. Invalid raw values are dropped at parse time, so a built
// SearchQuery only carries filters that passed validation.
type SearchQuery struct {
	Search               string
	Categories           []string
	MinPrice             *float64
	MaxPrice             *float64
	InStock              *bool
	RequiresPrescription *bool
	MinRating            *float64
	Types                []string
	Brands               []string
	Location             *GeoPoint
	RadiusMeters         float64
	PharmacyID           string
	Sort                 SortKey

	// Offset mode
	Page  int
	Limit int

	// Cursor mode
	Cursor     string
	PrevCursor string
}

// CursorMode reports whether cursor pagination was requested.
func (q SearchQuery) CursorMode() bool {
	return q.Cursor != "" || q.PrevCursor != ""
}

// HasSearch reports whether a non-empty search term is present.
func (q SearchQuery) HasSearch() bool {
	return strings.TrimSpace(q.Search) != ""
}

// Canonical renders the filter and sort parameters in a stable order,
// excluding pagination. Two logically identical queries produce the same
// string regardless of the order parameters arrived in, which is what makes
// cache keys collide on purpose.
func (q SearchQuery) Canonical() string {
	var parts []string
	add := func(k, v string) {
		parts = append(parts, k+"="+v)
	}

	if q.HasSearch() {
		add("search", strings.Join(strings.Fields(strings.ToLower(q.Search)), " "))
	}
	if len(q.Categories) > 0 {
		add("categories", joinSorted(q.Categories))
	}
	if q.MinPrice != nil {
		add("minPrice", formatFloat(*q.MinPrice))
	}
	if q.MaxPrice != nil {
		add("maxPrice", formatFloat(*q.MaxPrice))
	}
	if q.InStock != nil {
		add("inStock", strconv.FormatBool(*q.InStock))
	}
	if q.RequiresPrescription != nil {
		add("requiresPrescription", strconv.FormatBool(*q.RequiresPrescription))
	}
	if q.MinRating != nil {
		add("minRating", formatFloat(*q.MinRating))
	}
	if len(q.Types) > 0 {
		add("types", joinSorted(q.Types))
	}
	if len(q.Brands) > 0 {
		add("brands", joinSorted(q.Brands))
	}
	if q.Location != nil && len(q.Location.Coordinates) == 2 {
		add("location", formatFloat(q.Location.Coordinates[0])+","+formatFloat(q.Location.Coordinates[1]))
		add("radius", formatFloat(q.RadiusMeters))
	}
	if q.PharmacyID != "" {
		add("pharmacyId", q.PharmacyID)
	}
	add("sort", string(q.Sort))

	sort.Strings(parts)
	return strings.Join(parts, "|")
}

func joinSorted(vals []string) string {
	cp := make([]string, len(vals))
	copy(cp, vals)
	sort.Strings(cp)
	return strings.Join(cp, ",")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
