package v1

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"medcatalog-backend/internal/domain"
	"medcatalog-backend/pkg/utils"
)

// parseSearchQuery assembles the per-request query value object. Each field
// runs through its own validator; an invalid value is dropped (no
// restriction) rather than failing the request.
func parseSearchQuery(values url.Values, defaultRadius float64) domain.SearchQuery {
	q := domain.SearchQuery{
		Search:     values.Get("search"),
		Categories: nonEmpty(values["categories"]),
		Types:      nonEmpty(values["type"]),
		Brands:     nonEmpty(values["brand"]),
		PharmacyID: values.Get("pharmacyId"),
		Sort:       domain.NormalizeSortKey(values.Get("sort")),

		MinPrice:             validPrice(values.Get("minPrice")),
		MaxPrice:             validPrice(values.Get("maxPrice")),
		InStock:              validBool(values.Get("inStock")),
		RequiresPrescription: validBool(values.Get("requiresPrescription")),
		MinRating:            validRating(values.Get("minRating")),

		Page:  utils.ParseInt(values.Get("page"), 0),
		Limit: utils.ParseInt(values.Get("limit"), 0),

		Cursor:     values.Get("cursor"),
		PrevCursor: values.Get("prevCursor"),
	}

	if loc := validLocation(values.Get("location")); loc != nil {
		q.Location = loc
		q.RadiusMeters = validRadius(values.Get("radius"), defaultRadius)
	}

	return q
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// validPrice accepts a non-negative finite number, anything else is ignored.
func validPrice(raw string) *float64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

// validBool keeps the tri-state: unset means no restriction.
func validBool(raw string) *bool {
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}

// validRating accepts a lower bound inside [0, 5]; out-of-range is ignored.
func validRating(raw string) *float64 {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || f > 5 {
		return nil
	}
	return &f
}

// validLocation parses "lng,lat". Malformed coordinates restrict nothing.
func validLocation(raw string) *domain.GeoPoint {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil
	}
	lng, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return nil
	}
	return domain.NewGeoPoint(lng, lat)
}

func validRadius(raw string, fallback float64) float64 {
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return fallback
	}
	return f
}
