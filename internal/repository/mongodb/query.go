package mongodb

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"medcatalog-backend/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// searchFields mirrors the weighted text index on the medicines collection:
// name, active ingredient names, manufacturer and the precomputed blob.
var searchFields = []string{"name", "activeIngredients.name", "manufacturer", "searchText"}

const (
	defaultRadiusMeters = 10000
	earthRadiusMeters   = 6378137
)

type searchTier int

const (
	tierNone searchTier = iota
	tierPrefix
	tierFuzzy
	tierText
)

// classifySearch picks the predicate tier from the shortest token. Very short
// tokens need a literal match (native text search drowns them in false
// positives), medium tokens get a regex alternation to dodge stemming noise,
// and only all-long-token queries go to the store's text search.
func classifySearch(raw string) ([]string, searchTier) {
	terms := strings.Fields(raw)
	if len(terms) == 0 {
		return nil, tierNone
	}

	shortest := math.MaxInt
	for _, t := range terms {
		if n := utf8.RuneCountInString(t); n < shortest {
			shortest = n
		}
	}

	switch {
	case shortest <= 2:
		return terms, tierPrefix
	case shortest <= 4:
		return terms, tierFuzzy
	default:
		return terms, tierText
	}
}

// buildSearchFilter turns a raw search string into a predicate fragment.
// Empty or whitespace input restricts nothing.
func buildSearchFilter(raw string) bson.M {
	terms, tier := classifySearch(raw)

	switch tier {
	case tierPrefix:
		var ors []bson.M
		for _, term := range terms {
			pattern := regexp.QuoteMeta(term)
			for _, field := range searchFields {
				ors = append(ors, bson.M{field: primitive.Regex{Pattern: pattern, Options: "i"}})
			}
		}
		return bson.M{"$or": ors}

	case tierFuzzy:
		escaped := make([]string, len(terms))
		for i, term := range terms {
			escaped[i] = regexp.QuoteMeta(term)
		}
		pattern := strings.Join(escaped, "|")
		ors := make([]bson.M, len(searchFields))
		for i, field := range searchFields {
			ors[i] = bson.M{field: primitive.Regex{Pattern: pattern, Options: "i"}}
		}
		return bson.M{"$or": ors}

	case tierText:
		// Phrase-quote each term so the text engine does not re-split them.
		quoted := make([]string, len(terms))
		for i, term := range terms {
			quoted[i] = `"` + term + `"`
		}
		return bson.M{"$text": bson.M{
			"$search":        strings.Join(quoted, " "),
			"$caseSensitive": false,
			"$language":      "english",
		}}

	default:
		return bson.M{}
	}
}

// buildAttributeFilter composes the structured filters with AND semantics.
// Invalid individual values restrict nothing; the soft-delete exclusion is
// always present.
func buildAttributeFilter(q domain.SearchQuery) bson.M {
	filter := bson.M{"deletedAt": bson.M{"$exists": false}}

	if len(q.Categories) > 0 {
		patterns := make([]primitive.Regex, 0, len(q.Categories))
		for _, c := range q.Categories {
			if c == "" {
				continue
			}
			patterns = append(patterns, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(c), Options: "i"})
		}
		if len(patterns) > 0 {
			filter["category"] = bson.M{"$in": patterns}
		}
	}

	price := bson.M{}
	if v := validPrice(q.MinPrice); v != nil {
		price["$gte"] = *v
	}
	if v := validPrice(q.MaxPrice); v != nil {
		price["$lte"] = *v
	}
	if len(price) > 0 {
		filter["price"] = price
	}

	if q.InStock != nil && *q.InStock {
		filter["stock"] = bson.M{"$gt": 0}
	}

	if q.RequiresPrescription != nil {
		filter["requiresPrescription"] = *q.RequiresPrescription
	}

	if q.MinRating != nil && *q.MinRating >= 0 && *q.MinRating <= 5 {
		filter["rating"] = bson.M{"$gte": *q.MinRating}
	}

	if len(q.Types) > 0 {
		filter["type"] = bson.M{"$in": q.Types}
	}

	if len(q.Brands) > 0 {
		patterns := make([]primitive.Regex, len(q.Brands))
		for i, b := range q.Brands {
			patterns[i] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(b) + "$", Options: "i"}
		}
		filter["manufacturer"] = bson.M{"$in": patterns}
	}

	if loc := validLocation(q.Location); loc != nil {
		filter["location"] = bson.M{"$near": bson.M{
			"$geometry":    bson.M{"type": "Point", "coordinates": loc.Coordinates},
			"$maxDistance": searchRadius(q),
		}}
	}

	if q.PharmacyID != "" {
		filter["pharmacyId"] = q.PharmacyID
	}

	return filter
}

func searchRadius(q domain.SearchQuery) float64 {
	if q.RadiusMeters > 0 {
		return q.RadiusMeters
	}
	return defaultRadiusMeters
}

func validPrice(v *float64) *float64 {
	if v == nil || *v < 0 || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func validLocation(p *domain.GeoPoint) *domain.GeoPoint {
	if p == nil || len(p.Coordinates) != 2 {
		return nil
	}
	lng, lat := p.Coordinates[0], p.Coordinates[1]
	if math.IsNaN(lng) || math.IsNaN(lat) || lng < -180 || lng > 180 || lat < -90 || lat > 90 {
		return nil
	}
	return p
}

// buildFilter merges the search and attribute fragments. Key collisions fold
// into $and so neither fragment can clobber the other.
func buildFilter(q domain.SearchQuery) bson.M {
	out := buildAttributeFilter(q)
	var extra []bson.M
	for k, v := range buildSearchFilter(q.Search) {
		if _, exists := out[k]; exists {
			extra = append(extra, bson.M{k: v})
		} else {
			out[k] = v
		}
	}
	if len(extra) > 0 {
		if and, ok := out["$and"].([]bson.M); ok {
			out["$and"] = append(and, extra...)
		} else {
			out["$and"] = extra
		}
	}
	return out
}

// countFilter is buildFilter with the geo predicate swapped for $geoWithin.
// CountDocuments wraps its filter in an aggregation $match stage, where the
// server rejects $near; $centerSphere takes the radius in radians.
func countFilter(q domain.SearchQuery) bson.M {
	out := buildFilter(q)
	if loc := validLocation(q.Location); loc != nil {
		out["location"] = bson.M{"$geoWithin": bson.M{
			"$centerSphere": bson.A{loc.Coordinates, searchRadius(q) / earthRadiusMeters},
		}}
	}
	return out
}

// resolveSort maps a sort key to a concrete ordering. The second return
// reports whether the ordering depends on the text-search score, which only
// exists when the text tier is in play.
func resolveSort(q domain.SearchQuery) (bson.D, bool) {
	switch q.Sort {
	case domain.SortPriceAsc:
		return bson.D{{Key: "price", Value: 1}}, false
	case domain.SortPriceDesc:
		return bson.D{{Key: "price", Value: -1}}, false
	case domain.SortNameAsc:
		return bson.D{{Key: "name", Value: 1}}, false
	case domain.SortNameDesc:
		return bson.D{{Key: "name", Value: -1}}, false
	case domain.SortNewest:
		return bson.D{{Key: "createdAt", Value: -1}}, false
	case domain.SortPopular:
		return bson.D{{Key: "viewCount", Value: -1}}, false
	default:
		// Relevance: text-match score when the text tier applies, else newest.
		if _, tier := classifySearch(q.Search); tier == tierText {
			return bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}, true
		}
		return bson.D{{Key: "createdAt", Value: -1}}, false
	}
}
