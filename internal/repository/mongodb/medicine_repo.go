package mongodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"medcatalog-backend/internal/domain"
	"medcatalog-backend/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const medicinesCollection = "medicines"

// pageProjection trims the page fetch payload. The search blob and the raw
// description are the two heavy fields and neither is rendered in list views.
var pageProjection = bson.M{"searchText": 0, "description": 0}

type MedicineRepository struct {
	col *mongo.Collection
}

func NewMedicineRepository(db *mongo.Database) *MedicineRepository {
	return &MedicineRepository{col: db.Collection(medicinesCollection)}
}

func (r *MedicineRepository) FindPage(ctx context.Context, q domain.SearchQuery, skip, limit int) ([]domain.Medicine, error) {
	filter := buildFilter(q)
	sortSpec, textScore := resolveSort(q)

	projection := bson.M{}
	for k, v := range pageProjection {
		projection[k] = v
	}
	if textScore {
		projection["score"] = bson.M{"$meta": "textScore"}
	}

	opts := options.Find().
		SetSort(sortSpec).
		SetSkip(int64(skip)).
		SetLimit(int64(limit)).
		SetProjection(projection)

	return r.find(ctx, "medicines.find_page", filter, opts)
}

func (r *MedicineRepository) Count(ctx context.Context, q domain.SearchQuery) (int64, error) {
	start := time.Now()
	total, err := r.col.CountDocuments(ctx, countFilter(q))
	logger.StoreQuery("medicines.count", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count medicines: %w", err)
	}
	return total, nil
}

// FindWithCursor fetches a cursor-mode page. Ordering is the resolved sort
// plus _id as tie-breaker; a Before position flips the scan direction so the
// limit applies to the items adjacent to the cursor.
func (r *MedicineRepository) FindWithCursor(ctx context.Context, q domain.SearchQuery, pos domain.CursorPosition, limit int) ([]domain.Medicine, error) {
	filter := buildFilter(q)
	sortSpec, textScore := resolveSort(q)
	if textScore {
		// A meta score has no stable inverse, and cursor positions are plain
		// _id bounds. Fall back to newest-first for cursor iteration.
		sortSpec = bson.D{{Key: "createdAt", Value: -1}}
	}

	backward := !pos.Before.IsZero()
	if !pos.After.IsZero() {
		filter = mergeIDBound(filter, "$gt", pos.After)
	} else if backward {
		filter = mergeIDBound(filter, "$lt", pos.Before)
	}

	idDir := 1
	if backward {
		idDir = -1
		for i := range sortSpec {
			if d, ok := sortSpec[i].Value.(int); ok {
				sortSpec[i].Value = -d
			}
		}
	}
	sortSpec = append(sortSpec, bson.E{Key: "_id", Value: idDir})

	opts := options.Find().
		SetSort(sortSpec).
		SetLimit(int64(limit)).
		SetProjection(pageProjection)

	return r.find(ctx, "medicines.find_cursor", filter, opts)
}

func mergeIDBound(filter bson.M, op string, id primitive.ObjectID) bson.M {
	if _, exists := filter["_id"]; exists {
		filter["$and"] = append(asSlice(filter["$and"]), bson.M{"_id": bson.M{op: id}})
		return filter
	}
	filter["_id"] = bson.M{op: id}
	return filter
}

func asSlice(v interface{}) []bson.M {
	if s, ok := v.([]bson.M); ok {
		return s
	}
	return nil
}

func (r *MedicineRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Medicine, error) {
	start := time.Now()
	filter := bson.M{"_id": id, "deletedAt": bson.M{"$exists": false}}

	var med domain.Medicine
	err := r.col.FindOne(ctx, filter).Decode(&med)
	logger.StoreQuery("medicines.get_by_id", time.Since(start), err)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get medicine: %w", err)
	}
	return &med, nil
}

// FacetValues aggregates the distinct filter values over the live catalog.
// The four sub-queries are independent and run concurrently.
func (r *MedicineRepository) FacetValues(ctx context.Context) (*domain.FacetSnapshot, error) {
	live := bson.M{"deletedAt": bson.M{"$exists": false}}

	snapshot := &domain.FacetSnapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		vals, err := r.distinctStrings(gctx, "category", live)
		snapshot.Categories = vals
		return err
	})
	g.Go(func() error {
		vals, err := r.distinctStrings(gctx, "manufacturer", live)
		snapshot.Manufacturers = vals
		return err
	})
	g.Go(func() error {
		vals, err := r.distinctStrings(gctx, "type", live)
		snapshot.Types = vals
		return err
	})
	g.Go(func() error {
		pr, err := r.priceRange(gctx, live)
		snapshot.PriceRange = pr
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *MedicineRepository) distinctStrings(ctx context.Context, field string, filter bson.M) ([]string, error) {
	start := time.Now()
	raw, err := r.col.Distinct(ctx, field, filter)
	logger.StoreQuery("medicines.distinct_"+field, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}

	vals := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			vals = append(vals, s)
		}
	}
	sort.Strings(vals)
	return vals, nil
}

func (r *MedicineRepository) priceRange(ctx context.Context, filter bson.M) (domain.PriceRange, error) {
	start := time.Now()
	pipeline := []bson.M{
		{"$match": filter},
		{"$group": bson.M{
			"_id": nil,
			"min": bson.M{"$min": "$price"},
			"max": bson.M{"$max": "$price"},
		}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	logger.StoreQuery("medicines.price_range", time.Since(start), err)
	if err != nil {
		return domain.PriceRange{}, fmt.Errorf("price range: %w", err)
	}
	defer cur.Close(ctx)

	var out []struct {
		Min float64 `bson:"min"`
		Max float64 `bson:"max"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return domain.PriceRange{}, fmt.Errorf("price range decode: %w", err)
	}
	if len(out) == 0 {
		return domain.PriceRange{}, nil
	}
	return domain.PriceRange{Min: out[0].Min, Max: out[0].Max}, nil
}

func (r *MedicineRepository) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptions) ([]domain.Medicine, error) {
	start := time.Now()
	cur, err := r.col.Find(ctx, filter, opts)
	logger.StoreQuery(op, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("find medicines: %w", err)
	}
	defer cur.Close(ctx)

	medicines := []domain.Medicine{}
	if err := cur.All(ctx, &medicines); err != nil {
		return nil, fmt.Errorf("decode medicines: %w", err)
	}
	return medicines, nil
}
