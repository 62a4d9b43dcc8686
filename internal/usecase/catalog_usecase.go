package usecase

import (
	"context"
	"fmt"
	"time"

	"medcatalog-backend/config"
	"medcatalog-backend/internal/domain"
	"medcatalog-backend/pkg/cache"
	"medcatalog-backend/pkg/cursor"
	"medcatalog-backend/pkg/utils"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	offsetMaxLimit = 100
	cursorMaxLimit = 50
	defaultLimit   = 20

	listKeyPrefix = "medicines:list"
	itemKeyPrefix = "medicines:item:"
)

// ListResult is the shaped outcome of one catalog query. Payload carries the
// complete serialized response envelope; replaying it on a warm cache keeps
// repeated responses byte-identical.
type ListResult struct {
	Payload       []byte
	CacheHit      bool
	OffsetMode    bool
	Total         int64 // offset mode only
	ExecutionTime time.Duration
}

// cachedList is what actually lives in the cache: the envelope plus the
// telemetry the response headers need on a replay.
type cachedList struct {
	Payload     json.RawMessage `json:"payload"`
	Total       int64           `json:"total"`
	ExecutionMS int64           `json:"executionMs"`
}

type CatalogUsecase struct {
	repo  domain.MedicineRepository
	cache cache.CacheService
	cfg   *config.Config
}

func NewCatalogUsecase(repo domain.MedicineRepository, cache cache.CacheService, cfg *config.Config) *CatalogUsecase {
	return &CatalogUsecase{
		repo:  repo,
		cache: cache,
		cfg:   cfg,
	}
}

// List runs the catalog query engine for one request: read-through cache,
// predicate building, one of the two pagination strategies, envelope shaping.
func (u *CatalogUsecase) List(ctx context.Context, q domain.SearchQuery) (*ListResult, error) {
	if q.Sort == "" {
		q.Sort = domain.SortRelevance
	}
	if q.CursorMode() {
		return u.listCursor(ctx, q)
	}
	return u.listOffset(ctx, q)
}

// listOffset is the page/limit strategy: page fetch and total count run
// concurrently and both must succeed.
func (u *CatalogUsecase) listOffset(ctx context.Context, q domain.SearchQuery) (*ListResult, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	limit = utils.ClampInt(limit, 1, offsetMaxLimit)

	key := cache.QueryKey(listKeyPrefix, q.Canonical(), fmt.Sprintf("p%d:l%d", page, limit))
	if res := u.replayCached(ctx, key); res != nil {
		res.OffsetMode = true
		return res, nil
	}

	qctx, cancel := context.WithTimeout(ctx, u.queryTimeout())
	defer cancel()

	start := time.Now()
	var (
		items []domain.Medicine
		total int64
	)
	g, gctx := errgroup.WithContext(qctx)
	g.Go(func() error {
		var err error
		items, err = u.repo.FindPage(gctx, q, (page-1)*limit, limit)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = u.repo.Count(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	elapsed := time.Since(start)

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	envelope := domain.Response{
		Success: true,
		Data:    items,
		Pagination: domain.OffsetPagination{
			Total:      total,
			Page:       page,
			TotalPages: totalPages,
			Limit:      limit,
			HasMore:    int64(page)*int64(limit) < total,
		},
		Meta: domain.ListMeta{
			ExecutionTime: elapsed.Milliseconds(),
			ResultCount:   len(items),
		},
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	u.storeCached(ctx, key, payload, total, elapsed, u.listTTL(q))

	return &ListResult{
		Payload:       payload,
		OffsetMode:    true,
		Total:         total,
		ExecutionTime: elapsed,
	}, nil
}

// listCursor is the opaque-token strategy: fetch limit+1 past the decoded
// identity, trim the probe item, emit resume tokens for both directions.
func (u *CatalogUsecase) listCursor(ctx context.Context, q domain.SearchQuery) (*ListResult, error) {
	limit := q.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	limit = utils.ClampInt(limit, 1, cursorMaxLimit)

	var pos domain.CursorPosition
	position := ""
	switch {
	case q.Cursor != "":
		id, err := cursor.Decode(q.Cursor)
		if err != nil {
			return nil, err
		}
		pos.After = id
		position = fmt.Sprintf("c%s:l%d", q.Cursor, limit)
	case q.PrevCursor != "":
		id, err := cursor.Decode(q.PrevCursor)
		if err != nil {
			return nil, err
		}
		pos.Before = id
		position = fmt.Sprintf("pc%s:l%d", q.PrevCursor, limit)
	}

	key := cache.QueryKey(listKeyPrefix, q.Canonical(), position)
	if res := u.replayCached(ctx, key); res != nil {
		return res, nil
	}

	qctx, cancel := context.WithTimeout(ctx, u.queryTimeout())
	defer cancel()

	start := time.Now()
	items, err := u.repo.FindWithCursor(qctx, q, pos, limit+1)
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	elapsed := time.Since(start)

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	if !pos.Before.IsZero() {
		reverse(items)
	}

	var next, previous *string
	if len(items) > 0 {
		n := cursor.Encode(items[len(items)-1].ID)
		p := cursor.Encode(items[0].ID)
		next, previous = &n, &p
	}

	envelope := domain.Response{
		Success: true,
		Data:    items,
		Pagination: domain.CursorPagination{
			Next:     next,
			Previous: previous,
			HasMore:  hasMore,
			Count:    len(items),
		},
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	u.storeCached(ctx, key, payload, -1, elapsed, u.listTTL(q))

	return &ListResult{
		Payload:       payload,
		Total:         -1,
		ExecutionTime: elapsed,
	}, nil
}

// GetMedicine returns one live catalog item. A malformed or unknown id is a
// plain not-found, never an error.
func (u *CatalogUsecase) GetMedicine(ctx context.Context, id string) (*domain.Medicine, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false, nil
	}

	key := itemKeyPrefix + id
	if b, found := u.cache.Get(ctx, key); found {
		var med domain.Medicine
		if err := json.Unmarshal(b, &med); err == nil {
			return &med, true, nil
		}
	}

	qctx, cancel := context.WithTimeout(ctx, u.queryTimeout())
	defer cancel()

	med, err := u.repo.GetByID(qctx, oid)
	if err != nil {
		return nil, false, fmt.Errorf("get medicine: %w", err)
	}
	if med != nil {
		if payload, err := json.Marshal(med); err == nil {
			u.cache.Set(ctx, key, payload, u.cfg.CacheListTTL)
		}
	}
	return med, false, nil
}

// replayCached returns a result rebuilt from a cache entry, or nil on a miss.
// A corrupt entry counts as a miss.
func (u *CatalogUsecase) replayCached(ctx context.Context, key string) *ListResult {
	b, found := u.cache.Get(ctx, key)
	if !found {
		return nil
	}
	var entry cachedList
	if err := json.Unmarshal(b, &entry); err != nil || len(entry.Payload) == 0 {
		return nil
	}
	return &ListResult{
		Payload:       entry.Payload,
		CacheHit:      true,
		Total:         entry.Total,
		ExecutionTime: time.Duration(entry.ExecutionMS) * time.Millisecond,
	}
}

// storeCached writes a successful result back through the cache gateway.
// The gateway absorbs every failure, so this can never affect the response.
func (u *CatalogUsecase) storeCached(ctx context.Context, key string, payload []byte, total int64, elapsed time.Duration, ttl time.Duration) {
	entry, err := json.Marshal(cachedList{
		Payload:     payload,
		Total:       total,
		ExecutionMS: elapsed.Milliseconds(),
	})
	if err != nil {
		return
	}
	u.cache.Set(ctx, key, entry, ttl)
}

// listTTL keeps search-bearing results fresher than plain listings.
func (u *CatalogUsecase) listTTL(q domain.SearchQuery) time.Duration {
	if q.HasSearch() {
		return u.cfg.CacheSearchTTL
	}
	return u.cfg.CacheListTTL
}

func (u *CatalogUsecase) queryTimeout() time.Duration {
	if u.cfg.QueryTimeout > 0 {
		return u.cfg.QueryTimeout
	}
	return 5 * time.Second
}

func reverse(items []domain.Medicine) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}
