// Package catalog maintains the local mirror of the remote product catalog
// and answers filtered, sorted, paginated queries over it.
package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/fenro-storefront/internal/domain/product"
	"github.com/xenking/fenro-storefront/internal/fenro"
	"github.com/xenking/fenro-storefront/pkg/poller"
)

// Fetcher is the slice of the fenro client the sync store consumes.
type Fetcher interface {
	ListProducts(ctx context.Context, q fenro.ProductQuery) (*fenro.ProductsPage, error)
}

// Scope bounds which part of the catalog this store mirrors.
type Scope struct {
	Status     fenro.Status
	Limit      int
	Offset     int
	Collection string
	Category   string
}

// SyncStore owns an eventually-fresh mirror of the remote catalog. A full
// fetch seeds the collection; incremental polls merge changed records on top.
// All mutations happen on the polling goroutine; reads are safe from any
// goroutine.
type SyncStore struct {
	fetch Fetcher
	scope Scope

	// inFlight guards against overlapping requests: a tick that arrives
	// while a request is outstanding is skipped, so the cursor can never
	// be advanced out of order.
	inFlight atomic.Bool

	mu          sync.RWMutex
	products    []product.Product
	cursor      string
	err         error
	initialized bool
	lastSync    time.Time

	upserts   metric.Int64Counter
	evictions metric.Int64Counter
}

// NewSyncStore creates a store mirroring the given scope.
func NewSyncStore(fetch Fetcher, scope Scope) *SyncStore {
	if scope.Status == "" {
		scope.Status = fenro.StatusActive
	}
	if scope.Limit <= 0 {
		scope.Limit = 100
	}

	meter := otel.Meter("github.com/xenking/fenro-storefront/internal/catalog")
	upserts, _ := meter.Int64Counter("catalog.sync.upserts",
		metric.WithDescription("Products inserted or replaced by incremental sync"))
	evictions, _ := meter.Int64Counter("catalog.sync.evictions",
		metric.WithDescription("Products removed by incremental sync"))

	return &SyncStore{
		fetch:     fetch,
		scope:     scope,
		upserts:   upserts,
		evictions: evictions,
	}
}

// Initialize performs the full fetch: on success the entire collection is
// replaced and the cursor is set from the response timestamp. On failure the
// error state is set and the collection stays empty. Initialize is never
// retried automatically; subsequent polls recover transient failures by
// merging full responses.
func (s *SyncStore) Initialize(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil
	}
	defer s.inFlight.Store(false)

	page, err := s.fetch.ListProducts(ctx, s.query(""))
	if err != nil {
		zctx.From(ctx).Error("Initial catalog fetch failed", zap.Error(err))
		s.mu.Lock()
		s.err = err
		s.products = nil
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.products = page.Products
	if page.Meta.Timestamp != "" {
		s.cursor = page.Meta.Timestamp
	}
	s.err = nil
	s.initialized = true
	s.lastSync = time.Now()
	s.mu.Unlock()

	zctx.From(ctx).Info("Catalog initialized",
		zap.Int("products", len(page.Products)),
		zap.String("cursor", page.Meta.Timestamp))
	return nil
}

// Poll requests records changed since the cursor and merges them into the
// collection: active records are upserted by identity (replaced in place,
// new ones prepended), inactive records are evicted. The merge is
// idempotent, so re-polling the same window is safe. A failing or empty poll
// leaves the last-known-good collection untouched.
func (s *SyncStore) Poll(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		zctx.From(ctx).Debug("Skipping poll tick, previous request still in flight")
		return
	}
	defer s.inFlight.Store(false)

	s.mu.RLock()
	cursor := s.cursor
	s.mu.RUnlock()

	page, err := s.fetch.ListProducts(ctx, s.query(cursor))
	if err != nil {
		zctx.From(ctx).Warn("Catalog poll failed", zap.Error(err))
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	upserted, evicted := s.merge(page.Products)
	if page.Meta.Timestamp != "" {
		s.cursor = page.Meta.Timestamp
	}
	s.err = nil
	s.initialized = true
	s.lastSync = time.Now()

	if upserted > 0 || evicted > 0 {
		zctx.From(ctx).Info("Catalog merged",
			zap.Int("upserted", upserted),
			zap.Int("evicted", evicted),
			zap.Int("products", len(s.products)))
	}
	s.upserts.Add(ctx, int64(upserted))
	s.evictions.Add(ctx, int64(evicted))
}

// merge applies one poll response. Caller holds the write lock.
func (s *SyncStore) merge(changed []product.Product) (upserted, evicted int) {
	for _, p := range changed {
		idx := s.indexOf(p.ID)
		switch {
		case !p.Active:
			if idx >= 0 {
				s.products = append(s.products[:idx], s.products[idx+1:]...)
				evicted++
			}
		case idx >= 0:
			s.products[idx] = p
			upserted++
		default:
			s.products = append([]product.Product{p}, s.products...)
			upserted++
		}
	}
	return upserted, evicted
}

func (s *SyncStore) indexOf(id product.ID) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

// Refetch re-runs the full fetch, discarding the current collection. Used
// when the scope changes.
func (s *SyncStore) Refetch(ctx context.Context) error {
	s.mu.Lock()
	s.cursor = ""
	s.initialized = false
	s.mu.Unlock()
	return s.Initialize(ctx)
}

// Run performs the initial fetch and then polls on the given interval until
// ctx is cancelled. A late response after cancellation is discarded with the
// rest of the store.
func (s *SyncStore) Run(ctx context.Context, interval time.Duration) {
	_ = s.Initialize(ctx)
	poller.Run(ctx, interval, s.Poll)
}

func (s *SyncStore) query(cursor string) fenro.ProductQuery {
	return fenro.ProductQuery{
		Status:       s.scope.Status,
		Limit:        s.scope.Limit,
		Offset:       s.scope.Offset,
		Collection:   s.scope.Collection,
		Category:     s.scope.Category,
		UpdatedSince: cursor,
	}
}

// Products returns a copy of the current collection.
func (s *SyncStore) Products() []product.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]product.Product, len(s.products))
	copy(out, s.products)
	return out
}

// Err returns the current error state: the initial fetch failure or the most
// recent poll failure. Cleared by the next successful request.
func (s *SyncStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Ready reports whether at least one fetch has completed successfully.
func (s *SyncStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// LastSync returns the time of the most recent successful fetch.
func (s *SyncStore) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}
