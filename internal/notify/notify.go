// Package notify keeps back-in-stock and price-drop notification requests,
// persisted per product in the key-value store.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fenro-storefront/internal/domain/checkout"
	"github.com/xenking/fenro-storefront/internal/domain/product"
	"github.com/xenking/fenro-storefront/internal/kv"
)

// StorageKey is the key-value store key the requests persist under.
const StorageKey = "productNotifications"

// Type says what the customer wants to hear about.
type Type string

const (
	TypeStock Type = "stock"
	TypePrice Type = "price"
)

// ErrInvalidEmail is returned when the given address does not look like one.
var ErrInvalidEmail = errors.New("invalid email address")

// Entry is one stored notification request.
type Entry struct {
	ProductID product.ID `json:"productId"`
	Email     string     `json:"email"`
	Type      Type       `json:"type"`
	Date      time.Time  `json:"date"`
}

// Store owns the notification requests. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	store   kv.Store
	now     func() time.Time
}

// New hydrates the store; absent or corrupt data hydrates empty.
func New(ctx context.Context, store kv.Store) *Store {
	s := &Store{store: store, now: time.Now}

	err := kv.GetJSON(ctx, store, StorageKey, &s.entries)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		zctx.From(ctx).Warn("Discarding corrupt notification requests", zap.Error(err))
		s.entries = nil
	}
	return s
}

// Set replaces the product's notification requests with one entry per given
// type. At least one type is required.
func (s *Store) Set(ctx context.Context, id product.ID, email string, types ...Type) error {
	if !checkout.ValidEmail(email) {
		return ErrInvalidEmail
	}
	if len(types) == 0 {
		return errors.New("at least one notification type required")
	}
	id = product.ParseID(string(id))

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = s.without(id)
	for _, t := range types {
		s.entries = append(s.entries, Entry{
			ProductID: id,
			Email:     email,
			Type:      t,
			Date:      s.now(),
		})
	}
	return s.persist(ctx)
}

// Unset removes every request for the product.
func (s *Store) Unset(ctx context.Context, id product.ID) error {
	id = product.ParseID(string(id))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = s.without(id)
	return s.persist(ctx)
}

// IsSet reports whether any request exists for the product.
func (s *Store) IsSet(id product.ID) bool {
	return len(s.Types(id)) > 0
}

// Types returns the requested notification types for the product.
func (s *Store) Types(id product.ID) []Type {
	id = product.ParseID(string(id))

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Type
	for _, e := range s.entries {
		if e.ProductID == id {
			out = append(out, e.Type)
		}
	}
	return out
}

// without expects the caller to hold the lock.
func (s *Store) without(id product.ID) []Entry {
	kept := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.ProductID != id {
			kept = append(kept, e)
		}
	}
	return kept
}

// persist writes all requests. Caller holds the write lock.
func (s *Store) persist(ctx context.Context) error {
	return errors.Wrap(kv.SetJSON(ctx, s.store, StorageKey, s.entries), "persist notifications")
}
