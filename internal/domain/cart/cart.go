// Package cart owns the shopping cart: line items keyed by composite product
// identity, persisted to the key-value store on every mutation.
package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/fenro-storefront/internal/domain/product"
	"github.com/xenking/fenro-storefront/internal/kv"
)

// StorageKey is the key-value store key the cart persists under.
const StorageKey = "cart"

// Line is one cart entry: an identity key, a quantity, and a display
// snapshot captured at add time. The snapshot is a value copy on purpose: a
// later catalog update never rewrites what an existing line shows.
type Line struct {
	Key      product.Key
	Quantity int

	// Display snapshot.
	Name     string
	Price    string // formatted price text, e.g. "1 299 kr"
	Image    string
	Category string
}

// Store owns the cart lines. All mutations persist the full cart before
// returning. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	lines []Line
	store kv.Store
}

// New hydrates a cart store from the key-value store. An absent or corrupt
// persisted cart hydrates to an empty one.
func New(ctx context.Context, store kv.Store) *Store {
	s := &Store{store: store}

	raw, err := store.Get(ctx, StorageKey)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		zctx.From(ctx).Warn("Cart hydration failed", zap.Error(err))
	default:
		lines, err := decodeLines(raw)
		if err != nil {
			zctx.From(ctx).Warn("Discarding corrupt persisted cart", zap.Error(err))
			break
		}
		s.lines = lines
	}
	return s
}

// Add puts one unit of the product selection into the cart. An existing line
// with the same identity key gains quantity; otherwise a new line is created
// with a display snapshot of the product.
func (s *Store) Add(ctx context.Context, p product.Product, size, color, variant string) error {
	key := product.NewKey(p.ID, size, color, variant)

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOfKey(key); i >= 0 {
		s.lines[i].Quantity++
		return s.persist(ctx)
	}

	s.lines = append(s.lines, Line{
		Key:      key,
		Quantity: 1,
		Name:     p.Name,
		Price:    product.FormatPrice(p.Price),
		Image:    p.FirstImage(),
		Category: p.Category,
	})
	return s.persist(ctx)
}

// RemoveProduct removes every line of the product, whatever its selected
// size, color, or variant. This coarser granularity than Add is deliberate.
func (s *Store) RemoveProduct(ctx context.Context, id product.ID) error {
	id = product.ParseID(string(id))

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.lines[:0]
	for _, l := range s.lines {
		if l.Key.ProductID != id {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	return s.persist(ctx)
}

// SetQuantity sets the quantity of the line with the given identity key.
// Callers pass the full key, so a product with several variants in the cart
// is never ambiguous. A quantity of zero or less removes the line. Setting
// quantity on an absent key is a no-op.
func (s *Store) SetQuantity(ctx context.Context, key product.Key, quantity int) error {
	key = product.NewKey(key.ProductID, key.Size, key.Color, key.Variant)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfKey(key)
	if i < 0 {
		return nil
	}
	if quantity <= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	} else {
		s.lines[i].Quantity = quantity
	}
	return s.persist(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return s.persist(ctx)
}

// Total sums price times quantity over all lines. Line prices are stored as
// formatted text and normalized back to amounts here.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, l := range s.lines {
		price, err := product.ParsePrice(l.Price)
		if err != nil {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// ItemCount sums quantities, not lines.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// indexOfKey expects the caller to hold the lock.
func (s *Store) indexOfKey(key product.Key) int {
	for i := range s.lines {
		if s.lines[i].Key == key {
			return i
		}
	}
	return -1
}

// persist writes the full cart. Caller holds the write lock.
func (s *Store) persist(ctx context.Context) error {
	raw, err := encodeLines(s.lines)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := s.store.Set(ctx, StorageKey, raw); err != nil {
		return errors.Wrap(err, "persist cart")
	}
	return nil
}
