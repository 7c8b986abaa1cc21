// Package favorites owns the favorites list: identity keys toggled on and
// off, persisted to the key-value store on every mutation. Very old
// installations persisted favorites as bare numeric product IDs; those
// migrate on load.
package favorites

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/fenro-storefront/internal/domain/product"
	"github.com/xenking/fenro-storefront/internal/kv"
)

// StorageKey is the key-value store key the favorites persist under.
const StorageKey = "favorites"

// Store owns the favorites list. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries []product.Key
	store   kv.Store
}

// New hydrates a favorites store from the key-value store, migrating the
// legacy bare-ID format when found. Absent or corrupt data hydrates empty.
func New(ctx context.Context, store kv.Store) *Store {
	s := &Store{store: store}

	raw, err := store.Get(ctx, StorageKey)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		zctx.From(ctx).Warn("Favorites hydration failed", zap.Error(err))
	default:
		entries, migrated, err := decodeEntries(raw)
		if err != nil {
			zctx.From(ctx).Warn("Discarding corrupt persisted favorites", zap.Error(err))
			break
		}
		s.entries = entries
		if migrated {
			zctx.From(ctx).Info("Migrated legacy favorites format",
				zap.Int("entries", len(entries)))
		}
	}
	return s
}

// Toggle adds the key when absent and removes it when present.
func (s *Store) Toggle(ctx context.Context, key product.Key) error {
	key = normalize(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e == key {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return s.persist(ctx)
		}
	}
	s.entries = append(s.entries, key)
	return s.persist(ctx)
}

// IsFavorite reports whether the exact identity key is favorited.
func (s *Store) IsFavorite(key product.Key) bool {
	key = normalize(key)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e == key {
			return true
		}
	}
	return false
}

// Entries returns a copy of the favorites in insertion order.
func (s *Store) Entries() []product.Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]product.Key, len(s.entries))
	copy(out, s.entries)
	return out
}

// Clear removes every favorite.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	return s.persist(ctx)
}

func normalize(key product.Key) product.Key {
	return product.NewKey(key.ProductID, key.Size, key.Color, key.Variant)
}

// persist writes the full list. Caller holds the write lock.
func (s *Store) persist(ctx context.Context) error {
	entries := s.entries
	if entries == nil {
		entries = []product.Key{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encode favorites")
	}
	if err := s.store.Set(ctx, StorageKey, raw); err != nil {
		return errors.Wrap(err, "persist favorites")
	}
	return nil
}

// decodeEntries reads the persisted favorites. The pre-variant schema was a
// bare array of numeric IDs; sniffing the first element tells the formats
// apart.
func decodeEntries(raw []byte) (entries []product.Key, migrated bool, _ error) {
	d := jx.DecodeBytes(raw)
	err := d.Arr(func(d *jx.Decoder) error {
		switch d.Next() {
		case jx.Number:
			n, err := d.Num()
			if err != nil {
				return err
			}
			migrated = true
			entries = append(entries, product.NewKey(product.ParseID(n.String()), "", "", ""))
			return nil
		case jx.Object:
			var key product.Key
			err := d.Obj(func(d *jx.Decoder, field string) error {
				var err error
				switch field {
				case "productId":
					var id string
					id, err = flexString(d)
					key.ProductID = product.ParseID(id)
				case "selectedSize":
					key.Size, err = optString(d)
				case "selectedColor":
					key.Color, err = optString(d)
				case "selectedVariant":
					key.Variant, err = optString(d)
				default:
					err = d.Skip()
				}
				return err
			})
			if err != nil {
				return err
			}
			entries = append(entries, key)
			return nil
		default:
			return errors.Errorf("unexpected favorites element %q", d.Next())
		}
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "decode favorites")
	}
	return entries, migrated, nil
}

func flexString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Number {
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	}
	return d.Str()
}

func optString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}
