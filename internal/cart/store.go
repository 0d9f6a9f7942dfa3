// Package cart implements the per-user shopping cart, persisted as a
// JSON record in the key-value store after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/neurocanteen/canteen-go/internal/domain"
	"github.com/neurocanteen/canteen-go/internal/kvstore"
)

const keyPrefix = "cart:"

type Store struct {
	kv kvstore.Store
}

func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv}
}

func cartKey(userID string) string {
	return keyPrefix + userID
}

// Load returns the persisted cart for the user, or an empty cart if no
// record exists. A corrupt record is treated as empty and deleted; it is
// never surfaced as an error.
func (s *Store) Load(ctx context.Context, userID string) (domain.Cart, error) {
	raw, err := s.kv.Get(ctx, cartKey(userID))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return domain.Cart{}, nil
		}
		return nil, err
	}

	cart, ok := ParseCart(raw)
	if !ok {
		if err := s.kv.Delete(ctx, cartKey(userID)); err != nil {
			return nil, err
		}
		return domain.Cart{}, nil
	}
	return cart, nil
}

// Add increments the quantity for the item by one, defaulting absent
// entries to zero first, and persists the result.
func (s *Store) Add(ctx context.Context, userID string, itemID int64) (domain.Cart, error) {
	return s.mutate(ctx, userID, func(c domain.Cart) {
		c[itemID]++
	})
}

// Increase is Add under the name the quantity stepper uses.
func (s *Store) Increase(ctx context.Context, userID string, itemID int64) (domain.Cart, error) {
	return s.Add(ctx, userID, itemID)
}

// Decrease decrements the quantity for the item by one. Decreasing a
// quantity of one removes the entry entirely; no entry ever persists
// with quantity <= 0.
func (s *Store) Decrease(ctx context.Context, userID string, itemID int64) (domain.Cart, error) {
	return s.mutate(ctx, userID, func(c domain.Cart) {
		if c[itemID] <= 1 {
			delete(c, itemID)
			return
		}
		c[itemID]--
	})
}

// Clear empties the cart and removes the persisted record. Called
// exactly once, immediately after a successful order submission.
func (s *Store) Clear(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, cartKey(userID))
}

func (s *Store) mutate(ctx context.Context, userID string, fn func(domain.Cart)) (domain.Cart, error) {
	cart, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	fn(cart)

	if err := s.save(ctx, userID, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Store) save(ctx context.Context, userID string, cart domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, cartKey(userID), string(data))
}

// ParseCart parses a serialized cart, stripping control characters first
// to tolerate encoding corruption. Entries with non-positive quantities
// are dropped. Returns false when the record cannot be parsed at all.
func ParseCart(raw string) (domain.Cart, bool) {
	cleaned := SanitizeJSON(raw)
	if strings.TrimSpace(cleaned) == "" {
		return domain.Cart{}, false
	}

	var cart domain.Cart
	if err := json.Unmarshal([]byte(cleaned), &cart); err != nil {
		return domain.Cart{}, false
	}
	if cart == nil {
		cart = domain.Cart{}
	}

	for id, qty := range cart {
		if qty <= 0 {
			delete(cart, id)
		}
	}
	return cart, true
}

// SanitizeJSON strips C0 and C1 control characters (U+0000-U+001F,
// U+007F-U+009F) from a textual record before parsing.
func SanitizeJSON(s string) string {
	return strings.Map(func(r rune) rune {
		if r <= 0x1F || (r >= 0x7F && r <= 0x9F) {
			return -1
		}
		return r
	}, s)
}
