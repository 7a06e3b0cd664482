package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// MaxProductIDLength bounds product identifiers accepted by the API.
const MaxProductIDLength = 256

// WishlistEntry is one stored wishlist record. The same product may appear
// in several entries.
type WishlistEntry struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	Timestamp time.Time `json:"timestamp"`
}

// Wishlist event types.
const (
	EventItemAdded   = "wishlist.item.added"
	EventItemRemoved = "wishlist.item.removed"
)

// ValidateProductID rejects blank and oversized identifiers.
func ValidateProductID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.InvalidInput("productId is required")
	}
	if utf8.RuneCountInString(id) > MaxProductIDLength {
		return apperrors.InvalidInput("productId must be at most 256 characters")
	}
	return nil
}

// ProductIDSet collects the distinct product ids of entries.
func ProductIDSet(entries []WishlistEntry) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		set[e.ProductID] = struct{}{}
	}
	return set
}

// FilterProducts returns the products whose id is in ids, in catalog order.
// The result is never nil.
func FilterProducts(products []Product, ids map[string]struct{}) []Product {
	out := make([]Product, 0, len(ids))
	for _, p := range products {
		if _, ok := ids[p.ID()]; ok {
			out = append(out, p)
		}
	}
	return out
}
