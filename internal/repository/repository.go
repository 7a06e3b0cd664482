package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// DefaultListLimit is the number of entries the service asks List for.
const DefaultListLimit = 1000

// WishlistRepository stores wishlist entries. Entries are not unique per
// product: adding a product twice stores two entries.
//
// Implementations report backend failures as errors wrapping
// apperrors.ErrStoreUnavailable.
type WishlistRepository interface {
	// Add stores a new entry for productID with the current UTC time and
	// returns its id. The entry is visible to Exists once Add returns.
	Add(ctx context.Context, productID string) (string, error)

	// Exists reports whether at least one entry matches productID.
	Exists(ctx context.Context, productID string) (bool, error)

	// List returns up to limit entries in no particular order.
	List(ctx context.Context, limit int) ([]domain.WishlistEntry, error)

	// RemoveByProductID deletes every entry for productID and returns how
	// many were deleted. Removing an absent product returns 0.
	RemoveByProductID(ctx context.Context, productID string) (int, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
