package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

// WishlistRepository is an in-memory implementation of
// repository.WishlistRepository. Entries are kept in insertion order.
// Thread-safe via sync.RWMutex.
type WishlistRepository struct {
	mu      sync.RWMutex
	entries []domain.WishlistEntry
	now     func() time.Time
}

var _ repository.WishlistRepository = (*WishlistRepository)(nil)

// New creates an empty in-memory wishlist repository.
func New() *WishlistRepository {
	return &WishlistRepository{now: time.Now}
}

// Add appends a new entry.
func (r *WishlistRepository) Add(_ context.Context, productID string) (string, error) {
	entry := domain.WishlistEntry{
		ID:        uuid.NewString(),
		ProductID: productID,
		Timestamp: r.now().UTC(),
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()

	return entry.ID, nil
}

// Exists reports whether any entry matches productID exactly.
func (r *WishlistRepository) Exists(_ context.Context, productID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.ProductID == productID {
			return true, nil
		}
	}
	return false, nil
}

// List returns a copy of up to limit entries.
func (r *WishlistRepository) List(_ context.Context, limit int) ([]domain.WishlistEntry, error) {
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	n := min(limit, len(r.entries))
	out := make([]domain.WishlistEntry, n)
	copy(out, r.entries[:n])
	return out, nil
}

// RemoveByProductID drops every entry for productID.
func (r *WishlistRepository) RemoveByProductID(_ context.Context, productID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	removed := 0
	for _, e := range r.entries {
		if e.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(r.entries[len(kept):])
	r.entries = kept
	return removed, nil
}

// Ping always succeeds.
func (r *WishlistRepository) Ping(_ context.Context) error {
	return nil
}
