package storefront

import (
	"context"
	"errors"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
)

// ErrStale is returned when a result arrives after the card or view was
// unmounted, or after a newer operation superseded it. The result is dropped.
var ErrStale = errors.New("storefront: stale result discarded")

// Icon is the action button a card shows.
type Icon int

const (
	IconFavoriteBorder Icon = iota
	IconFavorite
	IconRemove
)

func (i Icon) String() string {
	switch i {
	case IconFavorite:
		return "favorite"
	case IconRemove:
		return "remove"
	default:
		return "favorite_border"
	}
}

// Card holds the wishlist state of one product tile.
//
// Membership changes are applied locally only once the server confirms
// them. Every check and toggle bumps a generation counter; a check that
// completes under an older generation, or after Unmount, is discarded.
type Card struct {
	api        WishlistAPI
	product    domain.Product
	wishlisted bool

	// toggleMu serialises Toggle calls.
	toggleMu sync.Mutex

	mu         sync.Mutex
	favorited  bool
	mounted    bool
	generation uint64
}

// NewCard creates a card whose membership is resolved by Mount.
func NewCard(api WishlistAPI, product domain.Product) *Card {
	return &Card{api: api, product: product}
}

// NewWishlistedCard creates a card known to be in the wishlist, as rendered
// by the wishlist page. Mount does not query the server for it.
func NewWishlistedCard(api WishlistAPI, product domain.Product) *Card {
	return &Card{api: api, product: product, wishlisted: true, favorited: true}
}

// Product returns the product shown by the card.
func (c *Card) Product() domain.Product {
	return c.product
}

// ProductID returns the identifier used for wishlist calls.
func (c *Card) ProductID() string {
	return c.product.ID()
}

// Mount marks the card as displayed and, unless it was created as
// wishlisted, checks its membership. On failure the state is unchanged.
func (c *Card) Mount(ctx context.Context) error {
	c.attach()
	return c.resolve(ctx)
}

// attach marks the card as displayed without contacting the server.
func (c *Card) attach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = true
}

// resolve checks membership unless the card was created as wishlisted.
func (c *Card) resolve(ctx context.Context) error {
	if c.wishlisted {
		return nil
	}
	return c.Refresh(ctx)
}

// Refresh re-checks membership with the server. It returns ErrStale without
// a server call when the card is not mounted.
func (c *Card) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return ErrStale
	}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	found, err := c.api.Check(ctx, c.ProductID())

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.mounted || gen != c.generation {
		return ErrStale
	}
	if err != nil {
		return err
	}
	c.favorited = found
	return nil
}

// Unmount stops the card from accepting pending check results.
func (c *Card) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mounted = false
	c.generation++
}

// Toggle removes the product when favorited and adds it otherwise. The new
// state is applied after the server call succeeds; on error the state is
// left as it was. It returns the resulting state.
func (c *Card) Toggle(ctx context.Context) (bool, error) {
	c.toggleMu.Lock()
	defer c.toggleMu.Unlock()

	c.mu.Lock()
	was := c.favorited
	c.mu.Unlock()

	var err error
	if was {
		_, err = c.api.Remove(ctx, c.ProductID())
	} else {
		_, err = c.api.Add(ctx, c.ProductID())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return c.favorited, err
	}
	c.favorited = !was
	// Checks started before the toggle may predate it on the server.
	c.generation++
	return c.favorited, nil
}

// IsFavorited returns the confirmed membership state.
func (c *Card) IsFavorited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.favorited
}

// Icon returns IconRemove for cards created as wishlisted, otherwise the
// favorite icon matching the current state.
func (c *Card) Icon() Icon {
	if c.wishlisted {
		return IconRemove
	}
	if c.IsFavorited() {
		return IconFavorite
	}
	return IconFavoriteBorder
}
