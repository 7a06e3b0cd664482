package storefront

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Tab indexes of the navigation bar.
const (
	TabHome     = 0
	TabWishlist = 1
)

// Feedback shown after HomeView.AddToWishlist.
const (
	FeedbackAdded     = "Produto adicionado à lista de desejos"
	FeedbackAddFailed = "Falha ao adicionar produto à lista de desejos"
)

// maxConcurrentChecks bounds the membership checks a page issues at once.
const maxConcurrentChecks = 8

// page is the lifecycle shared by the views: a generation counter that
// invalidates loads started before Unmount or before a newer Load.
type page struct {
	mu         sync.Mutex
	mounted    bool
	generation uint64
	cards      []*Card
}

func (p *page) begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = true
	p.generation++
	return p.generation
}

// commit installs cards if gen is still current. The new cards are attached
// under the page lock, so an unmount after commit always detaches them.
func (p *page) commit(gen uint64, cards []*Card) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mounted || gen != p.generation {
		return false
	}
	for _, c := range p.cards {
		c.Unmount()
	}
	for _, c := range cards {
		c.attach()
	}
	p.cards = cards
	return true
}

func (p *page) unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = false
	p.generation++
	for _, c := range p.cards {
		c.Unmount()
	}
}

// Cards returns the cards currently displayed.
func (p *page) Cards() []*Card {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Card, len(p.cards))
	copy(out, p.cards)
	return out
}

// resolveCards checks the membership of committed cards concurrently. Cards
// detached by an unmount skip the check. Check failures leave the card in
// its initial state and are only logged.
func resolveCards(ctx context.Context, cards []*Card, logger *slog.Logger) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentChecks)
	for _, c := range cards {
		g.Go(func() error {
			if err := c.resolve(ctx); err != nil && !errors.Is(err, ErrStale) {
				logger.WarnContext(ctx, "wishlist check failed",
					slog.String("product_id", c.ProductID()),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// HomeView lists the catalog with one card per product.
type HomeView struct {
	page
	api    API
	logger *slog.Logger
}

// NewHomeView creates the catalog page.
func NewHomeView(api API, logger *slog.Logger) *HomeView {
	return &HomeView{api: api, logger: logger}
}

// ActiveTab returns TabHome.
func (v *HomeView) ActiveTab() int { return TabHome }

// Load fetches the catalog, builds a card per product and mounts them.
// It returns ErrStale when the view was unmounted or reloaded meanwhile.
func (v *HomeView) Load(ctx context.Context) error {
	gen := v.begin()

	products, err := v.api.Products(ctx)
	if err != nil {
		return err
	}

	cards := make([]*Card, len(products))
	for i, p := range products {
		cards[i] = NewCard(v.api, p)
	}
	if !v.commit(gen, cards) {
		return ErrStale
	}

	resolveCards(ctx, cards, v.logger)
	return nil
}

// AddToWishlist adds productID and returns the feedback message to show.
func (v *HomeView) AddToWishlist(ctx context.Context, productID string) string {
	if _, err := v.api.Add(ctx, productID); err != nil {
		v.logger.WarnContext(ctx, "add to wishlist failed",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
		return FeedbackAddFailed
	}
	return FeedbackAdded
}

// Unmount discards pending loads and card checks.
func (v *HomeView) Unmount() { v.unmount() }

// WishlistView lists the wishlisted catalog products.
type WishlistView struct {
	page
	api    API
	logger *slog.Logger
}

// NewWishlistView creates the wishlist page.
func NewWishlistView(api API, logger *slog.Logger) *WishlistView {
	return &WishlistView{api: api, logger: logger}
}

// ActiveTab returns TabWishlist.
func (v *WishlistView) ActiveTab() int { return TabWishlist }

// Load fetches the enriched wishlist and builds wishlisted cards.
func (v *WishlistView) Load(ctx context.Context) error {
	gen := v.begin()

	products, err := v.api.Wishlist(ctx)
	if err != nil {
		return err
	}

	cards := make([]*Card, len(products))
	for i, p := range products {
		cards[i] = NewWishlistedCard(v.api, p)
	}
	if !v.commit(gen, cards) {
		return ErrStale
	}

	resolveCards(ctx, cards, v.logger)
	return nil
}

// Remove deletes productID on the server and, once that succeeds, drops its
// cards from the view. On failure the collection is unchanged.
func (v *WishlistView) Remove(ctx context.Context, productID string) error {
	if _, err := v.api.Remove(ctx, productID); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	kept := make([]*Card, 0, len(v.cards))
	for _, c := range v.cards {
		if c.ProductID() == productID {
			c.Unmount()
			continue
		}
		kept = append(kept, c)
	}
	v.cards = kept
	return nil
}

// Unmount discards pending loads.
func (v *WishlistView) Unmount() { v.unmount() }
