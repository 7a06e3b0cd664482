package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// WishlistService implements the storefront's product and wishlist
// operations on top of the product feed and the wishlist store.
type WishlistService struct {
	repo      repository.WishlistRepository
	feed      catalog.Fetcher
	events    event.Publisher
	logger    *slog.Logger
	listLimit int
}

// NewWishlistService creates a new wishlist service. A nil publisher
// disables events; a non-positive listLimit uses repository.DefaultListLimit.
func NewWishlistService(
	repo repository.WishlistRepository,
	feed catalog.Fetcher,
	events event.Publisher,
	logger *slog.Logger,
	listLimit int,
) *WishlistService {
	if events == nil {
		events = event.Noop{}
	}
	if listLimit <= 0 {
		listLimit = repository.DefaultListLimit
	}
	return &WishlistService{
		repo:      repo,
		feed:      feed,
		events:    events,
		logger:    logger,
		listLimit: listLimit,
	}
}

// Products returns the current catalog as fetched from the feed.
func (s *WishlistService) Products(ctx context.Context) (*domain.Catalog, error) {
	return s.feed.FetchCatalog(ctx)
}

// AddToWishlist stores a new entry for productID and returns its id.
// Adding a product already in the wishlist stores another entry.
func (s *WishlistService) AddToWishlist(ctx context.Context, productID string) (string, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return "", err
	}

	id, err := s.repo.Add(ctx, productID)
	if err != nil {
		return "", storeFailure(err)
	}

	if err := s.events.PublishItemAdded(ctx, id, productID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish wishlist event",
			slog.String("event_type", domain.EventItemAdded),
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product added to wishlist",
		slog.String("product_id", productID),
		slog.String("entry_id", id),
	)
	return id, nil
}

// IsInWishlist reports whether productID has at least one entry.
func (s *WishlistService) IsInWishlist(ctx context.Context, productID string) (bool, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return false, err
	}

	found, err := s.repo.Exists(ctx, productID)
	if err != nil {
		return false, storeFailure(err)
	}
	return found, nil
}

// RemoveFromWishlist deletes every entry for productID and returns the
// number removed. Removing an absent product succeeds with 0.
func (s *WishlistService) RemoveFromWishlist(ctx context.Context, productID string) (int, error) {
	if err := domain.ValidateProductID(productID); err != nil {
		return 0, err
	}

	removed, err := s.repo.RemoveByProductID(ctx, productID)
	if err != nil {
		return 0, storeFailure(err)
	}

	if removed > 0 {
		if err := s.events.PublishItemRemoved(ctx, productID, removed); err != nil {
			s.logger.WarnContext(ctx, "failed to publish wishlist event",
				slog.String("event_type", domain.EventItemRemoved),
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "product removed from wishlist",
		slog.String("product_id", productID),
		slog.Int("removed", removed),
	)
	return removed, nil
}

// EnrichedWishlist returns the catalog products that have a wishlist entry,
// in catalog order. The result is never nil.
func (s *WishlistService) EnrichedWishlist(ctx context.Context) ([]domain.Product, error) {
	entries, err := s.repo.List(ctx, s.listLimit)
	if err != nil {
		return nil, storeFailure(err)
	}

	ids := domain.ProductIDSet(entries)

	cat, err := s.feed.FetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	products := domain.FilterProducts(cat.Products, ids)
	if len(products) < len(ids) {
		s.logger.DebugContext(ctx, "wishlist holds products missing from the catalog",
			slog.Int("wishlisted", len(ids)),
			slog.Int("matched", len(products)),
		)
	}
	return products, nil
}

// storeFailure makes sure store errors carry ErrStoreUnavailable.
func storeFailure(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.StoreUnavailable(err)
}
