package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// TopicWishlist carries all wishlist domain events.
var TopicWishlist = pkgkafka.Topic("wishlist")

// Aggregate type constant.
const AggregateTypeWishlistItem = "wishlist_item"

// SourceStorefront identifies events emitted by this service.
const SourceStorefront = "storefront"

// ItemAddedData is the payload for a wishlist.item.added event.
type ItemAddedData struct {
	EntryID   string `json:"entryId"`
	ProductID string `json:"productId"`
}

// ItemRemovedData is the payload for a wishlist.item.removed event.
type ItemRemovedData struct {
	ProductID string `json:"productId"`
	Removed   int    `json:"removed"`
}

// Publisher emits wishlist domain events.
type Publisher interface {
	PublishItemAdded(ctx context.Context, entryID, productID string) error
	PublishItemRemoved(ctx context.Context, productID string, removed int) error
}

// EventWriter is the subset of *pkgkafka.Producer used here.
type EventWriter interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// MetadataStore names the wishlist store backend in event metadata.
const MetadataStore = "store"

// Producer publishes wishlist events to Kafka.
type Producer struct {
	kafka  EventWriter
	store  string
	logger *slog.Logger
}

var _ Publisher = (*Producer)(nil)

// NewProducer creates a new wishlist event producer. store is recorded in
// every event's metadata; empty omits it.
func NewProducer(kafka EventWriter, store string, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		store:  store,
		logger: logger,
	}
}

// PublishItemAdded publishes a wishlist.item.added event.
func (p *Producer) PublishItemAdded(ctx context.Context, entryID, productID string) error {
	data := ItemAddedData{EntryID: entryID, ProductID: productID}
	return p.publish(ctx, domain.EventItemAdded, productID, data)
}

// PublishItemRemoved publishes a wishlist.item.removed event.
func (p *Producer) PublishItemRemoved(ctx context.Context, productID string, removed int) error {
	data := ItemRemovedData{ProductID: productID, Removed: removed}
	return p.publish(ctx, domain.EventItemRemoved, productID, data)
}

func (p *Producer) publish(ctx context.Context, eventType, productID string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, productID, AggregateTypeWishlistItem, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if p.store != "" {
		evt.WithMetadata(MetadataStore, p.store)
	}

	if err := p.kafka.Publish(ctx, TopicWishlist, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published wishlist event",
		slog.String("event_type", eventType),
		slog.String("product_id", productID),
	)
	return nil
}

// Noop discards events. Used when Kafka is disabled.
type Noop struct{}

var _ Publisher = Noop{}

func (Noop) PublishItemAdded(context.Context, string, string) error { return nil }

func (Noop) PublishItemRemoved(context.Context, string, int) error { return nil }
