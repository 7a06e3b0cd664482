package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const defaultKeyPrefix = "wishlist:"

// removeScript deletes every entry indexed under a product in one step.
// KEYS: product set, entries hash, time index. Returns the number removed.
var removeScript = redis.NewScript(`
local ids = redis.call('SMEMBERS', KEYS[1])
for _, id in ipairs(ids) do
  redis.call('HDEL', KEYS[2], id)
  redis.call('ZREM', KEYS[3], id)
end
redis.call('DEL', KEYS[1])
return #ids
`)

// WishlistRepository implements repository.WishlistRepository using Redis.
//
// Layout under the key prefix:
//
//	<prefix>entries            hash   entry id -> JSON entry
//	<prefix>entries:by_time    zset   entry id scored by unix millis
//	<prefix>product:<id>       set    entry ids for one product
type WishlistRepository struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ repository.WishlistRepository = (*WishlistRepository)(nil)

// NewWishlistRepository creates a Redis-backed wishlist repository. An empty
// prefix defaults to "wishlist:".
func NewWishlistRepository(client *redis.Client, prefix string) *WishlistRepository {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &WishlistRepository{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *WishlistRepository) entriesKey() string { return r.prefix + "entries" }
func (r *WishlistRepository) timeKey() string    { return r.prefix + "entries:by_time" }
func (r *WishlistRepository) productKey(productID string) string {
	return r.prefix + "product:" + productID
}

// Add stores a new entry with a generated id.
func (r *WishlistRepository) Add(ctx context.Context, productID string) (string, error) {
	entry := domain.WishlistEntry{
		ID:        uuid.NewString(),
		ProductID: productID,
		Timestamp: r.now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("marshal wishlist entry: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, r.entriesKey(), entry.ID, data)
		p.ZAdd(ctx, r.timeKey(), redis.Z{Score: float64(entry.Timestamp.UnixMilli()), Member: entry.ID})
		p.SAdd(ctx, r.productKey(productID), entry.ID)
		return nil
	})
	if err != nil {
		return "", apperrors.StoreUnavailable(fmt.Errorf("redis add wishlist entry: %w", err))
	}

	return entry.ID, nil
}

// Exists reports whether the product has at least one entry.
func (r *WishlistRepository) Exists(ctx context.Context, productID string) (bool, error) {
	n, err := r.client.SCard(ctx, r.productKey(productID)).Result()
	if err != nil {
		return false, apperrors.StoreUnavailable(fmt.Errorf("redis scard wishlist product: %w", err))
	}
	return n > 0, nil
}

// List returns up to limit entries, oldest first.
func (r *WishlistRepository) List(ctx context.Context, limit int) ([]domain.WishlistEntry, error) {
	if limit <= 0 {
		limit = repository.DefaultListLimit
	}

	ids, err := r.client.ZRange(ctx, r.timeKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, apperrors.StoreUnavailable(fmt.Errorf("redis zrange wishlist: %w", err))
	}
	entries := make([]domain.WishlistEntry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}

	values, err := r.client.HMGet(ctx, r.entriesKey(), ids...).Result()
	if err != nil {
		return nil, apperrors.StoreUnavailable(fmt.Errorf("redis hmget wishlist: %w", err))
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Removed between ZRANGE and HMGET.
			continue
		}
		var entry domain.WishlistEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal wishlist entry %s: %w", ids[i], err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// RemoveByProductID deletes all entries for the product atomically.
func (r *WishlistRepository) RemoveByProductID(ctx context.Context, productID string) (int, error) {
	n, err := removeScript.Run(ctx, r.client,
		[]string{r.productKey(productID), r.entriesKey(), r.timeKey()},
	).Int()
	if err != nil {
		return 0, apperrors.StoreUnavailable(fmt.Errorf("redis remove wishlist product: %w", err))
	}
	return n, nil
}

// Ping checks the Redis connection.
func (r *WishlistRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
