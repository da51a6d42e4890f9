package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	// StockCacheTTL is the time-to-live for cached stock levels.
	StockCacheTTL = 15 * time.Minute

	stockCacheKeyPrefix = "stock"
)

// CachedStockLevel is the denormalized stock read model stored in Redis.
// Fields are stored as a Redis hash. These counters are display values;
// reservation decisions always read the database row under lock.
type CachedStockLevel struct {
	ItemID           uuid.UUID       `json:"item_id"`
	OrgID            uuid.UUID       `json:"org_id"`
	SKU              string          `json:"sku"`
	StockQuantity    decimal.Decimal `json:"stock_quantity"`
	ReservedQuantity decimal.Decimal `json:"reserved_quantity"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Available is the unreserved portion of the cached stock level.
func (c *CachedStockLevel) Available() decimal.Decimal {
	return c.StockQuantity.Sub(c.ReservedQuantity)
}

// StockCache provides structured read/write operations for stock level entries.
// Keys are scoped by orgID to prevent cross-tenant data leakage.
// Key format: "stock:{orgID}:{itemID}"
type StockCache struct {
	client *RedisClient
}

// NewStockCache creates a new StockCache backed by the given RedisClient.
func NewStockCache(r *RedisClient) *StockCache {
	return &StockCache{client: r}
}

// Get retrieves a cached stock level by org + item ID.
// Returns redis.Nil error when the key does not exist or has expired.
func (c *StockCache) Get(ctx context.Context, orgID, itemID uuid.UUID) (*CachedStockLevel, error) {
	key := c.key(orgID, itemID)
	vals, err := c.client.Client().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if len(vals) == 0 {
		return nil, redis.Nil // key not found
	}

	id, err := uuid.Parse(vals["item_id"])
	if err != nil {
		return nil, fmt.Errorf("cache parse item_id: %w", err)
	}
	oid, err := uuid.Parse(vals["org_id"])
	if err != nil {
		return nil, fmt.Errorf("cache parse org_id: %w", err)
	}
	stockQty, err := decimal.NewFromString(vals["stock_quantity"])
	if err != nil {
		return nil, fmt.Errorf("cache parse stock_quantity: %w", err)
	}
	reservedQty, err := decimal.NewFromString(vals["reserved_quantity"])
	if err != nil {
		return nil, fmt.Errorf("cache parse reserved_quantity: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, vals["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("cache parse updated_at: %w", err)
	}

	return &CachedStockLevel{
		ItemID:           id,
		OrgID:            oid,
		SKU:              vals["sku"],
		StockQuantity:    stockQty,
		ReservedQuantity: reservedQty,
		UpdatedAt:        updatedAt,
	}, nil
}

// Set writes a stock level as a Redis hash with a 15-minute TTL.
// Uses a pipeline to set all fields and the TTL atomically.
func (c *StockCache) Set(ctx context.Context, level *CachedStockLevel) error {
	key := c.key(level.OrgID, level.ItemID)
	pipe := c.client.Client().Pipeline()
	pipe.HSet(ctx, key,
		"item_id", level.ItemID.String(),
		"org_id", level.OrgID.String(),
		"sku", level.SKU,
		"stock_quantity", level.StockQuantity.String(),
		"reserved_quantity", level.ReservedQuantity.String(),
		"updated_at", level.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	pipe.Expire(ctx, key, StockCacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes a cached stock level.
func (c *StockCache) Delete(ctx context.Context, orgID, itemID uuid.UUID) error {
	if err := c.client.Client().Del(ctx, c.key(orgID, itemID)).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// key builds the Redis key: "stock:{orgID}:{itemID}"
func (c *StockCache) key(orgID, itemID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", stockCacheKeyPrefix, orgID, itemID)
}
