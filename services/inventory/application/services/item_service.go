package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	pkgcache "github.com/ghuser/stockledger/pkg/cache"
	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// ItemService manages the item catalog. Stock counters on items returned
// from GetByID may be served from the Redis read cache; they are display
// values only and never feed reservation decisions.
type ItemService struct {
	repo  repositories.ItemRepository
	cache *pkgcache.StockCache
}

// CreateItemParams are the caller-supplied fields for a new catalog item.
type CreateItemParams struct {
	SKU           string
	Name          string
	ItemType      models.ItemType
	Unit          string
	CostPerUnit   decimal.Decimal
	BatchTracking bool
	StockControl  bool
}

// NewItemService returns an ItemService wired with the given repository and cache.
func NewItemService(repo repositories.ItemRepository, stockCache *pkgcache.StockCache) *ItemService {
	return &ItemService{repo: repo, cache: stockCache}
}

// Create validates and persists an Item with zeroed counters. The repository
// publishes ItemCreatedEvent, which enqueues the ERP createItem mirror for
// stock-controlled items.
func (s *ItemService) Create(ctx context.Context, orgID uuid.UUID, p CreateItemParams) (*models.Item, error) {
	var sku models.SKU
	if p.SKU != "" {
		parsed, err := models.NewSKU(p.SKU)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidSKU, err)
		}
		sku = parsed
	}

	item, err := models.NewItem(orgID, sku, p.Name, p.ItemType, p.Unit, p.CostPerUnit, p.BatchTracking, p.StockControl)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}

	if err := s.repo.Save(ctx, item); err != nil {
		return nil, fmt.Errorf("save item: %w", err)
	}
	return item, nil
}

// GetByID retrieves an Item. Stock counters are overlaid from the Redis
// cache when present (read-through, eventually consistent); the database row
// is the fallback and warms the cache asynchronously.
func (s *ItemService) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Item, error) {
	item, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, orgID, id); err == nil {
			item.StockQuantity = cached.StockQuantity
			item.ReservedQuantity = cached.ReservedQuantity
		} else if !errors.Is(err, redis.Nil) {
			_ = err // cache degradation is not an error path
		} else {
			go func() {
				_ = s.cache.Set(context.Background(), &pkgcache.CachedStockLevel{
					ItemID:           item.ID,
					OrgID:            item.OrgID,
					SKU:              item.SKU.String(),
					StockQuantity:    item.StockQuantity,
					ReservedQuantity: item.ReservedQuantity,
					UpdatedAt:        item.CreatedAt,
				})
			}()
		}
	}

	return item, nil
}

// List returns a paginated slice of items for the org plus total count.
func (s *ItemService) List(ctx context.Context, orgID uuid.UUID, opts repositories.QueryOpts) ([]*models.Item, int, error) {
	items, total, err := s.repo.FindByOrgID(ctx, orgID, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	return items, total, nil
}
