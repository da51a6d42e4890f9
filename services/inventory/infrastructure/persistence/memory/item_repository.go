package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// ItemRepository implements repositories.ItemRepository over the Store.
type ItemRepository struct {
	store *Store
}

// NewItemRepository returns an ItemRepository backed by store.
func NewItemRepository(store *Store) *ItemRepository {
	return &ItemRepository{store: store}
}

// Verify interface compliance.
var _ repositories.ItemRepository = (*ItemRepository)(nil)

// Save persists a new item. Returns ErrSKUAlreadyExists on duplicate SKU.
func (r *ItemRepository) Save(_ context.Context, item *models.Item) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := skuKey{orgID: item.OrgID, sku: item.SKU}
	if _, exists := s.itemsBySKU[key]; exists {
		return domain.ErrSKUAlreadyExists
	}
	s.items[item.ID] = cloneItem(item)
	s.itemsBySKU[key] = item.ID
	return nil
}

// GetByID retrieves an item scoped to the given org.
func (r *ItemRepository) GetByID(_ context.Context, orgID, id uuid.UUID) (*models.Item, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.OrgID != orgID {
		return nil, domain.ErrItemNotFound
	}
	return cloneItem(item), nil
}

// GetBySKU retrieves an item by SKU scoped to the given org.
func (r *ItemRepository) GetBySKU(_ context.Context, orgID uuid.UUID, sku models.SKU) (*models.Item, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.itemsBySKU[skuKey{orgID: orgID, sku: sku}]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return cloneItem(s.items[id]), nil
}

// FindByOrgID returns a paginated list sorted by SKU plus the total count.
func (r *ItemRepository) FindByOrgID(_ context.Context, orgID uuid.UUID, opts repositories.QueryOpts) ([]*models.Item, int, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*models.Item
	for _, item := range s.items {
		if item.OrgID == orgID {
			all = append(all, cloneItem(item))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].SKU < all[j].SKU })

	total := len(all)
	if opts.Offset >= total {
		return nil, total, nil
	}
	end := total
	if opts.Limit > 0 && opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return all[opts.Offset:end], total, nil
}
