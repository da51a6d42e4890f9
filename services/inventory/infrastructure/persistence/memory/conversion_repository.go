package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// ConversionRepository implements repositories.ConversionRepository over the
// Store's seeded conversion map.
type ConversionRepository struct {
	store *Store
}

// NewConversionRepository returns a ConversionRepository backed by store.
func NewConversionRepository(store *Store) *ConversionRepository {
	return &ConversionRepository{store: store}
}

// Verify interface compliance.
var _ repositories.ConversionRepository = (*ConversionRepository)(nil)

// Factor returns the seeded conversion factor for the unit pair, if any.
func (r *ConversionRepository) Factor(_ context.Context, fromUnit, toUnit string) (decimal.Decimal, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	factor, ok := s.conversions[unitPair{from: fromUnit, to: toUnit}]
	return factor, ok, nil
}
