package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ghuser/stockledger/pkg/database"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

// ConversionRepository implements repositories.ConversionRepository against
// PostgreSQL. The unit_conversions table holds one row per directed pair; the
// converter tries the reciprocal direction itself.
type ConversionRepository struct {
	db *database.Database
}

var _ repositories.ConversionRepository = (*ConversionRepository)(nil)

// NewConversionRepository returns a ConversionRepository backed by the given
// connection pool.
func NewConversionRepository(db *database.Database) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// Factor returns the multiplier from fromUnit to toUnit and whether a direct
// entry exists.
func (r *ConversionRepository) Factor(ctx context.Context, fromUnit, toUnit string) (decimal.Decimal, bool, error) {
	var factor decimal.Decimal
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT factor FROM unit_conversions WHERE from_unit = $1 AND to_unit = $2`,
		fromUnit, toUnit).Scan(&factor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("query conversion factor: %w", err)
	}
	return factor, true, nil
}
