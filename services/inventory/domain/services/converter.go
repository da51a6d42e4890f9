package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
)

// ConversionLookup resolves a conversion factor between two units of measure.
// Implementations are backed by the unit_conversions table (or an in-memory
// map in tests). found is false when no row exists for the pair.
type ConversionLookup interface {
	Factor(ctx context.Context, fromUnit, toUnit string) (factor decimal.Decimal, found bool, err error)
}

// Converter projects movement quantities into an item's base unit. An
// unconvertible pair fails with ErrUnitNotConvertible; there is deliberately
// no 1:1 fallback.
type Converter struct {
	lookup ConversionLookup
}

// NewConverter returns a Converter backed by the given lookup.
func NewConverter(lookup ConversionLookup) *Converter {
	return &Converter{lookup: lookup}
}

// ToBase converts qty from fromUnit into baseUnit. Identical units convert
// 1:1; otherwise the direct factor is tried first, then the reciprocal of the
// reverse pair.
func (c *Converter) ToBase(ctx context.Context, qty decimal.Decimal, fromUnit, baseUnit string) (decimal.Decimal, error) {
	if fromUnit == baseUnit {
		return qty, nil
	}

	factor, found, err := c.lookup.Factor(ctx, fromUnit, baseUnit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lookup conversion %s to %s: %w", fromUnit, baseUnit, err)
	}
	if found {
		return qty.Mul(factor), nil
	}

	reverse, found, err := c.lookup.Factor(ctx, baseUnit, fromUnit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lookup conversion %s to %s: %w", baseUnit, fromUnit, err)
	}
	if found && !reverse.IsZero() {
		return qty.Div(reverse), nil
	}

	return decimal.Zero, fmt.Errorf("%w: no factor for %s to %s", domain.ErrUnitNotConvertible, fromUnit, baseUnit)
}
