package services

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
)

type mapLookup map[[2]string]decimal.Decimal

func (m mapLookup) Factor(_ context.Context, fromUnit, toUnit string) (decimal.Decimal, bool, error) {
	f, ok := m[[2]string{fromUnit, toUnit}]
	return f, ok, nil
}

func TestConverterToBase(t *testing.T) {
	conv := NewConverter(mapLookup{
		{"kg", "g"}: decimal.NewFromInt(1000),
	})
	ctx := context.Background()

	t.Run("identical units", func(t *testing.T) {
		got, err := conv.ToBase(ctx, decimal.NewFromInt(7), "g", "g")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(decimal.NewFromInt(7)) {
			t.Fatalf("got %s, want 7", got)
		}
	})

	t.Run("direct factor", func(t *testing.T) {
		got, err := conv.ToBase(ctx, decimal.NewFromInt(50), "kg", "g")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(decimal.NewFromInt(50000)) {
			t.Fatalf("50 kg = %s g, want 50000", got)
		}
	})

	t.Run("reciprocal of reverse pair", func(t *testing.T) {
		got, err := conv.ToBase(ctx, decimal.NewFromInt(500), "g", "kg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.Equal(decimal.NewFromFloat(0.5)) {
			t.Fatalf("500 g = %s kg, want 0.5", got)
		}
	})

	t.Run("no fallback for unknown pairs", func(t *testing.T) {
		_, err := conv.ToBase(ctx, decimal.NewFromInt(1), "box", "g")
		if !errors.Is(err, domain.ErrUnitNotConvertible) {
			t.Fatalf("error = %v, want ErrUnitNotConvertible", err)
		}
	})
}
