package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	domain "github.com/ghuser/stockledger/services/inventory/domain"
	"github.com/ghuser/stockledger/services/inventory/domain/models"
	"github.com/ghuser/stockledger/services/inventory/domain/repositories"
)

func TestCreateItemNormalizesSKU(t *testing.T) {
	env := newTestEnv()
	item, err := env.Item.Create(context.Background(), env.orgID, CreateItemParams{
		SKU:      "rm-flour-01",
		Name:     "Flour",
		ItemType: models.ItemTypeRawMaterial,
		Unit:     "g",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.SKU != "RM-FLOUR-01" {
		t.Fatalf("sku = %s, want RM-FLOUR-01", item.SKU)
	}
}

func TestCreateItemInvalidSKU(t *testing.T) {
	env := newTestEnv()
	_, err := env.Item.Create(context.Background(), env.orgID, CreateItemParams{
		SKU:      "x",
		Name:     "Flour",
		ItemType: models.ItemTypeRawMaterial,
		Unit:     "g",
	})
	if !errors.Is(err, domain.ErrInvalidSKU) {
		t.Fatalf("error = %v, want ErrInvalidSKU", err)
	}
}

func TestCreateItemDuplicateSKU(t *testing.T) {
	env := newTestEnv()
	env.newItem(t, "RM-FLOUR-01", "g")

	_, err := env.Item.Create(context.Background(), env.orgID, CreateItemParams{
		SKU:      "RM-FLOUR-01",
		Name:     "Flour again",
		ItemType: models.ItemTypeRawMaterial,
		Unit:     "g",
	})
	if !errors.Is(err, domain.ErrSKUAlreadyExists) {
		t.Fatalf("error = %v, want ErrSKUAlreadyExists", err)
	}
}

func TestCreateItemGeneratesSKU(t *testing.T) {
	env := newTestEnv()
	item, err := env.Item.Create(context.Background(), env.orgID, CreateItemParams{
		Name:        "Gear",
		ItemType:    models.ItemTypeComponent,
		Unit:        "pcs",
		CostPerUnit: decimal.NewFromInt(3),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(item.SKU.String(), "CP-") {
		t.Fatalf("generated sku = %s, want CP- prefix", item.SKU)
	}
}

func TestListItemsPaginated(t *testing.T) {
	env := newTestEnv()
	for _, sku := range []string{"RM-AAA-01", "RM-BBB-01", "RM-CCC-01"} {
		env.newItem(t, sku, "g")
	}

	items, total, err := env.Item.List(context.Background(), env.orgID, repositories.QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("got %d items (total %d), want 2 of 3", len(items), total)
	}

	rest, _, err := env.Item.List(context.Background(), env.orgID, repositories.QueryOpts{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("offset page has %d items, want 1", len(rest))
	}
}
