package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/khanhERP/laundry-pos/internal/pricing"
)

// ErrItemNotFound is returned when an item id or SKU does not resolve.
var ErrItemNotFound = errors.New("catalog: item not found")

// Item is a sellable catalog entry. UnitPrice is in minor currency units and
// carries the store's configured tax mode. BeforeTaxPrice and AfterTaxPrice
// are authoritative per-unit prices maintained alongside the list price; when
// set they take precedence over rate-based tax derivation at pricing time.
type Item struct {
	ID             string         `json:"id"`
	SKU            string         `json:"sku"`
	Name           string         `json:"name"`
	UnitPrice      pricing.Money  `json:"unitPrice"`
	TaxRatePercent float64        `json:"taxRatePercent"`
	BeforeTaxPrice *pricing.Money `json:"beforeTaxPrice,omitempty"`
	AfterTaxPrice  *pricing.Money `json:"afterTaxPrice,omitempty"`
	Active         bool           `json:"active"`
}

type itemStore interface {
	GetItem(ctx context.Context, id string) (Item, error)
	GetItemBySKU(ctx context.Context, sku string) (Item, error)
	ListItems(ctx context.Context, query string, limit, offset int) ([]Item, int64, error)
}

// Service serves catalog reads through a Redis cache in front of Postgres.
type Service struct {
	Store itemStore
	Cache *Cache
}

// Get returns one item by id, consulting the cache first.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	if s == nil || s.Store == nil {
		return Item{}, errors.New("catalog: service not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Item{}, fmt.Errorf("item id is required: %w", ErrItemNotFound)
	}
	key := "catalog:item:" + id
	var cached Item
	if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	item, err := s.Store.GetItem(ctx, id)
	if err != nil {
		return Item{}, err
	}
	_ = s.Cache.SetJSON(ctx, key, item)
	return item, nil
}

// List returns a page of active items matching the optional search query.
func (s *Service) List(ctx context.Context, query string, page, limit int) ([]Item, int64, error) {
	if s == nil || s.Store == nil {
		return nil, 0, errors.New("catalog: service not configured")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.Store.ListItems(ctx, strings.TrimSpace(query), limit, (page-1)*limit)
}

// Enrich fills tax data the register did not send from the catalog record.
// Prices and discounts typed at the register are left untouched; the catalog
// contributes the tax rate and the authoritative before/after-tax prices.
func (s *Service) Enrich(ctx context.Context, lines []pricing.LineItem) ([]pricing.LineItem, error) {
	if s == nil || s.Store == nil {
		return lines, nil
	}
	out := make([]pricing.LineItem, len(lines))
	for i, line := range lines {
		item, err := s.Get(ctx, line.ID)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				out[i] = line
				continue
			}
			return nil, fmt.Errorf("enrich line %q: %w", line.ID, err)
		}
		if line.TaxRatePercent == 0 {
			line.TaxRatePercent = item.TaxRatePercent
		}
		if line.BeforeTaxPrice == nil && item.BeforeTaxPrice != nil {
			v := *item.BeforeTaxPrice
			line.BeforeTaxPrice = &v
		}
		if line.AfterTaxPrice == nil && item.AfterTaxPrice != nil {
			v := *item.AfterTaxPrice
			line.AfterTaxPrice = &v
		}
		out[i] = line
	}
	return out, nil
}
