package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/khanhERP/laundry-pos/internal/obs"
	"github.com/khanhERP/laundry-pos/internal/pricing"
)

// Sentinel errors surfaced to handlers.
var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("cart line not found")
)

// Cart is an open register ticket. Lines keep the loose shapes the register
// sends; they are normalized on every pricing pass so a malformed line is
// reported instead of silently dropped.
type Cart struct {
	ID            string               `json:"id"`
	Lines         []pricing.RawLine    `json:"lines"`
	OrderDiscount *pricing.RawDiscount `json:"orderDiscount,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

type enricher interface {
	Enrich(ctx context.Context, lines []pricing.LineItem) ([]pricing.LineItem, error)
}

// Service keeps open carts in Redis and prices them on demand.
type Service struct {
	R       *redis.Client
	Catalog enricher
	Opts    pricing.Options
	TTL     time.Duration
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cartKey(id string) string { return "cart:" + id }

// Create opens a new empty cart.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	if s == nil || s.R == nil {
		return Cart{}, errors.New("cart: service not configured")
	}
	now := s.now()
	cart := Cart{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Get loads a cart by id.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	if s == nil || s.R == nil {
		return Cart{}, errors.New("cart: service not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Cart{}, ErrCartNotFound
	}
	data, err := s.R.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, fmt.Errorf("cart: load %s: %w", id, err)
	}
	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return Cart{}, fmt.Errorf("cart: decode %s: %w", id, err)
	}
	return cart, nil
}

// UpsertLine validates the raw line and adds it, replacing any existing line
// with the same id.
func (s *Service) UpsertLine(ctx context.Context, id string, line pricing.RawLine) (Cart, error) {
	cart, err := s.Get(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	if _, err := pricing.NormalizeLine(line); err != nil {
		return Cart{}, err
	}
	replaced := false
	for i := range cart.Lines {
		if cart.Lines[i].ID == line.ID {
			cart.Lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		cart.Lines = append(cart.Lines, line)
	}
	cart.UpdatedAt = s.now()
	return cart, s.save(ctx, cart)
}

// RemoveLine deletes one line by id.
func (s *Service) RemoveLine(ctx context.Context, id, lineID string) (Cart, error) {
	cart, err := s.Get(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	kept := cart.Lines[:0]
	found := false
	for _, l := range cart.Lines {
		if l.ID == lineID {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return Cart{}, fmt.Errorf("line %q: %w", lineID, ErrLineNotFound)
	}
	cart.Lines = kept
	cart.UpdatedAt = s.now()
	return cart, s.save(ctx, cart)
}

// ApplyOrderDiscount sets the cart-wide discount control.
func (s *Service) ApplyOrderDiscount(ctx context.Context, id string, d pricing.RawDiscount) (Cart, error) {
	cart, err := s.Get(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	kind := strings.ToLower(strings.TrimSpace(d.Kind))
	if kind != string(pricing.DiscountAmount) && kind != string(pricing.DiscountPercent) {
		return Cart{}, fmt.Errorf("unknown discount kind %q: %w", d.Kind, pricing.ErrValidation)
	}
	d.Kind = kind
	cart.OrderDiscount = &d
	cart.UpdatedAt = s.now()
	return cart, s.save(ctx, cart)
}

// RemoveOrderDiscount clears the cart-wide discount.
func (s *Service) RemoveOrderDiscount(ctx context.Context, id string) (Cart, error) {
	cart, err := s.Get(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	cart.OrderDiscount = nil
	cart.UpdatedAt = s.now()
	return cart, s.save(ctx, cart)
}

// Price normalizes the cart, enriches lines from the catalog, and computes a
// pricing snapshot. The snapshot is a preview; only checkout persists one.
func (s *Service) Price(ctx context.Context, id string) (Cart, pricing.Snapshot, error) {
	cart, err := s.Get(ctx, id)
	if err != nil {
		return Cart{}, pricing.Snapshot{}, err
	}
	snap, err := s.PriceCart(ctx, cart)
	if err != nil {
		return Cart{}, pricing.Snapshot{}, err
	}
	return cart, snap, nil
}

// PriceCart prices an already loaded cart.
func (s *Service) PriceCart(ctx context.Context, cart Cart) (pricing.Snapshot, error) {
	lines, err := pricing.Normalize(cart.Lines)
	if err != nil {
		return pricing.Snapshot{}, err
	}
	if s.Catalog != nil {
		lines, err = s.Catalog.Enrich(ctx, lines)
		if err != nil {
			return pricing.Snapshot{}, err
		}
	}
	order, err := resolveOrderDiscount(cart.OrderDiscount)
	if err != nil {
		return pricing.Snapshot{}, err
	}
	snap, err := pricing.Compute(lines, order, s.Opts)
	if obs.SnapshotComputeTotal != nil {
		mode := "exclusive"
		if s.Opts.PriceIncludesTax {
			mode = "inclusive"
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		obs.SnapshotComputeTotal.WithLabelValues(mode, result).Inc()
	}
	return snap, err
}

// Delete removes the cart, normally after a successful checkout.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil || s.R == nil {
		return errors.New("cart: service not configured")
	}
	return s.R.Del(ctx, cartKey(id)).Err()
}

func (s *Service) save(ctx context.Context, cart Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("cart: encode %s: %w", cart.ID, err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := s.R.Set(ctx, cartKey(cart.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("cart: store %s: %w", cart.ID, err)
	}
	return nil
}

func resolveOrderDiscount(raw *pricing.RawDiscount) (pricing.Discount, error) {
	if raw == nil {
		return pricing.Discount{Kind: pricing.DiscountAmount, Value: 0}, nil
	}
	value, ok := pricing.ToNumber(raw.Value)
	if !ok || value < 0 {
		return pricing.Discount{}, fmt.Errorf("order discount value must be a non-negative number: %w", pricing.ErrValidation)
	}
	return pricing.Discount{Kind: pricing.DiscountKind(raw.Kind), Value: value}, nil
}
