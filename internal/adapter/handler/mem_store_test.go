package handler

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/core/service"
	"github.com/rl1809/sweetshop/internal/port"
)

// memStore backs every repository port with maps for handler tests.
type memStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
	coupons  map[string]domain.Coupon
	orders   map[string]domain.Order
	carts    map[string]map[string]int
	keys     map[string]bool
}

func newMemStore() *memStore {
	s := &memStore{
		products: map[string]domain.Product{},
		coupons:  map[string]domain.Coupon{},
		orders:   map[string]domain.Order{},
		carts:    map[string]map[string]int{},
		keys:     map[string]bool{},
	}
	s.products["P1"] = domain.Product{ID: "P1", Name: "Kaju Katli", Price: decimal.NewFromInt(200), Category: "barfi", InStock: true}
	s.products["P2"] = domain.Product{ID: "P2", Name: "Rasgulla", Price: decimal.NewFromInt(300), Category: "bengali", InStock: true}
	s.products["P3"] = domain.Product{ID: "P3", Name: "Ghevar", Price: decimal.NewFromInt(450), Category: "festive", InStock: false}
	return s
}

func (s *memStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memStore) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Product
	for _, p := range s.products {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[code]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *memStore) CreateCoupon(ctx context.Context, c domain.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coupons[c.Code]; ok {
		return port.ErrDuplicateCoupon
	}
	s.coupons[c.Code] = c
	return nil
}

func (s *memStore) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Coupon
	for _, c := range s.coupons {
		out = append(out, c)
	}
	return out, nil
}

func (s *memStore) CreateOrder(ctx context.Context, order domain.Order, couponID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if couponID != "" {
		for code, c := range s.coupons {
			if c.ID != couponID {
				continue
			}
			if !c.IsActive || (c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit) {
				return port.ErrCouponExhausted
			}
			c.UsedCount++
			s.coupons[code] = c
		}
	}
	s.orders[order.ID] = order
	return nil
}

func (s *memStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (s *memStore) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if userID == "" || o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) UpdateOrderStatus(ctx context.Context, current domain.Order, u domain.StatusUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[current.ID]
	if !ok || o.Status != current.Status || o.PaymentStatus != current.PaymentStatus {
		return port.ErrOptimisticLock
	}
	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.PaymentStatus != nil {
		o.PaymentStatus = *u.PaymentStatus
	}
	if u.RazorpayPaymentID != nil {
		o.RazorpayPaymentID = u.RazorpayPaymentID
	}
	s.orders[o.ID] = o
	return nil
}

func (s *memStore) CancelOrder(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || !o.Cancellable() {
		return false, nil
	}
	o.Status = domain.OrderStatusCancelled
	s.orders[id] = o
	return true, nil
}

func (s *memStore) GetCart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CartItem
	for id, qty := range s.carts[userID] {
		out = append(out, domain.CartItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

func (s *memStore) AddItem(ctx context.Context, userID, productID string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[userID] == nil {
		s.carts[userID] = map[string]int{}
	}
	s.carts[userID][productID] += qty
	return s.carts[userID][productID], nil
}

func (s *memStore) SetItem(ctx context.Context, userID, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[userID] == nil {
		s.carts[userID] = map[string]int{}
	}
	s.carts[userID][productID] = qty
	return nil
}

func (s *memStore) RemoveItem(ctx context.Context, userID, productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.carts[userID][productID]
	delete(s.carts[userID], productID)
	return ok, nil
}

func (s *memStore) ClearCart(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}

func (s *memStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memStore) ReleaseIdempotency(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memStore) addCoupon(code string, value string, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.coupons[code] = domain.Coupon{
		ID:            "coupon-" + code,
		Code:          code,
		DiscountType:  domain.DiscountPercentage,
		DiscountValue: decimal.RequireFromString(value),
		UsageLimit:    &limit,
		ValidFrom:     now.Add(-time.Hour),
		ValidTo:       now.Add(time.Hour),
		IsActive:      true,
	}
}

func (s *memStore) forceStatus(id string, status domain.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	o.Status = status
	s.orders[id] = o
}

// newServices wires real services over a memStore. Follow-ups run inline.
func newServices(t *testing.T) (*service.OrderService, *service.CartService, *service.CatalogService, *service.CouponService, *memStore) {
	t.Helper()
	store := newMemStore()
	log := zerolog.Nop()

	processor := service.NewFollowUpProcessor(store, nil, log)
	orders := service.NewOrderService(store, store, store, processor, 0, log).WithIdempotency(store)
	orders.Close()

	return orders,
		service.NewCartService(store, store, log),
		service.NewCatalogService(store),
		service.NewCouponService(store, log),
		store
}
