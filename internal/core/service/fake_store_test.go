package service

import (
	"context"
	"sort"
	"sync"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/port"
)

// fakeStore is an in-memory stand-in for MySQL and Redis. It implements
// every repository port and claims coupons atomically like the SQL adapter.
type fakeStore struct {
	mu sync.Mutex

	products    map[string]domain.Product
	coupons     map[string]*domain.Coupon // by code
	orders      map[string]domain.Order
	carts       map[string]map[string]int
	idempotency map[string]bool

	createCalls int
	failCreate  error
	failClaim   error
	failClear   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products:    make(map[string]domain.Product),
		coupons:     make(map[string]*domain.Coupon),
		orders:      make(map[string]domain.Order),
		carts:       make(map[string]map[string]int),
		idempotency: make(map[string]bool),
	}
}

func (f *fakeStore) addProduct(p domain.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *fakeStore) addCoupon(c domain.Coupon) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coupons[c.Code] = &c
}

func (f *fakeStore) coupon(code string) domain.Coupon {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.coupons[code]
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeStore) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeStore) ListProducts(ctx context.Context, category string) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Product
	for _, p := range f.products {
		if category == "" || p.Category == category {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) CreateCoupon(ctx context.Context, coupon domain.Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.coupons[coupon.Code]; ok {
		return port.ErrDuplicateCoupon
	}
	f.coupons[coupon.Code] = &coupon
	return nil
}

func (f *fakeStore) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Coupon
	for _, c := range f.coupons {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, order domain.Order, couponID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++

	if f.failCreate != nil {
		return f.failCreate
	}

	var claimed *domain.Coupon
	if couponID != "" {
		if f.failClaim != nil {
			return f.failClaim
		}
		for _, c := range f.coupons {
			if c.ID == couponID {
				claimed = c
			}
		}
		if claimed == nil || !claimed.IsActive || (claimed.UsageLimit != nil && claimed.UsedCount >= *claimed.UsageLimit) {
			return port.ErrCouponExhausted
		}
		claimed.UsedCount++
	}

	order.Items = append([]domain.OrderItem(nil), order.Items...)
	f.orders[order.ID] = order
	return nil
}

func (f *fakeStore) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, nil
	}
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return &o, nil
}

func (f *fakeStore) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if userID == "" || o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, current domain.Order, update domain.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[current.ID]
	if !ok || o.Status != current.Status || o.PaymentStatus != current.PaymentStatus {
		return port.ErrOptimisticLock
	}
	if update.Status != nil {
		o.Status = *update.Status
	}
	if update.PaymentStatus != nil {
		o.PaymentStatus = *update.PaymentStatus
	}
	if update.RazorpayPaymentID != nil {
		o.RazorpayPaymentID = update.RazorpayPaymentID
	}
	if update.RazorpaySignature != nil {
		o.RazorpaySignature = update.RazorpaySignature
	}
	f.orders[o.ID] = o
	return nil
}

func (f *fakeStore) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok || !o.Cancellable() {
		return false, nil
	}
	o.Status = domain.OrderStatusCancelled
	f.orders[orderID] = o
	return true, nil
}

func (f *fakeStore) GetCart(ctx context.Context, userID string) ([]domain.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []domain.CartItem
	for id, qty := range f.carts[userID] {
		items = append(items, domain.CartItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (f *fakeStore) AddItem(ctx context.Context, userID, productID string, quantity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.carts[userID] == nil {
		f.carts[userID] = make(map[string]int)
	}
	f.carts[userID][productID] += quantity
	return f.carts[userID][productID], nil
}

func (f *fakeStore) SetItem(ctx context.Context, userID, productID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.carts[userID] == nil {
		f.carts[userID] = make(map[string]int)
	}
	f.carts[userID][productID] = quantity
	return nil
}

func (f *fakeStore) RemoveItem(ctx context.Context, userID, productID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.carts[userID][productID]; !ok {
		return false, nil
	}
	delete(f.carts[userID], productID)
	return true, nil
}

func (f *fakeStore) ClearCart(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failClear != nil {
		return f.failClear
	}
	delete(f.carts, userID)
	return nil
}

func (f *fakeStore) SetIdempotency(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idempotency[key] {
		return false, nil
	}
	f.idempotency[key] = true
	return true, nil
}

func (f *fakeStore) ReleaseIdempotency(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.idempotency, key)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	fail   error
}

func (p *fakePublisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) Events() []domain.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.OrderEvent(nil), p.events...)
}
