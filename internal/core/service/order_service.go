package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/port"
)

var (
	ErrDuplicateRequest = &domain.Error{Kind: domain.ErrConflict, Message: "Duplicate order request"}
	ErrOrderNotFound    = &domain.Error{Kind: domain.ErrNotFound, Message: "Order not found"}
	ErrNotCancellable   = &domain.Error{Kind: domain.ErrInvalidRequest, Message: "Order cannot be cancelled"}
)

type OrderLine struct {
	ProductID string
	Quantity  int
}

type CreateOrderRequest struct {
	Items          []OrderLine
	AddressID      string
	PaymentMethod  domain.PaymentMethod
	CouponCode     string
	Notes          string
	IdempotencyKey string
}

type OrderService struct {
	products    port.ProductRepository
	coupons     port.CouponRepository
	orders      port.OrderRepository
	idempotency port.IdempotencyStore
	processor   *FollowUpProcessor
	logger      zerolog.Logger

	mu        sync.RWMutex
	closed    bool
	followUps chan FollowUp

	now         func() time.Time
	orderNumber func(time.Time) string
}

func NewOrderService(
	products port.ProductRepository,
	coupons port.CouponRepository,
	orders port.OrderRepository,
	processor *FollowUpProcessor,
	queueSize int,
	logger zerolog.Logger,
) *OrderService {
	return &OrderService{
		products:    products,
		coupons:     coupons,
		orders:      orders,
		processor:   processor,
		logger:      logger.With().Str("component", "order_service").Logger(),
		followUps:   make(chan FollowUp, queueSize),
		now:         time.Now,
		orderNumber: NewOrderNumber,
	}
}

// WithIdempotency enables duplicate-submission protection keyed by the
// client supplied idempotency key.
func (s *OrderService) WithIdempotency(store port.IdempotencyStore) *OrderService {
	s.idempotency = store
	return s
}

func (s *OrderService) GetFollowUpQueue() <-chan FollowUp {
	return s.followUps
}

// Close stops accepting queued follow-ups. Later follow-ups run inline.
func (s *OrderService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.followUps)
}

func (s *OrderService) CreateOrder(ctx context.Context, actor domain.Actor, req CreateOrderRequest) (order *domain.Order, err error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		key := fmt.Sprintf("order:%s:%s", actor.UserID, req.IdempotencyKey)
		ok, setErr := s.idempotency.SetIdempotency(ctx, key)
		if setErr != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", setErr)
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if relErr := s.idempotency.ReleaseIdempotency(context.WithoutCancel(ctx), key); relErr != nil {
				s.logger.Warn().Err(relErr).Str("key", key).Msg("failed to release idempotency key")
			}
		}()
	}

	built, coupon, err := s.buildOrder(ctx, actor.UserID, req)
	if err != nil {
		return nil, err
	}

	if err := s.persist(ctx, built, coupon); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info().
		Str("order_id", built.ID).
		Str("order_number", built.OrderNumber).
		Str("user_id", built.UserID).
		Str("total", built.Total.StringFixed(2)).
		Msg("order placed")

	event := domain.NewOrderEvent(domain.EventOrderPlaced, built, s.now())
	s.enqueue(ctx, FollowUp{ClearCartFor: built.UserID, Event: &event})

	return built, nil
}

// buildOrder validates the request and prices it. It performs reads only.
func (s *OrderService) buildOrder(ctx context.Context, userID string, req CreateOrderRequest) (*domain.Order, *domain.Coupon, error) {
	if len(req.Items) == 0 {
		return nil, nil, domain.InvalidRequest("Order must contain at least one item")
	}
	if req.AddressID == "" {
		return nil, nil, domain.InvalidRequest("Shipping address is required")
	}
	if !req.PaymentMethod.Valid() {
		return nil, nil, domain.InvalidRequest("Invalid payment method")
	}

	now := s.now()
	order := &domain.Order{
		ID:            uuid.New().String(),
		UserID:        userID,
		OrderNumber:   s.orderNumber(now),
		Status:        domain.OrderStatusPending,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: domain.PaymentStatusPending,
		AddressID:     req.AddressID,
		Notes:         req.Notes,
		Items:         make([]domain.OrderItem, 0, len(req.Items)),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	subtotal := decimal.Zero
	for _, line := range req.Items {
		if line.ProductID == "" {
			return nil, nil, domain.InvalidRequest("Product id is required")
		}
		if line.Quantity < 1 || line.Quantity > domain.MaxItemQuantity {
			return nil, nil, domain.InvalidRequest("Invalid quantity for product %s", line.ProductID)
		}

		product, err := s.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("get product %s: %w", line.ProductID, err)
		}
		if product == nil {
			return nil, nil, domain.NotFound("Product %s not found", line.ProductID)
		}
		if !product.InStock {
			return nil, nil, domain.InvalidRequest("Product %s is out of stock", product.Name)
		}

		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		order.Items = append(order.Items, domain.OrderItem{
			ID:          uuid.New().String(),
			OrderID:     order.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			Price:       product.Price,
		})
	}
	order.Subtotal = domain.RoundMoney(subtotal)
	if order.Subtotal.GreaterThan(domain.MaxOrderAmount) {
		return nil, nil, domain.InvalidRequest("Order amount exceeds the allowed maximum")
	}

	coupon := s.resolveCoupon(ctx, req.CouponCode, order.Subtotal, now)
	applyPricing(order, coupon)

	return order, coupon, nil
}

// resolveCoupon never fails the order: lookup errors and inapplicable
// coupons both mean no discount.
func (s *OrderService) resolveCoupon(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) *domain.Coupon {
	code = domain.NormalizeCouponCode(code)
	if code == "" {
		return nil
	}

	coupon, err := s.coupons.GetCouponByCode(ctx, code)
	if err != nil {
		s.logger.Warn().Err(err).Str("coupon", code).Msg("coupon lookup failed, ignoring coupon")
		return nil
	}
	if coupon == nil || !coupon.Applicable(subtotal, now) {
		s.logger.Debug().Str("coupon", code).Msg("coupon not applicable")
		return nil
	}
	return coupon
}

func applyPricing(order *domain.Order, coupon *domain.Coupon) {
	order.Discount = decimal.Zero
	order.CouponCode = nil
	if coupon != nil {
		order.Discount = coupon.Discount(order.Subtotal)
		code := coupon.Code
		order.CouponCode = &code
	}
	order.DeliveryCharge = domain.DeliveryCharge(order.Subtotal)
	order.Total = domain.OrderTotal(order.Subtotal, order.Discount, order.DeliveryCharge)
}

// persist writes the order. If the coupon was exhausted by the time of
// commit the order is re-priced without it and written again. Any other
// failure is returned as is.
func (s *OrderService) persist(ctx context.Context, order *domain.Order, coupon *domain.Coupon) error {
	if coupon == nil {
		return s.orders.CreateOrder(ctx, *order, "")
	}

	err := s.orders.CreateOrder(ctx, *order, coupon.ID)
	if !errors.Is(err, port.ErrCouponExhausted) {
		return err
	}

	s.logger.Info().Str("coupon", coupon.Code).Str("order_id", order.ID).Msg("coupon exhausted at commit, placing order without discount")
	applyPricing(order, nil)
	return s.orders.CreateOrder(ctx, *order, "")
}

func (s *OrderService) GetOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, domain.Forbidden("Access denied")
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	userID := actor.UserID
	if actor.IsAdmin() {
		userID = ""
	}
	orders, err := s.orders.ListOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus applies an admin or payment gateway update. Every supplied
// value must belong to its allowed set and follow the state machine.
func (s *OrderService) UpdateStatus(ctx context.Context, actor domain.Actor, orderID string, update domain.StatusUpdate) (*domain.Order, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Admin access required")
	}
	if update.Empty() {
		return nil, domain.InvalidRequest("No fields to update")
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, domain.InvalidRequest("Invalid order status %q", *update.Status)
	}
	if update.PaymentStatus != nil && !update.PaymentStatus.Valid() {
		return nil, domain.InvalidRequest("Invalid payment status %q", *update.PaymentStatus)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	statusChanged := update.Status != nil && *update.Status != order.Status
	if statusChanged && !order.Status.CanTransitionTo(*update.Status) {
		return nil, domain.InvalidRequest("Cannot change order status from %s to %s", order.Status, *update.Status)
	}
	paymentChanged := update.PaymentStatus != nil && *update.PaymentStatus != order.PaymentStatus
	if paymentChanged && !order.PaymentStatus.CanTransitionTo(*update.PaymentStatus) {
		return nil, domain.InvalidRequest("Cannot change payment status from %s to %s", order.PaymentStatus, *update.PaymentStatus)
	}

	if err := s.orders.UpdateOrderStatus(ctx, *order, update); err != nil {
		if errors.Is(err, port.ErrOptimisticLock) {
			return nil, domain.Conflict("Order was modified concurrently, please retry")
		}
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}

	if update.Status != nil {
		order.Status = *update.Status
	}
	if update.PaymentStatus != nil {
		order.PaymentStatus = *update.PaymentStatus
	}
	if update.RazorpayPaymentID != nil {
		order.RazorpayPaymentID = update.RazorpayPaymentID
	}
	if update.RazorpaySignature != nil {
		order.RazorpaySignature = update.RazorpaySignature
	}
	order.UpdatedAt = s.now()

	s.logger.Info().
		Str("order_id", order.ID).
		Str("status", string(order.Status)).
		Str("payment_status", string(order.PaymentStatus)).
		Str("actor", actor.UserID).
		Msg("order status updated")

	if statusChanged || paymentChanged {
		event := domain.NewOrderEvent(domain.EventOrderStatusChanged, order, order.UpdatedAt)
		s.enqueue(ctx, FollowUp{Event: &event})
	}

	return order, nil
}

// CancelOrder lets the owner or an admin cancel a pending or confirmed
// order. Coupon usage is not given back.
func (s *OrderService) CancelOrder(ctx context.Context, actor domain.Actor, orderID string) (*domain.Order, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, domain.Forbidden("Access denied")
	}
	if !order.Cancellable() {
		return nil, ErrNotCancellable
	}

	changed, err := s.orders.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	if !changed {
		// lost a race with another status change
		return nil, ErrNotCancellable
	}

	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = s.now()

	s.logger.Info().Str("order_id", order.ID).Str("actor", actor.UserID).Msg("order cancelled")

	event := domain.NewOrderEvent(domain.EventOrderCancelled, order, order.UpdatedAt)
	s.enqueue(ctx, FollowUp{Event: &event})

	return order, nil
}

func (s *OrderService) loadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, domain.InvalidRequest("Order id is required")
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// enqueue hands f to the worker pool, running it inline when the queue is
// full or closed.
func (s *OrderService) enqueue(ctx context.Context, f FollowUp) {
	s.mu.RLock()
	if !s.closed {
		select {
		case s.followUps <- f:
			s.mu.RUnlock()
			return
		default:
		}
	}
	s.mu.RUnlock()

	if s.processor == nil {
		return
	}
	s.logger.Warn().Msg("follow-up queue unavailable, running inline")
	inlineCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), followUpTimeout)
	defer cancel()
	_ = s.processor.Process(inlineCtx, f)
}
