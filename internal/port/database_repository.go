package port

import (
	"context"
	"errors"

	"github.com/rl1809/sweetshop/internal/core/domain"
)

var (
	// ErrCouponExhausted is returned when a coupon can no longer be claimed
	// (usage limit reached or deactivated) at commit time.
	ErrCouponExhausted = errors.New("coupon exhausted")

	// ErrDuplicateCoupon is returned when a coupon code already exists.
	ErrDuplicateCoupon = errors.New("duplicate coupon code")

	// ErrOptimisticLock is returned when the row changed since it was read.
	ErrOptimisticLock = errors.New("optimistic lock conflict")
)

type ProductRepository interface {
	// GetProduct returns nil, nil when the product does not exist
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)

	// ListProducts returns all products, filtered by category when non-empty
	ListProducts(ctx context.Context, category string) ([]domain.Product, error)
}

type CouponRepository interface {
	// GetCouponByCode looks a coupon up by its normalized code, nil, nil when absent
	GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// CreateCoupon stores a new coupon, ErrDuplicateCoupon when the code is taken
	CreateCoupon(ctx context.Context, coupon domain.Coupon) error

	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
}

type OrderRepository interface {
	// CreateOrder persists the order and its items in one transaction. When
	// couponID is non-empty the coupon usage is claimed inside the same
	// transaction with a conditional increment; ErrCouponExhausted rolls the
	// whole transaction back.
	CreateOrder(ctx context.Context, order domain.Order, couponID string) error

	// GetOrder returns the order with its items, nil, nil when absent
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// ListOrders returns orders newest first; an empty userID lists every order
	ListOrders(ctx context.Context, userID string) ([]domain.Order, error)

	// UpdateOrderStatus writes the update only if status and payment status
	// still equal those of current, ErrOptimisticLock otherwise
	UpdateOrderStatus(ctx context.Context, current domain.Order, update domain.StatusUpdate) error

	// CancelOrder moves a pending or confirmed order to cancelled and reports
	// whether a row was changed
	CancelOrder(ctx context.Context, orderID string) (bool, error)
}
