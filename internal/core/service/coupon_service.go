package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/port"
)

type CouponService struct {
	coupons port.CouponRepository
	logger  zerolog.Logger
	now     func() time.Time
}

func NewCouponService(coupons port.CouponRepository, logger zerolog.Logger) *CouponService {
	return &CouponService{
		coupons: coupons,
		logger:  logger.With().Str("component", "coupon_service").Logger(),
		now:     time.Now,
	}
}

// CreateCoupon stores a new coupon with a normalized code and zero usage.
func (s *CouponService) CreateCoupon(ctx context.Context, actor domain.Actor, c domain.Coupon) (*domain.Coupon, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Admin access required")
	}

	c.Code = domain.NormalizeCouponCode(c.Code)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.DiscountType == domain.DiscountFixed {
		c.MaxDiscount = nil
	}

	now := s.now()
	c.ID = uuid.New().String()
	c.UsedCount = 0
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.coupons.CreateCoupon(ctx, c); err != nil {
		if errors.Is(err, port.ErrDuplicateCoupon) {
			return nil, domain.Conflict("Coupon code %s already exists", c.Code)
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	s.logger.Info().Str("coupon", c.Code).Str("actor", actor.UserID).Msg("coupon created")
	return &c, nil
}

func (s *CouponService) ListCoupons(ctx context.Context, actor domain.Actor) ([]domain.Coupon, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	if !actor.IsAdmin() {
		return nil, domain.Forbidden("Admin access required")
	}
	coupons, err := s.coupons.ListCoupons(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}
