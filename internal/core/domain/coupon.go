package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

type Coupon struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	MinOrderValue *decimal.Decimal
	MaxDiscount   *decimal.Decimal // percentage coupons only
	UsageLimit    *int
	UsedCount     int
	ValidFrom     time.Time
	ValidTo       time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeCouponCode upper-cases and trims a code. Codes are compared
// case-insensitively everywhere by normalizing first.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the invariants a coupon must satisfy before it is stored.
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return InvalidRequest("Coupon code is required")
	}
	if !c.DiscountType.Valid() {
		return InvalidRequest("Invalid discount type %q", c.DiscountType)
	}
	if !c.DiscountValue.IsPositive() {
		return InvalidRequest("Discount value must be greater than 0")
	}
	if c.DiscountType == DiscountPercentage && c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
		return InvalidRequest("Percentage discount cannot exceed 100")
	}
	if c.MinOrderValue != nil && c.MinOrderValue.IsNegative() {
		return InvalidRequest("Minimum order value cannot be negative")
	}
	if c.MaxDiscount != nil && !c.MaxDiscount.IsPositive() {
		return InvalidRequest("Maximum discount must be greater than 0")
	}
	if c.UsageLimit != nil && *c.UsageLimit < 1 {
		return InvalidRequest("Usage limit must be at least 1")
	}
	if c.ValidFrom.IsZero() || c.ValidTo.IsZero() {
		return InvalidRequest("Validity window is required")
	}
	if c.ValidTo.Before(c.ValidFrom) {
		return InvalidRequest("Coupon validTo must not be before validFrom")
	}
	return nil
}

// Applicable reports whether the coupon may be redeemed against an order
// with the given subtotal at instant now.
func (c *Coupon) Applicable(subtotal decimal.Decimal, now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidTo) {
		return false
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false
	}
	minOrder := decimal.Zero
	if c.MinOrderValue != nil {
		minOrder = *c.MinOrderValue
	}
	return subtotal.GreaterThanOrEqual(minOrder)
}

// Discount computes the discount granted on subtotal. Percentage discounts
// are clamped to MaxDiscount; fixed discounts are clamped to the subtotal so
// an order total never drops below its delivery charge.
func (c *Coupon) Discount(subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		discount = RoundMoney(subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)))
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
	case DiscountFixed:
		discount = c.DiscountValue
		if discount.GreaterThan(subtotal) {
			discount = subtotal
		}
	}
	return RoundMoney(discount)
}
