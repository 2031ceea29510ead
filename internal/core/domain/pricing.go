package domain

import "github.com/shopspring/decimal"

var (
	// FreeShippingThreshold is the subtotal from which delivery is free.
	FreeShippingThreshold = decimal.NewFromInt(500)
	FlatDeliveryCharge    = decimal.NewFromInt(50)

	// MaxOrderAmount is the largest amount a DECIMAL(10,2) money column holds.
	MaxOrderAmount = decimal.RequireFromString("99999999.99")
)

// MaxItemQuantity bounds the quantity of a single line in a cart or order.
const MaxItemQuantity = 100

// RoundMoney rounds half away from zero to two decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DeliveryCharge depends on the subtotal only, never on the discount.
func DeliveryCharge(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.LessThan(FreeShippingThreshold) {
		return FlatDeliveryCharge
	}
	return decimal.Zero
}

func OrderTotal(subtotal, discount, delivery decimal.Decimal) decimal.Decimal {
	return RoundMoney(subtotal.Sub(discount).Add(delivery))
}
