package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/core/service"
)

// Wire types shared by the HTTP API and the JSON-coded gRPC API.

type OrderLineDTO struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	Items          []OrderLineDTO `json:"items"`
	AddressID      string         `json:"addressId"`
	PaymentMethod  string         `json:"paymentMethod"`
	CouponCode     string         `json:"couponCode,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	IdempotencyKey string         `json:"idempotencyKey,omitempty"`
}

func (r CreateOrderRequest) toService() service.CreateOrderRequest {
	lines := make([]service.OrderLine, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, service.OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return service.CreateOrderRequest{
		Items:          lines,
		AddressID:      r.AddressID,
		PaymentMethod:  domain.PaymentMethod(r.PaymentMethod),
		CouponCode:     r.CouponCode,
		Notes:          r.Notes,
		IdempotencyKey: r.IdempotencyKey,
	}
}

type UpdateOrderStatusRequest struct {
	Status            *string `json:"status,omitempty"`
	PaymentStatus     *string `json:"paymentStatus,omitempty"`
	RazorpayPaymentID *string `json:"razorpayPaymentId,omitempty"`
	RazorpaySignature *string `json:"razorpaySignature,omitempty"`
}

func (r UpdateOrderStatusRequest) toDomain() domain.StatusUpdate {
	var u domain.StatusUpdate
	if r.Status != nil {
		s := domain.OrderStatus(*r.Status)
		u.Status = &s
	}
	if r.PaymentStatus != nil {
		p := domain.PaymentStatus(*r.PaymentStatus)
		u.PaymentStatus = &p
	}
	u.RazorpayPaymentID = r.RazorpayPaymentID
	u.RazorpaySignature = r.RazorpaySignature
	return u
}

type OrderItemDTO struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type OrderDTO struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	OrderNumber       string          `json:"orderNumber"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Discount          decimal.Decimal `json:"discount"`
	DeliveryCharge    decimal.Decimal `json:"deliveryCharge"`
	Total             decimal.Decimal `json:"total"`
	Status            string          `json:"status"`
	PaymentMethod     string          `json:"paymentMethod"`
	PaymentStatus     string          `json:"paymentStatus"`
	AddressID         string          `json:"addressId"`
	CouponCode        *string         `json:"couponCode"`
	Notes             string          `json:"notes,omitempty"`
	RazorpayPaymentID *string         `json:"razorpayPaymentId,omitempty"`
	Items             []OrderItemDTO  `json:"items"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func toOrderDTO(o *domain.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		})
	}
	return OrderDTO{
		ID:                o.ID,
		UserID:            o.UserID,
		OrderNumber:       o.OrderNumber,
		Subtotal:          o.Subtotal,
		Discount:          o.Discount,
		DeliveryCharge:    o.DeliveryCharge,
		Total:             o.Total,
		Status:            string(o.Status),
		PaymentMethod:     string(o.PaymentMethod),
		PaymentStatus:     string(o.PaymentStatus),
		AddressID:         o.AddressID,
		CouponCode:        o.CouponCode,
		Notes:             o.Notes,
		RazorpayPaymentID: o.RazorpayPaymentID,
		Items:             items,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

type OrderReply struct {
	Order   OrderDTO `json:"order"`
	Message string   `json:"message,omitempty"`
}

type ProductDTO struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Category      string           `json:"category"`
	InStock       bool             `json:"inStock"`
}

func toProductDTO(p domain.Product) ProductDTO {
	return ProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Category:      p.Category,
		InStock:       p.InStock,
	}
}

type CartLineDTO struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	InStock   bool            `json:"inStock"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type CartDTO struct {
	Items          []CartLineDTO   `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	Total          decimal.Decimal `json:"total"`
}

func toCartDTO(v *service.CartView) CartDTO {
	lines := make([]CartLineDTO, 0, len(v.Items))
	for _, l := range v.Items {
		lines = append(lines, CartLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			InStock:   l.InStock,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal,
		})
	}
	return CartDTO{Items: lines, Subtotal: v.Subtotal, DeliveryCharge: v.DeliveryCharge, Total: v.Total}
}

type CartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CouponDTO struct {
	ID            string           `json:"id,omitempty"`
	Code          string           `json:"code"`
	DiscountType  string           `json:"discountType"`
	DiscountValue decimal.Decimal  `json:"discountValue"`
	MinOrderValue *decimal.Decimal `json:"minOrderValue,omitempty"`
	MaxDiscount   *decimal.Decimal `json:"maxDiscount,omitempty"`
	UsageLimit    *int             `json:"usageLimit,omitempty"`
	UsedCount     int              `json:"usedCount"`
	ValidFrom     time.Time        `json:"validFrom"`
	ValidTo       time.Time        `json:"validTo"`
	IsActive      *bool            `json:"isActive,omitempty"`
}

func (c CouponDTO) toDomain() domain.Coupon {
	active := true
	if c.IsActive != nil {
		active = *c.IsActive
	}
	return domain.Coupon{
		Code:          c.Code,
		DiscountType:  domain.DiscountType(c.DiscountType),
		DiscountValue: c.DiscountValue,
		MinOrderValue: c.MinOrderValue,
		MaxDiscount:   c.MaxDiscount,
		UsageLimit:    c.UsageLimit,
		ValidFrom:     c.ValidFrom,
		ValidTo:       c.ValidTo,
		IsActive:      active,
	}
}

func toCouponDTO(c domain.Coupon) CouponDTO {
	active := c.IsActive
	return CouponDTO{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  string(c.DiscountType),
		DiscountValue: c.DiscountValue,
		MinOrderValue: c.MinOrderValue,
		MaxDiscount:   c.MaxDiscount,
		UsageLimit:    c.UsageLimit,
		UsedCount:     c.UsedCount,
		ValidFrom:     c.ValidFrom,
		ValidTo:       c.ValidTo,
		IsActive:      &active,
	}
}
