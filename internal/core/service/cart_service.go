package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rl1809/sweetshop/internal/core/domain"
	"github.com/rl1809/sweetshop/internal/port"
)

type CartLine struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	InStock   bool
	Quantity  int
	LineTotal decimal.Decimal
}

// CartView is the cart priced against the live catalog. The delivery
// charge is a preview; the order is re-priced at checkout.
type CartView struct {
	UserID         string
	Items          []CartLine
	Subtotal       decimal.Decimal
	DeliveryCharge decimal.Decimal
	Total          decimal.Decimal
}

type CartService struct {
	cart     port.CartRepository
	products port.ProductRepository
	logger   zerolog.Logger
}

func NewCartService(cart port.CartRepository, products port.ProductRepository, logger zerolog.Logger) *CartService {
	return &CartService{
		cart:     cart,
		products: products,
		logger:   logger.With().Str("component", "cart_service").Logger(),
	}
}

func (s *CartService) GetCart(ctx context.Context, actor domain.Actor) (*CartView, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	items, err := s.cart.GetCart(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	view := &CartView{UserID: actor.UserID, Items: make([]CartLine, 0, len(items))}
	subtotal := decimal.Zero
	for _, item := range items {
		p, err := s.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product %s: %w", item.ProductID, err)
		}
		if p == nil {
			// removed from the catalog since it was added
			s.logger.Debug().Str("product_id", item.ProductID).Msg("skipping unknown cart product")
			continue
		}
		line := domain.RoundMoney(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		view.Items = append(view.Items, CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			InStock:   p.InStock,
			Quantity:  item.Quantity,
			LineTotal: line,
		})
		subtotal = subtotal.Add(line)
	}

	view.Subtotal = domain.RoundMoney(subtotal)
	if len(view.Items) > 0 {
		view.DeliveryCharge = domain.DeliveryCharge(view.Subtotal)
	}
	view.Total = domain.OrderTotal(view.Subtotal, decimal.Zero, view.DeliveryCharge)
	return view, nil
}

func (s *CartService) AddItem(ctx context.Context, actor domain.Actor, productID string, quantity int) (*CartView, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	if quantity < 1 || quantity > domain.MaxItemQuantity {
		return nil, domain.InvalidRequest("Quantity must be between 1 and %d", domain.MaxItemQuantity)
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	total, err := s.cart.AddItem(ctx, actor.UserID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("add cart item: %w", err)
	}
	if total > domain.MaxItemQuantity {
		if _, err := s.cart.AddItem(ctx, actor.UserID, productID, -quantity); err != nil {
			return nil, fmt.Errorf("revert cart item: %w", err)
		}
		return nil, domain.InvalidRequest("Quantity must be between 1 and %d", domain.MaxItemQuantity)
	}
	return s.GetCart(ctx, actor)
}

func (s *CartService) UpdateItem(ctx context.Context, actor domain.Actor, productID string, quantity int) (*CartView, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	if quantity < 1 || quantity > domain.MaxItemQuantity {
		return nil, domain.InvalidRequest("Quantity must be between 1 and %d", domain.MaxItemQuantity)
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	if err := s.cart.SetItem(ctx, actor.UserID, productID, quantity); err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return s.GetCart(ctx, actor)
}

func (s *CartService) RemoveItem(ctx context.Context, actor domain.Actor, productID string) (*CartView, error) {
	if !actor.Authenticated() {
		return nil, domain.Unauthenticated("Authentication required")
	}
	removed, err := s.cart.RemoveItem(ctx, actor.UserID, productID)
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	if !removed {
		return nil, domain.NotFound("Product %s is not in the cart", productID)
	}
	return s.GetCart(ctx, actor)
}

func (s *CartService) Clear(ctx context.Context, actor domain.Actor) error {
	if !actor.Authenticated() {
		return domain.Unauthenticated("Authentication required")
	}
	if err := s.cart.ClearCart(ctx, actor.UserID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *CartService) requireProduct(ctx context.Context, productID string) error {
	if productID == "" {
		return domain.InvalidRequest("Product id is required")
	}
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("get product %s: %w", productID, err)
	}
	if p == nil {
		return domain.NotFound("Product %s not found", productID)
	}
	if !p.InStock {
		return domain.InvalidRequest("Product %s is out of stock", p.Name)
	}
	return nil
}
