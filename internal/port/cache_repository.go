package port

import (
	"context"

	"github.com/rl1809/sweetshop/internal/core/domain"
)

type CartRepository interface {
	// GetCart returns the items of the user's cart, empty when none
	GetCart(ctx context.Context, userID string) ([]domain.CartItem, error)

	// AddItem increases the quantity of a product in the cart by quantity
	AddItem(ctx context.Context, userID, productID string, quantity int) (int, error)

	// SetItem overwrites the quantity of a product in the cart
	SetItem(ctx context.Context, userID, productID string, quantity int) error

	// RemoveItem drops a product from the cart, reports whether it was present
	RemoveItem(ctx context.Context, userID, productID string) (bool, error)

	// ClearCart deletes every item of the user's cart
	ClearCart(ctx context.Context, userID string) error
}

type IdempotencyStore interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency frees a key so the request can be retried
	ReleaseIdempotency(ctx context.Context, key string) error
}
