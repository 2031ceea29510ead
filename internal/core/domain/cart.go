package domain

// CartItem is one line of a user's cart. Each user owns exactly one cart,
// keyed by the user id.
type CartItem struct {
	ProductID string
	Quantity  int
}

type Cart struct {
	UserID string
	Items  []CartItem
}
