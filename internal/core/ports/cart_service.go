package ports

import "github.com/pepcraft/storefront/internal/core/domain"

// CartView is the cart as rendered; totals are recomputed on every call.
type CartView struct {
	Items      []domain.CartItem
	TotalItems int
	TotalPrice int64
	PanelOpen  bool
}

// CartService owns one client's cart. Mutators update local state
// immediately and persist in the background when a user is signed in.
type CartService interface {
	AddToCart(item domain.CartItem)
	RemoveFromCart(productID string)
	UpdateQuantity(productID string, quantity int)
	ClearCart()
	SetPanelOpen(open bool)
	View() CartView
}

// Workspace groups the stores of one client.
type Workspace interface {
	ID() string
	Session() SessionService
	Cart() CartService
}
