package handler

import (
	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Session ---

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type authModalRequest struct {
	Open bool   `json:"open"`
	Mode string `json:"mode" validate:"omitempty,oneof=login signup"`
}

type sessionResponse struct {
	User          *domain.User `json:"user"`
	Authenticated bool         `json:"authenticated"`
	AuthModalOpen bool         `json:"auth_modal_open"`
	AuthMode      string       `json:"auth_mode"`
}

type oauthURLResponse struct {
	URL string `json:"url"`
}

func toSessionResponse(st ports.SessionState) sessionResponse {
	return sessionResponse{
		User:          st.User,
		Authenticated: st.Authenticated,
		AuthModalOpen: st.AuthModalOpen,
		AuthMode:      string(st.AuthMode),
	}
}

// --- Cart ---

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=99"`
}

type cartPanelRequest struct {
	Open bool `json:"open"`
}

type cartResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice int64             `json:"total_price"`
	PanelOpen  bool              `json:"panel_open"`
}

func toCartResponse(v ports.CartView) cartResponse {
	items := v.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResponse{
		Items:      items,
		TotalItems: v.TotalItems,
		TotalPrice: v.TotalPrice,
		PanelOpen:  v.PanelOpen,
	}
}

// --- Catalog ---

type productListResponse struct {
	Category   string           `json:"category"`
	Categories []string         `json:"categories"`
	Fragment   string           `json:"fragment"`
	Products   []domain.Product `json:"products"`
}

// --- Newsletter ---

type newsletterRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type newsletterResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
