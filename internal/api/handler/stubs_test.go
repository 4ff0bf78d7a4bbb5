package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

type stubSession struct {
	state      ports.SessionState
	loginOK    bool
	signupOK   bool
	googleURL  string
	redirectTo string
	refreshed  int
	logouts    int
}

func (s *stubSession) Login(_ context.Context, email, _ string) bool {
	if s.loginOK {
		s.state.Authenticated = true
		s.state.User = &domain.User{ID: "u1", Email: email, Name: "Ana"}
	}
	return s.loginOK
}

func (s *stubSession) Signup(_ context.Context, name, email, _ string) bool {
	if s.signupOK {
		s.state.Authenticated = true
		s.state.User = &domain.User{ID: "u2", Email: email, Name: name}
	}
	return s.signupOK
}

func (s *stubSession) LoginWithGoogle(_ context.Context, redirectTo string) string {
	s.redirectTo = redirectTo
	return s.googleURL
}

func (s *stubSession) Logout(context.Context) {
	s.logouts++
	s.state.Authenticated = false
	s.state.User = nil
}

func (s *stubSession) Refresh(context.Context) { s.refreshed++ }

func (s *stubSession) State() ports.SessionState { return s.state }

func (s *stubSession) SetAuthModal(open bool, mode domain.AuthMode) {
	s.state.AuthModalOpen = open
	if mode != "" {
		s.state.AuthMode = mode
	}
}

type stubCart struct {
	cart  *domain.Cart
	panel bool
}

func newStubCart() *stubCart { return &stubCart{cart: domain.NewCart(nil)} }

func (s *stubCart) AddToCart(item domain.CartItem) {
	s.cart.Add(item)
	s.panel = true
}

func (s *stubCart) RemoveFromCart(productID string) { s.cart.Remove(productID) }

func (s *stubCart) UpdateQuantity(productID string, quantity int) {
	s.cart.SetQuantity(productID, quantity)
}

func (s *stubCart) ClearCart()             { s.cart.Clear() }
func (s *stubCart) SetPanelOpen(open bool) { s.panel = open }

func (s *stubCart) View() ports.CartView {
	return ports.CartView{
		Items:      s.cart.Items(),
		TotalItems: s.cart.TotalItems(),
		TotalPrice: s.cart.TotalPrice(),
		PanelOpen:  s.panel,
	}
}

type stubWorkspace struct {
	session *stubSession
	cart    *stubCart
}

func newStubWorkspace() *stubWorkspace {
	return &stubWorkspace{session: &stubSession{state: ports.SessionState{AuthMode: domain.AuthModeLogin}}, cart: newStubCart()}
}

func (w *stubWorkspace) ID() string                     { return "client-1" }
func (w *stubWorkspace) Session() ports.SessionService { return w.session }
func (w *stubWorkspace) Cart() ports.CartService       { return w.cart }

// newContext builds an echo context for method/target with an optional JSON
// body. A nil ws leaves the context without a workspace.
func newContext(method, target, body string, ws ports.Workspace) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if ws != nil {
		c.Set(WorkspaceKey, ws)
	}
	return c, rec
}

func wantHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if he.Code != code {
		t.Fatalf("expected %d, got %d (%v)", code, he.Code, he.Message)
	}
}
