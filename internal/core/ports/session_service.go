package ports

import (
	"context"

	"github.com/pepcraft/storefront/internal/core/domain"
)

// SessionState is what the view renders for the current visitor.
type SessionState struct {
	User          *domain.User
	Authenticated bool
	AuthModalOpen bool
	AuthMode      domain.AuthMode
}

// SessionService owns "who is logged in" for one client. No method returns an
// error: failures are logged and reported as false / no-op.
type SessionService interface {
	Login(ctx context.Context, email, password string) bool
	Signup(ctx context.Context, name, email, password string) bool
	// LoginWithGoogle returns the provider URL to redirect to, or "" on failure.
	LoginWithGoogle(ctx context.Context, redirectTo string) string
	Logout(ctx context.Context)
	// Refresh re-reads the backend session so an expired one is noticed.
	Refresh(ctx context.Context)
	State() SessionState
	SetAuthModal(open bool, mode domain.AuthMode)
}

// UserSource exposes the current user id to dependents of the session.
type UserSource interface {
	// UserID returns "" when anonymous.
	UserID() string
	// OnUserChange calls fn after every change of the current user identity.
	OnUserChange(fn func(prev, next *domain.User)) (unsubscribe func())
}
