package ports

import (
	"context"

	"github.com/pepcraft/storefront/internal/core/domain"
)

// AuthClient is one client's connection to the identity backend. It holds that
// client's session and notifies subscribers of every auth-state change,
// including ones that originate elsewhere (OAuth redirect completion, expiry,
// sign-out from another tab).
type AuthClient interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignUp(ctx context.Context, email, password string, meta domain.UserMetadata) (*domain.Session, error)
	// SignInWithOAuth starts a federated redirect flow and returns the URL to
	// send the visitor to. The session arrives later as a SIGNED_IN event.
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	SignOut(ctx context.Context) error
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*domain.Session, error)
	// OnAuthStateChange registers fn and returns a function that removes it.
	OnAuthStateChange(fn func(domain.AuthEvent)) (unsubscribe func())
	Close() error
}

// AuthEventBus carries auth events between processes and clients.
type AuthEventBus interface {
	Publish(ctx context.Context, topic string, event domain.AuthEvent) error
	Subscribe(topic string, fn func(domain.AuthEvent)) (unsubscribe func())
}

// AuthUserRepository persists the identity backend's account records.
type AuthUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.AuthUser, error)
	FindByID(ctx context.Context, id string) (*domain.AuthUser, error)
	Create(ctx context.Context, user *domain.AuthUser) (*domain.AuthUser, error)
	UpdateMetadata(ctx context.Context, id string, meta domain.UserMetadata) error
}

// OAuthState is what a pending federated login remembers between the redirect
// and the callback.
type OAuthState struct {
	ClientID   string `json:"client_id"`
	RedirectTo string `json:"redirect_to"`
	Provider   string `json:"provider"`
}

// OAuthStateStore keeps pending OAuth states. Take must return each state at
// most once.
type OAuthStateStore interface {
	Save(ctx context.Context, state string, value OAuthState) error
	Take(ctx context.Context, state string) (*OAuthState, error)
}
