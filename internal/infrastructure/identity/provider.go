package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"

	minPasswordLength = 6
	defaultTokenTTL   = 24 * time.Hour

	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

// ClientTopic carries events addressed to one client, such as OAuth completion.
func ClientTopic(clientID string) string { return "auth:client:" + clientID }

// UserTopic carries events that concern every client of a user, such as sign-out.
func UserTopic(userID string) string { return "auth:user:" + userID }

// Config holds the provider's signing and federation settings. OAuth may be nil,
// in which case federated sign-in reports domain.ErrOAuthNotConfigured.
type Config struct {
	JWTSecret   string
	TokenTTL    time.Duration
	OAuth       *oauth2.Config
	UserInfoURL string
}

// Provider is the identity backend: password accounts, signed sessions and the
// Google authorization-code flow. Per-client state lives in Client.
type Provider struct {
	users  ports.AuthUserRepository
	states ports.OAuthStateStore
	bus    ports.AuthEventBus
	log    zerolog.Logger

	jwtSecret   []byte
	tokenTTL    time.Duration
	oauth       *oauth2.Config
	userInfoURL string
	now         func() time.Time
}

func NewProvider(users ports.AuthUserRepository, states ports.OAuthStateStore, bus ports.AuthEventBus, cfg Config, log zerolog.Logger) *Provider {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	infoURL := cfg.UserInfoURL
	if infoURL == "" {
		infoURL = googleUserInfoURL
	}
	return &Provider{
		users:       users,
		states:      states,
		bus:         bus,
		log:         log,
		jwtSecret:   []byte(cfg.JWTSecret),
		tokenTTL:    ttl,
		oauth:       cfg.OAuth,
		userInfoURL: infoURL,
		now:         time.Now,
	}
}

// NewClient returns the auth client for clientID, already listening on its topic.
func (p *Provider) NewClient(clientID string) *Client {
	return newClient(clientID, p, p.log.With().Str("client_id", clientID).Logger())
}

// SignUp creates a password account and signs it in.
func (p *Provider) SignUp(ctx context.Context, email, password string, meta domain.UserMetadata) (*domain.Session, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	user, err := p.users.Create(ctx, &domain.AuthUser{
		ID:           uuid.NewString(),
		Email:        email,
		Provider:     ProviderEmail,
		PasswordHash: string(hash),
		Metadata:     meta,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}
	return p.issue(*user)
}

// SignInWithPassword checks the credentials. An unknown email and a wrong
// password both yield domain.ErrInvalidCredentials.
func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	return p.issue(*user)
}

// Verify parses an access token and returns the session it stands for.
func (p *Provider) Verify(ctx context.Context, token string) (*domain.Session, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return p.jwtSecret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}

	user, err := p.users.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	return &domain.Session{AccessToken: token, ExpiresAt: claims.ExpiresAt.Time, User: *user}, nil
}

// Refresh exchanges a still-valid token for a new one with a fresh expiry.
func (p *Provider) Refresh(ctx context.Context, token string) (*domain.Session, error) {
	current, err := p.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return p.issue(current.User)
}

// AuthorizeURL starts a federated login for clientID. The returned URL sends
// the visitor to the provider's consent page.
func (p *Provider) AuthorizeURL(ctx context.Context, clientID, provider, redirectTo string) (string, error) {
	if provider != ProviderGoogle {
		return "", domain.ErrUnsupportedProvider
	}
	if p.oauth == nil {
		return "", domain.ErrOAuthNotConfigured
	}

	state := uuid.NewString()
	err := p.states.Save(ctx, state, ports.OAuthState{ClientID: clientID, RedirectTo: redirectTo, Provider: provider})
	if err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// CompleteOAuth finishes the callback: it consumes state, exchanges code, signs
// in the matching account (creating it on first login) and notifies the
// originating client. It returns where the visitor should land.
func (p *Provider) CompleteOAuth(ctx context.Context, state, code string) (string, error) {
	if p.oauth == nil {
		return "", domain.ErrOAuthNotConfigured
	}
	pending, err := p.states.Take(ctx, state)
	if err != nil {
		return "", err
	}
	if pending == nil {
		return "", domain.ErrInvalidOAuthState
	}

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return pending.RedirectTo, fmt.Errorf("oauth exchange: %w", err)
	}
	info, err := p.fetchUserInfo(ctx, tok)
	if err != nil {
		return pending.RedirectTo, err
	}

	user, err := p.findOrCreateFederated(ctx, pending.Provider, info)
	if err != nil {
		return pending.RedirectTo, err
	}
	session, err := p.issue(*user)
	if err != nil {
		return pending.RedirectTo, err
	}

	ev := domain.AuthEvent{Type: domain.EventSignedIn, Session: session, At: p.now().UTC()}
	if err := p.bus.Publish(ctx, ClientTopic(pending.ClientID), ev); err != nil {
		return pending.RedirectTo, fmt.Errorf("publish sign-in: %w", err)
	}
	p.log.Info().Str("client_id", pending.ClientID).Str("user_id", user.ID).Str("provider", pending.Provider).Msg("oauth sign-in completed")
	return pending.RedirectTo, nil
}

// SignOut ends the session for every client of its user. origin is the client
// that asked for it.
func (p *Provider) SignOut(ctx context.Context, origin string, session *domain.Session) error {
	if session == nil {
		return nil
	}
	ev := domain.AuthEvent{Type: domain.EventSignedOut, Origin: origin, At: p.now().UTC()}
	if err := p.bus.Publish(ctx, UserTopic(session.User.ID), ev); err != nil {
		return fmt.Errorf("publish sign-out: %w", err)
	}
	return nil
}

func (p *Provider) fetchUserInfo(ctx context.Context, tok *oauth2.Token) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("userinfo: missing email")
	}
	if !info.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}
	return &info, nil
}

// findOrCreateFederated only signs in accounts created by the same provider.
// An email held by a password account is never linked automatically.
func (p *Provider) findOrCreateFederated(ctx context.Context, provider string, info *googleUserInfo) (*domain.AuthUser, error) {
	email := normalizeEmail(info.Email)
	meta := domain.UserMetadata{FullName: info.Name, AvatarURL: info.Picture}

	user, err := p.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Provider != provider {
			p.log.Warn().Str("user_id", user.ID).Str("provider", provider).Str("account_provider", user.Provider).Msg("federated login matched another provider's account")
			return nil, domain.ErrAccountExists
		}
		if user.Metadata != meta {
			if err := p.users.UpdateMetadata(ctx, user.ID, meta); err != nil {
				p.log.Warn().Err(err).Str("user_id", user.ID).Msg("metadata update failed")
			} else {
				user.Metadata = meta
			}
		}
		return user, nil
	case errors.Is(err, domain.ErrUserNotFound):
		now := p.now().UTC()
		return p.users.Create(ctx, &domain.AuthUser{
			ID:        uuid.NewString(),
			Email:     email,
			Provider:  provider,
			Metadata:  meta,
			CreatedAt: now,
			UpdatedAt: now,
		})
	default:
		return nil, err
	}
}

func (p *Provider) issue(user domain.AuthUser) (*domain.Session, error) {
	now := p.now()
	exp := now.Add(p.tokenTTL)
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(p.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	user.PasswordHash = ""
	return &domain.Session{AccessToken: signed, ExpiresAt: time.Unix(exp.Unix(), 0), User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
