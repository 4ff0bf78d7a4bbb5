package identity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pepcraft/storefront/internal/core/domain"
)

// refreshWindow is how close to expiry GetSession renews the token.
const refreshWindow = 5 * time.Minute

// Client is one client's connection to the Provider. It implements ports.AuthClient.
//
// Bus events are applied on the client's own delivery goroutine, in arrival
// order, so a slow listener only delays its own client.
type Client struct {
	id       string
	provider *Provider
	log      zerolog.Logger

	mu          sync.Mutex
	session     *domain.Session
	listeners   map[int]func(domain.AuthEvent)
	nextID      int
	unsubClient func()
	unsubUser   func()
	closed      bool

	inboxMu sync.Mutex
	inbox   []func()
	wake    chan struct{}
	done    chan struct{}
}

func newClient(id string, p *Provider, log zerolog.Logger) *Client {
	c := &Client{
		id:        id,
		provider:  p,
		log:       log,
		listeners: make(map[int]func(domain.AuthEvent)),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go c.deliver()
	c.unsubClient = p.bus.Subscribe(ClientTopic(id), c.handleClientEvent)
	return c
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	s, err := c.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.setSession(s)
	c.emit(domain.EventSignedIn, s)
	return s, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, meta domain.UserMetadata) (*domain.Session, error) {
	s, err := c.provider.SignUp(ctx, email, password, meta)
	if err != nil {
		return nil, err
	}
	c.setSession(s)
	c.emit(domain.EventSignedIn, s)
	return s, nil
}

func (c *Client) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	return c.provider.AuthorizeURL(ctx, c.id, provider, redirectTo)
}

// SignOut drops the local session first, then tells the user's other clients.
func (c *Client) SignOut(ctx context.Context) error {
	prev := c.setSession(nil)
	if prev == nil {
		return nil
	}
	c.emit(domain.EventSignedOut, nil)
	return c.provider.SignOut(ctx, c.id, prev)
}

// GetSession returns the current session. An expired session is dropped with a
// SIGNED_OUT event; one close to expiry is renewed with TOKEN_REFRESHED.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil, nil
	}

	now := c.provider.now()
	if s.Expired(now) {
		c.log.Info().Str("user_id", s.User.ID).Msg("session expired")
		c.setSession(nil)
		c.emit(domain.EventSignedOut, nil)
		return nil, nil
	}
	if s.ExpiresAt.Sub(now) > refreshWindow {
		return s, nil
	}

	renewed, err := c.provider.Refresh(ctx, s.AccessToken)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", s.User.ID).Msg("token refresh failed")
		return s, nil
	}
	c.setSession(renewed)
	c.emit(domain.EventTokenRefreshed, renewed)
	return renewed, nil
}

func (c *Client) OnAuthStateChange(fn func(domain.AuthEvent)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close stops every subscription and the delivery goroutine. Queued bus
// events are dropped. The session is not signed out.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	if c.unsubClient != nil {
		c.unsubClient()
	}
	if c.unsubUser != nil {
		c.unsubUser()
		c.unsubUser = nil
	}
	c.listeners = make(map[int]func(domain.AuthEvent))
	return nil
}

// handleClientEvent receives events addressed to this client, i.e. the
// completion of an OAuth redirect it started.
func (c *Client) handleClientEvent(ev domain.AuthEvent) {
	if ev.Type != domain.EventSignedIn || ev.Session == nil {
		return
	}
	c.enqueue(func() {
		c.setSession(ev.Session)
		c.emit(domain.EventSignedIn, ev.Session)
	})
}

// handleUserEvent receives events for the signed-in user from other clients.
func (c *Client) handleUserEvent(userID string) func(domain.AuthEvent) {
	return func(ev domain.AuthEvent) {
		if ev.Type != domain.EventSignedOut || ev.Origin == c.id {
			return
		}
		c.enqueue(func() {
			c.mu.Lock()
			current := c.session
			c.mu.Unlock()
			if current == nil || current.User.ID != userID {
				return
			}
			c.log.Info().Str("user_id", userID).Str("origin", ev.Origin).Msg("signed out elsewhere")
			c.setSession(nil)
			c.emit(domain.EventSignedOut, nil)
		})
	}
}

// enqueue hands fn to the delivery goroutine and returns at once.
func (c *Client) enqueue(fn func()) {
	c.inboxMu.Lock()
	c.inbox = append(c.inbox, fn)
	c.inboxMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Client) deliver() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}
		for fn := c.next(); fn != nil; fn = c.next() {
			select {
			case <-c.done:
				return
			default:
			}
			fn()
		}
	}
}

func (c *Client) next() func() {
	c.inboxMu.Lock()
	defer c.inboxMu.Unlock()
	if len(c.inbox) == 0 {
		return nil
	}
	fn := c.inbox[0]
	c.inbox[0] = nil
	c.inbox = c.inbox[1:]
	return fn
}

// setSession swaps the session and moves the user-topic subscription along
// with it. It returns the previous session.
func (c *Client) setSession(s *domain.Session) *domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.session
	c.session = s
	if c.closed {
		return prev
	}

	prevUser, nextUser := sessionUserID(prev), sessionUserID(s)
	if prevUser == nextUser && (c.unsubUser != nil || nextUser == "") {
		return prev
	}
	if c.unsubUser != nil {
		c.unsubUser()
		c.unsubUser = nil
	}
	if nextUser != "" {
		c.unsubUser = c.provider.bus.Subscribe(UserTopic(nextUser), c.handleUserEvent(nextUser))
	}
	return prev
}

func (c *Client) emit(t domain.AuthEventType, s *domain.Session) {
	ev := domain.AuthEvent{Type: t, Session: s, Origin: c.id, At: c.provider.now().UTC()}

	c.mu.Lock()
	fns := make([]func(domain.AuthEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func sessionUserID(s *domain.Session) string {
	if s == nil {
		return ""
	}
	return s.User.ID
}
