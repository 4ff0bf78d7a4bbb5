package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

// GoogleProvider is the federated provider name used by LoginWithGoogle.
const GoogleProvider = "google"

const defaultEventTimeout = 10 * time.Second

// SessionStore is the single source of truth for the visitor's identity on
// one client. The user is replaced wholesale on every transition.
type SessionStore struct {
	auth     ports.AuthClient
	profiles ports.ProfileRepository
	log      zerolog.Logger

	// eventTimeout bounds profile resolution triggered by auth events, which
	// have no caller context.
	eventTimeout time.Duration

	mu        sync.RWMutex
	user      *domain.User
	modalOpen bool
	mode      domain.AuthMode

	lmu       sync.Mutex
	listeners map[int]func(prev, next *domain.User)
	nextID    int

	// flight collapses concurrent profile resolution for the same user id.
	flight singleflight.Group

	unsubscribe func()
}

func NewSessionStore(auth ports.AuthClient, profiles ports.ProfileRepository, log zerolog.Logger) *SessionStore {
	return &SessionStore{
		auth:         auth,
		profiles:     profiles,
		log:          log,
		eventTimeout: defaultEventTimeout,
		mode:         domain.AuthModeLogin,
		listeners:    make(map[int]func(prev, next *domain.User)),
	}
}

// Start subscribes to auth-state changes and restores a prior session.
func (s *SessionStore) Start(ctx context.Context) {
	s.unsubscribe = s.auth.OnAuthStateChange(s.handleEvent)

	session, err := s.auth.GetSession(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session check failed")
		return
	}
	if session != nil {
		s.adopt(ctx, session, false)
	}
}

// Close stops listening for auth events.
func (s *SessionStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *SessionStore) handleEvent(ev domain.AuthEvent) {
	s.log.Debug().Str("event", string(ev.Type)).Str("origin", ev.Origin).Msg("auth state changed")

	if ev.Type == domain.EventSignedOut || ev.Session == nil {
		s.setUser(nil)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.eventTimeout)
	defer cancel()
	s.adopt(ctx, ev.Session, ev.Type == domain.EventUserUpdated)
}

// Login signs in with email and password. Every failure cause is reported the
// same way: false.
func (s *SessionStore) Login(ctx context.Context, email, password string) bool {
	session, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("login failed")
		return false
	}
	if session == nil {
		return false
	}

	s.adopt(ctx, session, false)
	s.closeModal()
	s.log.Info().Str("user_id", session.User.ID).Msg("logged in")
	return true
}

// Signup creates the account and its profile row, then behaves like Login.
func (s *SessionStore) Signup(ctx context.Context, name, email, password string) bool {
	session, err := s.auth.SignUp(ctx, email, password, domain.UserMetadata{FullName: name})
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("signup failed")
		return false
	}
	if session == nil {
		return false
	}

	if _, err := s.profiles.Create(ctx, domain.ProfileSeed(session.User, name)); err != nil {
		s.log.Warn().Err(err).Str("user_id", session.User.ID).Msg("profile creation failed")
	}

	// Forced: an auth event may already have resolved the profile before the
	// explicit row above existed.
	s.adopt(ctx, session, true)
	s.closeModal()
	s.log.Info().Str("user_id", session.User.ID).Msg("signed up")
	return true
}

// LoginWithGoogle starts the federated redirect flow. Local state changes
// only when the resulting SIGNED_IN event arrives.
func (s *SessionStore) LoginWithGoogle(ctx context.Context, redirectTo string) string {
	url, err := s.auth.SignInWithOAuth(ctx, GoogleProvider, redirectTo)
	if err != nil {
		s.log.Warn().Err(err).Msg("google login failed")
		return ""
	}
	return url
}

// Logout signs out remotely and clears the local user whatever the outcome.
func (s *SessionStore) Logout(ctx context.Context) {
	if err := s.auth.SignOut(ctx); err != nil {
		s.log.Warn().Err(err).Msg("backend sign-out failed")
	}
	s.setUser(nil)
	s.log.Info().Msg("logged out")
}

// Refresh re-reads the backend session; an expired session signs the client out.
func (s *SessionStore) Refresh(ctx context.Context) {
	session, err := s.auth.GetSession(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session refresh failed")
		return
	}
	if session == nil {
		s.setUser(nil)
		return
	}
	s.adopt(ctx, session, false)
}

func (s *SessionStore) State() ports.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := ports.SessionState{
		Authenticated: s.user != nil,
		AuthModalOpen: s.modalOpen,
		AuthMode:      s.mode,
	}
	if s.user != nil {
		u := *s.user
		st.User = &u
	}
	return st
}

// SetAuthModal shows or hides the auth modal. An invalid mode keeps the
// current one.
func (s *SessionStore) SetAuthModal(open bool, mode domain.AuthMode) {
	s.mu.Lock()
	s.modalOpen = open
	if mode.Valid() {
		s.mode = mode
	}
	s.mu.Unlock()
}

func (s *SessionStore) closeModal() {
	s.mu.Lock()
	s.modalOpen = false
	s.mu.Unlock()
}

// UserID implements ports.UserSource.
func (s *SessionStore) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

// OnUserChange implements ports.UserSource. Listeners run synchronously on the
// goroutine that changed the user.
func (s *SessionStore) OnUserChange(fn func(prev, next *domain.User)) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

// adopt resolves the profile for session and makes it the current user. With
// force unset, a session for the already-current user is a no-op and callers
// racing on the same user share one lookup.
func (s *SessionStore) adopt(ctx context.Context, session *domain.Session, force bool) {
	if force {
		s.setUser(s.resolveProfile(ctx, session.User))
		return
	}
	id := session.User.ID
	if s.UserID() == id {
		return
	}
	_, _, _ = s.flight.Do(id, func() (any, error) {
		if s.UserID() == id {
			return nil, nil
		}
		s.setUser(s.resolveProfile(ctx, session.User))
		return nil, nil
	})
}

// resolveProfile fetches the profile row, creating it when missing. It never
// fails: read errors fall back to a user built from auth metadata.
func (s *SessionStore) resolveProfile(ctx context.Context, au domain.AuthUser) *domain.User {
	profile, err := s.profiles.FindByID(ctx, au.ID)
	switch {
	case err == nil:
		return domain.NewUser(au, profile)
	case errors.Is(err, domain.ErrProfileNotFound):
		created, cerr := s.profiles.Create(ctx, domain.ProfileSeed(au, ""))
		if cerr != nil {
			s.log.Warn().Err(cerr).Str("user_id", au.ID).Msg("profile creation failed")
			return domain.NewUser(au, nil)
		}
		return domain.NewUser(au, created)
	default:
		s.log.Error().Err(err).Str("user_id", au.ID).Msg("profile lookup failed")
		return domain.NewUser(au, nil)
	}
}

func (s *SessionStore) setUser(next *domain.User) {
	s.mu.Lock()
	prev := s.user
	s.user = next
	s.mu.Unlock()

	if userID(prev) == userID(next) {
		return
	}

	s.lmu.Lock()
	fns := make([]func(prev, next *domain.User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(prev, next)
	}
}

func userID(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
