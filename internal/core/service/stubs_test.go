package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pepcraft/storefront/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Auth client stub: behaves like the identity client, emitting SIGNED_IN /
// SIGNED_OUT synchronously to subscribers.
// ---------------------------------------------------------------------------

type stubAccount struct {
	password string
	user     domain.AuthUser
}

type stubAuthClient struct {
	mu            sync.Mutex
	accounts      map[string]stubAccount
	session       *domain.Session
	listeners     map[int]func(domain.AuthEvent)
	nextID        int
	signOutErr    error
	getSessionErr error
	oauthURL      string
	oauthErr      error
	oauthCalls    []string
	closed        bool
}

func newStubAuthClient() *stubAuthClient {
	return &stubAuthClient{
		accounts:  make(map[string]stubAccount),
		listeners: make(map[int]func(domain.AuthEvent)),
	}
}

func (a *stubAuthClient) addAccount(email, password string, user domain.AuthUser) {
	user.Email = email
	a.accounts[email] = stubAccount{password: password, user: user}
}

func (a *stubAuthClient) issue(u domain.AuthUser) *domain.Session {
	return &domain.Session{AccessToken: "tok-" + u.ID, ExpiresAt: time.Now().Add(time.Hour), User: u}
}

func (a *stubAuthClient) SignInWithPassword(_ context.Context, email, password string) (*domain.Session, error) {
	a.mu.Lock()
	acc, ok := a.accounts[email]
	if !ok || acc.password != password {
		a.mu.Unlock()
		return nil, domain.ErrInvalidCredentials
	}
	s := a.issue(acc.user)
	a.session = s
	a.mu.Unlock()

	a.push(domain.AuthEvent{Type: domain.EventSignedIn, Session: s})
	return s, nil
}

func (a *stubAuthClient) SignUp(_ context.Context, email, password string, meta domain.UserMetadata) (*domain.Session, error) {
	a.mu.Lock()
	if _, exists := a.accounts[email]; exists {
		a.mu.Unlock()
		return nil, domain.ErrUserExists
	}
	u := domain.AuthUser{ID: "user-" + email, Email: email, Provider: "email", Metadata: meta}
	a.accounts[email] = stubAccount{password: password, user: u}
	s := a.issue(u)
	a.session = s
	a.mu.Unlock()

	a.push(domain.AuthEvent{Type: domain.EventSignedIn, Session: s})
	return s, nil
}

func (a *stubAuthClient) SignInWithOAuth(_ context.Context, provider, redirectTo string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.oauthCalls = append(a.oauthCalls, provider+"|"+redirectTo)
	return a.oauthURL, a.oauthErr
}

func (a *stubAuthClient) SignOut(_ context.Context) error {
	a.mu.Lock()
	a.session = nil
	err := a.signOutErr
	a.mu.Unlock()

	if err != nil {
		return err
	}
	a.push(domain.AuthEvent{Type: domain.EventSignedOut})
	return nil
}

func (a *stubAuthClient) GetSession(_ context.Context) (*domain.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.getSessionErr != nil {
		return nil, a.getSessionErr
	}
	return a.session, nil
}

func (a *stubAuthClient) OnAuthStateChange(fn func(domain.AuthEvent)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

func (a *stubAuthClient) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return nil
}

// push delivers ev to every subscriber, as a backend notification would.
func (a *stubAuthClient) push(ev domain.AuthEvent) {
	a.mu.Lock()
	fns := make([]func(domain.AuthEvent), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (a *stubAuthClient) listenerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.listeners)
}

// ---------------------------------------------------------------------------
// Profile repository stub
// ---------------------------------------------------------------------------

type stubProfileRepo struct {
	mu        sync.Mutex
	rows      map[string]domain.Profile
	findErr   error
	createErr error
	creates   int
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{rows: make(map[string]domain.Profile)}
}

func (r *stubProfileRepo) FindByID(_ context.Context, id string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	p, ok := r.rows[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &p, nil
}

func (r *stubProfileRepo) Create(_ context.Context, p domain.Profile) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return nil, r.createErr
	}
	if existing, ok := r.rows[p.ID]; ok {
		return &existing, nil
	}
	r.rows[p.ID] = p
	return &p, nil
}

// ---------------------------------------------------------------------------
// Cart repository + syncer stubs
// ---------------------------------------------------------------------------

type stubCartRepo struct {
	mu      sync.Mutex
	rows    map[string][]domain.CartItem
	loadErr error
	loads   []string
}

func newStubCartRepo() *stubCartRepo {
	return &stubCartRepo{rows: make(map[string][]domain.CartItem)}
}

func (r *stubCartRepo) Load(_ context.Context, userID string) ([]domain.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads = append(r.loads, userID)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make([]domain.CartItem, len(r.rows[userID]))
	copy(out, r.rows[userID])
	return out, nil
}

func (r *stubCartRepo) Replace(_ context.Context, userID string, items []domain.CartItem, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[userID] = items
	return nil
}

type recordingSyncer struct {
	mu    sync.Mutex
	snaps []domain.CartSnapshot
}

func (s *recordingSyncer) Enqueue(snap domain.CartSnapshot) {
	s.mu.Lock()
	s.snaps = append(s.snaps, snap)
	s.mu.Unlock()
}

func (s *recordingSyncer) all() []domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartSnapshot, len(s.snaps))
	copy(out, s.snaps)
	return out
}

func (s *recordingSyncer) last() (domain.CartSnapshot, bool) {
	all := s.all()
	if len(all) == 0 {
		return domain.CartSnapshot{}, false
	}
	return all[len(all)-1], true
}

// ---------------------------------------------------------------------------
// Newsletter repository stub
// ---------------------------------------------------------------------------

type stubNewsletterRepo struct {
	emails    map[string]bool
	insertErr error
}

func (r *stubNewsletterRepo) Insert(_ context.Context, sub domain.Subscriber) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	if r.emails == nil {
		r.emails = make(map[string]bool)
	}
	if r.emails[sub.Email] {
		return domain.ErrAlreadySubscribed
	}
	r.emails[sub.Email] = true
	return nil
}

var errBackendDown = errors.New("backend unavailable")
