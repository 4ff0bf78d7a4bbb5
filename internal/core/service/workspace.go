package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pepcraft/storefront/internal/core/ports"
)

// Workspace is the set of stores serving one client. The cart depends on the
// session; both are constructed here and handed out explicitly.
type Workspace struct {
	id       string
	auth     ports.AuthClient
	session  *SessionStore
	cart     *CartStore
	lastSeen atomic.Int64
}

// WorkspaceDeps are the backend collaborators shared by every workspace.
type WorkspaceDeps struct {
	Profiles ports.ProfileRepository
	Carts    ports.CartRepository
	Syncer   ports.CartSyncer
	Log      zerolog.Logger
}

// NewWorkspace wires the stores of client id and restores any prior session.
func NewWorkspace(ctx context.Context, id string, auth ports.AuthClient, deps WorkspaceDeps) *Workspace {
	log := deps.Log.With().Str("client_id", id).Logger()

	session := NewSessionStore(auth, deps.Profiles, log)
	cart := NewCartStore(session, deps.Carts, deps.Syncer, log)
	session.Start(ctx)

	w := &Workspace{id: id, auth: auth, session: session, cart: cart}
	w.touch(time.Now())
	return w
}

func (w *Workspace) ID() string                     { return w.id }
func (w *Workspace) Session() ports.SessionService { return w.session }
func (w *Workspace) Cart() ports.CartService       { return w.cart }

func (w *Workspace) touch(now time.Time) { w.lastSeen.Store(now.UnixNano()) }

func (w *Workspace) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, w.lastSeen.Load()))
}

// Close detaches the stores and releases the auth client.
func (w *Workspace) Close() error {
	w.cart.Close()
	w.session.Close()
	return w.auth.Close()
}

// WorkspaceFactory builds the workspace for a client id seen for the first time.
type WorkspaceFactory func(ctx context.Context, id string) *Workspace

// WorkspaceRegistry maps client ids to live workspaces and evicts idle ones.
type WorkspaceRegistry struct {
	factory WorkspaceFactory
	idleTTL time.Duration
	log     zerolog.Logger
	now     func() time.Time
	// OnSize, when set, is called with the number of live workspaces after every change.
	OnSize func(n int)

	mu    sync.Mutex
	items map[string]*Workspace
}

func NewWorkspaceRegistry(factory WorkspaceFactory, idleTTL time.Duration, log zerolog.Logger) *WorkspaceRegistry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &WorkspaceRegistry{
		factory: factory,
		idleTTL: idleTTL,
		log:     log,
		now:     time.Now,
		items:   make(map[string]*Workspace),
	}
}

// Get returns the workspace for id, creating it on first use. The factory runs
// outside the registry lock; a concurrent loser is closed.
func (r *WorkspaceRegistry) Get(ctx context.Context, id string) *Workspace {
	if w, ok := r.Lookup(id); ok {
		return w
	}

	created := r.factory(ctx, id)

	r.mu.Lock()
	if w, ok := r.items[id]; ok {
		r.mu.Unlock()
		_ = created.Close()
		w.touch(r.now())
		return w
	}
	r.items[id] = created
	n := len(r.items)
	r.mu.Unlock()

	r.log.Debug().Str("client_id", id).Msg("workspace created")
	r.reportSize(n)
	return created
}

// Lookup returns an existing workspace and marks it as used.
func (r *WorkspaceRegistry) Lookup(id string) (*Workspace, bool) {
	r.mu.Lock()
	w, ok := r.items[id]
	r.mu.Unlock()
	if ok {
		w.touch(r.now())
	}
	return w, ok
}

func (r *WorkspaceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep closes workspaces idle longer than the TTL and returns how many it removed.
func (r *WorkspaceRegistry) Sweep() int {
	now := r.now()

	r.mu.Lock()
	var idle []*Workspace
	for id, w := range r.items {
		if w.idleSince(now) > r.idleTTL {
			idle = append(idle, w)
			delete(r.items, id)
		}
	}
	n := len(r.items)
	r.mu.Unlock()

	for _, w := range idle {
		if err := w.Close(); err != nil {
			r.log.Warn().Err(err).Str("client_id", w.id).Msg("workspace close failed")
		}
	}
	if len(idle) > 0 {
		r.log.Info().Int("evicted", len(idle)).Int("live", n).Msg("idle workspaces evicted")
		r.reportSize(n)
	}
	return len(idle)
}

// Run sweeps every interval until ctx is cancelled, then closes everything.
func (r *WorkspaceRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every workspace.
func (r *WorkspaceRegistry) Close() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*Workspace)
	r.mu.Unlock()

	for _, w := range items {
		_ = w.Close()
	}
	r.reportSize(0)
}

func (r *WorkspaceRegistry) reportSize(n int) {
	if r.OnSize != nil {
		r.OnSize(n)
	}
}
