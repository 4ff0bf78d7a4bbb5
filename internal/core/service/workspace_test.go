package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pepcraft/storefront/internal/core/domain"
)

type workspaceHarness struct {
	clients map[string]*stubAuthClient
	deps    WorkspaceDeps
	built   int
}

func newWorkspaceHarness() *workspaceHarness {
	return &workspaceHarness{
		clients: make(map[string]*stubAuthClient),
		deps: WorkspaceDeps{
			Profiles: newStubProfileRepo(),
			Carts:    newStubCartRepo(),
			Syncer:   &recordingSyncer{},
			Log:      zerolog.Nop(),
		},
	}
}

func (h *workspaceHarness) factory(ctx context.Context, id string) *Workspace {
	h.built++
	auth := newStubAuthClient()
	h.clients[id] = auth
	return NewWorkspace(ctx, id, auth, h.deps)
}

func TestWorkspace_WiresCartToSession(t *testing.T) {
	h := newWorkspaceHarness()
	h.deps.Carts.(*stubCartRepo).rows["u1"] = []domain.CartItem{chair}

	w := h.factory(context.Background(), "c1")
	auth := h.clients["c1"]
	auth.addAccount("u1@example.com", "pw", domain.AuthUser{ID: "u1"})

	if !w.Session().Login(context.Background(), "u1@example.com", "pw") {
		t.Fatal("login failed")
	}
	if v := w.Cart().View(); len(v.Items) != 1 || v.Items[0].ProductID != "6" {
		t.Fatalf("expected cart to load after login, got %+v", v.Items)
	}
	if w.ID() != "c1" {
		t.Fatalf("unexpected id %q", w.ID())
	}
}

func TestWorkspace_Close_ReleasesAuthClient(t *testing.T) {
	h := newWorkspaceHarness()
	w := h.factory(context.Background(), "c1")

	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	auth := h.clients["c1"]
	if !auth.closed || auth.listenerCount() != 0 {
		t.Fatal("expected auth client closed and unsubscribed")
	}
}

func TestWorkspaceRegistry_GetReusesWorkspace(t *testing.T) {
	h := newWorkspaceHarness()
	r := NewWorkspaceRegistry(h.factory, time.Minute, zerolog.Nop())

	var sizes []int
	r.OnSize = func(n int) { sizes = append(sizes, n) }

	a := r.Get(context.Background(), "c1")
	b := r.Get(context.Background(), "c1")
	r.Get(context.Background(), "c2")

	if a != b {
		t.Fatal("expected the same workspace for the same client id")
	}
	if h.built != 2 || r.Len() != 2 {
		t.Fatalf("expected 2 workspaces, built=%d len=%d", h.built, r.Len())
	}
	if len(sizes) != 2 || sizes[1] != 2 {
		t.Fatalf("unexpected size reports %v", sizes)
	}
}

func TestWorkspaceRegistry_SweepEvictsIdle(t *testing.T) {
	h := newWorkspaceHarness()
	r := NewWorkspaceRegistry(h.factory, time.Minute, zerolog.Nop())

	now := time.Now()
	r.now = func() time.Time { return now }
	r.Get(context.Background(), "idle")
	r.Get(context.Background(), "busy")

	now = now.Add(2 * time.Minute)
	if _, ok := r.Lookup("busy"); !ok {
		t.Fatal("expected busy workspace")
	}
	if n := r.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := r.Lookup("idle"); ok {
		t.Fatal("idle workspace should be gone")
	}
	if !h.clients["idle"].closed {
		t.Fatal("evicted workspace must be closed")
	}
}

func TestWorkspaceRegistry_CloseClosesAll(t *testing.T) {
	h := newWorkspaceHarness()
	r := NewWorkspaceRegistry(h.factory, time.Minute, zerolog.Nop())
	r.Get(context.Background(), "c1")
	r.Get(context.Background(), "c2")

	r.Close()

	if r.Len() != 0 || !h.clients["c1"].closed || !h.clients["c2"].closed {
		t.Fatal("expected every workspace closed")
	}
}
