package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

const defaultLoadTimeout = 10 * time.Second

// CartStore keeps the authoritative local cart of one client and mirrors it
// to the backend while a user is signed in: save-on-write, replace-on-read.
type CartStore struct {
	users  ports.UserSource
	repo   ports.CartRepository
	syncer ports.CartSyncer
	log    zerolog.Logger
	now    func() time.Time

	loadTimeout time.Duration

	mu        sync.Mutex
	cart      *domain.Cart
	panelOpen bool
	// owner is the user whose backend cart has been loaded into cart; "" while anonymous.
	owner   string
	version int64

	unsubscribe func()
}

// NewCartStore builds the store and subscribes it to identity changes of users.
func NewCartStore(users ports.UserSource, repo ports.CartRepository, syncer ports.CartSyncer, log zerolog.Logger) *CartStore {
	c := &CartStore{
		users:       users,
		repo:        repo,
		syncer:      syncer,
		log:         log,
		now:         time.Now,
		loadTimeout: defaultLoadTimeout,
		cart:        &domain.Cart{},
	}
	c.unsubscribe = users.OnUserChange(c.handleUserChange)
	return c
}

// Close detaches the store from the session.
func (c *CartStore) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *CartStore) handleUserChange(_, next *domain.User) {
	if next == nil {
		c.mu.Lock()
		c.cart = &domain.Cart{}
		c.owner = ""
		c.mu.Unlock()
		c.log.Debug().Msg("cart cleared on sign-out")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.loadTimeout)
	defer cancel()
	c.load(ctx, next.ID)
}

// load overwrites the local cart with the backend's. Lines collected while
// anonymous are discarded, not merged.
func (c *CartStore) load(ctx context.Context, userID string) {
	items, err := c.repo.Load(ctx, userID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.users.UserID() != userID {
		c.log.Debug().Str("user_id", userID).Msg("discarding cart load for previous user")
		return
	}

	c.owner = userID
	if err != nil {
		c.cart = &domain.Cart{}
		c.log.Error().Err(err).Str("user_id", userID).Msg("cart load failed")
		return
	}
	c.cart = domain.NewCart(items)
	c.log.Debug().Str("user_id", userID).Int("lines", c.cart.Len()).Msg("cart loaded")
}

// AddToCart increments the product's line or adds it with quantity 1, and
// opens the cart panel.
func (c *CartStore) AddToCart(item domain.CartItem) {
	c.mu.Lock()
	c.cart.Add(item)
	c.panelOpen = true
	snap, ok := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug().Str("product_id", item.ProductID).Msg("added to cart")
	c.save(snap, ok)
}

func (c *CartStore) RemoveFromCart(productID string) {
	c.mu.Lock()
	c.cart.Remove(productID)
	snap, ok := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug().Str("product_id", productID).Msg("removed from cart")
	c.save(snap, ok)
}

// UpdateQuantity sets the line's quantity; quantity <= 0 removes it.
func (c *CartStore) UpdateQuantity(productID string, quantity int) {
	if quantity <= 0 {
		c.RemoveFromCart(productID)
		return
	}

	c.mu.Lock()
	c.cart.SetQuantity(productID, quantity)
	snap, ok := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug().Str("product_id", productID).Int("quantity", quantity).Msg("cart quantity updated")
	c.save(snap, ok)
}

// ClearCart empties the local cart now and, when signed in, deletes the
// user's stored rows in the background.
func (c *CartStore) ClearCart() {
	c.mu.Lock()
	c.cart.Clear()
	snap, ok := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Debug().Msg("cart cleared")
	c.save(snap, ok)
}

func (c *CartStore) SetPanelOpen(open bool) {
	c.mu.Lock()
	c.panelOpen = open
	c.mu.Unlock()
}

func (c *CartStore) View() ports.CartView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ports.CartView{
		Items:      c.cart.Items(),
		TotalItems: c.cart.TotalItems(),
		TotalPrice: c.cart.TotalPrice(),
		PanelOpen:  c.panelOpen,
	}
}

// snapshotLocked stamps the current cart for persistence. It reports false
// when there is no signed-in owner to persist for. c.mu must be held.
func (c *CartStore) snapshotLocked() (domain.CartSnapshot, bool) {
	if c.owner == "" || c.owner != c.users.UserID() {
		return domain.CartSnapshot{}, false
	}

	now := c.now()
	v := now.UnixNano()
	if v <= c.version {
		v = c.version + 1
	}
	c.version = v

	return domain.CartSnapshot{
		UserID:  c.owner,
		Version: v,
		Items:   c.cart.Items(),
		TakenAt: now.UTC(),
	}, true
}

func (c *CartStore) save(snap domain.CartSnapshot, ok bool) {
	if !ok {
		return
	}
	c.syncer.Enqueue(snap)
}
