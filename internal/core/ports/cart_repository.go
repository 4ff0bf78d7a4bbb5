package ports

import (
	"context"

	"github.com/pepcraft/storefront/internal/core/domain"
)

// CartRepository persists one row per (user, product) with a denormalized
// product snapshot.
type CartRepository interface {
	// Load returns the user's stored cart lines.
	Load(ctx context.Context, userID string) ([]domain.CartItem, error)
	// Replace atomically makes the stored cart equal to items. It returns
	// domain.ErrStaleWrite when a snapshot with an equal or newer version has
	// already been stored. An empty items slice deletes every row of the user.
	Replace(ctx context.Context, userID string, items []domain.CartItem, version int64) error
}

// CartSyncer accepts full-cart snapshots for asynchronous persistence.
// Enqueue must not block the caller.
type CartSyncer interface {
	Enqueue(snapshot domain.CartSnapshot)
}

// CartOutbox is the durable record of snapshots not yet persisted.
type CartOutbox interface {
	// Put stores snap unless a newer version for the same user is pending.
	Put(ctx context.Context, snap domain.CartSnapshot) error
	// Get returns the pending snapshot for userID, or nil when none is pending.
	Get(ctx context.Context, userID string) (*domain.CartSnapshot, error)
	// Ack removes the pending snapshot if it still has the given version.
	Ack(ctx context.Context, userID string, version int64) error
	// Pending lists users with a pending snapshot.
	Pending(ctx context.Context) ([]string, error)
}
