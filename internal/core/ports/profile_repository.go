package ports

import (
	"context"

	"github.com/pepcraft/storefront/internal/core/domain"
)

// ProfileRepository defines persistence for profile rows.
type ProfileRepository interface {
	// FindByID returns domain.ErrProfileNotFound when no row exists.
	FindByID(ctx context.Context, id string) (*domain.Profile, error)
	// Create inserts the row unless one with the same id already exists, and
	// returns whichever row is stored afterwards.
	Create(ctx context.Context, profile domain.Profile) (*domain.Profile, error)
}
