package ports

import (
	"context"

	"github.com/pepcraft/storefront/internal/core/domain"
)

// NewsletterRepository stores newsletter subscribers. Insert returns
// domain.ErrAlreadySubscribed for a repeated email.
type NewsletterRepository interface {
	Insert(ctx context.Context, sub domain.Subscriber) error
}
