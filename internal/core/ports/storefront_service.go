package ports

import (
	"context"

	"github.com/pepcraft/storefront/internal/core/domain"
)

// CatalogService serves the product grid.
type CatalogService interface {
	List(category string) []domain.Product
	Get(id string) (domain.Product, error)
	Categories() []string
	// ResolveCategory returns the category selected by a page fragment / query
	// string, or "" when none (or an unknown one) is given.
	ResolveCategory(fragment, rawQuery string) string
}

// NewsletterResult is shown to the visitor after a signup attempt.
type NewsletterResult struct {
	Status  domain.SubscriptionStatus
	Message string
}

// NewsletterService handles footer signups.
type NewsletterService interface {
	Subscribe(ctx context.Context, email string) (NewsletterResult, error)
}
