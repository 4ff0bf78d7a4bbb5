package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

const (
	msgSubscribed        = "Thanks for subscribing! Check your inbox for updates."
	msgAlreadySubscribed = "This email is already subscribed to our newsletter."
)

type NewsletterService struct {
	repo ports.NewsletterRepository
	log  zerolog.Logger
}

func NewNewsletterService(repo ports.NewsletterRepository, log zerolog.Logger) *NewsletterService {
	return &NewsletterService{repo: repo, log: log}
}

// Subscribe records email. A repeated address is informational, and storage
// failures are logged but still reported to the visitor as a success.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) (ports.NewsletterResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return ports.NewsletterResult{}, domain.ErrInvalidEmail
	}

	err := s.repo.Insert(ctx, domain.Subscriber{Email: email, SubscribedAt: time.Now().UTC()})
	switch {
	case err == nil:
		s.log.Info().Str("email", email).Msg("newsletter subscription created")
	case errors.Is(err, domain.ErrAlreadySubscribed):
		return ports.NewsletterResult{Status: domain.SubscriptionExists, Message: msgAlreadySubscribed}, nil
	default:
		s.log.Error().Err(err).Str("email", email).Msg("newsletter subscription failed")
	}
	return ports.NewsletterResult{Status: domain.SubscriptionCreated, Message: msgSubscribed}, nil
}
