package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

type stubNewsletter struct {
	result ports.NewsletterResult
	err    error
	emails []string
}

func (s *stubNewsletter) Subscribe(_ context.Context, email string) (ports.NewsletterResult, error) {
	s.emails = append(s.emails, email)
	return s.result, s.err
}

func TestNewsletterHandler_Subscribe(t *testing.T) {
	svc := &stubNewsletter{result: ports.NewsletterResult{Status: domain.SubscriptionExists, Message: "You're already subscribed."}}
	c, rec := newContext(http.MethodPost, "/newsletter", `{"email":"ana@example.com"}`, nil)

	if err := NewNewsletterHandler(svc).Subscribe(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp newsletterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != "already_subscribed" || resp.Message == "" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestNewsletterHandler_InvalidEmail(t *testing.T) {
	svc := &stubNewsletter{}
	c, _ := newContext(http.MethodPost, "/newsletter", `{"email":"nope"}`, nil)

	wantHTTPError(t, NewNewsletterHandler(svc).Subscribe(c), http.StatusUnprocessableEntity)
	if len(svc.emails) != 0 {
		t.Fatal("service must not be called for an invalid email")
	}
}
