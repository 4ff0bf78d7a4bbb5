package domain

import "time"

// SubscriptionStatus is the outcome reported to the visitor.
type SubscriptionStatus string

const (
	SubscriptionCreated SubscriptionStatus = "subscribed"
	SubscriptionExists  SubscriptionStatus = "already_subscribed"
)

// Subscriber is a newsletter_subscribers row.
type Subscriber struct {
	Email        string    `json:"email"`
	SubscribedAt time.Time `json:"subscribed_at"`
}
