package domain

import "time"

// AuthEventType names an auth-state change notification.
type AuthEventType string

const (
	EventInitialSession AuthEventType = "INITIAL_SESSION"
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEventType = "USER_UPDATED"
)

// AuthEvent is delivered to auth-state subscribers. Session is nil when the
// client is signed out.
type AuthEvent struct {
	Type    AuthEventType `json:"type"`
	Session *Session      `json:"session,omitempty"`
	// Origin is the client id that caused the event, empty for backend-originated events.
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}
