package domain

import (
	"strings"
	"time"
)

// DefaultDisplayName is used when neither the profile, the auth metadata nor
// the email yields a name.
const DefaultDisplayName = "User"

// User is the identity the storefront shows for the logged-in visitor.
// It is replaced wholesale on every auth event, never patched.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// UserMetadata is the free-form metadata the identity backend keeps next to
// an auth record (sign-up form values or federated provider claims).
type UserMetadata struct {
	FullName  string `json:"full_name,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// AuthUser is the identity backend's own record of an account.
type AuthUser struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Provider     string       `json:"provider"`
	PasswordHash string       `json:"-"`
	Metadata     UserMetadata `json:"user_metadata"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Profile is the durable display record of a user, distinct from AuthUser.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an issued login for one client.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        AuthUser  `json:"user"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// DisplayName applies the name fallback chain: the given profile name, then the
// federated full name, then the local part of the email, then DefaultDisplayName.
func DisplayName(profileName string, u AuthUser) string {
	if n := strings.TrimSpace(profileName); n != "" {
		return n
	}
	if n := strings.TrimSpace(u.Metadata.FullName); n != "" {
		return n
	}
	if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
		return local
	}
	return DefaultDisplayName
}

// NewUser builds the visible User from an auth record and its profile row.
// A nil profile means the row does not exist (or could not be read).
func NewUser(u AuthUser, p *Profile) *User {
	user := &User{
		ID:        u.ID,
		Email:     u.Email,
		AvatarURL: u.Metadata.AvatarURL,
	}
	if p == nil {
		user.Name = DisplayName("", u)
		return user
	}
	user.Name = DisplayName(p.Name, u)
	if p.AvatarURL != "" {
		user.AvatarURL = p.AvatarURL
	}
	return user
}

// ProfileSeed is the row inserted for a user that has no profile yet.
func ProfileSeed(u AuthUser, name string) Profile {
	if name == "" {
		name = DisplayName("", u)
	}
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      name,
		AvatarURL: u.Metadata.AvatarURL,
	}
}

// AuthMode selects which form the auth modal shows.
type AuthMode string

const (
	AuthModeLogin  AuthMode = "login"
	AuthModeSignup AuthMode = "signup"
)

// Valid reports whether m is a known mode.
func (m AuthMode) Valid() bool {
	return m == AuthModeLogin || m == AuthModeSignup
}
