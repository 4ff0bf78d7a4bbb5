package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrProfileNotFound = errors.New("profile not found")

	ErrUnsupportedProvider = errors.New("unsupported oauth provider")
	ErrOAuthNotConfigured  = errors.New("oauth provider not configured")
	ErrInvalidOAuthState   = errors.New("invalid or expired oauth state")
	// ErrAccountExists means a federated login matched an email that belongs to a password account.
	ErrAccountExists    = errors.New("an account with this email already exists")
	ErrEmailNotVerified = errors.New("provider email is not verified")

	ErrProductNotFound = errors.New("product not found")
	// ErrStaleWrite is returned when a cart snapshot is older than the one already stored.
	ErrStaleWrite = errors.New("stale cart write")

	ErrInvalidEmail      = errors.New("invalid email address")
	ErrAlreadySubscribed = errors.New("email already subscribed")
)
