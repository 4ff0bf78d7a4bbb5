package handler

import (
	"strings"
	"testing"
)

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"required uses json name", &addItemRequest{}, "product_id is required"},
		{"email", &newsletterRequest{Email: "nope"}, "email must be a valid email"},
		{"min", &signupRequest{Name: "Ana", Email: "ana@example.com", Password: "123"}, "password must be at least 6 characters"},
		{"max", &updateQuantityRequest{Quantity: intPtr(100)}, "quantity must be at most 99"},
		{"oneof", &authModalRequest{Mode: "register"}, "mode must be one of: login signup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.in)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}

	if err := v.Validate(&loginRequest{Email: "ana@example.com", Password: "x"}); err != nil {
		t.Fatalf("expected valid login request, got %v", err)
	}
}

func intPtr(n int) *int { return &n }
