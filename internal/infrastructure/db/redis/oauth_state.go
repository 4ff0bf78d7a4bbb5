package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

const defaultStateTTL = 10 * time.Minute

// OAuthStateStore keeps pending OAuth states as expiring keys.
// Key format: oauth:state:<state>
type OAuthStateStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewOAuthStateStore(client *redis.Client, ttl time.Duration) *OAuthStateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &OAuthStateStore{client: client, ttl: ttl}
}

func (s *OAuthStateStore) Save(ctx context.Context, state string, v ports.OAuthState) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(state), payload, s.ttl).Err()
}

// Take returns the state and deletes it in one step, so a callback can be
// completed at most once.
func (s *OAuthStateStore) Take(ctx context.Context, state string) (*ports.OAuthState, error) {
	raw, err := s.client.GetDel(ctx, s.key(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrInvalidOAuthState
		}
		return nil, fmt.Errorf("take oauth state: %w", err)
	}
	var v ports.OAuthState
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode oauth state: %w", err)
	}
	return &v, nil
}

func (s *OAuthStateStore) key(state string) string {
	return "oauth:state:" + state
}
