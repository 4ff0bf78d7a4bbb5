package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/pepcraft/storefront/internal/core/domain"
)

const (
	outboxKey         = "cart:outbox"
	outboxVersionsKey = "cart:outbox:versions"
)

// Versions are compared as decimal strings: nanosecond stamps exceed the
// integer precision of Lua numbers.
const luaNewer = `
local function newer(a, b)
  if #a ~= #b then return #a > #b end
  return a > b
end
`

var putScript = redis.NewScript(luaNewer + `
local cur = redis.call('HGET', KEYS[2], ARGV[1])
if cur and not newer(ARGV[2], cur) then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[3])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
return 1
`)

var ackScript = redis.NewScript(`
if redis.call('HGET', KEYS[2], ARGV[1]) == ARGV[2] then
  redis.call('HDEL', KEYS[1], ARGV[1])
  redis.call('HDEL', KEYS[2], ARGV[1])
  return 1
end
return 0
`)

// CartOutbox keeps the newest unpersisted cart snapshot per user.
// Layout: hash cart:outbox (user -> snapshot JSON) and hash
// cart:outbox:versions (user -> version).
type CartOutbox struct {
	client *redis.Client
}

func NewCartOutbox(client *redis.Client) *CartOutbox {
	return &CartOutbox{client: client}
}

// Put stores snap unless an equal or newer version is already pending.
func (o *CartOutbox) Put(ctx context.Context, snap domain.CartSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	keys := []string{outboxKey, outboxVersionsKey}
	version := strconv.FormatInt(snap.Version, 10)
	if err := putScript.Run(ctx, o.client, keys, snap.UserID, version, payload).Err(); err != nil {
		return fmt.Errorf("outbox put: %w", err)
	}
	return nil
}

func (o *CartOutbox) Get(ctx context.Context, userID string) (*domain.CartSnapshot, error) {
	raw, err := o.client.HGet(ctx, outboxKey, userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("outbox get: %w", err)
	}
	var snap domain.CartSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Ack removes the entry only if it still holds version.
func (o *CartOutbox) Ack(ctx context.Context, userID string, version int64) error {
	keys := []string{outboxKey, outboxVersionsKey}
	if err := ackScript.Run(ctx, o.client, keys, userID, strconv.FormatInt(version, 10)).Err(); err != nil {
		return fmt.Errorf("outbox ack: %w", err)
	}
	return nil
}

func (o *CartOutbox) Pending(ctx context.Context) ([]string, error) {
	users, err := o.client.HKeys(ctx, outboxVersionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("outbox pending: %w", err)
	}
	return users, nil
}

// Depth reports how many users have a pending snapshot.
func (o *CartOutbox) Depth(ctx context.Context) (int64, error) {
	return o.client.HLen(ctx, outboxVersionsKey).Result()
}
