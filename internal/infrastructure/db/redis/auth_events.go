package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pepcraft/storefront/internal/core/domain"
)

// authPattern matches every auth topic; one pattern subscription serves all
// clients of the process.
const authPattern = "auth:*"

// AuthEventBus carries auth events over Redis pub/sub and fans them out to
// in-process subscribers by channel name.
type AuthEventBus struct {
	client *redis.Client
	log    zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]map[int]func(domain.AuthEvent)
	nextID   int
}

func NewAuthEventBus(client *redis.Client, log zerolog.Logger) *AuthEventBus {
	return &AuthEventBus{
		client:   client,
		log:      log,
		handlers: make(map[string]map[int]func(domain.AuthEvent)),
	}
}

func (b *AuthEventBus) Publish(ctx context.Context, topic string, ev domain.AuthEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (b *AuthEventBus) Subscribe(topic string, fn func(domain.AuthEvent)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if b.handlers[topic] == nil {
		b.handlers[topic] = make(map[int]func(domain.AuthEvent))
	}
	b.handlers[topic][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers[topic], id)
		if len(b.handlers[topic]) == 0 {
			delete(b.handlers, topic)
		}
		b.mu.Unlock()
	}
}

// Run receives messages until ctx is cancelled.
func (b *AuthEventBus) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, authPattern)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe %s: %w", authPattern, err)
	}
	b.log.Info().Str("pattern", authPattern).Msg("auth event bus listening")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(msg)
		}
	}
}

func (b *AuthEventBus) dispatch(msg *redis.Message) {
	b.mu.RLock()
	fns := make([]func(domain.AuthEvent), 0, len(b.handlers[msg.Channel]))
	for _, fn := range b.handlers[msg.Channel] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()
	if len(fns) == 0 {
		return
	}

	var ev domain.AuthEvent
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		b.log.Error().Err(err).Str("channel", msg.Channel).Msg("malformed auth event")
		return
	}
	for _, fn := range fns {
		fn(ev)
	}
}
