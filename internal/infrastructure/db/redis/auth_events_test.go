package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pepcraft/storefront/internal/core/domain"
)

func message(t *testing.T, channel string, ev domain.AuthEvent) *redis.Message {
	t.Helper()
	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return &redis.Message{Channel: channel, Pattern: authPattern, Payload: string(payload)}
}

func TestAuthEventBus_DispatchByChannel(t *testing.T) {
	bus := NewAuthEventBus(nil, zerolog.Nop())

	var mine, other []domain.AuthEvent
	unsub := bus.Subscribe("auth:client:c1", func(ev domain.AuthEvent) { mine = append(mine, ev) })
	bus.Subscribe("auth:client:c2", func(ev domain.AuthEvent) { other = append(other, ev) })

	bus.dispatch(message(t, "auth:client:c1", domain.AuthEvent{Type: domain.EventSignedIn}))
	if len(mine) != 1 || mine[0].Type != domain.EventSignedIn || len(other) != 0 {
		t.Fatalf("unexpected delivery: mine=%v other=%v", mine, other)
	}

	unsub()
	bus.dispatch(message(t, "auth:client:c1", domain.AuthEvent{Type: domain.EventSignedOut}))
	if len(mine) != 1 {
		t.Fatal("unsubscribed handler must not be called")
	}
	if _, ok := bus.handlers["auth:client:c1"]; ok {
		t.Fatal("empty topic should be dropped")
	}
}

func TestAuthEventBus_HandlerMaySubscribe(t *testing.T) {
	bus := NewAuthEventBus(nil, zerolog.Nop())

	calls := 0
	bus.Subscribe("auth:client:c1", func(domain.AuthEvent) {
		calls++
		bus.Subscribe("auth:user:u1", func(domain.AuthEvent) {})
	})
	bus.dispatch(message(t, "auth:client:c1", domain.AuthEvent{Type: domain.EventSignedIn}))

	if calls != 1 || len(bus.handlers["auth:user:u1"]) != 1 {
		t.Fatalf("expected nested subscribe to succeed, calls=%d", calls)
	}
}

func TestAuthEventBus_MalformedPayloadIgnored(t *testing.T) {
	bus := NewAuthEventBus(nil, zerolog.Nop())
	called := false
	bus.Subscribe("auth:user:u1", func(domain.AuthEvent) { called = true })

	bus.dispatch(&redis.Message{Channel: "auth:user:u1", Payload: "{not json"})
	if called {
		t.Fatal("handler must not receive undecodable events")
	}
}

func TestAuthEventBus_RunDeliversPublishedEvents(t *testing.T) {
	client, mr := newTestClient(t)
	bus := NewAuthEventBus(client, zerolog.Nop())

	got := make(chan domain.AuthEvent, 1)
	bus.Subscribe("auth:user:u1", func(ev domain.AuthEvent) { got <- ev })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumPat() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("bus never subscribed to the auth pattern")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := bus.Publish(ctx, "auth:user:u1", domain.AuthEvent{Type: domain.EventSignedOut, Origin: "c2"}); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-got:
		if ev.Type != domain.EventSignedOut || ev.Origin != "c2" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("published event was not delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
