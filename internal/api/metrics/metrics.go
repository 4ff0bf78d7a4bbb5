// Package metrics defines and registers all custom Prometheus metrics for the
// storefront API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on import via
// promauto and exposed on /metrics by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// ── Session metrics ───────────────────────────────────────────────────────────

// AuthAttemptsTotal counts session actions.
// Labels:
//   - action: "login", "signup", "google", "logout"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of session actions, by action and result.",
	},
	[]string{"action", "result"},
)

// OAuthCallbacksTotal counts completed and failed OAuth callbacks.
// Label:
//   - result: "success" or "failure"
var OAuthCallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oauth_callbacks_total",
		Help:      "Total number of OAuth callbacks, by result.",
	},
	[]string{"result"},
)

// WorkspacesActive tracks the number of live client workspaces.
var WorkspacesActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "workspaces_active",
		Help:      "Current number of client workspaces held in memory.",
	},
)

// ── Cart metrics ──────────────────────────────────────────────────────────────

// CartMutationsTotal counts cart mutations.
// Label:
//   - op: "add", "remove", "update", "clear"
var CartMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Total number of cart mutations, by operation.",
	},
	[]string{"op"},
)

// CartSyncTotal counts the outcome of cart snapshot writes.
// Label:
//   - result: "persisted", "stale", "coalesced", "failed", "deferred"
var CartSyncTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_sync_total",
		Help:      "Total number of cart snapshot sync outcomes.",
	},
	[]string{"result"},
)

// CartSyncRetriesTotal counts retried cart writes.
var CartSyncRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_sync_retries_total",
		Help:      "Total number of retried cart snapshot writes.",
	},
)

// CartSyncDuration measures one snapshot write including retries.
// Label:
//   - result: same values as CartSyncTotal
var CartSyncDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cart_sync_duration_seconds",
		Help:      "Duration of cart snapshot persistence from dequeue to ack.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// CartSyncQueueDepth tracks the snapshots waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index
var CartSyncQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cart_sync_queue_depth",
		Help:      "Current number of snapshots pending in each sync worker channel.",
	},
	[]string{"worker_id"},
)

// CartOutboxDepth tracks the number of users with an unpersisted snapshot.
var CartOutboxDepth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cart_outbox_depth",
		Help:      "Number of users with a cart snapshot waiting in the outbox.",
	},
)

// ── Newsletter metrics ────────────────────────────────────────────────────────

// NewsletterSignupsTotal counts footer signups.
// Label:
//   - status: "subscribed", "already_subscribed", "invalid"
var NewsletterSignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "newsletter_signups_total",
		Help:      "Total number of newsletter signups, by status.",
	},
	[]string{"status"},
)
