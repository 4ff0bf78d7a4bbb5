package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/pepcraft/storefront/internal/api/metrics"
	"github.com/pepcraft/storefront/internal/core/domain"
	"github.com/pepcraft/storefront/internal/core/ports"
)

const (
	defaultWorkers       = 8
	defaultMaxRetries    = 5
	defaultFlushInterval = 30 * time.Second
	channelBuffer        = 256

	outboxTimeout = 2 * time.Second
	writeTimeout  = 10 * time.Second
)

// Options tunes the dispatcher. Zero values select the defaults.
type Options struct {
	Workers       int
	MaxRetries    int
	FlushInterval time.Duration
	// InitialBackoff and MaxBackoff bound the exponential retry delay.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// depther is implemented by outboxes that can report their size.
type depther interface {
	Depth(ctx context.Context) (int64, error)
}

// CartSyncDispatcher persists cart snapshots in the background. Snapshots are
// routed by user id to a fixed worker, so writes for one user are serialized.
// Outbox writes happen on the worker side; Enqueue does no I/O.
// It implements ports.CartSyncer.
type CartSyncDispatcher struct {
	workers []chan domain.CartSnapshot
	repo    ports.CartRepository
	outbox  ports.CartOutbox
	log     zerolog.Logger

	// latest is the newest version enqueued per user and not yet acked.
	mu     sync.Mutex
	latest map[string]int64

	maxRetries     int
	flushInterval  time.Duration
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewCartSyncDispatcher creates a dispatcher with opts.Workers sharded workers.
func NewCartSyncDispatcher(repo ports.CartRepository, outbox ports.CartOutbox, opts Options, log zerolog.Logger) *CartSyncDispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}

	d := &CartSyncDispatcher{
		workers:        make([]chan domain.CartSnapshot, opts.Workers),
		repo:           repo,
		outbox:         outbox,
		log:            log,
		latest:         make(map[string]int64),
		maxRetries:     opts.MaxRetries,
		flushInterval:  opts.FlushInterval,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.CartSnapshot, channelBuffer)
	}
	return d
}

// Start launches the workers and the flush loop, and immediately re-enqueues
// whatever a previous run left in the outbox. Everything stops when ctx is
// cancelled.
func (d *CartSyncDispatcher) Start(ctx context.Context) {
	d.Flush(ctx)
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
	go d.runFlusher(ctx)
}

// Enqueue hands snap to its user's worker and returns at once. When the
// worker's channel is full the snapshot is written to the outbox from a
// separate goroutine and picked up by the next flush.
func (d *CartSyncDispatcher) Enqueue(snap domain.CartSnapshot) {
	d.mu.Lock()
	if snap.Version > d.latest[snap.UserID] {
		d.latest[snap.UserID] = snap.Version
	}
	d.mu.Unlock()

	if !d.trySend(snap) {
		metrics.CartSyncTotal.WithLabelValues("deferred").Inc()
		go d.deferToOutbox(snap)
	}
}

func (d *CartSyncDispatcher) deferToOutbox(snap domain.CartSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), outboxTimeout)
	defer cancel()
	if err := d.outbox.Put(ctx, snap); err != nil {
		d.log.Error().Err(err).Str("user_id", snap.UserID).Int64("version", snap.Version).Msg("cart snapshot dropped")
		return
	}
	d.log.Warn().Str("user_id", snap.UserID).Msg("sync queue full, deferring to flush")
}

// superseded reports whether a newer snapshot for the same user was enqueued.
func (d *CartSyncDispatcher) superseded(snap domain.CartSnapshot) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest[snap.UserID] > snap.Version
}

func (d *CartSyncDispatcher) forget(snap domain.CartSnapshot) {
	d.mu.Lock()
	if d.latest[snap.UserID] == snap.Version {
		delete(d.latest, snap.UserID)
	}
	d.mu.Unlock()
}

// Flush re-enqueues every snapshot still pending in the outbox.
func (d *CartSyncDispatcher) Flush(ctx context.Context) int {
	users, err := d.outbox.Pending(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("outbox scan failed")
		return 0
	}

	sent := 0
	for _, userID := range users {
		snap, err := d.outbox.Get(ctx, userID)
		if err != nil {
			d.log.Error().Err(err).Str("user_id", userID).Msg("outbox read failed")
			continue
		}
		if snap != nil && d.trySend(*snap) {
			sent++
		}
	}
	d.reportOutboxDepth(ctx)
	if sent > 0 {
		d.log.Info().Int("snapshots", sent).Msg("outbox flushed")
	}
	return sent
}

func (d *CartSyncDispatcher) trySend(snap domain.CartSnapshot) bool {
	idx := d.shardIndex(snap.UserID)
	select {
	case d.workers[idx] <- snap:
		metrics.CartSyncQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		return false
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *CartSyncDispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *CartSyncDispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.CartSnapshot) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			metrics.CartSyncQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.process(ctx, id, snap)
		}
	}
}

func (d *CartSyncDispatcher) runFlusher(ctx context.Context) {
	ticker := time.NewTicker(d.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Flush(ctx)
		}
	}
}

// process records snap in the outbox and writes it. A snapshot superseded by a
// newer one is skipped; the newer one has its own queue or outbox entry.
func (d *CartSyncDispatcher) process(ctx context.Context, workerID int, snap domain.CartSnapshot) {
	start := time.Now()
	log := d.log.With().Str("user_id", snap.UserID).Int64("version", snap.Version).Int("worker_id", workerID).Logger()

	if d.superseded(snap) {
		d.observe("coalesced", start)
		return
	}

	putCtx, cancel := context.WithTimeout(ctx, outboxTimeout)
	err := d.outbox.Put(putCtx, snap)
	cancel()
	if err != nil {
		log.Error().Err(err).Msg("outbox put failed, writing without a durable copy")
	} else if pending, err := d.outbox.Get(ctx, snap.UserID); err == nil && pending != nil && pending.Version > snap.Version {
		d.observe("coalesced", start)
		return
	}

	err = backoff.RetryNotify(func() error {
		opCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		defer cancel()
		err := d.repo.Replace(opCtx, snap.UserID, snap.Items, snap.Version)
		if errors.Is(err, domain.ErrStaleWrite) {
			return backoff.Permanent(err)
		}
		return err
	}, d.newBackoff(ctx), func(err error, wait time.Duration) {
		metrics.CartSyncRetriesTotal.Inc()
		log.Warn().Err(err).Dur("retry_in", wait).Msg("cart write failed, retrying")
	})

	result := "persisted"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStaleWrite):
		result = "stale"
		log.Debug().Msg("stale cart snapshot dropped")
	default:
		d.observe("failed", start)
		log.Error().Err(err).Msg("cart write failed, left in outbox")
		return
	}

	if err := d.outbox.Ack(ctx, snap.UserID, snap.Version); err != nil {
		log.Error().Err(err).Msg("outbox ack failed")
	}
	d.forget(snap)
	d.observe(result, start)
}

func (d *CartSyncDispatcher) newBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.initialBackoff
	b.MaxInterval = d.maxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.maxRetries)), ctx)
}

func (d *CartSyncDispatcher) observe(result string, start time.Time) {
	metrics.CartSyncTotal.WithLabelValues(result).Inc()
	metrics.CartSyncDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

func (d *CartSyncDispatcher) reportOutboxDepth(ctx context.Context) {
	dp, ok := d.outbox.(depther)
	if !ok {
		return
	}
	n, err := dp.Depth(ctx)
	if err != nil {
		return
	}
	metrics.CartOutboxDepth.Set(float64(n))
}
