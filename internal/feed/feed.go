package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/metrics"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

const (
	KitchenPollInterval = 5 * time.Second
	AdminPollInterval   = 30 * time.Second
	StatusPollInterval  = 30 * time.Second

	defaultReconnectDelay = 5 * time.Second
	sweepInterval         = time.Second
)

type Config struct {
	// Consumer names the surface in logs and metrics.
	Consumer       string
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	// OrderID scopes the feed to a single order. A scoped feed keeps the
	// order in its view after it reaches a terminal status.
	OrderID string
}

type batch struct {
	deltas []Delta
	// full batches are authoritative snapshots of the active set taken at startedAt.
	full      bool
	startedAt time.Time
}

type entry struct {
	order  *domain.Order
	seenAt time.Time
}

// Feed is one consumer's view of the order stream. All merging and callbacks
// run on the goroutine that calls Run; the poll and push loops only enqueue.
type Feed struct {
	cfg    Config
	store  interfaces.OrderStore
	sub    interfaces.ChangeSubscriber
	logger logger.Logger
	now    func() time.Time

	batches   chan batch
	cursor    *Cursor
	connected atomic.Bool

	mu   sync.RWMutex
	view map[string]entry

	cbMu     sync.RWMutex
	onChange []func(Delta)
	onBatch  []func([]*domain.Order)
}

// New creates a feed. sub may be nil, in which case the feed only polls.
func New(cfg Config, store interfaces.OrderStore, sub interfaces.ChangeSubscriber, lgr logger.Logger) *Feed {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = AdminPollInterval
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	return &Feed{
		cfg:     cfg,
		store:   store,
		sub:     sub,
		logger:  lgr,
		now:     time.Now,
		batches: make(chan batch, 64),
		cursor:  NewCursor(),
		view:    make(map[string]entry),
	}
}

// OnOrderChanged registers fn for every delta that survives dedup.
func (f *Feed) OnOrderChanged(fn func(Delta)) {
	f.cbMu.Lock()
	defer f.cbMu.Unlock()
	f.onChange = append(f.onChange, fn)
}

// OnBatch registers fn to receive the active view after each applied batch.
func (f *Feed) OnBatch(fn func([]*domain.Order)) {
	f.cbMu.Lock()
	defer f.cbMu.Unlock()
	f.onBatch = append(f.onBatch, fn)
}

// Connected reports whether the push channel is currently live.
func (f *Feed) Connected() bool {
	return f.connected.Load()
}

// Snapshot returns copies of the orders in the active view, oldest first.
func (f *Feed) Snapshot() []*domain.Order {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshotLocked()
}

// Get returns a copy of one order from the view.
func (f *Feed) Get(id string) (*domain.Order, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.view[id]
	if !ok {
		return nil, false
	}
	return e.order.Clone(), true
}

// Run blocks until ctx is cancelled. On return the poll timer and the push
// subscription have been torn down.
func (f *Feed) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		f.pollLoop(ctx)
	}()

	if f.sub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.pushLoop(ctx)
		}()
	}

	f.logger.Info("feed_started", fmt.Sprintf("Change feed %s started", f.cfg.Consumer), "", map[string]interface{}{
		"consumer":      f.cfg.Consumer,
		"poll_interval": f.cfg.PollInterval.String(),
		"push":          f.sub != nil,
	})

	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			cancel()
			wg.Wait()
			f.connected.Store(false)
			f.logger.Info("feed_stopped", fmt.Sprintf("Change feed %s stopped", f.cfg.Consumer), "", nil)
			return ctx.Err()
		case b := <-f.batches:
			f.apply(b)
		case <-sweep.C:
			f.sweep()
		}
	}
}

func (f *Feed) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	f.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.pollOnce(ctx)
		}
	}
}

func (f *Feed) pollOnce(ctx context.Context) {
	b, err := f.fetch(ctx, SourcePoll)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.PollFailures.WithLabelValues(f.cfg.Consumer).Inc()
		f.logger.Error("poll_failed", "Failed to poll orders, keeping current view", "", map[string]interface{}{
			"consumer": f.cfg.Consumer,
		}, err)
		return
	}
	f.enqueue(ctx, b)
}

func (f *Feed) fetch(ctx context.Context, source Source) (batch, error) {
	startedAt := f.now()
	orders, err := f.store.ListOrders(ctx, f.filter(startedAt))
	if err != nil {
		return batch{}, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	deltas := make([]Delta, 0, len(orders))
	for _, o := range orders {
		deltas = append(deltas, Delta{OrderID: o.ID, UpdatedAt: o.UpdatedAt, Order: o, Source: source})
	}
	return batch{deltas: deltas, full: true, startedAt: startedAt}, nil
}

func (f *Feed) filter(now time.Time) interfaces.OrderFilter {
	if f.cfg.OrderID != "" {
		return interfaces.OrderFilter{OrderID: f.cfg.OrderID}
	}
	since := now.Add(-domain.CompletedRetention)
	return interfaces.OrderFilter{
		Statuses:       domain.ActiveStatuses,
		CompletedSince: &since,
	}
}

func (f *Feed) pushLoop(ctx context.Context) {
	for {
		err := f.sub.Subscribe(ctx, func() { f.onConnected(ctx) }, func(ev domain.ChangeEvent) { f.onPush(ctx, ev) })
		f.connected.Store(false)
		if ctx.Err() != nil {
			return
		}

		if err == nil {
			err = errors.New("subscription closed")
		}
		metrics.SubscriptionDrops.WithLabelValues(f.cfg.Consumer).Inc()
		f.logger.Error("subscription_dropped", "Push channel dropped, falling back to polling", "", map[string]interface{}{
			"consumer":        f.cfg.Consumer,
			"reconnect_delay": f.cfg.ReconnectDelay.String(),
		}, fmt.Errorf("%w: %w", domain.ErrSubscriptionDropped, err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.cfg.ReconnectDelay):
		}
	}
}

// onConnected runs a full resync: every currently active order is fed back
// in as if it were new, so anything missed while disconnected is recovered.
func (f *Feed) onConnected(ctx context.Context) {
	f.connected.Store(true)
	metrics.Resyncs.WithLabelValues(f.cfg.Consumer).Inc()
	f.logger.Info("subscription_connected", "Push channel connected, resyncing", "", map[string]interface{}{
		"consumer": f.cfg.Consumer,
	})

	b, err := f.fetch(ctx, SourceResync)
	if err != nil {
		if ctx.Err() == nil {
			metrics.PollFailures.WithLabelValues(f.cfg.Consumer).Inc()
			f.logger.Error("resync_failed", "Failed to resync after connect", "", map[string]interface{}{
				"consumer": f.cfg.Consumer,
			}, err)
		}
		return
	}
	f.enqueue(ctx, b)
}

func (f *Feed) onPush(ctx context.Context, ev domain.ChangeEvent) {
	if f.cfg.OrderID != "" && ev.OrderID != f.cfg.OrderID {
		return
	}

	order := ev.Order
	if order == nil {
		found, err := f.store.FindByID(ctx, ev.OrderID)
		if err != nil {
			// The next poll backfills it.
			f.logger.Debug("push_lookup_failed", "Failed to load pushed order", "", map[string]interface{}{
				"consumer": f.cfg.Consumer,
				"order_id": ev.OrderID,
				"error":    err.Error(),
			})
			return
		}
		order = found
	}

	f.enqueue(ctx, batch{deltas: []Delta{{
		OrderID:   order.ID,
		UpdatedAt: order.UpdatedAt,
		Order:     order,
		Source:    SourcePush,
	}}})
}

func (f *Feed) enqueue(ctx context.Context, b batch) {
	select {
	case f.batches <- b:
	case <-ctx.Done():
	}
}

func (f *Feed) apply(b batch) {
	delivered := f.cursor.Merge(b.deltas)
	now := f.now()

	received := make(map[Source]int)
	for _, d := range b.deltas {
		received[d.Source]++
	}
	for _, d := range delivered {
		received[d.Source]--
	}
	for source, n := range received {
		if n > 0 {
			metrics.DeltasDropped.WithLabelValues(f.cfg.Consumer, string(source)).Add(float64(n))
		}
	}

	f.mu.Lock()
	for _, d := range b.deltas {
		if d.Order == nil {
			continue
		}
		cur, ok := f.view[d.OrderID]
		if !ok || d.UpdatedAt.After(cur.order.UpdatedAt) {
			f.view[d.OrderID] = entry{order: d.Order.Clone(), seenAt: now}
		}
	}

	if b.full {
		present := make(map[string]struct{}, len(b.deltas))
		for _, d := range b.deltas {
			present[d.OrderID] = struct{}{}
		}
		for id, e := range f.view {
			// Entries learned after the snapshot query started may simply be
			// newer than the snapshot.
			if _, ok := present[id]; !ok && e.seenAt.Before(b.startedAt) {
				delete(f.view, id)
			}
		}
	}
	f.pruneLocked(now)
	snapshot := f.snapshotLocked()
	f.mu.Unlock()

	metrics.ActiveOrders.WithLabelValues(f.cfg.Consumer).Set(float64(len(snapshot)))

	f.cbMu.RLock()
	onChange := f.onChange
	onBatch := f.onBatch
	f.cbMu.RUnlock()

	for _, d := range delivered {
		metrics.DeltasDelivered.WithLabelValues(f.cfg.Consumer, string(d.Source)).Inc()
		for _, fn := range onChange {
			fn(d)
		}
	}
	for _, fn := range onBatch {
		fn(snapshot)
	}
}

// sweep drops completed orders whose retention window has passed.
func (f *Feed) sweep() {
	f.mu.Lock()
	removed := f.pruneLocked(f.now())
	var snapshot []*domain.Order
	if removed > 0 {
		snapshot = f.snapshotLocked()
	}
	f.mu.Unlock()

	if removed == 0 {
		return
	}

	metrics.ActiveOrders.WithLabelValues(f.cfg.Consumer).Set(float64(len(snapshot)))
	f.cbMu.RLock()
	onBatch := f.onBatch
	f.cbMu.RUnlock()
	for _, fn := range onBatch {
		fn(snapshot)
	}
}

func (f *Feed) pruneLocked(now time.Time) int {
	if f.cfg.OrderID != "" {
		return 0
	}
	removed := 0
	for id, e := range f.view {
		if !e.order.IsActive(now) {
			delete(f.view, id)
			removed++
		}
	}
	return removed
}

func (f *Feed) snapshotLocked() []*domain.Order {
	out := make([]*domain.Order, 0, len(f.view))
	for _, e := range f.view {
		out = append(out, e.order.Clone())
	}
	SortOldestFirst(out)
	return out
}

// SortOldestFirst orders by CreatedAt, breaking ties by id.
func SortOldestFirst(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.Before(orders[j].CreatedAt)
		}
		return orders[i].ID < orders[j].ID
	})
}
