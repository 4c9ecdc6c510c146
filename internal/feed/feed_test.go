package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/memory"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type flakyStore struct {
	*memory.Store
	failing atomic.Bool
}

func (s *flakyStore) ListOrders(ctx context.Context, filter interfaces.OrderFilter) ([]*domain.Order, error) {
	if s.failing.Load() {
		return nil, errors.New("connection refused")
	}
	return s.Store.ListOrders(ctx, filter)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	deltas []Delta
}

func (r *recorder) record(d Delta) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deltas = append(r.deltas, d)
}

func (r *recorder) count(id string, status domain.Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.deltas {
		if d.OrderID == id && d.Order.Status == status {
			n++
		}
	}
	return n
}

func (r *recorder) sourceOf(id string, status domain.Status) Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.deltas {
		if d.OrderID == id && d.Order.Status == status {
			return d.Source
		}
	}
	return ""
}

func seed(t *testing.T, s interfaces.OrderStore, id string, status domain.Status, ts time.Time) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &domain.Order{
		ID:        id,
		Status:    status,
		Items:     []domain.OrderItem{{Name: "Taco", UnitPrice: 3, Quantity: 1}},
		CreatedAt: ts,
		UpdatedAt: ts,
	}))
}

func startFeed(t *testing.T, f *Feed) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	var once sync.Once
	var runErr error
	stop = func() error {
		once.Do(func() {
			cancel()
			select {
			case runErr = <-done:
			case <-time.After(waitFor):
				runErr = errors.New("feed did not stop")
			}
		})
		return runErr
	}
	t.Cleanup(func() { _ = stop() })
	return stop
}

func statusOf(f *Feed, id string) domain.Status {
	o, ok := f.Get(id)
	if !ok {
		return ""
	}
	return o.Status
}

func TestFeedDeliversPushAndPollOnce(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	broker := memory.NewBroker()
	start := time.Now()
	seed(t, store, "o1", domain.StatusNew, start)

	f := New(Config{Consumer: "test", PollInterval: 20 * time.Millisecond}, store, broker, logger.Discard())
	rec := &recorder{}
	f.OnOrderChanged(rec.record)
	startFeed(t, f)

	require.Eventually(t, f.Connected, waitFor, tick)
	require.Eventually(t, func() bool { return rec.count("o1", domain.StatusNew) == 1 }, waitFor, tick)

	updated, err := store.UpdateStatus(context.Background(), "o1", domain.StatusPrep, start.Add(time.Second))
	require.NoError(t, err)
	require.NoError(t, broker.PublishOrderChanged(context.Background(), interfaces.OrderChangedMessage{
		OrderID:   "o1",
		OldStatus: domain.StatusNew,
		NewStatus: domain.StatusPrep,
		UpdatedAt: updated.UpdatedAt,
		Order:     updated,
	}))

	require.Eventually(t, func() bool { return statusOf(f, "o1") == domain.StatusPrep }, waitFor, tick)
	// Several poll cycles that all see the same PREP version.
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, rec.count("o1", domain.StatusNew))
	assert.Equal(t, 1, rec.count("o1", domain.StatusPrep))
}

func TestFeedPollFailureKeepsView(t *testing.T) {
	t.Parallel()
	store := &flakyStore{Store: memory.NewStore()}
	seed(t, store, "o1", domain.StatusNew, time.Now())

	f := New(Config{Consumer: "test", PollInterval: 10 * time.Millisecond}, store, nil, logger.Discard())
	startFeed(t, f)

	require.Eventually(t, func() bool { return len(f.Snapshot()) == 1 }, waitFor, tick)

	store.failing.Store(true)
	time.Sleep(60 * time.Millisecond)

	snap := f.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "o1", snap[0].ID)

	store.failing.Store(false)
	seed(t, store, "o2", domain.StatusNew, time.Now())
	assert.Eventually(t, func() bool { return len(f.Snapshot()) == 2 }, waitFor, tick)
}

func TestFeedPollCoversDroppedPush(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	broker := memory.NewBroker()
	start := time.Now()
	seed(t, store, "o1", domain.StatusPrep, start)

	f := New(Config{Consumer: "test", PollInterval: 30 * time.Millisecond, ReconnectDelay: time.Hour}, store, broker, logger.Discard())
	startFeed(t, f)

	require.Eventually(t, f.Connected, waitFor, tick)
	require.Eventually(t, func() bool { return statusOf(f, "o1") == domain.StatusPrep }, waitFor, tick)

	broker.DropAll()
	require.Eventually(t, func() bool { return !f.Connected() }, waitFor, tick)

	// No push for this change; only the next poll can carry it.
	_, err := store.UpdateStatus(context.Background(), "o1", domain.StatusReady, start.Add(time.Second))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return statusOf(f, "o1") == domain.StatusReady }, waitFor, tick)
}

func TestFeedResyncsOnReconnect(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	broker := memory.NewBroker()
	start := time.Now()
	seed(t, store, "o1", domain.StatusNew, start)

	f := New(Config{Consumer: "test", PollInterval: time.Hour, ReconnectDelay: 20 * time.Millisecond}, store, broker, logger.Discard())
	rec := &recorder{}
	f.OnOrderChanged(rec.record)
	startFeed(t, f)

	require.Eventually(t, f.Connected, waitFor, tick)
	require.Eventually(t, func() bool { return statusOf(f, "o1") == domain.StatusNew }, waitFor, tick)

	broker.DropAll()
	_, err := store.UpdateStatus(context.Background(), "o1", domain.StatusPrep, start.Add(time.Second))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return statusOf(f, "o1") == domain.StatusPrep }, waitFor, tick)
	assert.Equal(t, SourceResync, rec.sourceOf("o1", domain.StatusPrep))
	assert.True(t, f.Connected())
}

func TestFeedResolvesPushWithoutPayload(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	broker := memory.NewBroker()
	start := time.Now()
	seed(t, store, "o1", domain.StatusNew, start)

	f := New(Config{Consumer: "test", PollInterval: time.Hour}, store, broker, logger.Discard())
	startFeed(t, f)

	require.Eventually(t, f.Connected, waitFor, tick)
	require.Eventually(t, func() bool { return statusOf(f, "o1") == domain.StatusNew }, waitFor, tick)

	updated, err := store.UpdateStatus(context.Background(), "o1", domain.StatusPrep, start.Add(time.Second))
	require.NoError(t, err)
	require.NoError(t, broker.PublishOrderChanged(context.Background(), interfaces.OrderChangedMessage{
		OrderID:   "o1",
		NewStatus: domain.StatusPrep,
		UpdatedAt: updated.UpdatedAt,
	}))

	assert.Eventually(t, func() bool { return statusOf(f, "o1") == domain.StatusPrep }, waitFor, tick)
}

func TestFeedPrunesCompletedAfterRetention(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{t: t0}
	store := memory.NewStore()
	seed(t, store, "done", domain.StatusCompleted, t0)
	seed(t, store, "prep", domain.StatusPrep, t0)

	f := New(Config{Consumer: "test", PollInterval: 10 * time.Millisecond}, store, nil, logger.Discard())
	f.now = clock.Now
	startFeed(t, f)

	require.Eventually(t, func() bool { return len(f.Snapshot()) == 2 }, waitFor, tick)

	clock.Add(domain.CompletedRetention - time.Second)
	time.Sleep(40 * time.Millisecond)
	assert.Len(t, f.Snapshot(), 2, "completed order stays inside the retention window")

	clock.Add(2 * time.Second)
	require.Eventually(t, func() bool { return len(f.Snapshot()) == 1 }, waitFor, tick)
	assert.Equal(t, "prep", f.Snapshot()[0].ID)
}

func TestScopedFeedKeepsTerminalOrder(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{t: t0}
	store := memory.NewStore()
	seed(t, store, "mine", domain.StatusReady, t0)
	seed(t, store, "other", domain.StatusNew, t0)

	f := New(Config{Consumer: "status", PollInterval: 10 * time.Millisecond, OrderID: "mine"}, store, nil, logger.Discard())
	f.now = clock.Now
	startFeed(t, f)

	require.Eventually(t, func() bool { return statusOf(f, "mine") == domain.StatusReady }, waitFor, tick)
	_, ok := f.Get("other")
	assert.False(t, ok)

	_, err := store.UpdateStatus(context.Background(), "mine", domain.StatusCompleted, t0.Add(time.Second))
	require.NoError(t, err)
	clock.Add(time.Hour)

	require.Eventually(t, func() bool { return statusOf(f, "mine") == domain.StatusCompleted }, waitFor, tick)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, domain.StatusCompleted, statusOf(f, "mine"))
}

func TestFeedBatchIsOldestFirst(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	start := time.Now()
	seed(t, store, "b", domain.StatusNew, start.Add(time.Second))
	seed(t, store, "a", domain.StatusNew, start)

	f := New(Config{Consumer: "test", PollInterval: time.Hour}, store, nil, logger.Discard())
	got := make(chan []*domain.Order, 4)
	f.OnBatch(func(orders []*domain.Order) { got <- orders })
	startFeed(t, f)

	select {
	case orders := <-got:
		require.Len(t, orders, 2)
		assert.Equal(t, "a", orders[0].ID)
		assert.Equal(t, "b", orders[1].ID)
	case <-time.After(waitFor):
		t.Fatal("no batch delivered")
	}
}

func TestFeedRunTearsDown(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	broker := memory.NewBroker()

	f := New(Config{Consumer: "test", PollInterval: 10 * time.Millisecond}, store, broker, logger.Discard())
	stop := startFeed(t, f)

	require.Eventually(t, func() bool { return broker.Subscribers() == 1 }, waitFor, tick)

	err := stop()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, broker.Subscribers())
	assert.False(t, f.Connected())
}
