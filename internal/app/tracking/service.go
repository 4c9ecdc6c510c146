package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/feed"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

// DefaultWatchIdle is how long a customer status watch lives without requests.
const DefaultWatchIdle = 2 * time.Minute

var steps = []struct {
	status      domain.Status
	label       string
	description string
}{
	{domain.StatusNew, "Order Received", "Your order has been received and confirmed"},
	{domain.StatusPrep, "In Preparation", "Our kitchen is preparing your order"},
	{domain.StatusReady, "Ready for Pickup", "Your order is ready! Come pick it up at the truck"},
	{domain.StatusCompleted, "Order Completed", "Thank you for your order!"},
}

type Config struct {
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	WatchIdle      time.Duration
}

type watch struct {
	feed     *feed.Feed
	cancel   context.CancelFunc
	lastSeen time.Time
}

// Service backs the customer status page. Each tracked order gets its own
// scoped feed, started on first request and stopped once nobody asks for it.
// A shared unscoped feed supplies the wait-time band.
type Service struct {
	cfg    Config
	store  interfaces.OrderStore
	sub    interfaces.ChangeSubscriber
	logger logger.Logger
	load   *feed.Feed
	now    func() time.Time

	mu      sync.Mutex
	ctx     context.Context
	watches map[string]*watch
	wg      sync.WaitGroup
}

func NewService(cfg Config, store interfaces.OrderStore, sub interfaces.ChangeSubscriber, logger logger.Logger) *Service {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = feed.StatusPollInterval
	}
	if cfg.WatchIdle <= 0 {
		cfg.WatchIdle = DefaultWatchIdle
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		sub:    sub,
		logger: logger,
		load: feed.New(feed.Config{
			Consumer:       "status-page",
			PollInterval:   cfg.PollInterval,
			ReconnectDelay: cfg.ReconnectDelay,
		}, store, sub, logger),
		now:     time.Now,
		watches: make(map[string]*watch),
	}
}

// Run drives the shared feed and evicts idle watches until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.load.Run(ctx)
	}()

	ticker := time.NewTicker(s.cfg.WatchIdle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for id, w := range s.watches {
				w.cancel()
				delete(s.watches, id)
			}
			s.ctx = nil
			s.mu.Unlock()
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *Service) GetOrderStatus(ctx context.Context, orderID string) (*interfaces.TrackingOrderResponse, error) {
	order := s.watched(orderID)
	if order == nil {
		// First request for this order, or the watch has not polled yet.
		found, err := s.store.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				return nil, err
			}
			s.logger.Error("db_query_failed", "Failed to load order status", "", map[string]interface{}{
				"order_id": orderID,
			}, err)
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		order = found
	}
	// Only orders that exist get a live feed.
	s.watch(orderID)

	active, _ := domain.LoadInputs(s.load.Snapshot())
	return &interfaces.TrackingOrderResponse{
		Order:    order,
		Steps:    Steps(order.Status),
		WaitTime: domain.AdminWaitTime(active),
	}, nil
}

// Watching reports how many orders currently have a live watch.
func (s *Service) Watching() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

// watched returns the order from its running watch, if there is one.
func (s *Service) watched(orderID string) *domain.Order {
	s.mu.Lock()
	w, ok := s.watches[orderID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if o, ok := w.feed.Get(orderID); ok {
		return o
	}
	return nil
}

// watch starts a scoped feed for orderID or refreshes the running one.
func (s *Service) watch(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.watches[orderID]; ok {
		w.lastSeen = s.now()
		return
	}
	if s.ctx == nil {
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	w := &watch{
		feed: feed.New(feed.Config{
			Consumer:       "status-page",
			PollInterval:   s.cfg.PollInterval,
			ReconnectDelay: s.cfg.ReconnectDelay,
			OrderID:        orderID,
		}, s.store, s.sub, s.logger),
		cancel:   cancel,
		lastSeen: s.now(),
	}
	s.watches[orderID] = w

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = w.feed.Run(ctx)
	}()

	s.logger.Debug("watch_started", fmt.Sprintf("Watching order %s", orderID), "", nil)
}

func (s *Service) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, w := range s.watches {
		if now.Sub(w.lastSeen) >= s.cfg.WatchIdle {
			w.cancel()
			delete(s.watches, id)
			s.logger.Debug("watch_stopped", fmt.Sprintf("Stopped watching order %s", id), "", nil)
		}
	}
}

// Steps renders the customer progress bar. A cancelled order has no active step.
func Steps(current domain.Status) []interfaces.StatusStep {
	idx := -1
	for i, st := range steps {
		if st.status == current {
			idx = i
		}
	}

	out := make([]interfaces.StatusStep, len(steps))
	for i, st := range steps {
		out[i] = interfaces.StatusStep{
			Status:      st.status,
			Label:       st.label,
			Description: st.description,
			IsCompleted: idx >= 0 && i < idx,
			IsActive:    i == idx,
			IsPending:   idx >= 0 && i > idx,
		}
	}
	return out
}
