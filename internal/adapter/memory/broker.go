package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

var errDropped = errors.New("memory broker: subscription dropped")

// Broker fans published order changes out to every live subscriber. It
// delivers nothing while no one is subscribed, like a fanout exchange with
// exclusive queues.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	events chan domain.ChangeEvent
	drop   chan struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*subscriber)}
}

func (b *Broker) PublishOrderChanged(ctx context.Context, msg interfaces.OrderChangedMessage) error {
	ev := domain.ChangeEvent{
		OrderID:   msg.OrderID,
		Status:    msg.NewStatus,
		UpdatedAt: msg.UpdatedAt,
		Order:     msg.Order,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		select {
		case s.events <- ev:
		default:
			// Slow subscriber: the message is lost, polling covers it.
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, ready func(), handle func(domain.ChangeEvent)) error {
	s := &subscriber{
		events: make(chan domain.ChangeEvent, 256),
		drop:   make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}()

	if ready != nil {
		ready()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.drop:
			return errDropped
		case ev := <-s.events:
			handle(ev)
		}
	}
}

// DropAll disconnects every current subscriber.
func (b *Broker) DropAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.subs {
		close(s.drop)
		delete(b.subs, id)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
