package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

func TestBuildListQuery(t *testing.T) {
	t.Parallel()
	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    interfaces.OrderFilter
		wantWhere string
		wantArgs  int
	}{
		{
			name:     "all orders",
			filter:   interfaces.OrderFilter{},
			wantArgs: 0,
		},
		{
			name:      "active view",
			filter:    interfaces.OrderFilter{Statuses: domain.ActiveStatuses, CompletedSince: &since},
			wantWhere: "WHERE (status = ANY($1) OR (status = 'COMPLETED' AND updated_at > $2))",
			wantArgs:  2,
		},
		{
			name:      "single order",
			filter:    interfaces.OrderFilter{OrderID: "3f1c"},
			wantWhere: "WHERE id = $1",
			wantArgs:  1,
		},
		{
			name:      "status history for one order",
			filter:    interfaces.OrderFilter{Statuses: []domain.Status{domain.StatusCancelled}, OrderID: "3f1c"},
			wantWhere: "WHERE (status = ANY($1)) AND id = $2",
			wantArgs:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildListQuery(tt.filter)
			assert.Len(t, args, tt.wantArgs)
			assert.Contains(t, query, "ORDER BY created_at DESC")
			if tt.wantWhere == "" {
				assert.NotContains(t, query, "WHERE")
			} else {
				assert.Contains(t, query, tt.wantWhere)
			}
		})
	}

	_, args := buildListQuery(interfaces.OrderFilter{Statuses: []domain.Status{domain.StatusNew, domain.StatusPrep}})
	assert.Equal(t, []string{"NEW", "PREP"}, args[0])
}

func TestPayloadRoundTrip(t *testing.T) {
	t.Parallel()
	order := &domain.Order{ID: "a1", Status: domain.StatusReady, UpdatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	payload, err := encodePayload(order)
	require.NoError(t, err)

	ev, err := decodePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "a1", ev.OrderID)
	assert.Equal(t, domain.StatusReady, ev.Status)
	assert.True(t, ev.UpdatedAt.Equal(order.UpdatedAt))
	assert.Nil(t, ev.Order)

	_, err = decodePayload(`{"status":"NEW"}`)
	assert.Error(t, err)
}

func TestInvalidIDIsNotFound(t *testing.T) {
	t.Parallel()
	repo := NewOrderRepository(&fakeDB{}, "")

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = repo.UpdateStatus(context.Background(), "not-a-uuid", domain.StatusPrep, time.Now())
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	orders, err := repo.ListOrders(context.Background(), interfaces.OrderFilter{OrderID: "not-a-uuid"})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

type fakeDB struct {
	DB
	listener *fakeListener
	err      error
}

func (f *fakeDB) Listen(ctx context.Context, channel string) (Listener, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.listener, nil
}

type fakeListener struct {
	notes  chan *Notification
	closed chan struct{}
}

func (l *fakeListener) WaitForNotification(ctx context.Context) (*Notification, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case n, ok := <-l.notes:
		if !ok {
			return nil, errors.New("conn closed")
		}
		return n, nil
	}
}

func (l *fakeListener) Close() {
	close(l.closed)
}

func TestChangeListenerDeliversAndSkipsMalformed(t *testing.T) {
	t.Parallel()
	fl := &fakeListener{notes: make(chan *Notification, 4), closed: make(chan struct{})}
	cl := NewChangeListener(&fakeDB{listener: fl}, "order_changes", logger.Discard())

	fl.notes <- &Notification{Channel: "order_changes", Payload: "not json"}
	fl.notes <- &Notification{Channel: "order_changes", Payload: `{"order_id":"a1","status":"PREP","updated_at":"2024-05-01T12:00:00Z"}`}
	close(fl.notes)

	var got []domain.ChangeEvent
	readyCalled := false
	err := cl.Subscribe(context.Background(), func() { readyCalled = true }, func(ev domain.ChangeEvent) {
		got = append(got, ev)
	})

	assert.Error(t, err, "a dropped connection ends the subscription")
	assert.True(t, readyCalled)
	require.Len(t, got, 1)
	assert.Equal(t, "a1", got[0].OrderID)
	assert.Equal(t, domain.StatusPrep, got[0].Status)

	select {
	case <-fl.closed:
	default:
		t.Fatal("listener not closed")
	}
}

func TestChangeListenerStopsOnCancel(t *testing.T) {
	t.Parallel()
	fl := &fakeListener{notes: make(chan *Notification), closed: make(chan struct{})}
	cl := NewChangeListener(&fakeDB{listener: fl}, "order_changes", logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cl.Subscribe(ctx, cancel, func(domain.ChangeEvent) {}) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop")
	}
}

func TestChangeListenerListenFailure(t *testing.T) {
	t.Parallel()
	cl := NewChangeListener(&fakeDB{err: errors.New("pool exhausted")}, "order_changes", logger.Discard())

	called := false
	err := cl.Subscribe(context.Background(), func() { called = true }, func(domain.ChangeEvent) {})
	assert.Error(t, err)
	assert.False(t, called)
}
