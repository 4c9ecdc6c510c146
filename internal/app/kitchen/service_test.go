package kitchen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/adapter/memory"
	"github.com/YelzhanWeb/foodtruck/internal/app/order"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/feed"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

func TestKitchenSessionAlertsAndAdvances(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewStore()
	broker := memory.NewBroker()
	orders := order.NewService(store, broker, logger.Discard())

	f := feed.New(feed.Config{Consumer: "kitchen", PollInterval: 20 * time.Millisecond}, store, broker, logger.Discard())
	log := &alertLog{}
	alerts := NewAlertCoordinator("display-1", memory.NewAckStore(), log.add, logger.Discard())
	svc := NewService(f, alerts, orders, logger.Discard(), "display-1")

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	cmd := interfaces.CreateOrderCommand{
		CustomerName: "Dana",
		Items:        []interfaces.CreateOrderItemCommand{{Name: "Taco", UnitPrice: 3, Quantity: 4}},
	}
	created, err := orders.CreateOrder(ctx, cmd)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		a := svc.ActiveAlert()
		return a != nil && a.ID == created.ID
	}, 2*time.Second, 5*time.Millisecond)

	assert.Len(t, svc.ActiveOrders(), 1)
	assert.Equal(t, domain.LoadLow, svc.LoadClassification().Level)

	advanced, err := svc.Advance(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPrep, advanced.Status)

	// Moving the order on retires its alert without an acknowledge.
	require.Eventually(t, func() bool { return svc.ActiveAlert() == nil }, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, svc.AcknowledgeAlert(ctx), domain.ErrAcknowledgeWithoutAlert)
	assert.Equal(t, []string{created.ID}, log.all())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("kitchen session did not stop")
	}
}
