package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YelzhanWeb/foodtruck/internal/adapter/logger"
	"github.com/YelzhanWeb/foodtruck/internal/domain"
	"github.com/YelzhanWeb/foodtruck/internal/interfaces"
)

type fakeOrderService struct {
	created interfaces.CreateOrderCommand
	err     error
}

func (f *fakeOrderService) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	f.created = cmd
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Order{ID: "o1", Status: domain.StatusNew, TotalAmount: 12.5}, nil
}

func (f *fakeOrderService) UpdateStatus(ctx context.Context, orderID string, status domain.Status, changedBy string) (*domain.Order, error) {
	return nil, errors.New("unused")
}

func (f *fakeOrderService) AdvanceNext(ctx context.Context, orderID string, changedBy string) (*domain.Order, error) {
	return nil, errors.New("unused")
}

type fakeKitchen struct {
	alert      *domain.Order
	ackErr     error
	advanceErr error
}

func (f *fakeKitchen) ActiveOrders() []*domain.Order {
	return []*domain.Order{{ID: "o1", Status: domain.StatusNew}}
}
func (f *fakeKitchen) ActiveAlert() *domain.Order { return f.alert }
func (f *fakeKitchen) AcknowledgeAlert(ctx context.Context) error {
	if f.ackErr != nil {
		return f.ackErr
	}
	f.alert = nil
	return nil
}
func (f *fakeKitchen) Advance(ctx context.Context, orderID string) (*domain.Order, error) {
	if f.advanceErr != nil {
		return nil, f.advanceErr
	}
	return &domain.Order{ID: orderID, Status: domain.StatusPrep}, nil
}
func (f *fakeKitchen) LoadClassification() domain.Load { return domain.Classify(3, 4) }

type fakeAdmin struct {
	listStatus *domain.Status
	updateErr  error
}

func (f *fakeAdmin) ListOrders(ctx context.Context, status *domain.Status) ([]*domain.Order, error) {
	f.listStatus = status
	return []*domain.Order{}, nil
}
func (f *fakeAdmin) UpdateStatus(ctx context.Context, orderID string, status domain.Status) (*domain.Order, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.Order{ID: orderID, Status: status}, nil
}
func (f *fakeAdmin) Overview() interfaces.Overview {
	return interfaces.Overview{ActiveOrders: 5, WaitTime: domain.AdminWaitTime(5)}
}
func (f *fakeAdmin) Volume() domain.Volume { return domain.VolumeLoad(0, 0) }

type fakeTracking struct{}

func (fakeTracking) GetOrderStatus(ctx context.Context, orderID string) (*interfaces.TrackingOrderResponse, error) {
	if orderID != "o1" {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	return &interfaces.TrackingOrderResponse{
		Order:    &domain.Order{ID: "o1", Status: domain.StatusPrep},
		WaitTime: domain.AdminWaitTime(1),
	}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestStatusCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{&domain.InvalidTransitionError{Current: domain.StatusReady, Requested: domain.StatusNew}, http.StatusConflict},
		{fmt.Errorf("%w: db down", domain.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{domain.ErrAcknowledgeWithoutAlert, http.StatusConflict},
		{fmt.Errorf("%w: x", domain.ErrOrderNotFound), http.StatusNotFound},
		{domain.ErrInvalidStatus, http.StatusBadRequest},
		{domain.ErrValidation, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusCode(tt.err), tt.err.Error())
	}
}

func TestCreateOrderHandler(t *testing.T) {
	t.Parallel()
	svc := &fakeOrderService{}
	h := NewRouter(logger.Discard(), NewOrderHandler(svc, logger.Discard()))

	rec := do(t, h, http.MethodPost, "/orders", `{
		"customer_name": " Dana ",
		"customer_email": "dana@example.com",
		"items": [{"name": "Burrito", "unit_price": 8, "quantity": 1,
		           "modifiers": [{"group": "Extras", "option": "Guac", "price_delta": 1.5}]}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decode[CreateOrderResponse](t, rec)
	assert.Equal(t, "o1", resp.ID)
	assert.Equal(t, "NEW", resp.Status)

	assert.Equal(t, "Dana", svc.created.CustomerName)
	require.Len(t, svc.created.Items, 1)
	assert.Equal(t, "Guac", svc.created.Items[0].Modifiers[0].Option)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestCreateOrderValidation(t *testing.T) {
	t.Parallel()
	h := NewRouter(logger.Discard(), NewOrderHandler(&fakeOrderService{}, logger.Discard()))

	rec := do(t, h, http.MethodPost, "/orders", `{"customer_name": "", "items": [{"name": "", "unit_price": -1, "quantity": 0}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)

	var fields []string
	for _, e := range resp.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"customer_name", "items[0].name", "items[0].quantity", "items[0].unit_price"}, fields)

	rec = do(t, h, http.MethodPost, "/orders", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderStoreDown(t *testing.T) {
	t.Parallel()
	svc := &fakeOrderService{err: fmt.Errorf("%w: dial tcp", domain.ErrStoreUnavailable)}
	h := NewRouter(logger.Discard(), NewOrderHandler(svc, logger.Discard()))

	rec := do(t, h, http.MethodPost, "/orders", `{"customer_name": "Dana", "items": [{"name": "Taco", "unit_price": 3, "quantity": 1}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "STORE_UNAVAILABLE", decode[ErrorResponse](t, rec).Code)
}

func TestKitchenHandler(t *testing.T) {
	t.Parallel()
	k := &fakeKitchen{alert: &domain.Order{ID: "o1", Status: domain.StatusNew}}
	h := NewRouter(logger.Discard(), NewKitchenHandler(k, logger.Discard()))

	rec := do(t, h, http.MethodGet, "/kitchen/alert", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o1", decode[AlertResponse](t, rec).Alert.ID)

	rec = do(t, h, http.MethodPost, "/kitchen/alert/ack", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[AlertResponse](t, rec).Alert)

	k.ackErr = domain.ErrAcknowledgeWithoutAlert
	rec = do(t, h, http.MethodPost, "/kitchen/alert/ack", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ACK_WITHOUT_ALERT", decode[ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodPost, "/kitchen/orders/o7/advance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	adv := decode[AdvanceResponse](t, rec)
	assert.Equal(t, "o7", adv.Order.ID)
	assert.Equal(t, "Order accepted - Now preparing", adv.Message)

	k.advanceErr = &domain.InvalidTransitionError{Current: domain.StatusCompleted, Requested: domain.StatusCompleted}
	rec = do(t, h, http.MethodPost, "/kitchen/orders/o7/advance", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/kitchen/load", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.LoadMedium, decode[domain.Load](t, rec).Level)

	rec = do(t, h, http.MethodGet, "/kitchen/orders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Order](t, rec), 1)
}

func TestAdminHandler(t *testing.T) {
	t.Parallel()
	a := &fakeAdmin{}
	h := NewRouter(logger.Discard(), NewAdminHandler(a, logger.Discard()))

	rec := do(t, h, http.MethodGet, "/admin/orders?status=prep", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, a.listStatus)
	assert.Equal(t, domain.StatusPrep, *a.listStatus)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/admin/orders?status=EATEN", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/admin/orders/o1/status", `{"status": "CANCELLED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.StatusCancelled, decode[domain.Order](t, rec).Status)

	a.updateErr = &domain.InvalidTransitionError{Current: domain.StatusReady, Requested: domain.StatusNew}
	rec = do(t, h, http.MethodPost, "/admin/orders/o1/status", `{"status": "NEW"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodGet, "/admin/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "25-30 min", decode[interfaces.Overview](t, rec).WaitTime.Label)

	rec = do(t, h, http.MethodGet, "/metrics/volume", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"load_state":"LOW","active_orders_count":0,"pending_items_count":0,"estimated_wait_minutes":null}`, rec.Body.String())
}

func TestTrackingHandler(t *testing.T) {
	t.Parallel()
	h := NewRouter(logger.Discard(), NewTrackingHandler(fakeTracking{}, logger.Discard()))

	rec := do(t, h, http.MethodGet, "/orders/o1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[interfaces.TrackingOrderResponse](t, rec)
	assert.Equal(t, domain.StatusPrep, resp.Order.Status)

	rec = do(t, h, http.MethodGet, "/orders/nope/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", decode[ErrorResponse](t, rec).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	h := NewRouter(logger.Discard())

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "req-42", rr.Header().Get(RequestIDHeader))
}
