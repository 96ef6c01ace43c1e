package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, principalID string, search domain.SearchContext, now time.Time) ([]domain.Offer, error) {
	args := m.Called(ctx, principalID, search, now)
	offers, _ := args.Get(0).([]domain.Offer)
	return offers, args.Error(1)
}

type MockHoldAccepter struct {
	mock.Mock
}

func (m *MockHoldAccepter) AcceptOffer(ctx context.Context, offerID string, contact domain.Contact, travelers []domain.Traveler, now time.Time) (*domain.Order, error) {
	args := m.Called(ctx, offerID, contact, travelers, now)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockHoldAccepter) ChangeSeat(ctx context.Context, orderID, flightID, oldSeat, newSeat string) error {
	args := m.Called(ctx, orderID, flightID, oldSeat, newSeat)
	return args.Error(0)
}

type MockOrderOps struct {
	mock.Mock
}

func (m *MockOrderOps) StartPayment(ctx context.Context, orderID, principalID string, now time.Time) (*domain.Order, error) {
	args := m.Called(ctx, orderID, principalID, now)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockOrderOps) ConfirmPayment(ctx context.Context, orderID, principalID, paymentToken string, now time.Time) (*domain.Order, error) {
	args := m.Called(ctx, orderID, principalID, paymentToken, now)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockOrderOps) AddItem(ctx context.Context, orderID, principalID string, item domain.OrderItem) (*domain.Order, error) {
	args := m.Called(ctx, orderID, principalID, item)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *MockOrderOps) RefundItem(ctx context.Context, orderID, principalID, itemID string, now time.Time) (*domain.Order, error) {
	args := m.Called(ctx, orderID, principalID, itemID, now)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

type MockOrderReader struct {
	mock.Mock
}

func (m *MockOrderReader) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHandler_SearchOffers_Success(t *testing.T) {
	gen := &MockGenerator{}
	handler := NewHandler(gen, &MockHoldAccepter{}, &MockOrderOps{}, &MockOrderReader{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	body, _ := json.Marshal(map[string]any{"origin": "JFK", "destination": "LAX", "departure_date": "2026-09-01"})
	c.Request = httptest.NewRequest("POST", "/offers/search", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	offers := []domain.Offer{{OfferID: "offer-1", Total: 10000}}
	gen.On("Generate", mock.Anything, "", mock.AnythingOfType("domain.SearchContext"), mock.Anything).Return(offers, nil).Once()

	handler.searchOffers(c)

	assert.Equal(t, http.StatusOK, w.Code)
	gen.AssertExpectations(t)
}

func TestHandler_SearchOffers_InvalidBody(t *testing.T) {
	handler := NewHandler(&MockGenerator{}, &MockHoldAccepter{}, &MockOrderOps{}, &MockOrderReader{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/offers/search", bytes.NewReader([]byte("not json")))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.searchOffers(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_SearchOffers_GeneratorErrorMapsToAppErrStatus(t *testing.T) {
	gen := &MockGenerator{}
	handler := NewHandler(gen, &MockHoldAccepter{}, &MockOrderOps{}, &MockOrderReader{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(map[string]any{"origin": "JFK", "destination": "LAX", "departure_date": "2026-09-01"})
	c.Request = httptest.NewRequest("POST", "/offers/search", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	gen.On("Generate", mock.Anything, "", mock.AnythingOfType("domain.SearchContext"), mock.Anything).
		Return(nil, apperr.New(apperr.KindValidation, "invalid departure_day")).Once()

	handler.searchOffers(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandler_AcceptOffer_Success(t *testing.T) {
	holds := &MockHoldAccepter{}
	handler := NewHandler(&MockGenerator{}, holds, &MockOrderOps{}, &MockOrderReader{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "offer_id", Value: "offer-1"}}
	body, _ := json.Marshal(map[string]any{"contact": map[string]string{"email": "a@b.com"}})
	c.Request = httptest.NewRequest("POST", "/offers/offer-1/accept", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	order := &domain.Order{OrderID: "order-1", Status: domain.OrderStatusProposed}
	holds.On("AcceptOffer", mock.Anything, "offer-1", mock.Anything, mock.Anything, mock.Anything).Return(order, nil).Once()

	handler.acceptOffer(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	holds.AssertExpectations(t)
}

func TestHandler_AcceptOffer_ExpiredOfferMapsTo410(t *testing.T) {
	holds := &MockHoldAccepter{}
	handler := NewHandler(&MockGenerator{}, holds, &MockOrderOps{}, &MockOrderReader{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "offer_id", Value: "offer-1"}}
	c.Request = httptest.NewRequest("POST", "/offers/offer-1/accept", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	holds.On("AcceptOffer", mock.Anything, "offer-1", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperr.Wrap(apperr.KindExpired, "offer expired", apperr.ErrOfferExpired)).Once()

	handler.acceptOffer(c)

	assert.Equal(t, http.StatusGone, w.Code)
}

func TestHandler_GetOrder_Success(t *testing.T) {
	reader := &MockOrderReader{}
	handler := NewHandler(&MockGenerator{}, &MockHoldAccepter{}, &MockOrderOps{}, reader)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "order_id", Value: "order-1"}}
	c.Request = httptest.NewRequest("GET", "/orders/order-1", nil)

	order := &domain.Order{OrderID: "order-1", Status: domain.OrderStatusProposed}
	reader.On("GetByID", mock.Anything, "order-1").Return(order, nil).Once()

	handler.getOrder(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var response domain.Order
	require := assert.New(t)
	require.NoError(json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal("order-1", response.OrderID)
}

func TestHandler_GetOrder_NotFoundMapsTo404(t *testing.T) {
	reader := &MockOrderReader{}
	handler := NewHandler(&MockGenerator{}, &MockHoldAccepter{}, &MockOrderOps{}, reader)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "order_id", Value: "order-1"}}
	c.Request = httptest.NewRequest("GET", "/orders/order-1", nil)

	reader.On("GetByID", mock.Anything, "order-1").Return(nil, apperr.New(apperr.KindNotFound, "no such order")).Once()

	handler.getOrder(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_StartPayment_Success(t *testing.T) {
	ops := &MockOrderOps{}
	handler := NewHandler(&MockGenerator{}, &MockHoldAccepter{}, ops, &MockOrderReader{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "order_id", Value: "order-1"}}
	c.Request = httptest.NewRequest("POST", "/orders/order-1/payment/start", bytes.NewReader([]byte(`{}`)))
	c.Request.Header.Set("Content-Type", "application/json")

	order := &domain.Order{OrderID: "order-1", Status: domain.OrderStatusPaymentPending}
	ops.On("StartPayment", mock.Anything, "order-1", "", mock.Anything).Return(order, nil).Once()

	handler.startPayment(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_ConfirmPayment_DeclineMapsTo402(t *testing.T) {
	ops := &MockOrderOps{}
	handler := NewHandler(&MockGenerator{}, &MockHoldAccepter{}, ops, &MockOrderReader{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "order_id", Value: "order-1"}}
	body, _ := json.Marshal(map[string]string{"payment_token": "tok_decline"})
	c.Request = httptest.NewRequest("POST", "/orders/order-1/payment/confirm", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	ops.On("ConfirmPayment", mock.Anything, "order-1", "", "tok_decline", mock.Anything).
		Return(nil, apperr.Wrap(apperr.KindPaymentDeclined, "payment declined", nil)).Once()

	handler.confirmPayment(c)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestHandler_ModifyOrder_AddsAndRefunds(t *testing.T) {
	ops := &MockOrderOps{}
	handler := NewHandler(&MockGenerator{}, &MockHoldAccepter{}, ops, &MockOrderReader{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "order_id", Value: "order-1"}}
	body, _ := json.Marshal(map[string]any{
		"add":          []map[string]any{{"product_id": "meal-1", "product_type": "MEAL", "unit_price": 500, "quantity": 1}},
		"refund_items": []string{"item-2"},
	})
	c.Request = httptest.NewRequest("POST", "/orders/order-1/modify", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	afterAdd := &domain.Order{OrderID: "order-1", Total: 10500}
	afterRefund := &domain.Order{OrderID: "order-1", Total: 10000}
	ops.On("AddItem", mock.Anything, "order-1", "", mock.AnythingOfType("domain.OrderItem")).Return(afterAdd, nil).Once()
	ops.On("RefundItem", mock.Anything, "order-1", "", "item-2", mock.Anything).Return(afterRefund, nil).Once()

	handler.modifyOrder(c)

	assert.Equal(t, http.StatusOK, w.Code)
	ops.AssertExpectations(t)
}

func TestHandler_CustomizeOrder_ChangesSeatsThenReturnsOrder(t *testing.T) {
	holds := &MockHoldAccepter{}
	reader := &MockOrderReader{}
	handler := NewHandler(&MockGenerator{}, holds, &MockOrderOps{}, reader)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "order_id", Value: "order-1"}}
	body, _ := json.Marshal(map[string]any{
		"seat_selections": []map[string]string{{"flight_id": "fl-1", "old_seat": "12A", "new_seat": "14C"}},
	})
	c.Request = httptest.NewRequest("POST", "/orders/order-1/customize", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	holds.On("ChangeSeat", mock.Anything, "order-1", "fl-1", "12A", "14C").Return(nil).Once()
	reader.On("GetByID", mock.Anything, "order-1").Return(&domain.Order{OrderID: "order-1"}, nil).Once()

	handler.customizeOrder(c)

	assert.Equal(t, http.StatusOK, w.Code)
	holds.AssertExpectations(t)
}
