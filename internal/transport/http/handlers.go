// Package http implements the thin gin transport surface of spec §6:
// searchOffers, acceptOffer, customizeOrder, startPayment,
// confirmPayment, getOrder, modifyOrder. Grounded on the teacher's
// api/bookings.go and api/flights.go (RouterGroup.Register, gin.H error
// bodies), generalized from one status-code-per-error-type mapping to
// apperr.Kind.HTTPStatus()'s full policy (spec §6's status code table),
// and dropping the teacher's parallel gRPC surface since the retrieved
// copy's internal/pb/... generated stubs are absent (see DESIGN.md).
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/gin-gonic/gin"
)

// Generator is the slice of offer.Generator the transport layer calls.
type Generator interface {
	Generate(ctx context.Context, principalID string, search domain.SearchContext, now time.Time) ([]domain.Offer, error)
}

// HoldAccepter is the slice of hold.Manager the transport layer calls.
type HoldAccepter interface {
	AcceptOffer(ctx context.Context, offerID string, contact domain.Contact, travelers []domain.Traveler, now time.Time) (*domain.Order, error)
	ChangeSeat(ctx context.Context, orderID, flightID, oldSeat, newSeat string) error
}

// OrderOps is the slice of order.Engine the transport layer calls.
type OrderOps interface {
	StartPayment(ctx context.Context, orderID, principalID string, now time.Time) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, orderID, principalID, paymentToken string, now time.Time) (*domain.Order, error)
	AddItem(ctx context.Context, orderID, principalID string, item domain.OrderItem) (*domain.Order, error)
	RefundItem(ctx context.Context, orderID, principalID, itemID string, now time.Time) (*domain.Order, error)
}

// OrderReader is the slice of store.OrderRepository the transport layer calls.
type OrderReader interface {
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
}

type Handler struct {
	generator Generator
	holds     HoldAccepter
	orders    OrderOps
	orderRepo OrderReader
}

func NewHandler(generator Generator, holds HoldAccepter, orders OrderOps, orderRepo OrderReader) *Handler {
	return &Handler{generator: generator, holds: holds, orders: orders, orderRepo: orderRepo}
}

func (h *Handler) Register(router *gin.RouterGroup) {
	router.POST("/offers/search", h.searchOffers)
	router.POST("/offers/:offer_id/accept", h.acceptOffer)
	router.POST("/orders/:order_id/customize", h.customizeOrder)
	router.POST("/orders/:order_id/payment/start", h.startPayment)
	router.POST("/orders/:order_id/payment/confirm", h.confirmPayment)
	router.GET("/orders/:order_id", h.getOrder)
	router.POST("/orders/:order_id/modify", h.modifyOrder)
}

func principalID(c *gin.Context) string {
	return c.GetHeader("X-Principal-ID")
}

// fail maps an apperr.Error to spec §6's status code policy. Any other
// error is treated as apperr.KindInternal's 500 default.
func fail(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Kind.HTTPStatus(), gin.H{"error": appErr.Message, "kind": appErr.Kind})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type searchOffersRequest struct {
	Origin        string `json:"origin" binding:"required"`
	Destination   string `json:"destination" binding:"required"`
	DepartureDate string `json:"departure_date" binding:"required"`
	ReturnDate    string `json:"return_date"`
	Passengers    int    `json:"passengers"`
	Cabin         string `json:"cabin"`
}

func (h *Handler) searchOffers(c *gin.Context) {
	var req searchOffersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	search := domain.SearchContext{
		Origin: req.Origin, Destination: req.Destination, DepartureDay: req.DepartureDate,
		ReturnDay: req.ReturnDate, Passengers: req.Passengers, Cabin: req.Cabin,
	}
	offers, err := h.generator.Generate(c.Request.Context(), principalID(c), search, time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

type travelerRequest struct {
	PTC       domain.PTC `json:"ptc"`
	FirstName string     `json:"first_name"`
	LastName  string      `json:"last_name"`
}

type acceptOfferRequest struct {
	Contact   domain.Contact    `json:"contact"`
	Travelers []travelerRequest `json:"travelers"`
}

func (h *Handler) acceptOffer(c *gin.Context) {
	offerID := c.Param("offer_id")
	var req acceptOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	travelers := make([]domain.Traveler, len(req.Travelers))
	for i, t := range req.Travelers {
		travelers[i] = domain.Traveler{Index: i, PTC: t.PTC, FirstName: t.FirstName, LastName: t.LastName}
	}
	order, err := h.holds.AcceptOffer(c.Request.Context(), offerID, req.Contact, travelers, time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

type customizeOrderRequest struct {
	SeatSelections []struct {
		FlightID string `json:"flight_id"`
		OldSeat  string `json:"old_seat"`
		NewSeat  string `json:"new_seat"`
	} `json:"seat_selections"`
}

func (h *Handler) customizeOrder(c *gin.Context) {
	orderID := c.Param("order_id")
	var req customizeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	for _, sel := range req.SeatSelections {
		if err := h.holds.ChangeSeat(c.Request.Context(), orderID, sel.FlightID, sel.OldSeat, sel.NewSeat); err != nil {
			fail(c, err)
			return
		}
	}
	updated, err := h.orderRepo.GetByID(c.Request.Context(), orderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type startPaymentRequest struct {
	PaymentToken string `json:"payment_token"`
}

func (h *Handler) startPayment(c *gin.Context) {
	orderID := c.Param("order_id")
	var req startPaymentRequest
	_ = c.ShouldBindJSON(&req)
	updated, err := h.orders.StartPayment(c.Request.Context(), orderID, principalID(c), time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": updated.Status, "intent_ref": req.PaymentToken})
}

func (h *Handler) confirmPayment(c *gin.Context) {
	orderID := c.Param("order_id")
	var req startPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	updated, err := h.orders.ConfirmPayment(c.Request.Context(), orderID, principalID(c), req.PaymentToken, time.Now().UTC())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": updated.Status, "fulfillment": updated.Fulfillment})
}

func (h *Handler) getOrder(c *gin.Context) {
	orderID := c.Param("order_id")
	o, err := h.orderRepo.GetByID(c.Request.Context(), orderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type modifyOrderRequest struct {
	Add []struct {
		ProductID   string            `json:"product_id"`
		ProductType domain.ProductType `json:"product_type"`
		UnitPrice   domain.Money       `json:"unit_price"`
		Quantity    int               `json:"quantity"`
		FlightID    string            `json:"flight_id"`
	} `json:"add"`
	RefundItems []string `json:"refund_items"`
}

func (h *Handler) modifyOrder(c *gin.Context) {
	orderID := c.Param("order_id")
	var req modifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	principal := principalID(c)
	now := time.Now().UTC()

	var updated *domain.Order
	var err error
	for _, item := range req.Add {
		updated, err = h.orders.AddItem(c.Request.Context(), orderID, principal, domain.OrderItem{
			ProductID: item.ProductID, ProductType: item.ProductType, UnitPrice: item.UnitPrice, Quantity: item.Quantity, FlightID: item.FlightID,
		})
		if err != nil {
			fail(c, err)
			return
		}
	}
	for _, itemID := range req.RefundItems {
		updated, err = h.orders.RefundItem(c.Request.Context(), orderID, principal, itemID, now)
		if err != nil {
			fail(c, err)
			return
		}
	}
	if updated == nil {
		updated, err = h.orderRepo.GetByID(c.Request.Context(), orderID)
		if err != nil {
			fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, updated)
}
