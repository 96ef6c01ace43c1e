package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter wires the handler into a gin.Engine under /v1, matching the
// teacher's RouterGroup.Register convention (api/bookings.go,
// api/flights.go) generalized from two resource groups to one offers/orders group.
func NewRouter(h *Handler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	v1 := engine.Group("/v1")
	h.Register(v1)
	return engine
}
