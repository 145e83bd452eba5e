package handlers

import (
	"github.com/Brownie44l1/freshness-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the public routes. m may be nil to disable metrics.
func NewRouter(h *Handler, origins []string, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), RequestID())
	if m != nil {
		router.Use(Instrument(m))
	}
	router.Use(CORS(origins))

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.POST("/predict", h.Predict)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	return router
}
