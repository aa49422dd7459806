package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-firestore-crud/pkg/response"
)

// Pinger reports whether the document store answers.
type Pinger interface {
	TestConnection(ctx context.Context) bool
}

type HealthHandler struct {
	Store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{Store: store}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "alive", nil)
}

func (h *HealthHandler) Readyz(c *gin.Context) {
	if h.Store == nil || !h.Store.TestConnection(c.Request.Context()) {
		response.Error[any](c, http.StatusServiceUnavailable, "document store unavailable", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ready"}, "ready", nil)
}
