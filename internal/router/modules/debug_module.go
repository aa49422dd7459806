package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-firestore-crud/internal/interface/http"
	"github.com/oksasatya/go-firestore-crud/internal/interface/middleware"
)

// DebugModule serves liveness, readiness and expvar metrics.
type DebugModule struct {
	Health *handlers.HealthHandler
	Redis  *redis.Client
}

func NewDebugModule(h *handlers.HealthHandler, rdb *redis.Client) *DebugModule {
	return &DebugModule{Health: h, Redis: rdb}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.Health.Healthz)
	rg.GET("/readyz", m.Health.Readyz)

	var store middleware.Store
	if m.Redis != nil {
		store = m.Redis
	}
	rl := middleware.RateLimit(store, 120, time.Minute, middleware.KeyByIP(), nil)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
