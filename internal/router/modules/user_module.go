package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-firestore-crud/internal/interface/http"
	"github.com/oksasatya/go-firestore-crud/internal/interface/middleware"
)

// UserModule wires the user CRUD routes under the given group (usually /api).
// Bulk delete and export carry a per-IP limiter when Redis is configured.
type UserModule struct {
	Handler *handlers.UserHandler
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	var store middleware.Store
	if m.Redis != nil {
		store = m.Redis
	}
	general := middleware.RateLimit(store, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	destructive := middleware.RateLimit(store, 5, time.Minute, middleware.KeyByIPAndPath(), nil)

	users := rg.Group("/users", general)
	{
		users.POST("", m.Handler.Create)
		users.POST("/batch", m.Handler.CreateBatch)
		users.GET("", m.Handler.List)
		users.GET("/by-email", m.Handler.GetByEmail)
		users.GET("/age-range", m.Handler.AgeRange)
		users.GET("/search", m.Handler.Search)
		users.GET("/stats", m.Handler.Stats)
		users.GET("/:id", m.Handler.Get)
		users.PUT("/:id", m.Handler.Update)
		users.PATCH("/:id/email", m.Handler.UpdateEmail)
		users.DELETE("/:id", m.Handler.Delete)
		users.DELETE("", destructive, m.Handler.DeleteByAgeRange)
		users.POST("/export", destructive, m.Handler.Export)
	}
}
