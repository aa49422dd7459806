package router

import (
	"github.com/oksasatya/go-firestore-crud/internal/container"
	handlers "github.com/oksasatya/go-firestore-crud/internal/interface/http"
	"github.com/oksasatya/go-firestore-crud/internal/router/modules"
)

// InitModules builds handlers from the container and adds their modules to the registry.
// Call it once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	userHandler := handlers.NewUserHandler(c.Service, c.Logger)
	healthHandler := handlers.NewHealthHandler(c)

	r.Add(modules.NewUserModule(userHandler, c.Redis))
	r.Add(modules.NewDebugModule(healthHandler, c.Redis))
}
