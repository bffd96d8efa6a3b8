package router

import "github.com/gin-gonic/gin"

// Module is a feature surface that mounts its routes on the shared /api
// group. Each module owns its own per-route middleware (guards, limits).
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry queues modules and mounts them in insertion order. Order
// matters for modules that pair static routes with parameterized
// siblings.
type Registry struct {
	Engine  *gin.Engine
	API     *gin.RouterGroup
	modules []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

// Add queues a module; nothing is mounted until RegisterAll runs.
func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

// RegisterAll mounts every queued module on the /api group.
func (r *Registry) RegisterAll() {
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
