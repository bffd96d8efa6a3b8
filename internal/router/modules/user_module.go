package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/m0hi1/voyageiq/internal/interface/http"
	"github.com/m0hi1/voyageiq/internal/interface/middleware"
	"github.com/m0hi1/voyageiq/pkg/helpers"
)

// UserModule registers the guarded profile and admin surface.
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, JWT: jwt, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(middleware.RateLimit(m.Redis, 120, time.Minute, middleware.KeyByUserID(), middleware.AllowPrivateIP()))
	{
		auth.GET("/users/me", m.Handler.Me)
		auth.PATCH("/users/me", m.Handler.UpdateMe)
		auth.POST("/users/me/avatar", m.Handler.UploadAvatar)
		// search before :id so the route doesn't shadow it
		auth.GET("/users/search", middleware.RequireAdmin(), m.Handler.Search)
		auth.GET("/users/:id", middleware.RequireSelfOrAdmin("id"), m.Handler.GetUser)
	}
}
