package router

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/m0hi1/voyageiq/config"
	"github.com/m0hi1/voyageiq/internal/application"
	"github.com/m0hi1/voyageiq/internal/infrastructure/postgres"
	handlers "github.com/m0hi1/voyageiq/internal/interface/http"
	"github.com/m0hi1/voyageiq/internal/router/modules"
	"github.com/m0hi1/voyageiq/pkg/helpers"
)

// Deps carries the shared infrastructure built in main(). Everything is
// injected at construction; there are no ambient singletons.
type Deps struct {
	Cfg    *config.Config
	Logger *logrus.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	JWT    *helpers.JWTManager
	Hasher *helpers.Hasher
	Pub    *helpers.RabbitPublisher
	GCS    *storage.Client
	ES     *elasticsearch.Client
}

// InitModules wires services, handlers, and route modules from the shared
// infrastructure. Called once during startup.
func InitModules(r *Registry, d Deps) {
	repo := postgres.NewUserRepository(d.Pool)

	authSvc := application.NewAuthService(repo, d.Hasher, d.JWT, d.Pub, d.Logger, d.Cfg)
	userSvc := application.NewUserService(repo, d.GCS, d.Cfg.GCSBucket, d.Logger, d.ES, d.Cfg.ESUsersIndex)

	cookies := helpers.NewCookieManager(d.Cfg.CookieDomain, d.Cfg.IsProduction())

	authHandler := handlers.NewAuthHandler(authSvc, cookies, d.Logger)
	userHandler := handlers.NewUserHandler(userSvc, d.Logger)

	r.Add(modules.NewAuthModule(authHandler, d.Redis))
	r.Add(modules.NewUserModule(userHandler, d.JWT, d.Redis))
	if d.Cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(d.Redis))
	}
}
