package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/genart-works/genart-backend/config"
	httpapi "github.com/genart-works/genart-backend/internal/api/http"
	"github.com/genart-works/genart-backend/internal/auth"
	projecthttp "github.com/genart-works/genart-backend/internal/projects/http"
	"github.com/genart-works/genart-backend/internal/projects/service"
	"github.com/genart-works/genart-backend/internal/users"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Projects    *service.ProjectService
	Users       users.UserRepository
	Issuer      *auth.TokenIssuer
	Render      *config.RenderConfig
	DB          *pgxpool.Pool // nil on non-Postgres backends
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	auth.Register(r, dep.Users, dep.Issuer)

	renderLimiter := rate.NewLimiter(rate.Limit(dep.Render.RatePerSec), dep.Render.RateBurst)
	projecthttp.Register(r, dep.Projects, dep.Issuer, renderLimiter)

	return r
}
