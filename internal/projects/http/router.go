package http

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/genart-works/genart-backend/internal/auth"
	"github.com/genart-works/genart-backend/internal/projects/service"
)

// Handler serves the project route surface.
type Handler struct {
	svc *service.ProjectService
	// renderLimiter throttles render requests server-wide; each render
	// spawns an untrusted child process.
	renderLimiter *rate.Limiter
}

// Register attaches all project routes. Mutating routes sit behind the JWT
// middleware; reads and renders are public.
func Register(r *gin.Engine, svc *service.ProjectService, issuer *auth.TokenIssuer, renderLimiter *rate.Limiter) {
	h := &Handler{svc: svc, renderLimiter: renderLimiter}

	r.GET("/", h.welcome)
	r.GET("/projects", h.list)
	r.GET("/projects/since/:timestamp", h.listSince)
	r.GET("/projects/user/:username", h.listByUser)
	r.GET("/project/:uuid", h.get)
	r.GET("/project/image/:uuid", h.image)
	r.GET("/project/run/:uuid", h.run)

	authed := r.Group("/")
	authed.Use(auth.RequireUser(issuer))

	authed.GET("/myprojects", h.myProjects)
	authed.POST("/project/create", h.create)
	authed.POST("/project/update/project/:uuid", h.updateMetadata)
	authed.POST("/project/update/jar/:uuid", h.updateExecutable)
	authed.POST("/project/update/image/:uuid", h.updateThumbnail)
	authed.DELETE("/project/delete/:uuid", h.deleteProject)
}
