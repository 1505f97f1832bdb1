package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"ltgsite/internal/admin"
	"ltgsite/internal/api/middleware"
)

// Deps are the components behind the HTTP routes.
type Deps struct {
	Jobs         PublishedLister
	Intake       Submitter
	Auth         Authenticator
	Tokens       middleware.TokenValidator
	Sessions     *admin.Sessions
	LoginLimiter LoginLimiter
	Logger       *slog.Logger
	MaxBody      int64
}

// RegisterRoutes mounts the API below /v1.
func RegisterRoutes(router *gin.Engine, deps Deps) {
	jobsHandler := NewJobsHandler(deps.Jobs, deps.Logger)
	intakeHandler := NewIntakeHandler(deps.Intake, deps.Logger, deps.MaxBody)
	authHandler := NewAuthHandler(deps.Auth, deps.Sessions, deps.LoginLimiter, deps.Logger)
	adminHandler := NewAdminHandler(deps.Sessions, deps.Logger)
	authMiddleware := middleware.AuthMiddleware(deps.Tokens)

	v1 := router.Group("/v1")
	{
		v1.GET("/jobs", jobsHandler.ListPublished)
		v1.POST("/anfrage", intakeHandler.Submit)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		adminGroup := v1.Group("/admin")
		adminGroup.Use(authMiddleware, middleware.TabMiddleware())
		{
			adminGroup.GET("/form", adminHandler.GetForm)
			adminGroup.PATCH("/form", adminHandler.PatchForm)
			adminGroup.POST("/form/save", adminHandler.SaveForm)
			adminGroup.POST("/form/reset", adminHandler.ResetForm)
			adminGroup.POST("/form/edit/:id", adminHandler.EditJob)

			adminGroup.GET("/jobs", adminHandler.ListJobs)
			adminGroup.GET("/jobs/export", adminHandler.ExportJobs)
			adminGroup.POST("/jobs/:id/publish", adminHandler.TogglePublished)
			adminGroup.DELETE("/jobs/:id", adminHandler.DeleteJob)
		}
	}
}
