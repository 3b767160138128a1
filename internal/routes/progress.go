package routes

import (
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/handlers"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterProgressRoutes sets up module progress and exercise grading
// endpoints. All of them require auth: progress is always per-user.
func RegisterProgressRoutes(r gin.IRouter) {
	progress := r.Group("/progress")
	progress.Use(middleware.AuthMiddleware())
	{
		progress.GET("", handlers.GetProgress)
		progress.GET("/:moduleId", handlers.GetModuleProgress)
		progress.POST("/:moduleId", middleware.RateLimitMiddleware(30, time.Minute), handlers.SubmitProgress)
	}

	exercises := r.Group("/exercises")
	exercises.Use(middleware.AuthMiddleware())
	{
		// Grading calls an external AI service, so keep the rate tight
		exercises.POST("/:moduleId/submit", middleware.RateLimitMiddleware(10, time.Minute), handlers.SubmitExercise)
	}
}
