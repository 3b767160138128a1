package routes

import (
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/handlers"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterStatsRoutes(r gin.IRouter) {
	stats := r.Group("/stats")
	{
		// Public leaderboard (read-only projection)
		stats.GET("/leaderboard", handlers.GetLeaderboard)

		protected := stats.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("", handlers.GetStats)
			protected.PUT("/xp", middleware.RateLimitMiddleware(20, time.Minute), handlers.GrantXP)
		}
	}
}
