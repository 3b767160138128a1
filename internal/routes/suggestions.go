package routes

import (
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/handlers"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterSuggestionRoutes(r gin.IRouter) {
	suggestions := r.Group("/suggestions")
	{
		// Public list (with optional auth for vote status)
		suggestions.GET("", middleware.OptionalAuthMiddleware(), handlers.ListSuggestions)

		protected := suggestions.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.POST("", middleware.RateLimitMiddleware(10, time.Minute), handlers.CreateSuggestion)
			protected.POST("/:id/vote", middleware.RateLimitMiddleware(30, time.Minute), handlers.VoteSuggestion)
		}
	}
}
