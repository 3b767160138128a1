package routes

import (
	"time"

	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/handlers"
	"github.com/Soumahoro-Aboubakar/prompt-saas-sub000/internal/middleware"
	"github.com/gin-gonic/gin"
)

func RegisterAuthRoutes(r gin.IRouter) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", middleware.RateLimitMiddleware(5, time.Minute), handlers.Register)
		auth.POST("/login", middleware.RateLimitMiddleware(10, time.Minute), handlers.Login)
	}
}
