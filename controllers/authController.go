package controllers

import (
	"HospitalBooking/handlers"
	"HospitalBooking/middlewares"
	"HospitalBooking/models"
	"HospitalBooking/utils"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Handler *handlers.AuthHandler
	tokens  *utils.TokenMaker
}

// NewAuthController creates a new AuthController with the given AuthHandler
func NewAuthController(authHandler *handlers.AuthHandler, tokens *utils.TokenMaker) *AuthController {
	return &AuthController{
		Handler: authHandler,
		tokens:  tokens,
	}
}

// RegisterRoutes initializes all authentication routes directly on the router
func (ac *AuthController) RegisterRoutes(router *gin.Engine) {
	// Public routes: No authentication required
	router.POST("/auth/register", ac.Handler.Register)
	router.POST("/auth/login", ac.Handler.Login)
	router.POST("/auth/refresh-token", ac.Handler.RefreshToken)

	// Protected routes: Requires a valid token
	authGroup := router.Group("/auth").Use(middlewares.TokenAuthMiddleware(ac.tokens))
	{
		authGroup.POST("/logoff", ac.Handler.Logoff)
		authGroup.GET("/user/profile", ac.Handler.GetUserProfile)
	}

	// Admin routes: Requires a valid token and "Admin" role
	adminGroup := router.Group("/admin").Use(
		middlewares.TokenAuthMiddleware(ac.tokens),
		middlewares.RoleAuthMiddleware(models.RoleAdmin),
	)
	{
		adminGroup.GET("/users", ac.Handler.AdminManageUsers)
	}
}
