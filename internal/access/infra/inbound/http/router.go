package http

import "github.com/gin-gonic/gin"

// RegisterAuthRoutes monta /auth. limit se aplica sólo al login.
func RegisterAuthRoutes(rg *gin.RouterGroup, handler *AuthHandler, limit ...gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", append(limit, handler.Login)...)
	}
}
