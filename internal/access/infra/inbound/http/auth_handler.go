package http

import (
	"context"
	"net/http"

	"github.com/davicafu/hexacrud/internal/access/application"
	"github.com/davicafu/hexacrud/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*application.LoginResult, error)
}

// AuthHandler expone el login.
type AuthHandler struct {
	service Authenticator
	log     *zap.Logger
}

func NewAuthHandler(service Authenticator, log *zap.Logger) *AuthHandler {
	return &AuthHandler{service: service, log: log}
}

// Login endpoint POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		ID       string `json:"id" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBadRequest(c, "id and password are required")
		return
	}

	res, err := h.service.Login(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		utils.SendDomainError(c, err, h.log)
		return
	}
	utils.SendSuccess(c, http.StatusOK, res)
}
