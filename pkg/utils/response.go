package utils

import (
	"context"
	"errors"
	"net/http"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse define la estructura estándar para las respuestas de error.
type ErrorResponse struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// SendSuccess envía una respuesta exitosa con un payload de datos.
func SendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"data": data,
	})
}

// SendError envía una respuesta de error con un formato estandarizado.
func SendError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"error": ErrorResponse{
			Message: message,
		},
	})
}

// --- Helpers específicos para errores comunes ---

func SendBadRequest(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, message)
}

func SendUnauthorized(c *gin.Context, message string) {
	SendError(c, http.StatusUnauthorized, message)
}

func SendForbidden(c *gin.Context, message string) {
	SendError(c, http.StatusForbidden, message)
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, message)
}

func SendInternalServerError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, message)
}

// StatusFor devuelve el código HTTP de un error de la taxonomía común.
func StatusFor(err error) int {
	switch {
	case sharedDomain.IsValidation(err):
		return http.StatusBadRequest
	case sharedDomain.IsNotFound(err):
		return http.StatusNotFound
	case sharedDomain.IsAuthFailure(err):
		return http.StatusUnauthorized
	case sharedDomain.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// SendDomainError traduce el error a su código. Los 5xx se registran y el
// cliente sólo recibe un mensaje genérico.
func SendDomainError(c *gin.Context, err error, log *zap.Logger) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		SendInternalServerError(c, "Internal server error")
		return
	}

	resp := ErrorResponse{Message: err.Error()}
	var verr sharedDomain.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	c.AbortWithStatusJSON(status, gin.H{"error": resp})
}
