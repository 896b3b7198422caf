package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{sharedDomain.ValidationError{Field: "name"}, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", sharedDomain.NotFoundError{}), http.StatusNotFound},
		{sharedDomain.AuthFailure{}, http.StatusUnauthorized},
		{sharedDomain.ConflictError{Resource: "blog"}, http.StatusConflict},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{sharedDomain.InternalFault{Err: errors.New("db down")}, http.StatusInternalServerError},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestSendDomainError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.ErrorLevel)
	log := zap.New(core)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	SendDomainError(c, sharedDomain.ValidationError{Field: "email", Msg: "is required"}, log)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":{"message":"email: is required","field":"email"}}`, w.Body.String())
	assert.True(t, c.IsAborted())
	assert.Zero(t, logs.Len())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	SendDomainError(c, sharedDomain.InternalFault{Msg: "select failed: secret dsn"}, log)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":{"message":"Internal server error"}}`, w.Body.String())
	assert.Equal(t, 1, logs.Len(), "5xx are logged")
}

func TestSendSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SendSuccess(c, http.StatusCreated, gin.H{"id": "1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"data":{"id":"1"}}`, w.Body.String())
}
