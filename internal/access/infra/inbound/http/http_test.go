package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/davicafu/hexacrud/internal/access/application"
	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGate struct {
	decision accessDomain.Decision
	header   string
}

func (g *stubGate) Authorize(_ context.Context, header string, resource accessDomain.Resource, action accessDomain.Action) accessDomain.Decision {
	g.header = header
	d := g.decision
	d.Resource, d.Action = resource, action
	return d
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Message
}

func TestRequirePermission(t *testing.T) {
	cases := []struct {
		name    string
		d       accessDomain.Decision
		status  int
		message string
	}{
		{"allowed", accessDomain.Decision{Allowed: true, PrincipalID: "u1"}, http.StatusOK, ""},
		{"unauthorized", accessDomain.Decision{Reason: accessDomain.ReasonUnauthorized}, http.StatusUnauthorized, "Unauthorized!"},
		{"denied", accessDomain.Decision{Reason: accessDomain.ReasonAccessDenied}, http.StatusForbidden, "Access denied!"},
		{"internal", accessDomain.Decision{Reason: accessDomain.ReasonInternal}, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gate := &stubGate{decision: tc.d}
			reached := false
			r := gin.New()
			r.GET("/blog", Guard(gate)(accessDomain.ResourceBlog, accessDomain.ActionReadMany), func(c *gin.Context) {
				reached = true
				assert.Equal(t, "u1", c.GetString(PrincipalKey))
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/blog", nil)
			req.Header.Set("Authorization", "Bearer abc")
			r.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.d.Allowed, reached)
			assert.Equal(t, "Bearer abc", gate.header)
			if tc.message != "" {
				assert.Equal(t, tc.message, errorMessage(t, w))
			}
		})
	}
}

type stubAuth struct {
	res *application.LoginResult
	err error
}

func (s stubAuth) Login(_ context.Context, _, _ string) (*application.LoginResult, error) {
	return s.res, s.err
}

func login(t *testing.T, auth Authenticator, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	RegisterAuthRoutes(r.Group("/api/v1"), NewAuthHandler(auth, zap.NewNop()))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestLoginHandler(t *testing.T) {
	ok := stubAuth{res: &application.LoginResult{Token: "tok", User: map[string]interface{}{"_id": "u1"}}}

	w := login(t, ok, `{"id":"ana","password":"x"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"token":"tok","user":{"_id":"u1"}}}`, w.Body.String())

	w = login(t, ok, `{"id":"ana"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad := stubAuth{err: sharedDomain.ValidationError{Field: "password", Msg: "is incorrect", Err: accessDomain.ErrInvalidCredentials}}
	w = login(t, bad, `{"id":"ana","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "password: is incorrect", errorMessage(t, w))

	missing := stubAuth{err: sharedDomain.NotFoundError{Resource: "user"}}
	w = login(t, missing, `{"id":"ana","password":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
