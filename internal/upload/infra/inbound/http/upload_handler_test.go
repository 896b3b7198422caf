package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	recordApp "github.com/davicafu/hexacrud/internal/record/application"
	recordHttp "github.com/davicafu/hexacrud/internal/record/infra/inbound/http"
	uploadApp "github.com/davicafu/hexacrud/internal/upload/application"
	"github.com/davicafu/hexacrud/internal/upload/infra/outbound/storage"
	"github.com/davicafu/hexacrud/tests/mocks"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, *[]string) {
	t.Helper()
	files, err := storage.NewFileSystemStorage(t.TempDir())
	require.NoError(t, err)
	records := recordApp.NewRecordService(mocks.NewInMemoryRecordRepo(), mocks.NewDummyCache(), zap.NewNop(),
		recordApp.WithAttachmentStore(uploadApp.Attachments{Storage: files}))
	svc := uploadApp.NewUploadService(files, records, zap.NewNop())

	var guarded []string
	guard := func(res accessDomain.Resource, act accessDomain.Action) gin.HandlerFunc {
		return func(c *gin.Context) {
			guarded = append(guarded, accessDomain.PermissionName(res, act))
			c.Next()
		}
	}
	r := gin.New()
	handler := NewUploadHandler(svc, recordHttp.NewPresenter("http://cdn.test"), zap.NewNop())
	RegisterUploadRoutes(r, handler, guard)
	return r, &guarded
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadThenServe(t *testing.T) {
	r, guarded := newRouter(t)

	body, ct := multipartBody(t, "file", "notes.txt", "hola mundo")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, []string{"upload:create"}, *guarded)

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "notes.txt", resp.Data["name"])
	url, _ := resp.Data["path"].(string)
	require.True(t, strings.HasPrefix(url, "http://cdn.test/uploads/"), url)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, strings.TrimPrefix(url, "http://cdn.test"), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hola mundo", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestUpload_MissingFile(t *testing.T) {
	r, _ := newRouter(t)

	body, ct := multipartBody(t, "other", "notes.txt", "x")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file is required")
}

func TestServe_NotFound(t *testing.T) {
	r, _ := newRouter(t)

	for _, path := range []string{"/uploads/missing.png", "/uploads/../go.mod"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}
