package http

import (
	"context"
	"io"
	"net/http"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	recordHttp "github.com/davicafu/hexacrud/internal/record/infra/inbound/http"
	uploadApp "github.com/davicafu/hexacrud/internal/upload/application"
	uploadDomain "github.com/davicafu/hexacrud/internal/upload/domain"
	"github.com/davicafu/hexacrud/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxUploadSize limita el cuerpo de POST /upload.
const MaxUploadSize = 10 << 20

type UploadUseCases interface {
	Upload(ctx context.Context, in uploadApp.UploadInput) (*recordDomain.Record, error)
	Open(ctx context.Context, key string) (io.ReadCloser, uploadDomain.ObjectInfo, error)
}

type UploadHandler struct {
	service   UploadUseCases
	presenter *recordHttp.Presenter
	log       *zap.Logger
}

func NewUploadHandler(service UploadUseCases, presenter *recordHttp.Presenter, log *zap.Logger) *UploadHandler {
	return &UploadHandler{service: service, presenter: presenter, log: log}
}

// Upload recibe el fichero en el campo multipart "file".
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	fh, err := c.FormFile("file")
	if err != nil {
		utils.SendBadRequest(c, "file is required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.SendBadRequest(c, "file could not be read")
		return
	}
	defer f.Close()

	rec, err := h.service.Upload(c.Request.Context(), uploadApp.UploadInput{
		Filename:    fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		utils.SendDomainError(c, err, h.log)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, h.presenter.Format(rec))
}

// Serve devuelve el contenido de /uploads/*key.
func (h *UploadHandler) Serve(c *gin.Context) {
	rc, info, err := h.service.Open(c.Request.Context(), c.Param("key"))
	if err != nil {
		utils.SendDomainError(c, err, h.log)
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, info.Size, contentType, rc, nil)
}

// RegisterUploadRoutes monta POST /upload (protegida) y GET /uploads/*key
// (pública, como los estáticos). Van fuera de /api/v1, donde /upload es el
// CRUD de la colección.
func RegisterUploadRoutes(r gin.IRoutes, handler *UploadHandler, guard recordHttp.Guard) {
	r.POST("/upload", guard(accessDomain.ResourceUpload, accessDomain.ActionCreate), handler.Upload)
	r.GET("/uploads/*key", handler.Serve)
}
