package http

import (
	"context"
	"net/http"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	"github.com/davicafu/hexacrud/pkg/utils"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPageSize acota el limit pedido por query string.
const MaxPageSize = 100

// RecordUseCases es lo que el handler usa de application.RecordService.
type RecordUseCases interface {
	Create(ctx context.Context, collection string, fields map[string]interface{}) (*recordDomain.Record, error)
	CreateMany(ctx context.Context, collection string, items []map[string]interface{}) ([]*recordDomain.Record, error)
	Get(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error)
	GetBy(ctx context.Context, collection, field string, value interface{}) (*recordDomain.Record, error)
	List(ctx context.Context, collection string, spec sharedQuery.Spec) (*sharedQuery.Page[*recordDomain.Record], error)
	Update(ctx context.Context, collection string, id uuid.UUID, patch map[string]interface{}) (*recordDomain.Record, error)
	ToggleStatus(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error)
	SoftDelete(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error)
	ToggleSoftDelete(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error)
	HardDelete(ctx context.Context, collection string, id uuid.UUID) error
	ToggleStatusMany(ctx context.Context, collection string, ids []uuid.UUID) (int64, error)
	SoftDeleteMany(ctx context.Context, collection string, ids []uuid.UUID) (int64, error)
	ToggleSoftDeleteMany(ctx context.Context, collection string, ids []uuid.UUID) (int64, error)
	Recover(ctx context.Context, collection string, ids []uuid.UUID) (int64, error)
	HardDeleteMany(ctx context.Context, collection string, ids []uuid.UUID) (int64, error)
}

// RecordHandler encapsula los endpoints HTTP de una colección.
type RecordHandler struct {
	service    RecordUseCases
	collection string
	presenter  *Presenter
	log        *zap.Logger
}

func NewRecordHandler(service RecordUseCases, collection string, presenter *Presenter, log *zap.Logger) *RecordHandler {
	return &RecordHandler{
		service:    service,
		collection: collection,
		presenter:  presenter,
		log:        log,
	}
}

type idsRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

func (h *RecordHandler) fail(c *gin.Context, err error) {
	utils.SendDomainError(c, err, h.log)
}

func (h *RecordHandler) respond(c *gin.Context, status int, r *recordDomain.Record) {
	utils.SendSuccess(c, status, h.presenter.Format(r))
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func bodyIDs(c *gin.Context) ([]uuid.UUID, bool) {
	var req idsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		utils.SendBadRequest(c, recordDomain.ErrNoIDs.Error())
		return nil, false
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.SendBadRequest(c, "invalid id "+raw)
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// ---------------- Handlers ----------------

// Create endpoint POST /
func (h *RecordHandler) Create(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		utils.SendBadRequest(c, "body must be a JSON object")
		return
	}

	r, err := h.service.Create(c.Request.Context(), h.collection, fields)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusCreated, r)
}

// CreateMany endpoint POST /bulk
func (h *RecordHandler) CreateMany(c *gin.Context) {
	var items []map[string]interface{}
	if err := c.ShouldBindJSON(&items); err != nil {
		utils.SendBadRequest(c, "body must be a JSON array of objects")
		return
	}

	rs, err := h.service.CreateMany(c.Request.Context(), h.collection, items)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusCreated, h.presenter.FormatAll(rs))
}

// List endpoint GET /
func (h *RecordHandler) List(c *gin.Context) {
	spec, err := sharedQuery.ParseValues(c.Request.URL.Query(), sharedQuery.ParseOptions{MaxLimit: MaxPageSize})
	if err != nil {
		h.fail(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), h.collection, spec)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.SendSuccess(c, http.StatusOK, sharedQuery.MapPage(page, h.presenter.Format))
}

// Get endpoint GET /:id
func (h *RecordHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	r, err := h.service.Get(c.Request.Context(), h.collection, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, r)
}

// GetBySlug endpoint GET /slug/:slug
func (h *RecordHandler) GetBySlug(c *gin.Context) {
	r, err := h.service.GetBy(c.Request.Context(), h.collection, "slug", c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, r)
}

// Update endpoint PATCH /:id
func (h *RecordHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch map[string]interface{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.SendBadRequest(c, "body must be a JSON object")
		return
	}

	r, err := h.service.Update(c.Request.Context(), h.collection, id, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, r)
}

func (h *RecordHandler) one(fn func(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		r, err := fn(c.Request.Context(), h.collection, id)
		if err != nil {
			h.fail(c, err)
			return
		}
		h.respond(c, http.StatusOK, r)
	}
}

// ToggleStatus endpoint PATCH /:id/status
func (h *RecordHandler) ToggleStatus(c *gin.Context) { h.one(h.service.ToggleStatus)(c) }

// SoftDelete endpoint PATCH /:id/soft
func (h *RecordHandler) SoftDelete(c *gin.Context) { h.one(h.service.SoftDelete)(c) }

// ToggleSoftDelete endpoint PATCH /:id/soft/toggle
func (h *RecordHandler) ToggleSoftDelete(c *gin.Context) { h.one(h.service.ToggleSoftDelete)(c) }

// HardDelete endpoint DELETE /:id
func (h *RecordHandler) HardDelete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.service.HardDelete(c.Request.Context(), h.collection, id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecordHandler) many(fn func(ctx context.Context, collection string, ids []uuid.UUID) (int64, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ids, ok := bodyIDs(c)
		if !ok {
			return
		}
		n, err := fn(c.Request.Context(), h.collection, ids)
		if err != nil {
			h.fail(c, err)
			return
		}
		utils.SendSuccess(c, http.StatusOK, gin.H{"count": n})
	}
}

// ToggleStatusMany endpoint POST /status/toggle
func (h *RecordHandler) ToggleStatusMany(c *gin.Context) { h.many(h.service.ToggleStatusMany)(c) }

// SoftDeleteMany endpoint POST /soft
func (h *RecordHandler) SoftDeleteMany(c *gin.Context) { h.many(h.service.SoftDeleteMany)(c) }

// ToggleSoftDeleteMany endpoint POST /soft/toggle
func (h *RecordHandler) ToggleSoftDeleteMany(c *gin.Context) { h.many(h.service.ToggleSoftDeleteMany)(c) }

// Recover endpoint POST /recover
func (h *RecordHandler) Recover(c *gin.Context) { h.many(h.service.Recover)(c) }

// HardDeleteMany endpoint POST /hard-delete
func (h *RecordHandler) HardDeleteMany(c *gin.Context) { h.many(h.service.HardDeleteMany)(c) }
