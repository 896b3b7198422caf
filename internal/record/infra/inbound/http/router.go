package http

import (
	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	"github.com/gin-gonic/gin"
)

// Guard devuelve el middleware que exige resource:action.
type Guard func(resource accessDomain.Resource, action accessDomain.Action) gin.HandlerFunc

// RegisterRecordRoutes monta las rutas CRUD de la colección bajo rg/<colección>.
func RegisterRecordRoutes(rg *gin.RouterGroup, handler *RecordHandler, guard Guard) {
	res := accessDomain.Resource(handler.collection)
	g := func(action accessDomain.Action) gin.HandlerFunc { return guard(res, action) }

	records := rg.Group("/" + handler.collection)
	{
		records.POST("", g(accessDomain.ActionCreate), handler.Create)
		records.POST("/bulk", g(accessDomain.ActionCreate), handler.CreateMany)
		records.GET("", g(accessDomain.ActionReadMany), handler.List)
		records.GET("/:id", g(accessDomain.ActionRead), handler.Get)
		records.PATCH("/:id", g(accessDomain.ActionUpdate), handler.Update)
		records.PATCH("/:id/status", g(accessDomain.ActionUpdate), handler.ToggleStatus)
		records.PATCH("/:id/soft", g(accessDomain.ActionSoftDelete), handler.SoftDelete)
		records.PATCH("/:id/soft/toggle", g(accessDomain.ActionSoftDelete), handler.ToggleSoftDelete)
		records.DELETE("/:id", g(accessDomain.ActionHardDelete), handler.HardDelete)

		records.POST("/status/toggle", g(accessDomain.ActionUpdateMany), handler.ToggleStatusMany)
		records.POST("/soft", g(accessDomain.ActionSoftDeleteMany), handler.SoftDeleteMany)
		records.POST("/soft/toggle", g(accessDomain.ActionSoftDeleteMany), handler.ToggleSoftDeleteMany)
		records.POST("/recover", g(accessDomain.ActionRecover), handler.Recover)
		records.POST("/hard-delete", g(accessDomain.ActionHardDeleteMany), handler.HardDeleteMany)

		if handler.collection == recordDomain.CollectionBlog {
			records.GET("/slug/:slug", g(accessDomain.ActionRead), handler.GetBySlug)
		}
	}
}
