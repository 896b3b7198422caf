package http

import (
	"context"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	"github.com/davicafu/hexacrud/pkg/utils"
	"github.com/gin-gonic/gin"
)

// PrincipalKey es la clave del contexto de gin con el id del llamante.
const PrincipalKey = "principalId"

// Authorizer es lo que el middleware necesita del gate.
type Authorizer interface {
	Authorize(ctx context.Context, header string, resource accessDomain.Resource, action accessDomain.Action) accessDomain.Decision
}

// RequirePermission deja pasar sólo si el gate permite resource:action.
func RequirePermission(gate Authorizer, resource accessDomain.Resource, action accessDomain.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := gate.Authorize(c.Request.Context(), c.GetHeader("Authorization"), resource, action)
		if d.Allowed {
			c.Set(PrincipalKey, d.PrincipalID)
			c.Next()
			return
		}

		switch d.Reason {
		case accessDomain.ReasonUnauthorized:
			utils.SendUnauthorized(c, "Unauthorized!")
		case accessDomain.ReasonAccessDenied:
			utils.SendForbidden(c, "Access denied!")
		default:
			utils.SendInternalServerError(c, "Internal server error")
		}
	}
}

// Guard fija el gate y devuelve la fábrica que usan los routers.
func Guard(gate Authorizer) func(accessDomain.Resource, accessDomain.Action) gin.HandlerFunc {
	return func(resource accessDomain.Resource, action accessDomain.Action) gin.HandlerFunc {
		return RequirePermission(gate, resource, action)
	}
}
