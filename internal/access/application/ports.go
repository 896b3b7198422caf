package application

import (
	"context"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
)

// Records es lo que access necesita del servicio de registros. Crear por
// aquí (y no contra el repositorio) mantiene hooks, outbox y caché.
type Records interface {
	GetBy(ctx context.Context, collection, field string, value interface{}) (*recordDomain.Record, error)
	Create(ctx context.Context, collection string, fields map[string]interface{}) (*recordDomain.Record, error)
}
