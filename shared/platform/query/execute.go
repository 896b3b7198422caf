package query

import (
	"context"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
)

// Store es lo mínimo que el motor necesita de un repositorio.
type Store[T any] interface {
	CountByCriteria(ctx context.Context, criteria sharedDomain.Criteria) (int64, error)
	// FindByCriteria con window.Limit == 0 devuelve todos los resultados.
	FindByCriteria(ctx context.Context, criteria sharedDomain.Criteria, window OffsetPagination, sorts []Sort) ([]T, error)
}

// Execute ejecuta la consulta: cuenta, calcula la ventana y trae la página.
// Count y find son dos lecturas independientes (sin snapshot): con escrituras
// concurrentes TotalCount puede no coincidir con los resultados.
func Execute[T any](ctx context.Context, store Store[T], spec Spec) (*Page[T], error) {
	criteria := spec.Criteria()

	total, err := store.CountByCriteria(ctx, criteria)
	if err != nil {
		return nil, sharedDomain.InternalFault{Msg: "count query failed", Err: err}
	}

	window, meta := spec.Pagination().Window(total)
	page := &Page[T]{Results: []T{}, Pagination: meta}
	if total == 0 {
		return page, nil
	}

	results, err := store.FindByCriteria(ctx, criteria, window, spec.Sorts())
	if err != nil {
		return nil, sharedDomain.InternalFault{Msg: "find query failed", Err: err}
	}
	if results != nil {
		page.Results = results
	}
	return page, nil
}
