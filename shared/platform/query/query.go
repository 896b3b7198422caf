package query

import "math"

// ---------- Tipos de filtrado / paginación / ordenamiento ----------

const (
	DefaultSortField = "createdAt"
	TieBreakField    = "_id"
	SoftDeleteField  = "isDeleted"
)

// OffsetPagination es la ventana física que recibe un store.
// Limit 0 significa sin límite.
type OffsetPagination struct {
	Limit  int
	Offset int
}

// Pagination es la paginación pedida por el cliente (página 1-based).
// Con Enabled=false se devuelven todos los resultados como una única página.
type Pagination struct {
	Page    int
	Limit   int
	Enabled bool
}

// Sort indica campo y dirección.
type Sort struct {
	Field string // ej. "createdAt", "name", "author.name"
	Desc  bool
}

// Search: texto libre que debe aparecer (subcadena, sin distinguir
// mayúsculas) en ALGUNO de los campos.
type Search struct {
	Text   string
	Fields []string
}

func (s Search) active() bool {
	return s.Text != "" && len(s.Fields) > 0
}

// PageMeta son los metadatos de paginación devueltos junto a los resultados.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalCount int64 `json:"totalCount"`
	TotalPages int   `json:"totalPages"`
}

// Page es una página de resultados.
type Page[T any] struct {
	Results    []T      `json:"results"`
	Pagination PageMeta `json:"pagination"`
}

// MapPage transforma los resultados conservando los metadatos.
func MapPage[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	out := &Page[U]{Results: make([]U, 0, len(p.Results)), Pagination: p.Pagination}
	for _, r := range p.Results {
		out.Results = append(out.Results, fn(r))
	}
	return out
}

// Window calcula el skip/limit y los metadatos a partir del total.
// Sin paginación: página 1, limit = total, una sola página.
func (p Pagination) Window(total int64) (OffsetPagination, PageMeta) {
	if !p.Enabled {
		return OffsetPagination{}, PageMeta{
			Page:       1,
			Limit:      int(total),
			TotalCount: total,
			TotalPages: 1,
		}
	}

	page := max(p.Page, 1)
	limit := max(p.Limit, 1)

	return OffsetPagination{Limit: limit, Offset: (page - 1) * limit}, PageMeta{
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}
}
