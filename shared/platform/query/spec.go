package query

import (
	"sort"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
)

// Spec es la consulta tipada de un listado. Es inmutable: las opciones se
// aplican sobre una copia y los adapters sólo ven el árbol de criterios
// derivado con Criteria().
type Spec struct {
	filters    map[string]FilterValue
	search     Search
	pagination Pagination
	sort       Sort
}

type Option func(*Spec)

// NewSpec construye una Spec con orden por defecto createdAt desc.
func NewSpec(opts ...Option) Spec {
	s := Spec{
		filters: map[string]FilterValue{},
		sort:    Sort{Field: DefaultSortField, Desc: true},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// With devuelve una copia con las opciones aplicadas.
func (s Spec) With(opts ...Option) Spec {
	c := s.clone()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (s Spec) clone() Spec {
	c := s
	c.filters = make(map[string]FilterValue, len(s.filters))
	for k, v := range s.filters {
		c.filters[k] = v
	}
	c.search.Fields = append([]string(nil), s.search.Fields...)
	return c
}

// ---------- Opciones ----------

func WithFilter(field string, v FilterValue) Option {
	return func(s *Spec) {
		if s.filters == nil {
			s.filters = map[string]FilterValue{}
		}
		s.filters[field] = v
	}
}

// WithFilters clasifica valores sueltos (ver Classify). Un valor que no se
// puede clasificar se ignora; usa Classify directamente si necesitas el error.
func WithFilters(raw map[string]interface{}) Option {
	return func(s *Spec) {
		for field, value := range raw {
			fv, err := Classify(value)
			if err != nil {
				continue
			}
			WithFilter(field, fv)(s)
		}
	}
}

func WithSearch(text string, fields ...string) Option {
	return func(s *Spec) {
		s.search = Search{Text: text, Fields: append([]string(nil), fields...)}
	}
}

// WithSearchFields fija los campos de búsqueda conservando el texto.
func WithSearchFields(fields ...string) Option {
	return func(s *Spec) {
		s.search.Fields = append([]string(nil), fields...)
	}
}

// WithPage habilita la paginación; page y limit se ajustan a un mínimo de 1.
func WithPage(page, limit int) Option {
	return func(s *Spec) {
		s.pagination = Pagination{Page: max(page, 1), Limit: max(limit, 1), Enabled: true}
	}
}

func WithSort(field string, desc bool) Option {
	return func(s *Spec) {
		if field == "" {
			field = DefaultSortField
		}
		s.sort = Sort{Field: field, Desc: desc}
	}
}

// ---------- Accesores ----------

func (s Spec) Filters() map[string]FilterValue {
	out := make(map[string]FilterValue, len(s.filters))
	for k, v := range s.filters {
		out[k] = v
	}
	return out
}

func (s Spec) Filter(field string) (FilterValue, bool) {
	v, ok := s.filters[field]
	return v, ok
}

func (s Spec) Search() Search { return s.search }

func (s Spec) Pagination() Pagination { return s.pagination }

func (s Spec) Sort() Sort { return s.sort }

// Sorts devuelve el orden compuesto: campo pedido y _id desc como desempate.
func (s Spec) Sorts() []Sort {
	if s.sort.Field == TieBreakField {
		return []Sort{s.sort}
	}
	return []Sort{s.sort, {Field: TieBreakField, Desc: true}}
}

// Criteria deriva el árbol neutral: AND de filtros por campo, isDeleted=false
// si el cliente no filtra por isDeleted, y un OR con la búsqueda.
func (s Spec) Criteria() sharedDomain.Criteria {
	fields := make([]string, 0, len(s.filters))
	for f := range s.filters {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var all []sharedDomain.Criteria
	for _, f := range fields {
		all = append(all, s.filters[f].conditions(f)...)
	}

	if _, ok := s.filters[SoftDeleteField]; !ok {
		all = append(all, sharedDomain.Criterion{Field: SoftDeleteField, Op: sharedDomain.OpEq, Value: false})
	}

	if s.search.active() {
		ors := make([]sharedDomain.Criteria, 0, len(s.search.Fields))
		for _, f := range s.search.Fields {
			ors = append(ors, sharedDomain.Criterion{Field: f, Op: sharedDomain.OpContains, Value: s.search.Text})
		}
		all = append(all, sharedDomain.Or(ors...))
	}

	return sharedDomain.And(all...)
}
