package domain

// ---------------- Operadores ----------------

type Operator string

const (
	OpEq    Operator = "="
	OpNe    Operator = "!="
	OpGt    Operator = ">"
	OpGte   Operator = ">="
	OpLt    Operator = "<"
	OpLte   Operator = "<="
	OpLike  Operator = "LIKE"
	OpILike Operator = "ILIKE"
	// OpIn: Value es un []interface{}
	OpIn Operator = "IN"
	// OpContains: subcadena sin distinguir mayúsculas. Value es el texto literal,
	// los adapters se encargan de escaparlo.
	OpContains Operator = "CONTAINS"
)

type LogicalOperator string

const (
	OpAnd LogicalOperator = "AND"
	OpOr  LogicalOperator = "OR"
)

// ---------------- Criterion ----------------

// Criterion describe una condición neutral de filtrado
type Criterion struct {
	Field string
	Op    Operator
	Value interface{}
}

// ToConditions permite usar un Criterion suelto como Criteria.
func (c Criterion) ToConditions() []Criterion {
	return []Criterion{c}
}

// ---------------- Criteria interface ----------------

// Criteria permite transformar filtros a condiciones neutrales.
// Las hojas devuelven sus condiciones (unidas con AND); los nodos
// CompositeCriteria conservan su operador lógico y los adapters los recorren
// como árbol.
type Criteria interface {
	ToConditions() []Criterion
}

// ---------------- Composite Criteria ----------------

type CompositeCriteria struct {
	Operator  LogicalOperator
	Criterias []Criteria
}

// ToConditions aplana el árbol. Sólo es equivalente al árbol cuando todos los
// nodos son AND; para respetar los OR usar Walk.
func (c CompositeCriteria) ToConditions() []Criterion {
	var all []Criterion
	for _, crit := range c.Criterias {
		all = append(all, crit.ToConditions()...)
	}
	return all
}

// ---------------- Helpers ----------------

// And crea un CompositeCriteria con operador AND
func And(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpAnd, Criterias: compact(criterias)}
}

// Or crea un CompositeCriteria con operador OR
func Or(criterias ...Criteria) CompositeCriteria {
	return CompositeCriteria{Operator: OpOr, Criterias: compact(criterias)}
}

func compact(criterias []Criteria) []Criteria {
	out := make([]Criteria, 0, len(criterias))
	for _, c := range criterias {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// ---------------- Visitor ----------------

// Visitor traduce el árbol de criterios a la representación de cada store.
type Visitor[T any] interface {
	Leaf(c Criterion) T
	Group(op LogicalOperator, children []T) T
}

// Walk recorre el árbol respetando AND/OR. Un nil produce un grupo AND vacío,
// que cada adapter interpreta como "sin filtro".
func Walk[T any](criteria Criteria, v Visitor[T]) T {
	switch c := criteria.(type) {
	case nil:
		return v.Group(OpAnd, nil)
	case CompositeCriteria:
		return walkGroup(c, v)
	case *CompositeCriteria:
		return walkGroup(*c, v)
	case Criterion:
		return v.Leaf(c)
	default:
		conds := c.ToConditions()
		children := make([]T, 0, len(conds))
		for _, cond := range conds {
			children = append(children, v.Leaf(cond))
		}
		return v.Group(OpAnd, children)
	}
}

func walkGroup[T any](c CompositeCriteria, v Visitor[T]) T {
	children := make([]T, 0, len(c.Criterias))
	for _, child := range c.Criterias {
		children = append(children, Walk(child, v))
	}
	op := c.Operator
	if op == "" {
		op = OpAnd
	}
	return v.Group(op, children)
}
