package sqldb

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/davicafu/hexacrud/internal/infra/db/sqldb"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	sharedUtils "github.com/davicafu/hexacrud/shared/utils"
)

// Campos reservados que viven en columnas propias; el resto va en doc.
var columns = map[string]string{
	recordDomain.FieldID:        "id",
	recordDomain.FieldIsDeleted: "is_deleted",
	recordDomain.FieldStatus:    "status",
	recordDomain.FieldCreatedAt: "created_at",
	recordDomain.FieldUpdatedAt: "updated_at",
}

// Los nombres de campo llegan del cliente y acaban dentro del SQL.
var validField = regexp.MustCompile(`^[A-Za-z0-9_]+(\.[A-Za-z0-9_]+)*$`)

// whereBuilder traduce el árbol de criterios a SQL con "?" y acumula args.
type whereBuilder struct {
	d    sqldb.Dialect
	args []interface{}
}

func (b *whereBuilder) arg(v interface{}) string {
	b.args = append(b.args, v)
	return "?"
}

// build devuelve "1=1" para un árbol vacío.
func (b *whereBuilder) build(criteria sharedDomain.Criteria) string {
	return sharedDomain.Walk[string](criteria, b)
}

func (b *whereBuilder) Group(op sharedDomain.LogicalOperator, children []string) string {
	if len(children) == 0 {
		return "1=1"
	}
	if len(children) == 1 {
		return children[0]
	}
	sep := " AND "
	if op == sharedDomain.OpOr {
		sep = " OR "
	}
	return "(" + strings.Join(children, sep) + ")"
}

func (b *whereBuilder) Leaf(c sharedDomain.Criterion) string {
	if col, ok := columns[c.Field]; ok {
		return b.column(col, c)
	}
	if !validField.MatchString(c.Field) {
		return "1=0"
	}
	if b.d == sqldb.Postgres {
		return b.postgresJSON(strings.Split(c.Field, "."), c)
	}
	return b.sqliteJSON("$."+c.Field, c)
}

var comparison = map[sharedDomain.Operator]string{
	sharedDomain.OpEq:  "=",
	sharedDomain.OpNe:  "<>",
	sharedDomain.OpGt:  ">",
	sharedDomain.OpGte: ">=",
	sharedDomain.OpLt:  "<",
	sharedDomain.OpLte: "<=",
}

func (b *whereBuilder) column(col string, c sharedDomain.Criterion) string {
	if sqlOp, ok := comparison[c.Op]; ok {
		return fmt.Sprintf("%s %s %s", col, sqlOp, b.arg(columnValue(c.Value)))
	}
	switch c.Op {
	case sharedDomain.OpIn:
		values := toSlice(c.Value)
		if len(values) == 0 {
			return "1=0"
		}
		phs := make([]string, 0, len(values))
		for _, v := range values {
			phs = append(phs, b.arg(columnValue(v)))
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(phs, ", "))
	case sharedDomain.OpLike:
		return fmt.Sprintf("CAST(%s AS TEXT) LIKE %s", col, b.arg(fmt.Sprint(c.Value)))
	case sharedDomain.OpILike:
		return fmt.Sprintf("LOWER(CAST(%s AS TEXT)) LIKE LOWER(%s)", col, b.arg(fmt.Sprint(c.Value)))
	case sharedDomain.OpContains:
		return fmt.Sprintf(`LOWER(CAST(%s AS TEXT)) LIKE %s ESCAPE '\'`, col, b.arg(containsPattern(c.Value)))
	}
	return "1=0"
}

// sqliteJSON usa json_each: sobre un escalar devuelve una fila y sobre un
// array una por elemento, así un campo array coincide si coincide algún
// elemento.
func (b *whereBuilder) sqliteJSON(path string, c sharedDomain.Criterion) string {
	each := func(cond string) string {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(records.doc, '%s') WHERE %s)", path, cond)
	}

	switch c.Op {
	case sharedDomain.OpEq:
		return each("value = " + b.arg(jsonValue(c.Value)))
	case sharedDomain.OpNe:
		return "NOT " + each("value = "+b.arg(jsonValue(c.Value)))
	case sharedDomain.OpGt, sharedDomain.OpGte, sharedDomain.OpLt, sharedDomain.OpLte:
		return each(fmt.Sprintf("value %s %s", comparison[c.Op], b.arg(jsonValue(c.Value))))
	case sharedDomain.OpIn:
		values := toSlice(c.Value)
		if len(values) == 0 {
			return "1=0"
		}
		phs := make([]string, 0, len(values))
		for _, v := range values {
			phs = append(phs, b.arg(jsonValue(v)))
		}
		return each("value IN (" + strings.Join(phs, ", ") + ")")
	case sharedDomain.OpLike:
		return each("value LIKE " + b.arg(fmt.Sprint(c.Value)))
	case sharedDomain.OpILike:
		return each("LOWER(value) LIKE LOWER(" + b.arg(fmt.Sprint(c.Value)) + ")")
	case sharedDomain.OpContains:
		return each(`LOWER(value) LIKE ` + b.arg(containsPattern(c.Value)) + ` ESCAPE '\'`)
	}
	return "1=0"
}

// postgresJSON compara jsonb contra jsonb; "@>" cubre los campos array.
func (b *whereBuilder) postgresJSON(path []string, c sharedDomain.Criterion) string {
	node := fmt.Sprintf("doc #> '{%s}'", strings.Join(path, ","))
	text := fmt.Sprintf("doc #>> '{%s}'", strings.Join(path, ","))

	eq := func(v interface{}) string {
		raw := jsonbArg(v)
		return fmt.Sprintf("(%s = CAST(%s AS jsonb) OR %s @> jsonb_build_array(CAST(%s AS jsonb)))",
			node, b.arg(raw), node, b.arg(raw))
	}

	switch c.Op {
	case sharedDomain.OpEq:
		return eq(c.Value)
	case sharedDomain.OpNe:
		return "NOT COALESCE(" + eq(c.Value) + ", false)"
	case sharedDomain.OpGt, sharedDomain.OpGte, sharedDomain.OpLt, sharedDomain.OpLte:
		return fmt.Sprintf("%s %s CAST(%s AS jsonb)", node, comparison[c.Op], b.arg(jsonbArg(c.Value)))
	case sharedDomain.OpIn:
		values := toSlice(c.Value)
		if len(values) == 0 {
			return "1=0"
		}
		ors := make([]string, 0, len(values))
		for _, v := range values {
			ors = append(ors, eq(v))
		}
		return "(" + strings.Join(ors, " OR ") + ")"
	case sharedDomain.OpLike:
		return fmt.Sprintf("%s LIKE %s", text, b.arg(fmt.Sprint(c.Value)))
	case sharedDomain.OpILike:
		return fmt.Sprintf("%s ILIKE %s", text, b.arg(fmt.Sprint(c.Value)))
	case sharedDomain.OpContains:
		return fmt.Sprintf(`LOWER(%s) LIKE %s ESCAPE '\'`, text, b.arg(containsPattern(c.Value)))
	}
	return "1=0"
}

// orderBy traduce los sorts; campos no válidos se ignoran.
func orderBy(d sqldb.Dialect, sorts []sharedQuery.Sort) string {
	parts := make([]string, 0, len(sorts))
	for _, s := range sorts {
		expr, ok := columns[s.Field]
		if !ok {
			if !validField.MatchString(s.Field) {
				continue
			}
			if d == sqldb.Postgres {
				expr = fmt.Sprintf("doc #> '{%s}'", strings.Join(strings.Split(s.Field, "."), ","))
			} else {
				expr = fmt.Sprintf("json_extract(doc, '$.%s')", s.Field)
			}
		}
		parts = append(parts, expr+" "+sharedUtils.Ternary(s.Desc, "DESC", "ASC"))
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// ---------------- Valores ----------------

func toSlice(v interface{}) []interface{} {
	switch vals := v.(type) {
	case []interface{}:
		return vals
	case []string:
		out := make([]interface{}, 0, len(vals))
		for _, s := range vals {
			out = append(out, s)
		}
		return out
	case nil:
		return nil
	}
	return []interface{}{v}
}

// docTimeLayout es RFC3339 en UTC con nanosegundos de ancho fijo: en doc las
// fechas son texto y el orden de texto tiene que coincidir con el cronológico.
const docTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func jsonValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(docTimeLayout)
	}
	return v
}

// docValue normaliza las fechas de un documento antes de guardarlo, tanto
// time.Time como strings RFC3339, a docTimeLayout.
func docValue(v interface{}) interface{} {
	switch val := v.(type) {
	case time.Time:
		return jsonValue(val)
	case string:
		if t, err := time.Parse(time.RFC3339Nano, val); err == nil {
			return t.UTC().Format(docTimeLayout)
		}
		return val
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = docValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = docValue(item)
		}
		return out
	}
	return v
}

func jsonbArg(v interface{}) []byte {
	raw, err := json.Marshal(jsonValue(v))
	if err != nil {
		return []byte("null")
	}
	return raw
}

func columnValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern escapa el texto literal para LIKE.
func containsPattern(v interface{}) string {
	return "%" + likeEscaper.Replace(strings.ToLower(fmt.Sprint(v))) + "%"
}
