package mongodb

import (
	"regexp"
	"strings"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// filterBuilder traduce el árbol de criterios a un filtro de MongoDB.
type filterBuilder struct{}

func criteriaToMongoFilter(criteria sharedDomain.Criteria) bson.M {
	return sharedDomain.Walk[bson.M](criteria, filterBuilder{})
}

func (filterBuilder) Group(op sharedDomain.LogicalOperator, children []bson.M) bson.M {
	switch len(children) {
	case 0:
		return bson.M{}
	case 1:
		return children[0]
	}
	key := "$and"
	if op == sharedDomain.OpOr {
		key = "$or"
	}
	arr := make(bson.A, 0, len(children))
	for _, c := range children {
		arr = append(arr, c)
	}
	return bson.M{key: arr}
}

// Leaf mapea los operadores genéricos a los de MongoDB. Las comparaciones
// sobre arrays coinciden con cualquier elemento, como en Evaluate.
func (filterBuilder) Leaf(c sharedDomain.Criterion) bson.M {
	var cond interface{}
	switch c.Op {
	case sharedDomain.OpEq:
		cond = bson.M{"$eq": c.Value}
	case sharedDomain.OpNe:
		cond = bson.M{"$ne": c.Value}
	case sharedDomain.OpGt:
		cond = bson.M{"$gt": c.Value}
	case sharedDomain.OpGte:
		cond = bson.M{"$gte": c.Value}
	case sharedDomain.OpLt:
		cond = bson.M{"$lt": c.Value}
	case sharedDomain.OpLte:
		cond = bson.M{"$lte": c.Value}
	case sharedDomain.OpIn:
		cond = bson.M{"$in": inValues(c.Value)}
	case sharedDomain.OpLike:
		cond = primitive.Regex{Pattern: likeToRegex(stringValue(c.Value))}
	case sharedDomain.OpILike:
		cond = primitive.Regex{Pattern: likeToRegex(stringValue(c.Value)), Options: "i"}
	case sharedDomain.OpContains:
		cond = bson.M{"$regex": regexp.QuoteMeta(stringValue(c.Value)), "$options": "i"}
	default:
		cond = bson.M{"$eq": c.Value}
	}
	return bson.M{c.Field: cond}
}

func inValues(v interface{}) bson.A {
	switch vals := v.(type) {
	case []interface{}:
		return bson.A(vals)
	case []string:
		out := make(bson.A, 0, len(vals))
		for _, s := range vals {
			out = append(out, s)
		}
		return out
	case nil:
		return bson.A{}
	}
	return bson.A{v}
}

func stringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// likeToRegex convierte un patrón LIKE (% y _) en una regex anclada.
func likeToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

func sortsToMongo(sorts []sharedQuery.Sort) bson.D {
	d := bson.D{}
	for _, s := range sorts {
		dir := 1
		if s.Desc {
			dir = -1
		}
		d = append(d, bson.E{Key: s.Field, Value: dir})
	}
	return d
}
