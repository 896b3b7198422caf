package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func lookupIn(doc map[string]interface{}) Lookup {
	return func(field string) (interface{}, bool) {
		v, ok := doc[field]
		return v, ok
	}
}

func TestEvaluate_OrGroup(t *testing.T) {
	doc := lookupIn(map[string]interface{}{"firstName": "Ana", "lastName": "Pérez"})

	c := Or(
		Criterion{Field: "firstName", Op: OpContains, Value: "pér"},
		Criterion{Field: "lastName", Op: OpContains, Value: "PÉR"},
	)
	assert.True(t, Evaluate(c, doc))

	c = Or(Criterion{Field: "firstName", Op: OpContains, Value: "zzz"})
	assert.False(t, Evaluate(c, doc))
}

func TestEvaluate_ArrayFieldMatchesAnyElement(t *testing.T) {
	doc := lookupIn(map[string]interface{}{"permissions": []interface{}{"p1", "p2"}})

	assert.True(t, Evaluate(Criterion{Field: "permissions", Op: OpEq, Value: "p2"}, doc))
	assert.True(t, Evaluate(Criterion{Field: "permissions", Op: OpIn, Value: []interface{}{"p9", "p1"}}, doc))
	assert.False(t, Evaluate(Criterion{Field: "permissions", Op: OpEq, Value: "p3"}, doc))
}

func TestEvaluate_MissingField(t *testing.T) {
	doc := lookupIn(map[string]interface{}{})

	assert.False(t, Evaluate(Criterion{Field: "isDeleted", Op: OpEq, Value: false}, doc))
	assert.True(t, Evaluate(Criterion{Field: "isDeleted", Op: OpNe, Value: true}, doc))
	assert.False(t, Evaluate(Criterion{Field: "age", Op: OpGte, Value: 1}, doc))
}

func TestEvaluate_MixedNumericAndTimeComparisons(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := lookupIn(map[string]interface{}{"age": int64(30), "createdAt": now})

	c := And(
		Criterion{Field: "age", Op: OpGte, Value: 30.0},
		Criterion{Field: "age", Op: OpLt, Value: 31},
		Criterion{Field: "createdAt", Op: OpLte, Value: now},
	)
	assert.True(t, Evaluate(c, doc))
}

func TestWalk_NilIsEmptyAnd(t *testing.T) {
	assert.True(t, Evaluate(nil, lookupIn(nil)))
}

func TestCompareValues(t *testing.T) {
	assert.Equal(t, -1, CompareValues(1, 2.5))
	assert.Equal(t, 1, CompareValues("b", "a"))
	assert.Equal(t, 0, CompareValues(true, true))
	assert.Equal(t, -1, CompareValues(nil, "a"))
}
