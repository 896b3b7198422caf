package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Lookup devuelve el valor de un campo (admite rutas con puntos) y si existe.
type Lookup func(field string) (interface{}, bool)

// Evaluate aplica el árbol de criterios sobre un documento en memoria con la
// misma semántica que los adapters: un campo ausente no cumple igualdades ni
// rangos, y un campo array cumple si alguno de sus elementos cumple.
func Evaluate(criteria Criteria, lookup Lookup) bool {
	return Walk[bool](criteria, evaluator{lookup: lookup})
}

type evaluator struct {
	lookup Lookup
}

func (e evaluator) Group(op LogicalOperator, children []bool) bool {
	if op == OpOr {
		for _, ok := range children {
			if ok {
				return true
			}
		}
		return len(children) == 0
	}
	for _, ok := range children {
		if !ok {
			return false
		}
	}
	return true
}

func (e evaluator) Leaf(c Criterion) bool {
	got, ok := e.lookup(c.Field)
	if c.Op == OpNe {
		return !ok || !anyElement(got, func(v interface{}) bool { return equalValues(v, c.Value) })
	}
	if !ok || got == nil {
		return c.Op == OpEq && c.Value == nil
	}

	return anyElement(got, func(v interface{}) bool {
		switch c.Op {
		case OpEq:
			return equalValues(v, c.Value)
		case OpGt, OpGte, OpLt, OpLte:
			cmp, comparable := compareValues(v, c.Value)
			if !comparable {
				return false
			}
			switch c.Op {
			case OpGt:
				return cmp > 0
			case OpGte:
				return cmp >= 0
			case OpLt:
				return cmp < 0
			default:
				return cmp <= 0
			}
		case OpIn:
			set, _ := c.Value.([]interface{})
			for _, candidate := range set {
				if equalValues(v, candidate) {
					return true
				}
			}
			return false
		case OpContains, OpILike, OpLike:
			s, isStr := v.(string)
			needle, _ := c.Value.(string)
			if !isStr {
				return false
			}
			needle = strings.Trim(needle, "%")
			if c.Op == OpLike {
				return strings.Contains(s, needle)
			}
			return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
		default:
			return false
		}
	})
}

func anyElement(v interface{}, pred func(interface{}) bool) bool {
	if arr, ok := v.([]interface{}); ok {
		for _, item := range arr {
			if pred(item) {
				return true
			}
		}
		return false
	}
	if arr, ok := v.([]string); ok {
		for _, item := range arr {
			if pred(item) {
				return true
			}
		}
		return false
	}
	return pred(v)
}

// CompareValues ordena dos valores escalares (números, fechas, strings, bool).
// Los tipos no comparables se ordenan por su representación textual.
func CompareValues(a, b interface{}) int {
	if cmp, ok := compareValues(a, b); ok {
		return cmp
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func equalValues(a, b interface{}) bool {
	if cmp, ok := compareValues(a, b); ok {
		return cmp == 0
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		return ab == bb
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compareValues(a, b interface{}) (int, bool) {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return compareOrdered(af, bf), true
		}
		return 0, false
	}
	if at, ok := toTime(a); ok {
		if bt, ok := toTime(b); ok {
			return compareOrdered(at.UnixNano(), bt.UnixNano()), true
		}
		return 0, false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		switch {
		case ab == bb:
			return 0, true
		case !ab:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
