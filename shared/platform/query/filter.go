package query

import (
	"fmt"
	"reflect"
	"unicode"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
)

type FilterKind int

const (
	KindExact FilterKind = iota
	KindText
	KindRange
	KindSet
)

// FilterValue es la restricción sobre un campo. Un campo admite un solo
// FilterValue; el último gana.
type FilterValue struct {
	Kind   FilterKind
	Value  interface{}   // Exact / Text
	From   interface{}   // Range, nil = abierto
	To     interface{}   // Range, nil = abierto
	Values []interface{} // Set
}

func Exact(v interface{}) FilterValue { return FilterValue{Kind: KindExact, Value: v} }

// Text filtra por subcadena sin distinguir mayúsculas.
func Text(s string) FilterValue { return FilterValue{Kind: KindText, Value: s} }

// Range es inclusivo en ambos extremos; cualquiera puede ser nil.
func Range(from, to interface{}) FilterValue {
	return FilterValue{Kind: KindRange, From: from, To: to}
}

func In(values ...interface{}) FilterValue {
	return FilterValue{Kind: KindSet, Values: values}
}

func (f FilterValue) conditions(field string) []sharedDomain.Criteria {
	switch f.Kind {
	case KindRange:
		var out []sharedDomain.Criteria
		if f.From != nil {
			out = append(out, sharedDomain.Criterion{Field: field, Op: sharedDomain.OpGte, Value: f.From})
		}
		if f.To != nil {
			out = append(out, sharedDomain.Criterion{Field: field, Op: sharedDomain.OpLte, Value: f.To})
		}
		return out
	case KindSet:
		return []sharedDomain.Criteria{sharedDomain.Criterion{Field: field, Op: sharedDomain.OpIn, Value: f.Values}}
	case KindText:
		return []sharedDomain.Criteria{sharedDomain.Criterion{Field: field, Op: sharedDomain.OpContains, Value: f.Value}}
	default:
		return []sharedDomain.Criteria{sharedDomain.Criterion{Field: field, Op: sharedDomain.OpEq, Value: f.Value}}
	}
}

// Classify interpreta un valor "suelto" con el orden de desempate:
// rango {from,to} → conjunto {$in|in} o slice → string con letras (subcadena)
// → igualdad exacta.
func Classify(raw interface{}) (FilterValue, error) {
	switch v := raw.(type) {
	case FilterValue:
		return v, nil
	case map[string]interface{}:
		from, hasFrom := v["from"]
		to, hasTo := v["to"]
		if hasFrom || hasTo {
			if from == nil && to == nil {
				return FilterValue{}, sharedDomain.ValidationError{Msg: "range filter needs 'from' or 'to'"}
			}
			return Range(from, to), nil
		}
		for _, marker := range []string{"$in", "in"} {
			if set, ok := v[marker]; ok {
				values, ok := toSlice(set)
				if !ok {
					return FilterValue{}, sharedDomain.ValidationError{Msg: fmt.Sprintf("'%s' must be a list", marker)}
				}
				return In(values...), nil
			}
		}
		return Exact(v), nil
	case string:
		if hasLetter(v) {
			return Text(v), nil
		}
		return Exact(v), nil
	}

	if values, ok := toSlice(raw); ok {
		return In(values...), nil
	}
	return Exact(raw), nil
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func toSlice(raw interface{}) ([]interface{}, bool) {
	if raw == nil {
		return nil, false
	}
	if values, ok := raw.([]interface{}); ok {
		return values, true
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
