package query

import (
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
)

// Claves reservadas del query string.
const (
	ParamSearchText = "searchText"
	ParamPage       = "page"
	ParamLimit      = "limit"
	ParamSortBy     = "sortBy"
	ParamSortOrder  = "sortOrder"
)

// ParseOptions configura cómo se traduce un query string a Spec.
type ParseOptions struct {
	SearchFields []string
	// MaxLimit acota el tamaño de página pedido. 0 = sin tope.
	MaxLimit int
}

var bracketKey = regexp.MustCompile(`^(.+)\[(from|to|in)\]$`)

// ParseValues traduce parámetros crudos a una Spec:
//   - field[from] / field[to]: rango inclusivo
//   - field[in], valor "[...]" (JSON) o "a,b,c": conjunto
//   - "true"/"false" → bool, numéricos → número, resto → Classify
//   - claves con puntos: campos anidados
//
// Los valores vacíos se ignoran. Si una clave se repite, gana el último valor.
func ParseValues(values url.Values, opts ParseOptions) (Spec, error) {
	var options []Option

	page, limit := 1, 0
	hasLimit := false
	if raw := strings.TrimSpace(values.Get(ParamPage)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Spec{}, sharedDomain.ValidationError{Field: ParamPage, Msg: "must be an integer", Err: err}
		}
		page = n
	}
	if raw := strings.TrimSpace(values.Get(ParamLimit)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Spec{}, sharedDomain.ValidationError{Field: ParamLimit, Msg: "must be an integer", Err: err}
		}
		limit, hasLimit = n, true
	}
	if hasLimit {
		if opts.MaxLimit > 0 && limit > opts.MaxLimit {
			limit = opts.MaxLimit
		}
		options = append(options, WithPage(page, limit))
	}

	if sortBy := strings.TrimSpace(values.Get(ParamSortBy)); sortBy != "" {
		options = append(options, WithSort(sortBy, !strings.EqualFold(values.Get(ParamSortOrder), "asc")))
	}

	if text := strings.TrimSpace(values.Get(ParamSearchText)); text != "" {
		options = append(options, WithSearch(text, opts.SearchFields...))
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ranges := map[string]*FilterValue{}
	for _, key := range keys {
		if isReserved(key) {
			continue
		}
		raw := lastValue(values[key])
		if raw == "" {
			continue
		}

		if m := bracketKey.FindStringSubmatch(key); m != nil {
			field, part := m[1], m[2]
			if part == "in" {
				set, err := parseSet(field, raw)
				if err != nil {
					return Spec{}, err
				}
				options = append(options, WithFilter(field, set))
				continue
			}
			r, ok := ranges[field]
			if !ok {
				r = &FilterValue{Kind: KindRange}
				ranges[field] = r
			}
			if part == "from" {
				r.From = parseBound(raw)
			} else {
				r.To = parseBound(raw)
			}
			continue
		}

		fv, err := parseValue(key, raw)
		if err != nil {
			return Spec{}, err
		}
		options = append(options, WithFilter(key, fv))
	}

	// Los rangos se aplican al final: ganan sobre un valor plano del mismo campo.
	rangeFields := make([]string, 0, len(ranges))
	for f := range ranges {
		rangeFields = append(rangeFields, f)
	}
	sort.Strings(rangeFields)
	for _, f := range rangeFields {
		options = append(options, WithFilter(f, *ranges[f]))
	}

	return NewSpec(options...), nil
}

func isReserved(key string) bool {
	switch key {
	case ParamSearchText, ParamPage, ParamLimit, ParamSortBy, ParamSortOrder:
		return true
	}
	return false
}

func lastValue(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return strings.TrimSpace(vs[len(vs)-1])
}

func parseValue(field, raw string) (FilterValue, error) {
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		return parseSet(field, raw)
	}
	if strings.Contains(raw, ",") {
		return parseSet(field, raw)
	}
	return Classify(parseScalar(raw))
}

func parseSet(field, raw string) (FilterValue, error) {
	if strings.HasPrefix(raw, "[") {
		var items []interface{}
		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&items); err != nil {
			return FilterValue{}, sharedDomain.ValidationError{Field: field, Msg: "invalid JSON list", Err: err}
		}
		for i, it := range items {
			if n, ok := it.(json.Number); ok {
				items[i] = parseScalar(n.String())
			}
		}
		return In(items...), nil
	}

	parts := strings.Split(raw, ",")
	items := make([]interface{}, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, parseScalar(p))
		}
	}
	return In(items...), nil
}

// parseScalar: bool, entero, decimal o el string tal cual.
func parseScalar(raw string) interface{} {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

// parseBound: número, fecha (RFC3339 o YYYY-MM-DD) o string.
func parseBound(raw string) interface{} {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return raw
}
