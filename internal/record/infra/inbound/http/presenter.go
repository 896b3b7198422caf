package http

import (
	"regexp"
	"strings"
	"time"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
)

const (
	uploadsPrefix = "uploads/"
	dateLayout    = "2006-01-02 15:04:05"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)

// Presenter da forma a los registros antes de enviarlos: rutas de ficheros
// absolutas, fechas legibles y sin campos ocultos. Sólo afecta a la salida.
type Presenter struct {
	baseURL string
}

func NewPresenter(baseURL string) *Presenter {
	return &Presenter{baseURL: strings.TrimRight(baseURL, "/")}
}

// Format recorre el primer nivel del documento y los elementos de los arrays.
func (p *Presenter) Format(r *recordDomain.Record) map[string]interface{} {
	doc := r.Document()
	if schema, err := recordDomain.SchemaFor(r.Collection); err == nil {
		for _, f := range schema.HiddenFields {
			delete(doc, f)
		}
	}

	for k, v := range doc {
		doc[k] = p.formatValue(v)
	}
	return doc
}

func (p *Presenter) FormatAll(rs []*recordDomain.Record) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rs))
	for _, r := range rs {
		out = append(out, p.Format(r))
	}
	return out
}

func (p *Presenter) formatValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return p.formatString(val)
	case time.Time:
		return val.UTC().Format(dateLayout)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			switch s := item.(type) {
			case string:
				out[i] = p.formatString(s)
			case time.Time:
				out[i] = s.UTC().Format(dateLayout)
			default:
				out[i] = item
			}
		}
		return out
	}
	return v
}

func (p *Presenter) formatString(s string) string {
	if path := strings.ReplaceAll(s, `\`, "/"); strings.HasPrefix(path, uploadsPrefix) {
		return p.baseURL + "/" + path
	}
	if isoDate.MatchString(s) {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC().Format(dateLayout)
		}
	}
	return s
}
