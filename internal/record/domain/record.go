package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sharedBus "github.com/davicafu/hexacrud/shared/platform/bus"
	"github.com/google/uuid"
)

// Campos reservados: nunca se guardan dentro de Fields.
const (
	FieldID        = "_id"
	FieldIsDeleted = "isDeleted"
	FieldStatus    = "status"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

func isReserved(field string) bool {
	switch field {
	case FieldID, FieldIsDeleted, FieldStatus, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}

// Record es un documento arbitrario perteneciente a una colección.
type Record struct {
	ID         uuid.UUID
	Collection string
	Fields     map[string]interface{}
	IsDeleted  bool
	Status     bool // true = activo
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewRecord crea un registro activo y no borrado. Las claves reservadas de
// fields se ignoran, salvo "status" si viene como bool.
func NewRecord(collection string, fields map[string]interface{}) *Record {
	now := time.Now().UTC()
	r := &Record{
		ID:         uuid.New(),
		Collection: collection,
		Fields:     map[string]interface{}{},
		Status:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for k, v := range fields {
		if k == FieldStatus {
			if b, ok := v.(bool); ok {
				r.Status = b
			}
			continue
		}
		if isReserved(k) || v == nil {
			continue
		}
		r.Fields[k] = v
	}
	return r
}

func (r *Record) PartitionKey() string {
	return r.Collection + ":" + r.ID.String()
}

// Lookup resuelve un campo, incluidos los reservados y rutas con puntos
// ("author.name").
func (r *Record) Lookup(field string) (interface{}, bool) {
	switch field {
	case FieldID:
		return r.ID.String(), true
	case FieldIsDeleted:
		return r.IsDeleted, true
	case FieldStatus:
		return r.Status, true
	case FieldCreatedAt:
		return r.CreatedAt, true
	case FieldUpdatedAt:
		return r.UpdatedAt, true
	}

	var cur interface{} = r.Fields
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// String devuelve el campo como string ("" si no existe o no es string).
func (r *Record) String(field string) string {
	v, _ := r.Lookup(field)
	s, _ := v.(string)
	return s
}

// Set asigna un campo de primer nivel. Los reservados no se tocan por aquí.
func (r *Record) Set(field string, value interface{}) {
	if isReserved(field) {
		return
	}
	if r.Fields == nil {
		r.Fields = map[string]interface{}{}
	}
	r.Fields[field] = value
}

// Merge aplica una actualización parcial: los nil se descartan y los campos
// reservados sólo admiten "status" (bool).
func (r *Record) Merge(patch map[string]interface{}) {
	for k, v := range patch {
		if v == nil {
			continue
		}
		if k == FieldStatus {
			if b, ok := v.(bool); ok {
				r.Status = b
			}
			continue
		}
		r.Set(k, v)
	}
	r.Touch()
}

func (r *Record) Touch() {
	r.UpdatedAt = time.Now().UTC()
}

// Document aplana el registro a la forma en la que se almacena y se expone.
func (r *Record) Document() map[string]interface{} {
	doc := make(map[string]interface{}, len(r.Fields)+5)
	for k, v := range r.Fields {
		doc[k] = v
	}
	doc[FieldID] = r.ID.String()
	doc[FieldIsDeleted] = r.IsDeleted
	doc[FieldStatus] = r.Status
	doc[FieldCreatedAt] = r.CreatedAt
	doc[FieldUpdatedAt] = r.UpdatedAt
	return doc
}

// FromDocument es la inversa de Document. Acepta fechas como time.Time o
// string RFC3339 (documentos que vienen de JSON).
func FromDocument(collection string, doc map[string]interface{}) (*Record, error) {
	r := &Record{Collection: collection, Fields: map[string]interface{}{}}

	rawID, ok := doc[FieldID]
	if !ok {
		return nil, fmt.Errorf("document without %s", FieldID)
	}
	id, err := uuid.Parse(fmt.Sprint(rawID))
	if err != nil {
		return nil, fmt.Errorf("invalid %s %v: %w", FieldID, rawID, err)
	}
	r.ID = id

	if r.IsDeleted, err = boolField(doc, FieldIsDeleted, false); err != nil {
		return nil, err
	}
	if r.Status, err = boolField(doc, FieldStatus, true); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = timeField(doc, FieldCreatedAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = timeField(doc, FieldUpdatedAt); err != nil {
		return nil, err
	}

	for k, v := range doc {
		if !isReserved(k) {
			r.Fields[k] = v
		}
	}
	return r, nil
}

func boolField(doc map[string]interface{}, field string, fallback bool) (bool, error) {
	v, ok := doc[field]
	if !ok || v == nil {
		return fallback, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case int64:
		return b != 0, nil
	case int:
		return b != 0, nil
	case float64:
		return b != 0, nil
	}
	return false, fmt.Errorf("invalid %s: %v", field, v)
}

func timeField(doc map[string]interface{}, field string) (time.Time, error) {
	switch v := doc[field].(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid %s: %w", field, err)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid %s: %v", field, doc[field])
}

// MarshalJSON expone el documento plano (cache, payloads de outbox).
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Document())
}

// UnmarshalJSON no conoce la colección; quien lo use debe asignarla.
func (r *Record) UnmarshalJSON(data []byte) error {
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	parsed, err := FromDocument(r.Collection, doc)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

// CacheKey forma una key consistente para cache.
func CacheKey(collection string, id uuid.UUID) string {
	return fmt.Sprintf("%s:id:%s", collection, id.String())
}

var _ sharedBus.Keyer = (*Record)(nil)
