package domain

import "strings"

// Colecciones conocidas.
const (
	CollectionUser       = "user"
	CollectionRole       = "role"
	CollectionPermission = "permission"
	CollectionBlog       = "blog"
	CollectionUpload     = "upload"
)

// Schema describe lo poco que el backend necesita saber de una colección:
// dónde buscar texto libre, qué campos son únicos, qué no se expone nunca y
// qué campos guardan rutas de ficheros.
type Schema struct {
	Collection       string
	SearchFields     []string
	RequiredFields   []string
	UniqueFields     []string
	HiddenFields     []string
	AttachmentFields []string
}

var schemas = map[string]Schema{
	CollectionUser: {
		Collection:       CollectionUser,
		SearchFields:     []string{"firstName", "lastName", "email", "userName"},
		RequiredFields:   []string{"firstName", "lastName", "password"},
		UniqueFields:     []string{"email", "userName", "phoneNumber"},
		HiddenFields:     []string{"password"},
		AttachmentFields: []string{"attachment", "images"},
	},
	CollectionRole: {
		Collection:     CollectionRole,
		SearchFields:   []string{"name"},
		RequiredFields: []string{"name"},
		UniqueFields:   []string{"name"},
	},
	CollectionPermission: {
		Collection:     CollectionPermission,
		SearchFields:   []string{"name"},
		RequiredFields: []string{"name"},
		UniqueFields:   []string{"name"},
	},
	CollectionBlog: {
		Collection:       CollectionBlog,
		SearchFields:     []string{"name"},
		RequiredFields:   []string{"name"},
		UniqueFields:     []string{"name", "slug"},
		AttachmentFields: []string{"attachment", "images"},
	},
	CollectionUpload: {
		Collection:       CollectionUpload,
		SearchFields:     []string{"name"},
		RequiredFields:   []string{"path"},
		AttachmentFields: []string{"path"},
	},
}

// SchemaFor devuelve ErrUnknownCollection para colecciones no registradas.
func SchemaFor(collection string) (Schema, error) {
	s, ok := schemas[collection]
	if !ok {
		return Schema{}, ErrUnknownCollection
	}
	return s, nil
}

func Schemas() []Schema {
	out := make([]Schema, 0, len(schemas))
	for _, name := range []string{CollectionUser, CollectionRole, CollectionPermission, CollectionBlog, CollectionUpload} {
		out = append(out, schemas[name])
	}
	return out
}

// Missing devuelve el primer campo obligatorio ausente o vacío.
func (s Schema) Missing(r *Record) (string, bool) {
	for _, f := range s.RequiredFields {
		v, ok := r.Lookup(f)
		if !ok {
			return f, true
		}
		if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
			return f, true
		}
	}
	return "", false
}

// IsHidden indica si field, o el campo que lo contiene, no se expone nunca.
func (s Schema) IsHidden(field string) bool {
	for _, h := range s.HiddenFields {
		if field == h || strings.HasPrefix(field, h+".") {
			return true
		}
	}
	return false
}

// Attachments recoge las rutas almacenadas en los campos de fichero.
func (s Schema) Attachments(r *Record) []string {
	var paths []string
	for _, f := range s.AttachmentFields {
		v, ok := r.Lookup(f)
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				paths = append(paths, val)
			}
		case []string:
			paths = append(paths, val...)
		case []interface{}:
			for _, item := range val {
				if p, ok := item.(string); ok && p != "" {
					paths = append(paths, p)
				}
			}
		}
	}
	return paths
}
