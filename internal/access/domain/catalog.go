package domain

import (
	"fmt"
	"strings"
)

// Resource es el nombre de una colección protegida por el gate.
type Resource string

const (
	ResourceUser       Resource = "user"
	ResourceRole       Resource = "role"
	ResourcePermission Resource = "permission"
	ResourceBlog       Resource = "blog"
	ResourceUpload     Resource = "upload"
)

// Action es una de las acciones estándar sobre un recurso.
type Action string

const (
	ActionCreate         Action = "create"
	ActionRead           Action = "read"
	ActionReadMany       Action = "readMany"
	ActionUpdate         Action = "update"
	ActionUpdateMany     Action = "updateMany"
	ActionSoftDelete     Action = "softDelete"
	ActionSoftDeleteMany Action = "softDeleteMany"
	ActionHardDelete     Action = "hardDelete"
	ActionHardDeleteMany Action = "hardDeleteMany"
	ActionRecover        Action = "recover"
)

// Resources devuelve el catálogo estático de recursos.
func Resources() []Resource {
	return []Resource{ResourceUser, ResourceRole, ResourcePermission, ResourceBlog, ResourceUpload}
}

// StandardActions devuelve las acciones en orden estable.
func StandardActions() []Action {
	return []Action{
		ActionCreate, ActionRead, ActionReadMany,
		ActionUpdate, ActionUpdateMany,
		ActionSoftDelete, ActionSoftDeleteMany,
		ActionHardDelete, ActionHardDeleteMany,
		ActionRecover,
	}
}

func ParseResource(s string) (Resource, error) {
	for _, r := range Resources() {
		if string(r) == strings.ToLower(s) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown resource %q", s)
}

// PermissionName deriva "recurso:acción" en minúsculas.
func PermissionName(resource Resource, action Action) string {
	return strings.ToLower(string(resource)) + ":" + strings.ToLower(string(action))
}

// NormalizePermissionName acepta "blog:read", "Blog_Read", "blog-read" o
// "blog,read" y devuelve "blog:read". Con "_", "-" o "," la acción es el
// último tramo. Recurso y acción deben existir en el catálogo.
func NormalizePermissionName(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))

	var resourcePart, actionPart string
	switch {
	case strings.Contains(name, ":"):
		resourcePart, actionPart, _ = strings.Cut(name, ":")
	case strings.ContainsAny(name, "_-,"):
		sep := string(name[strings.LastIndexAny(name, "_-,")])
		i := strings.LastIndex(name, sep)
		resourcePart, actionPart = name[:i], name[i+1:]
	default:
		return "", ErrInvalidPermissionName
	}

	resource, err := ParseResource(strings.TrimSpace(resourcePart))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPermissionName, err)
	}
	action, err := ParseAction(strings.TrimSpace(actionPart))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPermissionName, err)
	}
	return PermissionName(resource, action), nil
}

func ParseAction(s string) (Action, error) {
	for _, a := range StandardActions() {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// PermissionDescription es la descripción de los permisos sembrados.
func PermissionDescription(resource Resource, action Action) string {
	return fmt.Sprintf("Allows %s operation on %s", action, resource)
}
