package domain

// Reason clasifica una denegación.
type Reason string

const (
	ReasonUnauthorized Reason = "unauthorized"
	ReasonAccessDenied Reason = "access_denied"
	ReasonInternal     Reason = "internal"
)

// Decision es el resultado del gate: exactamente una clasificación por
// llamada.
type Decision struct {
	Allowed     bool
	Reason      Reason
	PrincipalID string
	Resource    Resource
	Action      Action
	Permission  string
}

func Allow(principalID string, resource Resource, action Action) Decision {
	return Decision{
		Allowed:     true,
		PrincipalID: principalID,
		Resource:    resource,
		Action:      action,
		Permission:  PermissionName(resource, action),
	}
}

func Deny(reason Reason, principalID string, resource Resource, action Action) Decision {
	return Decision{
		Reason:      reason,
		PrincipalID: principalID,
		Resource:    resource,
		Action:      action,
		Permission:  PermissionName(resource, action),
	}
}
