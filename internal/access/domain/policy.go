package domain

import "strings"

type Mode int

const (
	ModeEnforce Mode = iota
	ModeBypass
)

const devRole = "dev"

// Entornos en los que se permite el bypass. Cualquier otro, incluido el
// vacío, cuenta como producción.
var bypassEnvs = map[string]struct{}{
	"development": {},
	"local":       {},
	"test":        {},
}

// AuthorizationPolicy decide si el gate consulta permisos o sólo exige una
// credencial válida. El valor cero aplica los permisos.
type AuthorizationPolicy struct {
	Mode Mode
}

// NewAuthorizationPolicy sólo activa el bypass con role "dev" y un entorno
// explícitamente no productivo.
func NewAuthorizationPolicy(role, environment string) AuthorizationPolicy {
	if !strings.EqualFold(strings.TrimSpace(role), devRole) {
		return AuthorizationPolicy{Mode: ModeEnforce}
	}
	if _, ok := bypassEnvs[strings.ToLower(strings.TrimSpace(environment))]; !ok {
		return AuthorizationPolicy{Mode: ModeEnforce}
	}
	return AuthorizationPolicy{Mode: ModeBypass}
}

func (p AuthorizationPolicy) Bypass() bool {
	return p.Mode == ModeBypass
}

func (p AuthorizationPolicy) String() string {
	if p.Bypass() {
		return "bypass"
	}
	return "enforce"
}
