package domain

import (
	"context"
	"errors"
	"time"
)

// ---------- Errores de dominio ----------
var (
	ErrMissingCredential     = errors.New("authorization token missing")
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrPrincipalNotFound     = errors.New("principal not found")
	ErrRoleNotFound          = errors.New("role not found")
	ErrInvalidCredentials    = errors.New("password is incorrect")
	ErrUserInactive          = errors.New("user is not active")
	ErrInvalidPermissionName = errors.New("permission name must be resource:action")
)

// ---------- Interfaces (Ports) ----------

// Claims son los datos que viajan firmados en el token.
type Claims struct {
	Subject    string // _id del usuario
	Identifier string // teléfono, email o userName
	ExpiresAt  time.Time
}

// TokenService firma y verifica credenciales. Verify debe devolver
// ErrInvalidToken si la firma no es válida o el token ha caducado.
type TokenService interface {
	Issue(claims Claims) (string, error)
	Verify(token string) (Claims, error)
}

// PrincipalDirectory resuelve el usuario con su rol y permisos. Es una
// lectura fresca por petición, sin caché.
type PrincipalDirectory interface {
	// Debe devolver ErrPrincipalNotFound o ErrRoleNotFound según falte uno u otro.
	Resolve(ctx context.Context, subject string) (Principal, error)
}

// DecisionRecorder recibe cada decisión del gate (auditoría). Un fallo no
// cambia la decisión.
type DecisionRecorder interface {
	Record(ctx context.Context, d Decision) error
}

// DecisionLog guarda las decisiones para análisis.
type DecisionLog interface {
	Save(ctx context.Context, d DecisionEntry) error
}

// DecisionEntry es una decisión tal y como se persiste.
type DecisionEntry struct {
	PrincipalID string
	Resource    string
	Action      string
	Permission  string
	Allowed     bool
	Reason      string
	DecidedAt   time.Time
}
