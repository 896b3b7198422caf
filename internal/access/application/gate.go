package application

import (
	"context"
	"errors"
	"strings"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// Gate decide si el portador de una credencial puede ejecutar una acción
// sobre un recurso.
type Gate struct {
	tokens    accessDomain.TokenService
	directory accessDomain.PrincipalDirectory
	policy    accessDomain.AuthorizationPolicy
	recorder  accessDomain.DecisionRecorder
	log       *zap.Logger
}

// NewGate crea el gate. recorder puede ser nil.
func NewGate(
	tokens accessDomain.TokenService,
	directory accessDomain.PrincipalDirectory,
	policy accessDomain.AuthorizationPolicy,
	recorder accessDomain.DecisionRecorder,
	log *zap.Logger,
) *Gate {
	if policy.Bypass() {
		log.Warn("⚠️ Authorization bypass enabled: permissions are not checked")
	}
	return &Gate{
		tokens:    tokens,
		directory: directory,
		policy:    policy,
		recorder:  recorder,
		log:       log,
	}
}

// StripBearer quita el prefijo opcional "Bearer ".
func StripBearer(header string) string {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, strings.TrimSpace(bearerPrefix)) {
		return ""
	}
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}
	return header
}

// Authorize devuelve exactamente una decisión por llamada:
//  1. credencial ausente, inválida o caducada: unauthorized
//  2. política bypass: allow sin mirar permisos
//  3. usuario o rol inexistente: access_denied
//  4. allow sólo si el rol tiene "recurso:acción" exacto
//  5. cualquier otro fallo: internal (se registra, no se devuelve)
func (g *Gate) Authorize(ctx context.Context, header string, resource accessDomain.Resource, action accessDomain.Action) accessDomain.Decision {
	d := g.decide(ctx, header, resource, action)
	g.record(ctx, d)
	return d
}

func (g *Gate) decide(ctx context.Context, header string, resource accessDomain.Resource, action accessDomain.Action) accessDomain.Decision {
	token := StripBearer(header)
	if token == "" {
		return accessDomain.Deny(accessDomain.ReasonUnauthorized, "", resource, action)
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		if !errors.Is(err, accessDomain.ErrInvalidToken) {
			g.log.Error("Token verification failed", zap.Error(err))
			return accessDomain.Deny(accessDomain.ReasonInternal, "", resource, action)
		}
		return accessDomain.Deny(accessDomain.ReasonUnauthorized, "", resource, action)
	}

	if g.policy.Bypass() {
		return accessDomain.Allow(claims.Subject, resource, action)
	}

	if claims.Subject == "" {
		return accessDomain.Deny(accessDomain.ReasonUnauthorized, "", resource, action)
	}

	principal, err := g.directory.Resolve(ctx, claims.Subject)
	switch {
	case err == nil:
	case errors.Is(err, accessDomain.ErrPrincipalNotFound), errors.Is(err, accessDomain.ErrRoleNotFound):
		return accessDomain.Deny(accessDomain.ReasonAccessDenied, claims.Subject, resource, action)
	case errors.Is(err, accessDomain.ErrInvalidToken):
		return accessDomain.Deny(accessDomain.ReasonUnauthorized, claims.Subject, resource, action)
	default:
		g.log.Error("Principal resolution failed",
			zap.String("subject", claims.Subject),
			zap.Error(err))
		return accessDomain.Deny(accessDomain.ReasonInternal, claims.Subject, resource, action)
	}

	if !principal.Can(accessDomain.PermissionName(resource, action)) {
		return accessDomain.Deny(accessDomain.ReasonAccessDenied, principal.ID, resource, action)
	}
	return accessDomain.Allow(principal.ID, resource, action)
}

func (g *Gate) record(ctx context.Context, d accessDomain.Decision) {
	if g.recorder == nil {
		return
	}
	if err := g.recorder.Record(ctx, d); err != nil {
		g.log.Warn("Failed to record access decision",
			zap.String("permission", d.Permission),
			zap.Bool("allowed", d.Allowed),
			zap.Error(err))
	}
}
