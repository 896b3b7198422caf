package token

import (
	"errors"
	"fmt"
	"time"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	"github.com/golang-jwt/jwt/v5"
)

const (
	claimSubject    = "_id"
	claimIdentifier = "id"
)

// JWTService firma tokens HS256 con {_id, id, exp}.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

var _ accessDomain.TokenService = (*JWTService)(nil)

func NewJWTService(secret string) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWTService{secret: []byte(secret), now: time.Now}, nil
}

func (s *JWTService) Issue(c accessDomain.Claims) (string, error) {
	claims := jwt.MapClaims{
		claimSubject:    c.Subject,
		claimIdentifier: c.Identifier,
		"exp":           c.ExpiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify exige firma HS256 válida y exp en el futuro. Cualquier fallo del
// token es ErrInvalidToken.
func (s *JWTService) Verify(raw string) (accessDomain.Claims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return accessDomain.Claims{}, fmt.Errorf("%w: %v", accessDomain.ErrInvalidToken, err)
	}

	out := accessDomain.Claims{}
	out.Subject, _ = claims[claimSubject].(string)
	out.Identifier, _ = claims[claimIdentifier].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
