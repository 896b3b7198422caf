package application

import (
	"context"
	"errors"
	"strings"
	"time"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL: 7 días.
const DefaultTokenTTL = 7 * 24 * time.Hour

// LoginResult es la respuesta de un login correcto.
type LoginResult struct {
	User  map[string]interface{} `json:"user"`
	Token string                 `json:"token"`
}

// AuthService autentica usuarios y emite tokens.
type AuthService struct {
	repo   recordDomain.RecordRepository
	tokens accessDomain.TokenService
	ttl    time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func NewAuthService(repo recordDomain.RecordRepository, tokens accessDomain.TokenService, ttl time.Duration, log *zap.Logger) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		repo:   repo,
		tokens: tokens,
		ttl:    ttl,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Login busca un usuario no borrado cuyo teléfono, email o userName sea
// identifier y comprueba la contraseña.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, sharedDomain.ValidationError{Field: "id", Msg: "is required"}
	}
	if password == "" {
		return nil, sharedDomain.ValidationError{Field: "password", Msg: "is required"}
	}

	criteria := sharedDomain.And(
		sharedDomain.Or(
			sharedDomain.Criterion{Field: "phoneNumber", Op: sharedDomain.OpEq, Value: identifier},
			sharedDomain.Criterion{Field: "email", Op: sharedDomain.OpEq, Value: identifier},
			sharedDomain.Criterion{Field: "userName", Op: sharedDomain.OpEq, Value: identifier},
		),
		sharedDomain.Criterion{Field: recordDomain.FieldIsDeleted, Op: sharedDomain.OpEq, Value: false},
	)

	users, err := s.repo.ListByCriteria(ctx, recordDomain.CollectionUser, criteria, sharedQuery.OffsetPagination{Limit: 1}, nil)
	if err != nil {
		s.log.Error("Login lookup failed", zap.Error(err))
		return nil, sharedDomain.InternalFault{Msg: "login failed", Err: err}
	}
	if len(users) == 0 {
		return nil, sharedDomain.NotFoundError{Resource: recordDomain.CollectionUser, Err: accessDomain.ErrPrincipalNotFound}
	}
	user := users[0]

	if !user.Status {
		return nil, sharedDomain.ValidationError{Msg: "user is not active, please contact support", Err: accessDomain.ErrUserInactive}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.String("password")), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.log.Warn("Stored password is not a valid hash", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
		return nil, sharedDomain.ValidationError{Field: "password", Msg: "is incorrect", Err: accessDomain.ErrInvalidCredentials}
	}

	token, err := s.tokens.Issue(accessDomain.Claims{
		Subject:    user.ID.String(),
		Identifier: firstNonEmpty(user.String("phoneNumber"), user.String("email"), user.String("userName")),
		ExpiresAt:  s.now().Add(s.ttl),
	})
	if err != nil {
		return nil, sharedDomain.InternalFault{Msg: "could not issue token", Err: err}
	}

	return &LoginResult{
		User: map[string]interface{}{
			recordDomain.FieldID: user.ID.String(),
			"firstName":          user.String("firstName"),
			"lastName":           user.String("lastName"),
			"email":              user.String("email"),
			"phoneNumber":        user.String("phoneNumber"),
			"userName":           user.String("userName"),
		},
		Token: token,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
