package directory

import (
	"context"
	"errors"
	"fmt"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	"github.com/google/uuid"
)

// RecordDirectory resuelve usuario -> rol -> permisos leyendo directamente
// del repositorio de registros, sin caché, para que un cambio de rol se
// aplique en la siguiente petición.
type RecordDirectory struct {
	repo recordDomain.RecordRepository
}

var _ accessDomain.PrincipalDirectory = (*RecordDirectory)(nil)

func NewRecordDirectory(repo recordDomain.RecordRepository) *RecordDirectory {
	return &RecordDirectory{repo: repo}
}

func (d *RecordDirectory) Resolve(ctx context.Context, subject string) (accessDomain.Principal, error) {
	userID, err := uuid.Parse(subject)
	if err != nil {
		return accessDomain.Principal{}, fmt.Errorf("%w: subject is not a record id", accessDomain.ErrInvalidToken)
	}

	user, err := d.repo.GetByID(ctx, recordDomain.CollectionUser, userID)
	if errors.Is(err, recordDomain.ErrRecordNotFound) {
		return accessDomain.Principal{}, accessDomain.ErrPrincipalNotFound
	}
	if err != nil {
		return accessDomain.Principal{}, fmt.Errorf("load user: %w", err)
	}
	if user.IsDeleted {
		return accessDomain.Principal{}, accessDomain.ErrPrincipalNotFound
	}

	roleID, err := uuid.Parse(user.String("role"))
	if err != nil {
		return accessDomain.Principal{}, accessDomain.ErrRoleNotFound
	}
	role, err := d.repo.GetByID(ctx, recordDomain.CollectionRole, roleID)
	if errors.Is(err, recordDomain.ErrRecordNotFound) {
		return accessDomain.Principal{}, accessDomain.ErrRoleNotFound
	}
	if err != nil {
		return accessDomain.Principal{}, fmt.Errorf("load role: %w", err)
	}
	if role.IsDeleted {
		return accessDomain.Principal{}, accessDomain.ErrRoleNotFound
	}

	names, err := d.permissionNames(ctx, role)
	if err != nil {
		return accessDomain.Principal{}, err
	}

	return accessDomain.Principal{
		ID:          user.ID.String(),
		RoleID:      role.ID.String(),
		RoleName:    role.String("name"),
		Permissions: names,
	}, nil
}

// permissionNames carga los permisos referenciados por el rol. Los ids que
// no existen o están borrados se ignoran.
func (d *RecordDirectory) permissionNames(ctx context.Context, role *recordDomain.Record) ([]string, error) {
	ids := permissionIDs(role.Fields["permissions"])
	if len(ids) == 0 {
		return nil, nil
	}

	perms, err := d.repo.ListByCriteria(ctx, recordDomain.CollectionPermission,
		sharedDomain.And(
			recordDomain.ByIDs(ids),
			sharedDomain.Criterion{Field: recordDomain.FieldIsDeleted, Op: sharedDomain.OpEq, Value: false},
		),
		sharedQuery.OffsetPagination{}, nil)
	if err != nil {
		return nil, fmt.Errorf("load permissions: %w", err)
	}

	names := make([]string, 0, len(perms))
	for _, p := range perms {
		if name := p.String("name"); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func permissionIDs(raw interface{}) []uuid.UUID {
	var values []string
	switch v := raw.(type) {
	case []string:
		values = v
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
	case string:
		values = []string{v}
	}

	ids := make([]uuid.UUID, 0, len(values))
	for _, s := range values {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
