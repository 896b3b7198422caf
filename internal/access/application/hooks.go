package application

import (
	"context"
	"fmt"
	"strings"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost es el coste bcrypt de las contraseñas de usuario.
const PasswordCost = 12

// DefaultRoleName es el rol que recibe un usuario creado sin rol.
const DefaultRoleName = recordDomain.CollectionUser

const maxUserNameAttempts = 1000

// UserHook prepara los usuarios antes de guardarlos: genera userName, hashea
// la contraseña si cambió y asigna el rol por defecto.
type UserHook struct {
	Records Records
	Cost    int
}

func NewUserHook(records Records) UserHook {
	return UserHook{Records: records, Cost: PasswordCost}
}

func (h UserHook) Prepare(ctx context.Context, r *recordDomain.Record, prev *recordDomain.Record) error {
	for _, f := range []string{"firstName", "lastName", "userName", "email", "phoneNumber"} {
		if v := r.String(f); v != "" {
			r.Set(f, strings.TrimSpace(v))
		}
	}

	if r.String("userName") == "" && r.String("firstName") != "" {
		userName, err := h.generateUserName(ctx, r)
		if err != nil {
			return err
		}
		r.Set("userName", userName)
	}

	if err := h.hashPassword(r, prev); err != nil {
		return err
	}

	if r.String("role") == "" {
		roleID, err := h.defaultRole(ctx)
		if err != nil {
			return err
		}
		r.Set("role", roleID)
	}
	return nil
}

func (h UserHook) hashPassword(r *recordDomain.Record, prev *recordDomain.Record) error {
	raw, ok := r.Fields["password"]
	if !ok {
		return nil
	}
	password, isStr := raw.(string)
	if !isStr {
		return sharedDomain.ValidationError{Field: "password", Msg: "must be a string"}
	}
	password = strings.TrimSpace(password)
	if prev != nil && password == prev.String("password") {
		return nil
	}

	cost := h.Cost
	if cost == 0 {
		cost = PasswordCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return sharedDomain.ValidationError{Field: "password", Msg: "cannot be hashed", Err: err}
	}
	r.Set("password", string(hashed))
	return nil
}

// generateUserName prueba "nombre", luego "nombreapellido" y después
// "nombreapellidoN" con N desde 1.
func (h UserHook) generateUserName(ctx context.Context, r *recordDomain.Record) (string, error) {
	clean := func(s string) string {
		return strings.ReplaceAll(recordDomain.Slugify(s), "-", "")
	}
	first, last := clean(r.String("firstName")), clean(r.String("lastName"))

	candidates := func(i int) string {
		switch i {
		case 0:
			return first
		case 1:
			return first + last
		}
		return fmt.Sprintf("%s%s%d", first, last, i-1)
	}

	for i := 0; i < maxUserNameAttempts; i++ {
		candidate := candidates(i)
		if candidate == "" {
			continue
		}
		_, err := h.Records.GetBy(ctx, recordDomain.CollectionUser, "userName", candidate)
		if sharedDomain.IsNotFound(err) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", sharedDomain.ConflictError{Resource: recordDomain.CollectionUser, Msg: "could not derive a unique userName"}
}

func (h UserHook) defaultRole(ctx context.Context) (string, error) {
	role, err := h.Records.GetBy(ctx, recordDomain.CollectionRole, "name", DefaultRoleName)
	if err == nil {
		return role.ID.String(), nil
	}
	if !sharedDomain.IsNotFound(err) {
		return "", err
	}

	role, err = h.Records.Create(ctx, recordDomain.CollectionRole, map[string]interface{}{"name": DefaultRoleName})
	if sharedDomain.IsConflict(err) {
		// creado en paralelo
		role, err = h.Records.GetBy(ctx, recordDomain.CollectionRole, "name", DefaultRoleName)
	}
	if err != nil {
		return "", err
	}
	return role.ID.String(), nil
}

// PermissionHook normaliza el nombre del permiso a "recurso:acción".
type PermissionHook struct{}

func (PermissionHook) Prepare(_ context.Context, r *recordDomain.Record, _ *recordDomain.Record) error {
	raw := r.String("name")
	if raw == "" {
		return nil
	}
	name, err := accessDomain.NormalizePermissionName(raw)
	if err != nil {
		return sharedDomain.ValidationError{Field: "name", Msg: err.Error(), Err: err}
	}
	r.Set("name", name)
	return nil
}

// Hooks devuelve los hooks de access por colección.
func Hooks(records Records) recordDomain.Hooks {
	return recordDomain.Hooks{
		recordDomain.CollectionUser:       {NewUserHook(records)},
		recordDomain.CollectionPermission: {PermissionHook{}},
	}
}
