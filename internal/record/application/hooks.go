package application

import (
	"context"
	"fmt"
	"strings"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
)

// SlugHook deriva "slug" de "name" y añade un sufijo numérico hasta que sea
// único dentro de la colección.
type SlugHook struct {
	Repo recordDomain.RecordRepository
}

const maxSlugAttempts = 1000

func (h SlugHook) Prepare(ctx context.Context, r *recordDomain.Record, prev *recordDomain.Record) error {
	slug := r.String("slug")
	name := r.String("name")

	switch {
	case prev == nil && slug != "":
		r.Set("slug", recordDomain.Slugify(slug))
		return nil
	case prev == nil:
		// se genera abajo
	case slug != prev.String("slug"):
		r.Set("slug", recordDomain.Slugify(slug))
		return nil
	case name != prev.String("name"):
		// un nombre nuevo regenera el slug
	default:
		return nil
	}

	base := recordDomain.Slugify(name)
	if base == "" {
		return nil
	}

	candidate := base
	for i := 1; i <= maxSlugAttempts; i++ {
		taken, err := h.taken(ctx, r, candidate)
		if err != nil {
			return err
		}
		if !taken {
			r.Set("slug", candidate)
			return nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return sharedDomain.ConflictError{Resource: r.Collection, Msg: "could not derive a unique slug"}
}

func (h SlugHook) taken(ctx context.Context, r *recordDomain.Record, slug string) (bool, error) {
	n, err := h.Repo.CountByCriteria(ctx, r.Collection, sharedDomain.And(
		sharedDomain.Criterion{Field: "slug", Op: sharedDomain.OpEq, Value: slug},
		sharedDomain.Criterion{Field: recordDomain.FieldID, Op: sharedDomain.OpNe, Value: r.ID.String()},
	))
	return n > 0, err
}

// LowercaseHook normaliza un campo de texto a minúsculas sin espacios
// alrededor (p.ej. role.name).
type LowercaseHook struct {
	Field string
}

func (h LowercaseHook) Prepare(_ context.Context, r *recordDomain.Record, _ *recordDomain.Record) error {
	if v := r.String(h.Field); v != "" {
		r.Set(h.Field, strings.ToLower(strings.TrimSpace(v)))
	}
	return nil
}

// DefaultHooks son los hooks que sólo dependen del propio repositorio.
func DefaultHooks(repo recordDomain.RecordRepository) recordDomain.Hooks {
	return recordDomain.Hooks{
		recordDomain.CollectionBlog: {SlugHook{Repo: repo}},
		recordDomain.CollectionRole: {LowercaseHook{Field: "name"}},
	}
}
