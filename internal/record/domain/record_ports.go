package domain

import (
	"context"
	"errors"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrRecordNotFound      = errors.New("record not found")
	ErrRecordAlreadyExists = errors.New("record already exists")
	ErrAlreadySoftDeleted  = errors.New("already soft deleted")
	ErrUnknownCollection   = errors.New("unknown collection")
	ErrNoIDs               = errors.New("ids must be a non-empty list")
	ErrHiddenField         = errors.New("field cannot be queried")
)

// NotFound envuelve ErrRecordNotFound en la taxonomía común.
func NotFound(collection string) error {
	return sharedDomain.NotFoundError{Resource: collection, Err: ErrRecordNotFound}
}

// AlreadyExists envuelve ErrRecordAlreadyExists como conflicto.
func AlreadyExists(collection, field string) error {
	return sharedDomain.ConflictError{Resource: collection, Msg: field + " already exists", Err: ErrRecordAlreadyExists}
}

// ---------- Interfaces (Ports) ----------

// RecordRepository persiste registros de cualquier colección. Cada mutación
// escribe sus eventos de outbox en la misma transacción.
type RecordRepository interface {
	// Debe devolver ErrRecordAlreadyExists si se viola un campo único.
	Create(ctx context.Context, r *Record, evt sharedDomain.OutboxEvent) error

	// CreateMany es todo o nada.
	CreateMany(ctx context.Context, rs []*Record, evts []sharedDomain.OutboxEvent) error

	// Debe devolver ErrRecordNotFound si no existe (esté o no borrado).
	GetByID(ctx context.Context, collection string, id uuid.UUID) (*Record, error)

	// Debe devolver ErrRecordNotFound si no existe.
	Update(ctx context.Context, r *Record, evt sharedDomain.OutboxEvent) error

	// UpdateMany reescribe los registros dados en una única transacción.
	UpdateMany(ctx context.Context, rs []*Record, evts []sharedDomain.OutboxEvent) error

	// DeleteMany borra físicamente y devuelve cuántos había.
	DeleteMany(ctx context.Context, collection string, ids []uuid.UUID, evts []sharedDomain.OutboxEvent) (int64, error)

	CountByCriteria(ctx context.Context, collection string, criteria sharedDomain.Criteria) (int64, error)

	// ListByCriteria con window.Limit == 0 devuelve todo.
	ListByCriteria(ctx context.Context, collection string, criteria sharedDomain.Criteria, window sharedQuery.OffsetPagination, sorts []sharedQuery.Sort) ([]*Record, error)
}

// AttachmentStore borra ficheros referenciados por un registro (hard delete).
type AttachmentStore interface {
	Remove(ctx context.Context, path string) error
}

// ---------- Store ligado a una colección ----------

// CollectionStore adapta el repositorio a query.Store para una colección.
type CollectionStore struct {
	Repo       RecordRepository
	Collection string
}

func (s CollectionStore) CountByCriteria(ctx context.Context, c sharedDomain.Criteria) (int64, error) {
	return s.Repo.CountByCriteria(ctx, s.Collection, c)
}

func (s CollectionStore) FindByCriteria(ctx context.Context, c sharedDomain.Criteria, w sharedQuery.OffsetPagination, sorts []sharedQuery.Sort) ([]*Record, error) {
	return s.Repo.ListByCriteria(ctx, s.Collection, c, w, sorts)
}

var _ sharedQuery.Store[*Record] = CollectionStore{}

// ByIDs devuelve el criterio "_id in ids", sin filtro de borrado.
func ByIDs(ids []uuid.UUID) sharedDomain.Criteria {
	values := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		values = append(values, id.String())
	}
	return sharedDomain.Criterion{Field: FieldID, Op: sharedDomain.OpIn, Value: values}
}
