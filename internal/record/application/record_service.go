package application

import (
	"context"
	"errors"
	"time"

	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedCache "github.com/davicafu/hexacrud/shared/platform/cache"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	sharedUtils "github.com/davicafu/hexacrud/shared/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCacheTTL = 60

// RecordService define los casos de uso CRUD de cualquier colección.
// Incorpora repositorio, caché, hooks por colección y logger.
type RecordService struct {
	repo     recordDomain.RecordRepository
	cache    sharedCache.Cache
	hooks    recordDomain.Hooks
	files    recordDomain.AttachmentStore
	log      *zap.Logger
	cacheTTL int
}

type Option func(*RecordService)

func WithHooks(hooks recordDomain.Hooks) Option {
	return func(s *RecordService) {
		for collection, hs := range hooks {
			s.hooks[collection] = append(s.hooks[collection], hs...)
		}
	}
}

func WithAttachmentStore(files recordDomain.AttachmentStore) Option {
	return func(s *RecordService) { s.files = files }
}

// WithCacheTTL fija el TTL en segundos de las entradas de caché.
func WithCacheTTL(secs int) Option {
	return func(s *RecordService) {
		if secs > 0 {
			s.cacheTTL = secs
		}
	}
}

// NewRecordService es el constructor del servicio de registros.
func NewRecordService(repo recordDomain.RecordRepository, cache sharedCache.Cache, log *zap.Logger, opts ...Option) *RecordService {
	s := &RecordService{
		repo:     repo,
		cache:    cache,
		hooks:    recordDomain.Hooks{},
		log:      log,
		cacheTTL: defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Use añade hooks después de construir el servicio (p.ej. hooks que a su vez
// necesitan el repositorio o el propio servicio).
func (s *RecordService) Use(collection string, hooks ...recordDomain.Hook) {
	s.hooks[collection] = append(s.hooks[collection], hooks...)
}

func (s *RecordService) schema(collection string) (recordDomain.Schema, error) {
	schema, err := recordDomain.SchemaFor(collection)
	if err != nil {
		return schema, sharedDomain.ValidationError{Field: "collection", Msg: "unknown collection " + collection, Err: err}
	}
	return schema, nil
}

// storeErr traduce los errores del repositorio a la taxonomía común.
func (s *RecordService) storeErr(collection string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, recordDomain.ErrRecordNotFound):
		return recordDomain.NotFound(collection)
	case errors.Is(err, recordDomain.ErrRecordAlreadyExists):
		return sharedDomain.ConflictError{Resource: collection, Msg: "duplicate value", Err: err}
	case sharedDomain.IsValidation(err), sharedDomain.IsNotFound(err), sharedDomain.IsConflict(err),
		sharedDomain.IsAuthFailure(err), sharedDomain.IsInternal(err):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	s.log.Error("Record store failure", zap.String("collection", collection), zap.Error(err))
	return sharedDomain.InternalFault{Msg: "record store failure", Err: err}
}

func (s *RecordService) prepare(ctx context.Context, schema recordDomain.Schema, r, prev *recordDomain.Record) error {
	if err := s.hooks.Run(ctx, r, prev); err != nil {
		return s.storeErr(r.Collection, err)
	}
	if field, missing := schema.Missing(r); missing {
		return sharedDomain.ValidationError{Field: field, Msg: "is required"}
	}
	return nil
}

// ---------------- Create ----------------

// Create crea un registro, su evento de outbox y actualiza la caché.
func (s *RecordService) Create(ctx context.Context, collection string, fields map[string]interface{}) (*recordDomain.Record, error) {
	schema, err := s.schema(collection)
	if err != nil {
		return nil, err
	}

	r := recordDomain.NewRecord(collection, fields)
	if err := s.prepare(ctx, schema, r, nil); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, r, recordDomain.NewRecordEvent(recordDomain.RecordCreated, r)); err != nil {
		return nil, s.storeErr(collection, err)
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, recordDomain.CacheKey(collection, r.ID), r, s.cacheTTL, s.log)
	return r, nil
}

// CreateMany crea todos los registros o ninguno.
func (s *RecordService) CreateMany(ctx context.Context, collection string, items []map[string]interface{}) ([]*recordDomain.Record, error) {
	schema, err := s.schema(collection)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, sharedDomain.ValidationError{Field: "items", Msg: "must be a non-empty list"}
	}

	records := make([]*recordDomain.Record, 0, len(items))
	evts := make([]sharedDomain.OutboxEvent, 0, len(items))
	for _, fields := range items {
		r := recordDomain.NewRecord(collection, fields)
		if err := s.prepare(ctx, schema, r, nil); err != nil {
			return nil, err
		}
		records = append(records, r)
		evts = append(evts, recordDomain.NewRecordEvent(recordDomain.RecordCreated, r))
	}

	if err := s.repo.CreateMany(ctx, records, evts); err != nil {
		return nil, s.storeErr(collection, err)
	}
	return records, nil
}

// ---------------- Lecturas ----------------

// Get obtiene un registro usando cache-aside con reintentos. Devuelve también
// registros borrados lógicamente.
func (s *RecordService) Get(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error) {
	if _, err := s.schema(collection); err != nil {
		return nil, err
	}

	notFound := func(err error) bool { return !errors.Is(err, recordDomain.ErrRecordNotFound) }
	r, err := sharedCache.GetOrLoad(ctx, s.cache, recordDomain.CacheKey(collection, id), s.cacheTTL, s.log,
		func(ctx context.Context) (*recordDomain.Record, error) {
			var found *recordDomain.Record
			err := sharedUtils.RetryIf(ctx, 3, 100*time.Millisecond, notFound, func() error {
				var errRetry error
				found, errRetry = s.repo.GetByID(ctx, collection, id)
				return errRetry
			})
			return found, err
		})
	if err != nil {
		if errors.Is(err, recordDomain.ErrRecordNotFound) {
			s.log.Debug("Record not found", zap.String("collection", collection), zap.String("id", id.String()))
		}
		return nil, s.storeErr(collection, err)
	}

	// Lo que viene de caché no conoce su colección.
	r.Collection = collection
	return r, nil
}

// GetBy busca el primer registro cuyo campo es exactamente value (p.ej. slug).
func (s *RecordService) GetBy(ctx context.Context, collection, field string, value interface{}) (*recordDomain.Record, error) {
	if _, err := s.schema(collection); err != nil {
		return nil, err
	}

	criteria := sharedDomain.Criterion{Field: field, Op: sharedDomain.OpEq, Value: value}
	found, err := s.repo.ListByCriteria(ctx, collection, criteria, sharedQuery.OffsetPagination{Limit: 1}, nil)
	if err != nil {
		return nil, s.storeErr(collection, err)
	}
	if len(found) == 0 {
		return nil, recordDomain.NotFound(collection)
	}
	return found[0], nil
}

// List ejecuta la consulta con el motor común. Si la spec no trae campos de
// búsqueda se usan los de la colección.
func (s *RecordService) List(ctx context.Context, collection string, spec sharedQuery.Spec) (*sharedQuery.Page[*recordDomain.Record], error) {
	schema, err := s.schema(collection)
	if err != nil {
		return nil, err
	}
	if len(spec.Search().Fields) == 0 {
		spec = spec.With(sharedQuery.WithSearchFields(schema.SearchFields...))
	}
	if err := queryable(schema, spec); err != nil {
		return nil, err
	}

	page, err := sharedQuery.Execute[*recordDomain.Record](ctx, recordDomain.CollectionStore{Repo: s.repo, Collection: collection}, spec)
	if err != nil {
		s.log.Error("Record query failed", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	return page, nil
}

// queryable rechaza filtros, búsqueda u orden sobre campos ocultos: el
// recuento de coincidencias bastaría para adivinar su contenido.
func queryable(schema recordDomain.Schema, spec sharedQuery.Spec) error {
	fields := []string{spec.Sort().Field}
	for f := range spec.Filters() {
		fields = append(fields, f)
	}
	if spec.Search().Text != "" {
		fields = append(fields, spec.Search().Fields...)
	}
	for _, f := range fields {
		if schema.IsHidden(f) {
			return sharedDomain.ValidationError{Field: f, Msg: recordDomain.ErrHiddenField.Error(), Err: recordDomain.ErrHiddenField}
		}
	}
	return nil
}

// ---------------- Mutaciones de un registro ----------------

func (s *RecordService) mutateOne(ctx context.Context, collection string, id uuid.UUID, fn func(r *recordDomain.Record) error) (*recordDomain.Record, *recordDomain.Record, error) {
	schema, err := s.schema(collection)
	if err != nil {
		return nil, nil, err
	}

	prev, err := s.repo.GetByID(ctx, collection, id)
	if err != nil {
		return nil, nil, s.storeErr(collection, err)
	}

	r := copyRecord(prev)
	if err := fn(r); err != nil {
		return nil, nil, err
	}
	if err := s.prepare(ctx, schema, r, prev); err != nil {
		return nil, nil, err
	}
	r.Touch()

	if err := s.repo.Update(ctx, r, recordDomain.NewRecordEvent(recordDomain.RecordUpdated, r)); err != nil {
		return nil, nil, s.storeErr(collection, err)
	}

	sharedCache.AsyncCacheSet(ctx, s.cache, recordDomain.CacheKey(collection, r.ID), r, s.cacheTTL, s.log)
	return r, prev, nil
}

// Update aplica un parche parcial (los nil se descartan). Los ficheros que
// dejan de estar referenciados se eliminan.
func (s *RecordService) Update(ctx context.Context, collection string, id uuid.UUID, patch map[string]interface{}) (*recordDomain.Record, error) {
	r, prev, err := s.mutateOne(ctx, collection, id, func(r *recordDomain.Record) error {
		r.Merge(patch)
		return nil
	})
	if err != nil {
		return nil, err
	}

	schema, _ := s.schema(collection)
	s.removeOrphans(ctx, schema.Attachments(prev), schema.Attachments(r))
	return r, nil
}

func (s *RecordService) ToggleStatus(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error) {
	r, _, err := s.mutateOne(ctx, collection, id, func(r *recordDomain.Record) error {
		r.Status = !r.Status
		return nil
	})
	return r, err
}

// SoftDelete marca el registro como borrado. Falla si ya lo estaba.
func (s *RecordService) SoftDelete(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error) {
	r, _, err := s.mutateOne(ctx, collection, id, func(r *recordDomain.Record) error {
		if r.IsDeleted {
			return sharedDomain.ValidationError{Msg: recordDomain.ErrAlreadySoftDeleted.Error(), Err: recordDomain.ErrAlreadySoftDeleted}
		}
		r.IsDeleted = true
		return nil
	})
	return r, err
}

func (s *RecordService) ToggleSoftDelete(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error) {
	r, _, err := s.mutateOne(ctx, collection, id, func(r *recordDomain.Record) error {
		r.IsDeleted = !r.IsDeleted
		return nil
	})
	return r, err
}

// HardDelete borra físicamente el registro y sus ficheros.
func (s *RecordService) HardDelete(ctx context.Context, collection string, id uuid.UUID) error {
	n, err := s.HardDeleteMany(ctx, collection, []uuid.UUID{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return recordDomain.NotFound(collection)
	}
	return nil
}

// ---------------- Mutaciones en bloque ----------------

// mutateMany carga los registros de ids que cumplen extra, aplica fn y los
// guarda en una transacción. Sin coincidencias devuelve NotFound.
func (s *RecordService) mutateMany(ctx context.Context, collection string, ids []uuid.UUID, extra sharedDomain.Criteria, fn func(r *recordDomain.Record)) (int64, error) {
	if _, err := s.schema(collection); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, sharedDomain.ValidationError{Field: "ids", Msg: recordDomain.ErrNoIDs.Error(), Err: recordDomain.ErrNoIDs}
	}

	records, err := s.repo.ListByCriteria(ctx, collection,
		sharedDomain.And(recordDomain.ByIDs(sharedUtils.Dedupe(ids)), extra),
		sharedQuery.OffsetPagination{}, nil)
	if err != nil {
		return 0, s.storeErr(collection, err)
	}
	if len(records) == 0 {
		return 0, recordDomain.NotFound(collection)
	}

	evts := make([]sharedDomain.OutboxEvent, 0, len(records))
	keys := make([]string, 0, len(records))
	for _, r := range records {
		fn(r)
		r.Touch()
		evts = append(evts, recordDomain.NewRecordEvent(recordDomain.RecordUpdated, r))
		keys = append(keys, recordDomain.CacheKey(collection, r.ID))
	}

	if err := s.repo.UpdateMany(ctx, records, evts); err != nil {
		return 0, s.storeErr(collection, err)
	}

	sharedCache.AsyncCacheDelete(ctx, s.cache, keys, s.log)
	return int64(len(records)), nil
}

func (s *RecordService) ToggleStatusMany(ctx context.Context, collection string, ids []uuid.UUID) (int64, error) {
	return s.mutateMany(ctx, collection, ids, nil, func(r *recordDomain.Record) { r.Status = !r.Status })
}

// SoftDeleteMany sólo afecta a los registros que no estaban borrados.
func (s *RecordService) SoftDeleteMany(ctx context.Context, collection string, ids []uuid.UUID) (int64, error) {
	notDeleted := sharedDomain.Criterion{Field: recordDomain.FieldIsDeleted, Op: sharedDomain.OpEq, Value: false}
	return s.mutateMany(ctx, collection, ids, notDeleted, func(r *recordDomain.Record) { r.IsDeleted = true })
}

func (s *RecordService) ToggleSoftDeleteMany(ctx context.Context, collection string, ids []uuid.UUID) (int64, error) {
	return s.mutateMany(ctx, collection, ids, nil, func(r *recordDomain.Record) { r.IsDeleted = !r.IsDeleted })
}

// Recover restaura registros borrados lógicamente.
func (s *RecordService) Recover(ctx context.Context, collection string, ids []uuid.UUID) (int64, error) {
	deleted := sharedDomain.Criterion{Field: recordDomain.FieldIsDeleted, Op: sharedDomain.OpEq, Value: true}
	return s.mutateMany(ctx, collection, ids, deleted, func(r *recordDomain.Record) { r.IsDeleted = false })
}

// HardDeleteMany borra los registros y después sus ficheros. Los ficheros
// sólo se tocan si el borrado en base de datos se confirmó.
func (s *RecordService) HardDeleteMany(ctx context.Context, collection string, ids []uuid.UUID) (int64, error) {
	schema, err := s.schema(collection)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, sharedDomain.ValidationError{Field: "ids", Msg: recordDomain.ErrNoIDs.Error(), Err: recordDomain.ErrNoIDs}
	}
	ids = sharedUtils.Dedupe(ids)

	records, err := s.repo.ListByCriteria(ctx, collection, recordDomain.ByIDs(ids), sharedQuery.OffsetPagination{}, nil)
	if err != nil {
		return 0, s.storeErr(collection, err)
	}
	if len(records) == 0 {
		return 0, recordDomain.NotFound(collection)
	}

	evts := make([]sharedDomain.OutboxEvent, 0, len(records))
	keys := make([]string, 0, len(records))
	found := make([]uuid.UUID, 0, len(records))
	var paths []string
	for _, r := range records {
		paths = append(paths, schema.Attachments(r)...)
		evts = append(evts, recordDomain.NewRecordEvent(recordDomain.RecordDeleted, r))
		keys = append(keys, recordDomain.CacheKey(collection, r.ID))
		found = append(found, r.ID)
	}

	n, err := s.repo.DeleteMany(ctx, collection, found, evts)
	if err != nil {
		return 0, s.storeErr(collection, err)
	}

	sharedCache.AsyncCacheDelete(ctx, s.cache, keys, s.log)
	s.removeAttachments(ctx, collection, paths)
	return n, nil
}

// removeAttachments es best effort: los registros ya no existen y un fichero
// huérfano sólo se registra en el log.
func (s *RecordService) removeAttachments(ctx context.Context, collection string, paths []string) {
	if s.files == nil {
		return
	}
	for _, p := range paths {
		if err := s.files.Remove(ctx, p); err != nil {
			s.log.Warn("Failed to delete attachment",
				zap.String("collection", collection),
				zap.String("path", p),
				zap.Error(err))
		}
	}
}

// removeOrphans borra los ficheros que estaban en before y ya no en after.
// Es best effort: el registro ya está guardado.
func (s *RecordService) removeOrphans(ctx context.Context, before, after []string) {
	if s.files == nil || len(before) == 0 {
		return
	}
	kept := make(map[string]struct{}, len(after))
	for _, p := range after {
		kept[p] = struct{}{}
	}
	for _, p := range before {
		if _, ok := kept[p]; ok {
			continue
		}
		if err := s.files.Remove(ctx, p); err != nil {
			s.log.Warn("Failed to delete previous attachment", zap.String("path", p), zap.Error(err))
		}
	}
}

func copyRecord(r *recordDomain.Record) *recordDomain.Record {
	c := *r
	c.Fields = make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		c.Fields[k] = v
	}
	return &c
}
