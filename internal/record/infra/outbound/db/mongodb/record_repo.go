package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/davicafu/hexacrud/internal/infra/db/mongodb"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// RecordRepoMongoDB guarda cada colección de registros en su propia
// colección de MongoDB, con el documento plano y _id en texto.
type RecordRepoMongoDB struct {
	client     *mongo.Client
	db         *mongo.Database
	outboxColl *mongo.Collection
}

// NewRecordRepoMongoDB es el constructor del repositorio.
func NewRecordRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*RecordRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &RecordRepoMongoDB{
		client:     client,
		db:         db,
		outboxColl: db.Collection(mongodb.OutboxCollection),
	}, nil
}

func (r *RecordRepoMongoDB) coll(collection string) *mongo.Collection {
	return r.db.Collection(collection)
}

// EnsureIndexes crea los índices únicos de cada esquema y el de listados.
func (r *RecordRepoMongoDB) EnsureIndexes(ctx context.Context) error {
	for _, schema := range recordDomain.Schemas() {
		models := []mongo.IndexModel{{
			Keys: bson.D{{Key: recordDomain.FieldIsDeleted, Value: 1}, {Key: recordDomain.FieldCreatedAt, Value: -1}},
		}}
		for _, field := range schema.UniqueFields {
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: field, Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			})
		}
		if _, err := r.coll(schema.Collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes for %s: %w", schema.Collection, err)
		}
	}
	return nil
}

// --- CRUD Transaccional ---

// withTransaction ejecuta fn en una sesión; el registro y sus eventos de
// outbox se confirman juntos.
func (r *RecordRepoMongoDB) withTransaction(ctx context.Context, fn func(sessCtx mongo.SessionContext) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%v: %w", err, recordDomain.ErrRecordAlreadyExists)
	}
	return err
}

func (r *RecordRepoMongoDB) insertOutbox(sessCtx mongo.SessionContext, evts []sharedDomain.OutboxEvent) error {
	for _, evt := range evts {
		if err := mongodb.InsertOutbox(sessCtx, r.outboxColl, evt); err != nil {
			return err
		}
	}
	return nil
}

func (r *RecordRepoMongoDB) Create(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	return r.CreateMany(ctx, []*recordDomain.Record{rec}, []sharedDomain.OutboxEvent{evt})
}

func (r *RecordRepoMongoDB) CreateMany(ctx context.Context, recs []*recordDomain.Record, evts []sharedDomain.OutboxEvent) error {
	if len(recs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, toMongoDocument(rec))
	}
	collection := recs[0].Collection

	return r.withTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.coll(collection).InsertMany(sessCtx, docs); err != nil {
			return err
		}
		return r.insertOutbox(sessCtx, evts)
	})
}

func (r *RecordRepoMongoDB) Update(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	return r.UpdateMany(ctx, []*recordDomain.Record{rec}, []sharedDomain.OutboxEvent{evt})
}

func (r *RecordRepoMongoDB) UpdateMany(ctx context.Context, recs []*recordDomain.Record, evts []sharedDomain.OutboxEvent) error {
	return r.withTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		for _, rec := range recs {
			res, err := r.coll(rec.Collection).ReplaceOne(sessCtx, bson.M{"_id": rec.ID.String()}, toMongoDocument(rec))
			if err != nil {
				return err
			}
			if res.MatchedCount == 0 {
				return recordDomain.ErrRecordNotFound
			}
		}
		return r.insertOutbox(sessCtx, evts)
	})
}

func (r *RecordRepoMongoDB) DeleteMany(ctx context.Context, collection string, ids []uuid.UUID, evts []sharedDomain.OutboxEvent) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	filter := criteriaToMongoFilter(recordDomain.ByIDs(ids))

	var deleted int64
	err := r.withTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		res, err := r.coll(collection).DeleteMany(sessCtx, filter)
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return recordDomain.ErrRecordNotFound
		}
		deleted = res.DeletedCount
		return r.insertOutbox(sessCtx, evts)
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// --- Lectura ---

func (r *RecordRepoMongoDB) GetByID(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error) {
	var doc bson.M
	err := r.coll(collection).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, recordDomain.ErrRecordNotFound
		}
		return nil, err
	}
	return fromMongoDocument(collection, doc)
}

func (r *RecordRepoMongoDB) CountByCriteria(ctx context.Context, collection string, criteria sharedDomain.Criteria) (int64, error) {
	return r.coll(collection).CountDocuments(ctx, criteriaToMongoFilter(criteria))
}

func (r *RecordRepoMongoDB) ListByCriteria(
	ctx context.Context,
	collection string,
	criteria sharedDomain.Criteria,
	window sharedQuery.OffsetPagination,
	sorts []sharedQuery.Sort,
) ([]*recordDomain.Record, error) {
	opts := options.Find()

	// Paginación
	if window.Offset > 0 {
		opts.SetSkip(int64(window.Offset))
	}
	if window.Limit > 0 {
		opts.SetLimit(int64(window.Limit))
	}

	// Ordenamiento
	if len(sorts) > 0 {
		opts.SetSort(sortsToMongo(sorts))
	}

	cursor, err := r.coll(collection).Find(ctx, criteriaToMongoFilter(criteria), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var recs []*recordDomain.Record
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rec, err := fromMongoDocument(collection, doc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}

	return recs, cursor.Err()
}

// --- Helpers de Mapeo y Conversión ---

func toMongoDocument(rec *recordDomain.Record) bson.M {
	return bson.M(rec.Document())
}

func fromMongoDocument(collection string, doc bson.M) (*recordDomain.Record, error) {
	plain, _ := normalize(map[string]interface{}(doc)).(map[string]interface{})
	return recordDomain.FromDocument(collection, plain)
}

// normalize convierte los tipos BSON del decoder a los tipos de Go que usa
// el dominio (los mismos que produce encoding/json, salvo fechas).
func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.M:
		return normalizeMap(val)
	case map[string]interface{}:
		return normalizeMap(val)
	case bson.D:
		m := make(map[string]interface{}, len(val))
		for _, e := range val {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.A:
		return normalizeSlice(val)
	case []interface{}:
		return normalizeSlice(val)
	case primitive.DateTime:
		return val.Time().UTC()
	case int32:
		return int64(val)
	case primitive.ObjectID:
		return val.Hex()
	}
	return v
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalize(v)
	}
	return out
}

func normalizeSlice(s []interface{}) []interface{} {
	out := make([]interface{}, 0, len(s))
	for _, v := range s {
		out = append(out, normalize(v))
	}
	return out
}

// Verificación en tiempo de compilación.
var _ recordDomain.RecordRepository = (*RecordRepoMongoDB)(nil)
