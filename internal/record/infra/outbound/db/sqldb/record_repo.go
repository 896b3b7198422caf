package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/davicafu/hexacrud/internal/infra/db/sqldb"
	recordDomain "github.com/davicafu/hexacrud/internal/record/domain"
	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedQuery "github.com/davicafu/hexacrud/shared/platform/query"
	sharedUtils "github.com/davicafu/hexacrud/shared/utils"
	"github.com/google/uuid"
)

// RecordRepoSQL guarda todas las colecciones en una tabla "records": los
// campos reservados en columnas y el resto del documento en JSON (TEXT con
// JSON1 en SQLite, JSONB en Postgres).
type RecordRepoSQL struct {
	db      *sql.DB
	dialect sqldb.Dialect
}

func NewRecordRepoSQL(db *sql.DB, dialect sqldb.Dialect) *RecordRepoSQL {
	return &RecordRepoSQL{db: db, dialect: dialect}
}

const selectColumns = `SELECT id, doc, is_deleted, status, created_at, updated_at FROM records`

// ------------------ Helpers ------------------

func (r *RecordRepoSQL) docArg(rec *recordDomain.Record) (interface{}, error) {
	raw, err := json.Marshal(docValue(rec.Fields))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record document: %w", err)
	}
	if r.dialect == sqldb.Postgres {
		return raw, nil
	}
	return string(raw), nil
}

// inTx abre una transacción, ejecuta fn y hace commit; cualquier error
// provoca rollback.
func (r *RecordRepoSQL) inTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// checkUnique comprueba los campos únicos de la colección dentro de la tx.
func (r *RecordRepoSQL) checkUnique(ctx context.Context, tx *sql.Tx, rec *recordDomain.Record) error {
	schema, err := recordDomain.SchemaFor(rec.Collection)
	if err != nil {
		return nil
	}
	for _, field := range schema.UniqueFields {
		v, ok := rec.Lookup(field)
		if !ok || v == nil {
			continue
		}

		b := &whereBuilder{d: r.dialect}
		where := b.build(sharedDomain.And(
			sharedDomain.Criterion{Field: field, Op: sharedDomain.OpEq, Value: v},
			sharedDomain.Criterion{Field: recordDomain.FieldID, Op: sharedDomain.OpNe, Value: rec.ID.String()},
		))

		var n int64
		query := r.dialect.Rebind(`SELECT COUNT(*) FROM records WHERE collection = ? AND ` + where)
		args := append([]interface{}{rec.Collection}, b.args...)
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return fmt.Errorf("unique check on %s failed: %w", field, err)
		}
		if n > 0 {
			return fmt.Errorf("%s %q: %w", field, fmt.Sprint(v), recordDomain.ErrRecordAlreadyExists)
		}
	}
	return nil
}

func (r *RecordRepoSQL) insertTx(ctx context.Context, tx *sql.Tx, rec *recordDomain.Record) error {
	if err := r.checkUnique(ctx, tx, rec); err != nil {
		return err
	}
	doc, err := r.docArg(rec)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO records (id, collection, doc, is_deleted, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rec.ID.String(), rec.Collection, doc, rec.IsDeleted, rec.Status, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil && isUniqueViolation(err) {
		return recordDomain.ErrRecordAlreadyExists
	}
	return err
}

func (r *RecordRepoSQL) updateTx(ctx context.Context, tx *sql.Tx, rec *recordDomain.Record) error {
	if err := r.checkUnique(ctx, tx, rec); err != nil {
		return err
	}
	doc, err := r.docArg(rec)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, r.dialect.Rebind(
		`UPDATE records SET doc = ?, is_deleted = ?, status = ?, updated_at = ?
		 WHERE id = ? AND collection = ?`),
		doc, rec.IsDeleted, rec.Status, rec.UpdatedAt.UTC(), rec.ID.String(), rec.Collection,
	)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return recordDomain.ErrRecordNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// ------------------ CRUD + Outbox ------------------

// Create inserta el registro y su evento en transacción
func (r *RecordRepoSQL) Create(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	return r.CreateMany(ctx, []*recordDomain.Record{rec}, []sharedDomain.OutboxEvent{evt})
}

func (r *RecordRepoSQL) CreateMany(ctx context.Context, recs []*recordDomain.Record, evts []sharedDomain.OutboxEvent) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			if err := r.insertTx(ctx, tx, rec); err != nil {
				return err
			}
		}
		for _, evt := range evts {
			if err := sqldb.InsertOutboxTx(ctx, tx, r.dialect, evt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RecordRepoSQL) Update(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	return r.UpdateMany(ctx, []*recordDomain.Record{rec}, []sharedDomain.OutboxEvent{evt})
}

func (r *RecordRepoSQL) UpdateMany(ctx context.Context, recs []*recordDomain.Record, evts []sharedDomain.OutboxEvent) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, rec := range recs {
			if err := r.updateTx(ctx, tx, rec); err != nil {
				return err
			}
		}
		for _, evt := range evts {
			if err := sqldb.InsertOutboxTx(ctx, tx, r.dialect, evt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RecordRepoSQL) DeleteMany(ctx context.Context, collection string, ids []uuid.UUID, evts []sharedDomain.OutboxEvent) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	b := &whereBuilder{d: r.dialect}
	where := b.build(recordDomain.ByIDs(ids))
	args := append([]interface{}{collection}, b.args...)

	var deleted int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM records WHERE collection = ? AND `+where), args...)
		if err != nil {
			return err
		}
		deleted, _ = res.RowsAffected()
		if deleted == 0 {
			return recordDomain.ErrRecordNotFound
		}
		for _, evt := range evts {
			if err := sqldb.InsertOutboxTx(ctx, tx, r.dialect, evt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// ------------------ Lecturas ------------------

func (r *RecordRepoSQL) GetByID(ctx context.Context, collection string, id uuid.UUID) (*recordDomain.Record, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectColumns+` WHERE collection = ? AND id = ?`), collection, id.String())

	rec, err := scanRecord(collection, row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, recordDomain.ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (r *RecordRepoSQL) CountByCriteria(ctx context.Context, collection string, criteria sharedDomain.Criteria) (int64, error) {
	b := &whereBuilder{d: r.dialect}
	where := b.build(criteria)
	args := append([]interface{}{collection}, b.args...)

	var n int64
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT COUNT(*) FROM records WHERE collection = ? AND `+where), args...).Scan(&n)
	return n, err
}

// ListByCriteria recupera registros aplicando filtros, orden y ventana.
func (r *RecordRepoSQL) ListByCriteria(
	ctx context.Context,
	collection string,
	criteria sharedDomain.Criteria,
	window sharedQuery.OffsetPagination,
	sorts []sharedQuery.Sort,
) ([]*recordDomain.Record, error) {
	b := &whereBuilder{d: r.dialect}
	where := b.build(criteria)
	args := append([]interface{}{collection}, b.args...)

	query := selectColumns + ` WHERE collection = ? AND ` + where + orderBy(r.dialect, sorts)
	switch {
	case window.Limit > 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, window.Limit, window.Offset)
	case window.Offset > 0:
		// SQLite no admite OFFSET sin LIMIT
		query += sharedUtils.Ternary(r.dialect == sqldb.Postgres, " OFFSET ?", " LIMIT -1 OFFSET ?")
		args = append(args, window.Offset)
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*recordDomain.Record
	for rows.Next() {
		rec, err := scanRecord(collection, rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(collection string, row scanner) (*recordDomain.Record, error) {
	var idStr string
	var doc []byte
	rec := &recordDomain.Record{Collection: collection}
	var createdAt, updatedAt time.Time

	if err := row.Scan(&idStr, &doc, &rec.IsDeleted, &rec.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	parsedID, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	rec.ID = parsedID
	rec.CreatedAt = createdAt.UTC()
	rec.UpdatedAt = updatedAt.UTC()

	rec.Fields = map[string]interface{}{}
	if len(doc) > 0 {
		if err := json.Unmarshal(doc, &rec.Fields); err != nil {
			return nil, fmt.Errorf("invalid JSON document for record %s: %w", parsedID, err)
		}
	}
	return rec, nil
}

// ------------------ Inicialización del Esquema ------------------

// InitSchema crea las tablas records y outbox si no existen.
func InitSchema(db *sql.DB, d sqldb.Dialect) error {
	docType, timeType := "TEXT", "DATETIME"
	if d == sqldb.Postgres {
		docType, timeType = "JSONB", "TIMESTAMP WITH TIME ZONE"
	}

	stmts := []string{
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS records (
            id TEXT PRIMARY KEY,
            collection TEXT NOT NULL,
            doc %s NOT NULL,
            is_deleted BOOLEAN NOT NULL DEFAULT %s,
            status BOOLEAN NOT NULL DEFAULT %s,
            created_at %s NOT NULL,
            updated_at %s NOT NULL
        )`, docType, d.Bool(false), d.Bool(true), timeType, timeType),
		`CREATE INDEX IF NOT EXISTS idx_records_listing ON records (collection, is_deleted, created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init records schema: %w", err)
		}
	}

	return sqldb.InitOutboxSchema(db, d)
}

// Verificación en tiempo de compilación.
var _ recordDomain.RecordRepository = (*RecordRepoSQL)(nil)
