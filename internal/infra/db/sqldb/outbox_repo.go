package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	"github.com/google/uuid"
)

// OutboxRepoSQL implementa sharedDomain.OutboxRepository para SQLite y Postgres.
type OutboxRepoSQL struct {
	db      *sql.DB
	dialect Dialect
}

func NewOutboxRepoSQL(db *sql.DB, dialect Dialect) *OutboxRepoSQL {
	return &OutboxRepoSQL{db: db, dialect: dialect}
}

// InsertOutboxTx guarda el evento dentro de la transacción del cambio.
func InsertOutboxTx(ctx context.Context, tx *sql.Tx, d Dialect, evt sharedDomain.OutboxEvent) error {
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	var payload interface{} = string(payloadBytes)
	if d == Postgres {
		payload = payloadBytes
	}

	_, err = tx.ExecContext(ctx, d.Rebind(
		`INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at, processed)
		 VALUES (?, ?, ?, ?, ?, ?, `+d.Bool(false)+`)`),
		evt.ID.String(), evt.AggregateType, evt.AggregateID, evt.EventType, payload, evt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// FetchPendingOutbox devuelve los eventos no procesados por orden de creación.
// El payload sale como json.RawMessage.
func (r *OutboxRepoSQL) FetchPendingOutbox(ctx context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(
		`SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		 FROM outbox
		 WHERE processed = `+r.dialect.Bool(false)+`
		 ORDER BY created_at
		 LIMIT ?`), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []sharedDomain.OutboxEvent
	for rows.Next() {
		var idStr, aggregateType, aggregateID, eventType string
		var payload []byte
		var createdAt time.Time

		if err := rows.Scan(&idStr, &aggregateType, &aggregateID, &eventType, &payload, &createdAt); err != nil {
			return nil, err
		}

		parsedID, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID in outbox row: %w", err)
		}
		if !json.Valid(payload) {
			return nil, fmt.Errorf("invalid JSON payload in outbox row %s", parsedID)
		}

		events = append(events, sharedDomain.OutboxEvent{
			ID:            parsedID,
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			EventType:     eventType,
			Payload:       json.RawMessage(payload),
			CreatedAt:     createdAt,
		})
	}

	return events, rows.Err()
}

// MarkOutboxProcessed marca un evento como procesado.
func (r *OutboxRepoSQL) MarkOutboxProcessed(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`UPDATE outbox SET processed = `+r.dialect.Bool(true)+` WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("failed to mark outbox event %s as processed: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected for outbox event %s: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("no outbox event found with id %s", id)
	}
	return nil
}

// InitOutboxSchema crea la tabla outbox si no existe.
func InitOutboxSchema(db *sql.DB, d Dialect) error {
	payloadType, timeType := "TEXT", "DATETIME"
	if d == Postgres {
		payloadType, timeType = "JSONB", "TIMESTAMP WITH TIME ZONE"
	}

	_, err := db.Exec(fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS outbox (
            id TEXT PRIMARY KEY,
            aggregate_type TEXT NOT NULL,
            aggregate_id TEXT NOT NULL,
            event_type TEXT NOT NULL,
            payload %s NOT NULL,
            created_at %s NOT NULL,
            processed BOOLEAN NOT NULL DEFAULT %s
        )`, payloadType, timeType, d.Bool(false)))
	if err != nil {
		return fmt.Errorf("failed to create outbox table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (processed, created_at)`)
	return err
}

// Verificación en tiempo de compilación.
var _ sharedDomain.OutboxRepository = (*OutboxRepoSQL)(nil)
