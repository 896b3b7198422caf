package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	accessDomain "github.com/davicafu/hexacrud/internal/access/domain"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// DecisionLogRepo guarda las decisiones del gate en ClickHouse.
type DecisionLogRepo struct {
	db *sql.DB
}

// DailyDecisions resume un día de decisiones.
type DailyDecisions struct {
	Day     time.Time
	Allowed uint64
	Denied  uint64
}

// NewDecisionLogRepo abre la conexión y comprueba que responde.
func NewDecisionLogRepo(addr string, dbName string) (*DecisionLogRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &DecisionLogRepo{db: conn}, nil
}

// NewDecisionLogRepoFromDB reutiliza una conexión ya abierta.
func NewDecisionLogRepoFromDB(db *sql.DB) *DecisionLogRepo {
	return &DecisionLogRepo{db: db}
}

func (r *DecisionLogRepo) Close() error { return r.db.Close() }

func (r *DecisionLogRepo) Save(ctx context.Context, d accessDomain.DecisionEntry) error {
	return r.SaveBatch(ctx, []accessDomain.DecisionEntry{d})
}

// SaveBatch inserta un lote. ClickHouse funciona mejor con inserciones en lotes.
func (r *DecisionLogRepo) SaveBatch(ctx context.Context, entries []accessDomain.DecisionEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO access_decisions (principal_id, resource, action, permission, allowed, reason, decided_at)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, d := range entries {
		if _, err := stmt.ExecContext(ctx,
			d.PrincipalID,
			d.Resource,
			d.Action,
			d.Permission,
			d.Allowed,
			d.Reason,
			d.DecidedAt,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for decision %s: %w", d.Permission, err)
		}
	}

	return tx.Commit()
}

// DailyTrend cuenta permitidas y denegadas por día en [start, end].
func (r *DecisionLogRepo) DailyTrend(ctx context.Context, start, end time.Time) ([]DailyDecisions, error) {
	query := `
		SELECT
			toStartOfDay(decided_at) AS day,
			countIf(allowed) AS allowed,
			countIf(NOT allowed) AS denied
		FROM access_decisions
		WHERE decided_at BETWEEN ? AND ?
		GROUP BY day
		ORDER BY day
	`
	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []DailyDecisions
	for rows.Next() {
		var d DailyDecisions
		if err := rows.Scan(&d.Day, &d.Allowed, &d.Denied); err != nil {
			return nil, err
		}
		trend = append(trend, d)
	}
	return trend, rows.Err()
}

// InitSchema crea la tabla si no existe, particionada por mes.
func (r *DecisionLogRepo) InitSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS access_decisions (
			principal_id String,
			resource     LowCardinality(String),
			action       LowCardinality(String),
			permission   String,
			allowed      Bool,
			reason       LowCardinality(String),
			decided_at   DateTime64(3)
		) ENGINE = MergeTree()
		PARTITION BY toYYYYMM(decided_at)
		ORDER BY (resource, action, decided_at);
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

var _ accessDomain.DecisionLog = (*DecisionLogRepo)(nil)
