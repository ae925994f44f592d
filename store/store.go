// Package store persists solved dispatch plans to PostgreSQL, one row
// per horizon step, keyed by the step's wall-clock timestamp so
// re-optimizations of the same window overwrite their predecessors.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"github.com/devskill-org/enduseroptimizer/optimizer"
)

// Schema is the dispatch table DDL, applied by EnsureSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS dispatch_plan (
	timestamp         BIGINT PRIMARY KEY,
	step              INTEGER NOT NULL,
	status            TEXT NOT NULL,
	power_import      DOUBLE PRECISION,
	power_export      DOUBLE PRECISION,
	storage_charge    DOUBLE PRECISION,
	storage_discharge DOUBLE PRECISION,
	consumer_power    DOUBLE PRECISION,
	producer_power    DOUBLE PRECISION,
	import_tariff     DOUBLE PRECISION,
	export_tariff     DOUBLE PRECISION
)`

// Row is one persisted horizon step of a dispatch plan.
type Row struct {
	Timestamp        int64
	Step             int
	Status           string
	PowerImport      float64
	PowerExport      float64
	StorageCharge    float64
	StorageDischarge float64
	ConsumerPower    float64
	ProducerPower    float64
	ImportTariff     float64
	ExportTariff     float64
}

// Store wraps the database connection used for dispatch persistence.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open connects to PostgreSQL with the given connection string.
func Open(connString string, logger *log.Logger) (*Store, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing connection, mainly for tests.
func NewWithDB(db *sql.DB, logger *log.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// EnsureSchema creates the dispatch table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// PlanRows flattens a solved end user into per-step rows. Storage,
// consumer and producer powers are summed over the respective lists.
func PlanRows(eu *optimizer.EndUser) []Row {
	cfg := eu.Config()
	timestamps := eu.Timestamps()
	rows := make([]Row, cfg.Horizon)
	for k := 0; k < cfg.Horizon; k++ {
		row := Row{
			Timestamp:    timestamps[k].Unix(),
			Step:         k,
			Status:       eu.Status,
			ImportTariff: eu.Grid.ImportTariff[k],
			ExportTariff: eu.Grid.ExportTariff[k],
		}
		if len(eu.Grid.PowerImport) == cfg.Horizon {
			row.PowerImport = eu.Grid.PowerImport[k]
			row.PowerExport = eu.Grid.PowerExport[k]
		}
		for _, st := range eu.Storages {
			if len(st.PowerCharging) == cfg.Horizon {
				row.StorageCharge += st.PowerCharging[k]
				row.StorageDischarge += st.PowerDischarging[k]
			}
		}
		for _, c := range eu.Consumers {
			if len(c.PowerActual) == cfg.Horizon {
				row.ConsumerPower += c.PowerActual[k]
			}
		}
		for _, p := range eu.Producers {
			row.ProducerPower += p.PowerActual[k]
		}
		rows[k] = row
	}
	return rows
}

// SavePlan persists the dispatch of a solved end user. Rows at or after
// the plan's first timestamp are replaced, so a re-optimization of the
// same window supersedes the stored plan.
func (s *Store) SavePlan(ctx context.Context, eu *optimizer.EndUser) error {
	rows := PlanRows(eu)
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM dispatch_plan WHERE timestamp >= $1`, rows[0].Timestamp); err != nil {
		return fmt.Errorf("failed to delete existing plan: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO dispatch_plan (
			timestamp,
			step,
			status,
			power_import,
			power_export,
			storage_charge,
			storage_discharge,
			consumer_power,
			producer_power,
			import_tariff,
			export_tariff
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (timestamp) DO UPDATE SET
			step = EXCLUDED.step,
			status = EXCLUDED.status,
			power_import = EXCLUDED.power_import,
			power_export = EXCLUDED.power_export,
			storage_charge = EXCLUDED.storage_charge,
			storage_discharge = EXCLUDED.storage_discharge,
			consumer_power = EXCLUDED.consumer_power,
			producer_power = EXCLUDED.producer_power,
			import_tariff = EXCLUDED.import_tariff,
			export_tariff = EXCLUDED.export_tariff
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Timestamp,
			row.Step,
			row.Status,
			row.PowerImport,
			row.PowerExport,
			row.StorageCharge,
			row.StorageDischarge,
			row.ConsumerPower,
			row.ProducerPower,
			row.ImportTariff,
			row.ExportTariff,
		); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", row.Step, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.logger != nil {
		s.logger.Printf("Saved %d dispatch rows to database", len(rows))
	}
	return nil
}

// LoadPlan loads the stored dispatch rows at or after from, ordered by
// timestamp.
func (s *Store) LoadPlan(ctx context.Context, from time.Time) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			timestamp,
			step,
			status,
			power_import,
			power_export,
			storage_charge,
			storage_discharge,
			consumer_power,
			producer_power,
			import_tariff,
			export_tariff
		FROM dispatch_plan
		WHERE timestamp >= $1
		ORDER BY timestamp ASC
	`, from.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query plan: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.Timestamp,
			&row.Step,
			&row.Status,
			&row.PowerImport,
			&row.PowerExport,
			&row.StorageCharge,
			&row.StorageDischarge,
			&row.ConsumerPower,
			&row.ProducerPower,
			&row.ImportTariff,
			&row.ExportTariff,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
