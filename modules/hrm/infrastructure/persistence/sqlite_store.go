package persistence

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/iota-uz/hr-console/modules/hrm/domain/aggregates/allocation"
	"github.com/iota-uz/hr-console/modules/hrm/domain/entities/objective"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS kpi_objectives (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		code      TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS position_kpis (
		position_id             INTEGER NOT NULL,
		line_no                 INTEGER NOT NULL,
		objective_id            TEXT NOT NULL REFERENCES kpi_objectives (id),
		distribution_percentage TEXT NOT NULL,
		deliverable             TEXT NOT NULL,
		target_percentage       TEXT,
		PRIMARY KEY (position_id, line_no)
	)`,
}

const (
	sqliteSelectKpisQuery = `
	SELECT objective_id, distribution_percentage, deliverable, target_percentage
	FROM position_kpis
	WHERE position_id = ?
	ORDER BY line_no`

	sqliteDeleteKpisQuery = `DELETE FROM position_kpis WHERE position_id = ?`

	sqliteInsertKpiQuery = `
	INSERT INTO position_kpis (position_id, line_no, objective_id, distribution_percentage, deliverable, target_percentage)
	VALUES (?, ?, ?, ?, ?, ?)`

	sqliteSelectObjectivesQuery = `
	SELECT id, name, code, is_active
	FROM kpi_objectives
	WHERE is_active = 1
	ORDER BY name COLLATE NOCASE, id`

	sqliteUpsertObjectiveQuery = `
	INSERT INTO kpi_objectives (id, name, code, is_active)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET name = excluded.name, code = excluded.code, is_active = excluded.is_active`
)

// SQLiteStore keeps objectives and KPI sets in a single SQLite file. It
// serves as both the KPI and the objective repository.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.Wrap(err, "sqlite: create dirs")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: open")
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "sqlite: apply schema")
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetByPosition(ctx context.Context, positionID int64) (*allocation.Record, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectKpisQuery, positionID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	rec := &allocation.Record{PositionID: positionID, Kpis: []allocation.Entry{}}
	for rows.Next() {
		var (
			objectiveID, deliverable string
			distribution, target     sql.NullString
		)
		if err := rows.Scan(&objectiveID, &distribution, &deliverable, &target); err != nil {
			return nil, err
		}
		entry := allocation.Entry{ObjectiveID: objective.ID(objectiveID), Deliverable: deliverable}
		if entry.DistributionPercentage, err = nullDecimal(pgtype.Text(distribution)); err != nil {
			return nil, err
		}
		if entry.TargetPercentage, err = nullDecimal(pgtype.Text(target)); err != nil {
			return nil, err
		}
		rec.Kpis = append(rec.Kpis, entry)
	}
	return rec, rows.Err()
}

func (s *SQLiteStore) Replace(ctx context.Context, positionID int64, entries []allocation.Entry) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, sqliteDeleteKpisQuery, positionID); err != nil {
		return errors.Wrap(err, "delete kpis")
	}
	for i, e := range entries {
		if _, err := tx.ExecContext(ctx, sqliteInsertKpiQuery,
			positionID,
			i+1,
			e.ObjectiveID.String(),
			sqliteDecimal(e.DistributionPercentage),
			e.Deliverable,
			sqliteDecimal(e.TargetPercentage),
		); err != nil {
			return errors.Wrapf(err, "insert kpi line %d", i+1)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListActive(ctx context.Context) ([]objective.Objective, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectObjectivesQuery)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []objective.Objective{}
	for rows.Next() {
		var (
			id string
			o  objective.Objective
		)
		if err := rows.Scan(&id, &o.Name, &o.Code, &o.IsActive); err != nil {
			return nil, err
		}
		o.ID = objective.ID(id)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Upsert(ctx context.Context, objs []objective.Objective) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, o := range objs {
		if o.ID.IsZero() {
			o.ID = objective.ID(uuid.NewString())
		}
		if _, err := tx.ExecContext(ctx, sqliteUpsertObjectiveQuery, o.ID.String(), o.Name, o.Code, o.IsActive); err != nil {
			return errors.Wrapf(err, "upsert objective %s", o.ID)
		}
	}
	return tx.Commit()
}

func sqliteDecimal(d decimal.NullDecimal) sql.NullString {
	return sql.NullString(decimalText(d))
}
