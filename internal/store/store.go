// Package store keeps lag correlation runs in a local SQLite database so
// results of different parameter sets can be compared later.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/pondstat-cli/internal/analysis"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// KindLag marks runs produced by the lag engine.
const KindLag = "lag"

// Store wraps a SQLite database holding runs and their cells.
type Store struct {
	db *sql.DB
}

// Run describes one stored analysis run.
type Run struct {
	ID        string
	Kind      string
	CreatedAt time.Time
	Params    json.RawMessage
	Cells     int
}

// LagCellRow is one stored lag cell with its coordinates.
type LagCellRow struct {
	WeatherVar string
	PondVar    string
	Lag        int
	analysis.LagCell
}

// Open opens or creates the database at path. ":memory:" is accepted for
// throwaway stores.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			created_at  INTEGER NOT NULL,
			params_json TEXT NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS lag_cells (
			run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			weather_var TEXT NOT NULL,
			pond_var    TEXT NOT NULL,
			lag         INTEGER NOT NULL,
			n           INTEGER NOT NULL,
			rho         REAL,
			p_value     REAL,
			significant INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, weather_var, pond_var, lag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveLagRun stores every cell of res under a new run ID. params is stored
// as JSON next to the run; nil stores an empty object.
func (s *Store) SaveLagRun(res *analysis.LagResult, params any) (string, error) {
	if res == nil {
		return "", fmt.Errorf("save lag run: nil result")
	}
	pj := []byte("{}")
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return "", fmt.Errorf("marshal params: %w", err)
		}
		pj = b
	}
	id := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`INSERT INTO runs (id, kind, created_at, params_json) VALUES (?,?,?,?)`,
		id, KindLag, time.Now().UnixNano(), string(pj)); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO lag_cells
			(run_id, weather_var, pond_var, lag, n, rho, p_value, significant)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return "", fmt.Errorf("prepare cell insert: %w", err)
	}
	defer stmt.Close()
	for _, m := range res.Matrices {
		for i, pv := range m.PondVars {
			for j, lag := range m.Lags {
				c := m.At(i, j)
				if _, err := stmt.Exec(id, m.WeatherVar, pv, lag, c.N,
					nullable(c.Coef), nullable(c.PValue), boolInt(c.Significant)); err != nil {
					return "", fmt.Errorf("insert cell %s/%s/%d: %w", m.WeatherVar, pv, lag, err)
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return id, nil
}

// LagCells returns the cells of a run in insertion order (weather
// variable, pond variable, lag).
func (s *Store) LagCells(runID string) ([]LagCellRow, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	rows, err := s.db.Query(`
		SELECT weather_var, pond_var, lag, n, rho, p_value, significant
		FROM lag_cells WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()
	var out []LagCellRow
	for rows.Next() {
		var (
			r       LagCellRow
			rho, p  sql.NullFloat64
			sigFlag int
		)
		if err := rows.Scan(&r.WeatherVar, &r.PondVar, &r.Lag, &r.N, &rho, &p, &sigFlag); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		r.Coef = fromNullable(rho)
		r.PValue = fromNullable(p)
		r.Significant = sigFlag != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs lists stored runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT r.id, r.kind, r.created_at, r.params_json,
			(SELECT COUNT(*) FROM lag_cells c WHERE c.run_id = r.id)
		FROM runs r ORDER BY r.created_at DESC, r.id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	runs := []Run{}
	for rows.Next() {
		var (
			r      Run
			nanos  int64
			params string
		)
		if err := rows.Scan(&r.ID, &r.Kind, &nanos, &params, &r.Cells); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, nanos)
		r.Params = json.RawMessage(params)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its cells.
func (s *Store) DeleteRun(runID string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// SQLite turns NaN into NULL anyway; doing it explicitly keeps the round
// trip symmetric.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
