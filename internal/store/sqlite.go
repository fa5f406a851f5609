package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/nvandessel/mycelium/internal/params"
	_ "modernc.org/sqlite" // SQLite driver
)

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRunStore implements RunStore using SQLite for persistence.
type SQLiteRunStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteRunStore opens (creating if needed) dataDir/mycelium.db.
func NewSQLiteRunStore(dataDir string) (*SQLiteRunStore, error) {
	if err := EnsureDataDir(dataDir); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dataDir, DBFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRunStore{db: db, dbPath: dbPath, now: time.Now}, nil
}

// Path returns the database file path.
func (s *SQLiteRunStore) Path() string {
	return s.dbPath
}

// StartRun inserts a run and its parameters in one transaction.
func (s *SQLiteRunStore) StartRun(ctx context.Context, run Run) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := run.StartedAt
	if started.IsZero() {
		started = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (seed, agents, policy, mode, label, started_at, ticks, retired)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0)`,
		strconv.FormatUint(run.Seed, 10), run.Agents, run.Policy, string(run.Mode), run.Label,
		started.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for i, p := range run.Params {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO run_params (run_id, position, name, value, step)
			VALUES (?, ?, ?, ?, ?)`,
			id, i, p.Name, p.Value, p.Step); err != nil {
			return 0, fmt.Errorf("failed to insert param %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the end time and final counters of a run.
func (s *SQLiteRunStore) FinishRun(ctx context.Context, id int64, ticks uint64, retired int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET ended_at = ?, ticks = ?, retired = ? WHERE id = ?`,
		s.now().UTC().Format(timeLayout), int64(ticks), retired, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// GetRun returns a run with its parameters.
func (s *SQLiteRunStore) GetRun(ctx context.Context, id int64) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, seed, agents, policy, mode, label, started_at, ended_at, ticks, retired
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value, step FROM run_params WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query params: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e params.Entry
		if err := rows.Scan(&e.Name, &e.Value, &e.Step); err != nil {
			return nil, fmt.Errorf("failed to scan param: %w", err)
		}
		run.Params = append(run.Params, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read params: %w", err)
	}

	return run, nil
}

// ListRuns returns runs newest first.
func (s *SQLiteRunStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seed, agents, policy, mode, label, started_at, ended_at, ticks, retired
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run; its parameters cascade.
func (s *SQLiteRunStore) DeleteRun(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %d: %w", id, err)
	}
	return requireAffected(res, id)
}

// Close closes the database.
func (s *SQLiteRunStore) Close() error {
	return s.db.Close()
}

// Helper functions

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run     Run
		seed    string
		mode    string
		label   sql.NullString
		started string
		ended   sql.NullString
		ticks   int64
	)
	if err := row.Scan(&run.ID, &seed, &run.Agents, &run.Policy, &mode, &label, &started, &ended, &ticks, &run.Retired); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	var err error
	if run.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return nil, fmt.Errorf("run %d has invalid seed %q: %w", run.ID, seed, err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("run %d has invalid started_at: %w", run.ID, err)
	}
	if ended.Valid && ended.String != "" {
		t, err := time.Parse(time.RFC3339Nano, ended.String)
		if err != nil {
			return nil, fmt.Errorf("run %d has invalid ended_at: %w", run.ID, err)
		}
		run.EndedAt = &t
	}
	run.Mode = Mode(mode)
	run.Label = label.String
	run.Ticks = uint64(ticks)
	return &run, nil
}

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return nil
}
