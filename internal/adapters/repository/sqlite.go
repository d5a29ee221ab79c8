package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/fairway/internal/domain/model"
	"github.com/okian/fairway/pkg/logger"
	"github.com/okian/fairway/pkg/metrics"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const (
	defaultBusyTimeout = 5 * time.Second
	// fixed width so created_at sorts as text
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteStore implements Store on a SQLite database.
type SQLiteStore struct {
	db          *sql.DB
	busyTimeout time.Duration
	log         logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{busyTimeout: defaultBusyTimeout, log: logger.Default().Named("repository")}
	for _, opt := range opts {
		opt(s)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	// one connection: writes are serialized and :memory: stays one database
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
	}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range append(pragmas, schemaSQL) {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
		}
	}
	s.db = db
	s.log.Info(ctx, "store opened", logger.String("path", path))
	return s, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStore) insertRun(ctx context.Context, tx *sql.Tx, r Run, payload any) error {
	var raw sql.NullString
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", r.Kind, r.ID, err)
		}
		raw = sql.NullString{String: string(b), Valid: true}
	}
	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, event_id, template_id, template_version, strategy, entries, created_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.EventID, r.TemplateID, r.TemplateVersion, r.Strategy, r.Entries,
		created.UTC().Format(timeLayout), raw,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateRun, r.ID)
	}
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SaveRanking implements Store.
func (s *SQLiteStore) SaveRanking(ctx context.Context, r Ranking) error {
	defer observe("save_ranking", time.Now())
	r.Kind = KindRanking
	r.Run.Entries = len(r.Entries)

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.insertRun(ctx, tx, r.Run, nil); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO ranking_entries (run_id, rank, competitor_id, name, score, coverage) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare entries: %w", err)
		}
		defer stmt.Close()
		for _, e := range r.Entries {
			if _, err := stmt.ExecContext(ctx, r.ID, e.Rank, e.CompetitorID, e.Name, e.Score, e.Coverage); err != nil {
				return fmt.Errorf("insert entry %d of run %s: %w", e.CompetitorID, r.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "save_ranking")
		return err
	}
	s.log.Debug(ctx, "ranking saved", logger.String("run_id", r.ID), logger.Int("entries", len(r.Entries)))
	return nil
}

func scanRun(row interface{ Scan(...any) error }) (Run, sql.NullString, error) {
	var (
		r       Run
		created string
		payload sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Kind, &r.EventID, &r.TemplateID, &r.TemplateVersion, &r.Strategy, &r.Entries, &created, &payload); err != nil {
		return Run{}, payload, err
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return Run{}, payload, fmt.Errorf("run %s created_at %q: %w", r.ID, created, err)
	}
	r.CreatedAt = t
	return r, payload, nil
}

const runColumns = `id, kind, event_id, template_id, template_version, strategy, entries, created_at, payload`

func (s *SQLiteStore) run(ctx context.Context, id, kind string) (Run, sql.NullString, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ? AND kind = ?`, id, kind)
	r, payload, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, payload, fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	if err != nil {
		return Run{}, payload, fmt.Errorf("load %s %s: %w", kind, id, err)
	}
	return r, payload, nil
}

func (s *SQLiteStore) entries(ctx context.Context, runID string, limit int) ([]model.RankingEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rank, competitor_id, name, score, coverage FROM ranking_entries
		 WHERE run_id = ? ORDER BY rank, competitor_id LIMIT ?`, runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query entries of run %s: %w", runID, err)
	}
	defer rows.Close()

	out := []model.RankingEntry{}
	for rows.Next() {
		var e model.RankingEntry
		if err := rows.Scan(&e.Rank, &e.CompetitorID, &e.Name, &e.Score, &e.Coverage); err != nil {
			return nil, fmt.Errorf("scan entry of run %s: %w", runID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ranking implements Store.
func (s *SQLiteStore) Ranking(ctx context.Context, runID string) (Ranking, error) {
	defer observe("ranking", time.Now())
	r, _, err := s.run(ctx, runID, KindRanking)
	if err != nil {
		return Ranking{}, err
	}
	entries, err := s.entries(ctx, runID, -1)
	if err != nil {
		return Ranking{}, err
	}
	return Ranking{Run: r, Entries: entries}, nil
}

// TopN implements Store.
func (s *SQLiteStore) TopN(ctx context.Context, runID string, n int) ([]model.RankingEntry, error) {
	defer observe("top_n", time.Now())
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	if _, _, err := s.run(ctx, runID, KindRanking); err != nil {
		return nil, err
	}
	return s.entries(ctx, runID, n)
}

// Rank implements Store.
func (s *SQLiteStore) Rank(ctx context.Context, runID string, competitorID int64) (model.RankingEntry, error) {
	defer observe("rank", time.Now())
	var e model.RankingEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT rank, competitor_id, name, score, coverage FROM ranking_entries WHERE run_id = ? AND competitor_id = ?`,
		runID, competitorID,
	).Scan(&e.Rank, &e.CompetitorID, &e.Name, &e.Score, &e.Coverage)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RankingEntry{}, fmt.Errorf("%w: competitor %d in run %s", ErrNotFound, competitorID, runID)
	}
	if err != nil {
		return model.RankingEntry{}, fmt.Errorf("load competitor %d in run %s: %w", competitorID, runID, err)
	}
	return e, nil
}

// SaveValidation implements Store.
func (s *SQLiteStore) SaveValidation(ctx context.Context, v ValidationRecord) error {
	defer observe("save_validation", time.Now())
	v.Kind = KindValidation
	v.Run.Entries = v.Report.Matched
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insertRun(ctx, tx, v.Run, v)
	})
}

// Validation implements Store.
func (s *SQLiteStore) Validation(ctx context.Context, id string) (ValidationRecord, error) {
	defer observe("validation", time.Now())
	r, payload, err := s.run(ctx, id, KindValidation)
	if err != nil {
		return ValidationRecord{}, err
	}
	var v ValidationRecord
	if err := json.Unmarshal([]byte(payload.String), &v); err != nil {
		return ValidationRecord{}, fmt.Errorf("decode validation %s: %w", id, err)
	}
	v.Run = r
	return v, nil
}

// SaveOptimization implements Store.
func (s *SQLiteStore) SaveOptimization(ctx context.Context, o OptimizationRecord) error {
	defer observe("save_optimization", time.Now())
	o.Kind = KindOptimization
	o.Run.Entries = len(o.Recommendation.Runs)
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insertRun(ctx, tx, o.Run, o)
	})
}

// Optimization implements Store.
func (s *SQLiteStore) Optimization(ctx context.Context, id string) (OptimizationRecord, error) {
	defer observe("optimization", time.Now())
	r, payload, err := s.run(ctx, id, KindOptimization)
	if err != nil {
		return OptimizationRecord{}, err
	}
	var o OptimizationRecord
	if err := json.Unmarshal([]byte(payload.String), &o); err != nil {
		return OptimizationRecord{}, fmt.Errorf("decode optimization %s: %w", id, err)
	}
	o.Run = r
	return o, nil
}

// ListRuns implements Store.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	defer observe("list_runs", time.Now())
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		r, _, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}
