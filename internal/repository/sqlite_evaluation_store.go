package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"RegimeGuard/internal/domain/models"
	domrepo "RegimeGuard/internal/domain/repository"
	applogger "RegimeGuard/pkg/logger"
)

// SQLiteEvaluationStore keeps history in a local WAL-mode SQLite file.
type SQLiteEvaluationStore struct {
	db *sql.DB
	mu sync.Mutex
	l  *applogger.Logger
}

var _ domrepo.EvaluationStore = (*SQLiteEvaluationStore)(nil)

// NewSQLiteEvaluationStore opens (or creates) the database at path.
func NewSQLiteEvaluationStore(path string, l *applogger.Logger) (*SQLiteEvaluationStore, error) {
	if l == nil {
		l = applogger.Nop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer; WAL lets readers proceed alongside it
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	l.Info("sqlite history opened", applogger.String("path", path))
	return &SQLiteEvaluationStore{db: db, l: l}, nil
}

// Init runs the migrations.
func (s *SQLiteEvaluationStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS regime_evaluations (
			id           TEXT PRIMARY KEY,
			symbol       TEXT NOT NULL,
			evaluated_at INTEGER NOT NULL,
			regime       TEXT NOT NULL,
			rule         TEXT,
			should_veto  INTEGER NOT NULL,
			severity     TEXT,
			reasons      TEXT NOT NULL,
			price        REAL,
			bars         INTEGER,
			narrative    TEXT,
			snapshot     TEXT NOT NULL,
			duration_ms  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_symbol_ts ON regime_evaluations(symbol, evaluated_at)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteEvaluationStore) Save(ctx context.Context, e *models.Evaluation) error {
	r, err := toRow(e)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO regime_evaluations
		(id, symbol, evaluated_at, regime, rule, should_veto, severity, reasons, price, bars, narrative, snapshot, duration_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Symbol, r.EvaluatedAt.UnixMilli(), r.Regime, r.Rule, r.ShouldVeto, r.Severity,
		r.Reasons, r.Price, r.Bars, r.Narrative, r.Snapshot, r.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("save evaluation: %w", err)
	}
	return nil
}

func (s *SQLiteEvaluationStore) Recent(ctx context.Context, symbol models.Symbol, limit int) ([]*models.Evaluation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, evaluated_at, regime, rule, should_veto, severity, reasons, price, bars, narrative, snapshot, duration_ms
		FROM regime_evaluations
		WHERE symbol = ?
		ORDER BY evaluated_at DESC, rowid DESC
		LIMIT ?`, string(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("recent evaluations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Evaluation, 0, limit)
	for rows.Next() {
		var (
			r  evaluationRow
			ms int64
		)
		if err := rows.Scan(&r.ID, &r.Symbol, &ms, &r.Regime, &r.Rule, &r.ShouldVeto, &r.Severity,
			&r.Reasons, &r.Price, &r.Bars, &r.Narrative, &r.Snapshot, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		r.EvaluatedAt = time.UnixMilli(ms)
		e, err := r.evaluation()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteEvaluationStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteEvaluationStore) Close() error {
	s.l.Info("closing sqlite history")
	return s.db.Close()
}
