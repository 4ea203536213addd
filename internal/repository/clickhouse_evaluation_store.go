package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"RegimeGuard/internal/domain/models"
	domrepo "RegimeGuard/internal/domain/repository"
	pkgch "RegimeGuard/pkg/clickhouse"
	applogger "RegimeGuard/pkg/logger"
)

// DefaultEvaluationTable is the history table name for the SQL backends.
const DefaultEvaluationTable = "regime_evaluations"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// CHEvaluationStore implements EvaluationStore backed by a ClickHouse
// MergeTree table ordered by (symbol, evaluated_at).
type CHEvaluationStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	ttl   time.Duration
	l     *applogger.Logger
}

var _ domrepo.EvaluationStore = (*CHEvaluationStore)(nil)

// NewCHEvaluationStore: retention of zero keeps rows forever.
func NewCHEvaluationStore(ch *pkgch.Client, table string, retention time.Duration, l *applogger.Logger) (*CHEvaluationStore, error) {
	if table == "" {
		table = DefaultEvaluationTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("clickhouse history: invalid table name %q", table)
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &CHEvaluationStore{ch: ch, db: ch.DB(), table: table, ttl: retention, l: l}, nil
}

func (s *CHEvaluationStore) Init(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id           String,
			symbol       LowCardinality(String),
			evaluated_at DateTime64(3, 'UTC'),
			regime       LowCardinality(String),
			rule         LowCardinality(String),
			should_veto  UInt8,
			severity     LowCardinality(String),
			reasons      String,
			price        Float64,
			bars         UInt32,
			narrative    String,
			snapshot     String,
			duration_ms  Int64
		) ENGINE = MergeTree
		ORDER BY (symbol, evaluated_at)`, s.table)
	if s.ttl > 0 {
		ddl += fmt.Sprintf("\n\t\tTTL toDateTime(evaluated_at) + INTERVAL %d HOUR", int(s.ttl.Hours()))
	}
	return s.ch.InitSchema(ctx, []string{ddl})
}

func (s *CHEvaluationStore) Save(ctx context.Context, e *models.Evaluation) error {
	r, err := toRow(e)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s (id, symbol, evaluated_at, regime, rule, should_veto, severity, reasons, price, bars, narrative, snapshot, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	veto := uint8(0)
	if r.ShouldVeto {
		veto = 1
	}
	_, err = s.db.ExecContext(ctx, q,
		r.ID, r.Symbol, r.EvaluatedAt, r.Regime, r.Rule, veto, r.Severity,
		r.Reasons, r.Price, uint32(r.Bars), r.Narrative, r.Snapshot, r.DurationMs,
	)
	if err != nil {
		s.l.Error("clickhouse save evaluation error",
			applogger.String("table", s.table),
			applogger.String("symbol", r.Symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("save evaluation: %w", err)
	}
	return nil
}

func (s *CHEvaluationStore) Recent(ctx context.Context, symbol models.Symbol, limit int) ([]*models.Evaluation, error) {
	q := fmt.Sprintf(`
		SELECT id, symbol, evaluated_at, regime, rule, should_veto, severity, reasons, price, bars, narrative, snapshot, duration_ms
		FROM %s
		WHERE symbol = ?
		ORDER BY evaluated_at DESC
		LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, string(symbol), limit)
	if err != nil {
		s.l.Error("clickhouse recent query error",
			applogger.String("table", s.table),
			applogger.String("symbol", string(symbol)),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("recent evaluations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Evaluation, 0, limit)
	for rows.Next() {
		var (
			r    evaluationRow
			veto uint8
			bars uint32
		)
		if err := rows.Scan(&r.ID, &r.Symbol, &r.EvaluatedAt, &r.Regime, &r.Rule, &veto, &r.Severity,
			&r.Reasons, &r.Price, &bars, &r.Narrative, &r.Snapshot, &r.DurationMs); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		r.ShouldVeto = veto == 1
		r.Bars = int(bars)
		e, err := r.evaluation()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHEvaluationStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHEvaluationStore) Close() error {
	return s.ch.Close()
}
