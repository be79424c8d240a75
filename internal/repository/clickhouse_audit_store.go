package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	pkgch "TradeGate/pkg/clickhouse"
	applogger "TradeGate/pkg/logger"
)

// CHAuditStore persists decisions and order intents to ClickHouse and serves
// the audit read API from the same tables.
type CHAuditStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHAuditStore(ch *pkgch.Client) *CHAuditStore {
	return &CHAuditStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHAuditStore) SetLogger(l *applogger.Logger) { s.l = l }

// SchemaStatements returns idempotent DDL for the audit tables.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`
            CREATE TABLE IF NOT EXISTS %s.decisions (
                ts          DateTime64(3),
                symbol      String,
                direction   Int8,
                alpha       Float64,
                confidence  Float64,
                model_sig   Float64,
                mood_sig    Float64,
                timeframes  String,
                rule        String,
                veto_reason String,
                reasons     String
            ) ENGINE = MergeTree()
            PARTITION BY toYYYYMM(ts)
            ORDER BY (symbol, ts)
        `, database),
		fmt.Sprintf(`
            CREATE TABLE IF NOT EXISTS %s.order_intents (
                ts          DateTime64(3),
                symbol      String,
                side        String,
                quantity    Float64,
                notional    Float64,
                edge_bps    Float64,
                impact_bps  Float64,
                risk_score  Float64,
                veto_reason String,
                reasons     String
            ) ENGINE = MergeTree()
            PARTITION BY toYYYYMM(ts)
            ORDER BY (symbol, ts)
        `, database),
	}
}

func (s *CHAuditStore) RecordDecision(ctx context.Context, d models.Decision) error {
	start := time.Now()
	tfs, _ := json.Marshal(d.Timeframes)
	reasons, _ := json.Marshal(d.Reasons)
	const q = `
        INSERT INTO decisions
            (ts, symbol, direction, alpha, confidence, model_sig, mood_sig, timeframes, rule, veto_reason, reasons)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q,
		d.Timestamp, d.Symbol, int8(d.Direction), d.Alpha, d.Confidence,
		d.ModelSignal, d.MoodSignal, string(tfs), d.AlignmentRule, d.VetoReason, string(reasons),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse record_decision error",
				applogger.String("symbol", d.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("record decision: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse record_decision ok",
			applogger.String("symbol", d.Symbol),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *CHAuditStore) RecordIntent(ctx context.Context, oi models.OrderIntent) error {
	reasons, _ := json.Marshal(oi.Reasons)
	const q = `
        INSERT INTO order_intents
            (ts, symbol, side, quantity, notional, edge_bps, impact_bps, risk_score, veto_reason, reasons)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q,
		oi.Timestamp, oi.Symbol, oi.Side, oi.Quantity, oi.Notional,
		oi.EdgeBps, oi.ImpactBps, oi.RiskScore, oi.VetoReason, string(reasons),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse record_intent error",
				applogger.String("symbol", oi.Symbol),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("record intent: %w", err)
	}
	return nil
}

// Close is a no-op; the underlying pool is owned by pkg/clickhouse.Client.
func (s *CHAuditStore) Close() error { return nil }

func (s *CHAuditStore) Decisions(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
        SELECT ts, symbol, direction, alpha, confidence, model_sig, mood_sig, timeframes, rule, veto_reason, reasons
        FROM decisions
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse decisions query error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Decision, 0, limit)
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHAuditStore) LatestDecision(ctx context.Context, symbol string) (models.Decision, error) {
	const q = `
        SELECT ts, symbol, direction, alpha, confidence, model_sig, mood_sig, timeframes, rule, veto_reason, reasons
        FROM decisions
        WHERE symbol = ?
        ORDER BY ts DESC
        LIMIT 1
    `
	row := s.db.QueryRowContext(ctx, q, symbol)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return models.Decision{}, fmt.Errorf("no decisions for %s: %w", symbol, err)
	}
	return d, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(r rowScanner) (models.Decision, error) {
	var (
		d         models.Decision
		direction int8
		tfs       string
		reasons   string
	)
	err := r.Scan(&d.Timestamp, &d.Symbol, &direction, &d.Alpha, &d.Confidence,
		&d.ModelSignal, &d.MoodSignal, &tfs, &d.AlignmentRule, &d.VetoReason, &reasons)
	if err != nil {
		return models.Decision{}, err
	}
	d.Direction = int(direction)
	if tfs != "" {
		_ = json.Unmarshal([]byte(tfs), &d.Timeframes)
	}
	if reasons != "" {
		_ = json.Unmarshal([]byte(reasons), &d.Reasons)
	}
	return d, nil
}

var (
	_ domrepo.AuditSink  = (*CHAuditStore)(nil)
	_ domrepo.AuditStore = (*CHAuditStore)(nil)
)
