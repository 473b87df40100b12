package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"TradeCore/internal/domain/models"
	domrepo "TradeCore/internal/domain/repository"
	pkgch "TradeCore/pkg/clickhouse"
	applogger "TradeCore/pkg/logger"
)

// CHAuditQuery implements AuditQuery backed by ClickHouse.
type CHAuditQuery struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHAuditQuery(ch *pkgch.Client) *CHAuditQuery {
	return &CHAuditQuery{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHAuditQuery) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHAuditQuery) RecentDecisions(ctx context.Context, limit int) ([]models.Decision, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 100
	}
	const q = `
        SELECT ts, policy_id, score, exploration_bonus, confidence, regime, spread_bps, book_imbalance, trade_imbalance
        FROM tradecore_decisions
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse recent_decisions query error",
				applogger.Int("limit", limit),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("recent decisions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Decision, 0, limit)
	for rows.Next() {
		var d models.Decision
		if err := rows.Scan(
			&d.Choice.Timestamp,
			&d.Choice.PolicyID,
			&d.Choice.Score,
			&d.Choice.ExplorationBonus,
			&d.Choice.Confidence,
			&d.Context.Regime,
			&d.Context.SpreadBps,
			&d.Context.BookImbalance,
			&d.Context.TradeImbalance,
		); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse recent_decisions scan error", applogger.Error(err))
			}
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse recent_decisions rows error", applogger.Error(err))
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse recent_decisions ok",
			applogger.Int("limit", limit),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHAuditQuery) RecentFills(ctx context.Context, symbol string, limit int) ([]models.Fill, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 100
	}
	const qtpl = `
        SELECT ts, symbol, policy_id, side, size, price, slippage_bps, pnl
        FROM tradecore_fills
        %s
        ORDER BY ts DESC
        LIMIT ?
    `
	where := ""
	args := make([]interface{}, 0, 2)
	if symbol != "" {
		where = "WHERE symbol = ?"
		args = append(args, symbol)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, where), args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse recent_fills query error",
				applogger.String("symbol", symbol),
				applogger.Int("limit", limit),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("recent fills: %w", err)
	}
	defer rows.Close()

	out := make([]models.Fill, 0, limit)
	for rows.Next() {
		var f models.Fill
		var ts time.Time
		if err := rows.Scan(&ts, &f.Symbol, &f.PolicyID, &f.Side, &f.Size, &f.Price, &f.SlippageBps, &f.PnL); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse recent_fills scan error",
					applogger.String("symbol", symbol),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan fill: %w", err)
		}
		f.Timestamp = ts.Unix()
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse recent_fills rows error", applogger.Error(err))
		}
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse recent_fills ok",
			applogger.String("symbol", symbol),
			applogger.Int("limit", limit),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

var _ domrepo.AuditQuery = (*CHAuditQuery)(nil)
