// Package journal keeps an append-only SQLite record of closed trades for
// reporting. It is never read back into strategy state.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/types"

	_ "modernc.org/sqlite"
)

const defaultRecentLimit = 50

type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

var _ interfaces.TradeJournal = (*Journal)(nil)

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info(context.Background(), "Trade journal opened", "path", path)
	return j, nil
}

func (j *Journal) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS closed_trades (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			trade_id      TEXT NOT NULL UNIQUE,
			symbol        TEXT NOT NULL,
			direction     TEXT NOT NULL,
			source        TEXT,
			entry_price   REAL NOT NULL,
			exit_price    REAL NOT NULL,
			quantity      INTEGER NOT NULL,
			opened_at     INTEGER NOT NULL,
			closed_at     INTEGER NOT NULL,
			reason        TEXT NOT NULL,
			pnl           REAL NOT NULL,
			pnl_percent   REAL NOT NULL,
			entry_order   TEXT,
			exit_order    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_closed_trades_closed_at ON closed_trades(closed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_closed_trades_symbol ON closed_trades(symbol)`,
	}

	for _, s := range stmts {
		if _, err := j.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// Record stores one closed trade. Recording the same trade twice is a no-op.
func (j *Journal) Record(ctx context.Context, s types.TradeSummary) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx, `INSERT OR IGNORE INTO closed_trades
		(trade_id, symbol, direction, source, entry_price, exit_price, quantity,
		 opened_at, closed_at, reason, pnl, pnl_percent, entry_order, exit_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.TradeID, s.Symbol, string(s.Direction), string(s.Source),
		s.EntryPrice, s.ExitPrice, s.Quantity,
		s.OpenedAt.UnixMilli(), s.ClosedAt.UnixMilli(),
		string(s.Reason), s.PnL, s.PnLPercent, s.EntryOrder, s.ExitOrder,
	)
	if err != nil {
		return fmt.Errorf("insert closed trade %s: %w", s.TradeID, err)
	}
	return nil
}

// Recent returns up to limit closed trades, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]types.TradeSummary, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := j.db.QueryContext(ctx, `SELECT
		trade_id, symbol, direction, source, entry_price, exit_price, quantity,
		opened_at, closed_at, reason, pnl, pnl_percent, entry_order, exit_order
		FROM closed_trades ORDER BY closed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query closed trades: %w", err)
	}
	defer rows.Close()

	out := make([]types.TradeSummary, 0, limit)
	for rows.Next() {
		var (
			s                     types.TradeSummary
			direction, reason     string
			source                sql.NullString
			entryOrder, exitOrder sql.NullString
			openedAt, closedAt    int64
		)
		if err := rows.Scan(&s.TradeID, &s.Symbol, &direction, &source,
			&s.EntryPrice, &s.ExitPrice, &s.Quantity, &openedAt, &closedAt,
			&reason, &s.PnL, &s.PnLPercent, &entryOrder, &exitOrder); err != nil {
			return nil, fmt.Errorf("scan closed trade: %w", err)
		}
		s.Direction = types.Direction(direction)
		s.Reason = types.ExitReason(reason)
		s.Source = types.EntrySource(source.String)
		s.EntryOrder = entryOrder.String
		s.ExitOrder = exitOrder.String
		s.OpenedAt = time.UnixMilli(openedAt).UTC()
		s.ClosedAt = time.UnixMilli(closedAt).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}
