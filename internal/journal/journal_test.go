package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"breakout-trading-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summary(id, symbol string, closedAt time.Time, pnl float64) types.TradeSummary {
	return types.TradeSummary{
		TradeID:    id,
		Symbol:     symbol,
		Direction:  types.DirectionShort,
		EntryPrice: 89,
		ExitPrice:  86.33,
		Quantity:   2,
		OpenedAt:   closedAt.Add(-time.Hour),
		ClosedAt:   closedAt,
		Reason:     types.ExitProfit,
		PnL:        pnl,
		PnLPercent: 3,
		EntryOrder: "OPEN-" + id,
		ExitOrder:  "CLOSE-" + id,
		Source:     types.SourceBreakout,
	}
}

func TestRecordAndRecent(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "data", "trades.db"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	base := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
	require.NoError(t, j.Record(ctx, summary("a", "INFY", base, 5.34)))
	require.NoError(t, j.Record(ctx, summary("b", "TCS", base.Add(time.Minute), -1.2)))
	require.NoError(t, j.Record(ctx, summary("c", "INFY", base.Add(2*time.Minute), 2)))

	got, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].TradeID)
	assert.Equal(t, "b", got[1].TradeID)

	all, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, summary("a", "INFY", base, 5.34), all[2])
}

func TestRecordIsIdempotent(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	s := summary("dup", "INFY", time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC), 1)
	require.NoError(t, j.Record(ctx, s))
	require.NoError(t, j.Record(ctx, s))

	got, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Record(context.Background(), summary("x", "INFY", time.Now().UTC().Truncate(time.Millisecond), 1)))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer j.Close()
	got, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
