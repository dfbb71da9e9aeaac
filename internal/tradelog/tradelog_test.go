package tradelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndReadDay(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	require.NoError(t, Append(Entry{Event: EventEntry, Symbol: "INFY", Direction: "LONG", Side: "BUY", Qty: 2, Price: 111, OrderID: "SIM-1", Reason: "BREAKOUT"}))
	require.NoError(t, Append(Entry{Event: EventExit, Symbol: "INFY", Direction: "LONG", Side: "SELL", Qty: 2, Price: 115, OrderID: "SIM-2", Reason: "PROFIT", PnL: 8}))

	got, err := ReadDay(time.Now())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, EventEntry, got[0].Event)
	assert.NotEmpty(t, got[0].Time)
	assert.Equal(t, 8.0, got[1].PnL)
}

func TestReadDayMissingFile(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())
	got, err := ReadDay(time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCompressOlder(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)

	old := filepath.Join(dir, "2020-01-01.txt")
	fresh := filepath.Join(dir, "2099-01-01.txt")
	require.NoError(t, os.WriteFile(old, []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(fresh, []byte("{}\n"), 0o644))
	past := time.Now().AddDate(0, 0, -10)
	require.NoError(t, os.Chtimes(old, past, past))

	require.NoError(t, CompressOlder(7))

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(old + ".gz")
	assert.NoError(t, err)
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
