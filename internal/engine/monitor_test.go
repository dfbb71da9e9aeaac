package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"breakout-trading-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitMonitorLifecycle(t *testing.T) {
	var ticks atomic.Int32
	m := newExitMonitor(5*time.Millisecond, func(ctx context.Context) { ticks.Add(1) })

	assert.False(t, m.running())
	assert.False(t, m.stop())

	require.True(t, m.start(context.Background()))
	assert.False(t, m.start(context.Background()), "second start is a no-op")
	assert.True(t, m.running())

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)
	assert.False(t, m.lastTickAt().IsZero())

	assert.True(t, m.stop())
	assert.False(t, m.running())
	n := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, ticks.Load(), "no ticks after stop")
}

func TestExitMonitorSurvivesCallerCancellation(t *testing.T) {
	var ticks atomic.Int32
	m := newExitMonitor(5*time.Millisecond, func(ctx context.Context) { ticks.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, m.start(ctx))
	cancel()

	require.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, time.Millisecond)
	m.stop()
}

func TestStopWaitsForInFlightTick(t *testing.T) {
	entered := make(chan struct{})
	var finished atomic.Bool
	m := newExitMonitor(time.Millisecond, func(ctx context.Context) {
		select {
		case entered <- struct{}{}:
		default:
			return
		}
		time.Sleep(20 * time.Millisecond)
		finished.Store(ctx.Err() == nil)
	})

	require.True(t, m.start(context.Background()))
	<-entered
	m.stop()
	assert.True(t, finished.Load(), "tick ran to completion on an uncancelled context")
}

func TestMonitoringClosesTradeInBackground(t *testing.T) {
	e, brk := newTestEngine(t, nil)
	openLong(t, e)

	ms := e.MonitoringStatus()
	assert.False(t, ms.Running)
	assert.Equal(t, []string{"INFY"}, ms.WatchedSymbols)
	assert.Equal(t, 1, ms.Strategies)

	require.True(t, e.StartMonitoring(context.Background()))
	assert.False(t, e.StartMonitoring(context.Background()))
	assert.True(t, e.MonitoringStatus().Running)

	brk.setLTP("INFY", 115)
	require.Eventually(t, func() bool {
		st, err := e.Status(context.Background(), "INFY")
		return err == nil && st.State == types.StateIdle
	}, 2*time.Second, 5*time.Millisecond)

	assert.Empty(t, e.MonitoringStatus().WatchedSymbols)
	assert.True(t, e.StopMonitoring(context.Background()))
	assert.False(t, e.StopMonitoring(context.Background()))
	assert.False(t, e.MonitoringStatus().Running)
}

func TestEntryStartsMonitorWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.StartOnEntry = true
	e, _ := newTestEngine(t, cfg)

	feed(t, e, levelBars("INFY"))
	assert.False(t, e.MonitoringStatus().Running)

	openLong(t, e)
	assert.True(t, e.MonitoringStatus().Running)
}
