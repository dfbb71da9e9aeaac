// Package metrics holds the Prometheus collectors of the breakout engine.
//
//   - breakout_bars_ingested_total{symbol}          accepted price bars
//   - breakout_bars_rejected_total                  bars failing validation
//   - breakout_level_updates_total{symbol}          level changes
//   - breakout_entries_total{direction,source}      committed entries
//   - breakout_exits_total{reason,direction}        committed exits
//   - breakout_gateway_failures_total{op}           failed or timed out gateway calls
//   - breakout_gateway_latency_seconds{op}          gateway call latency
//   - breakout_open_trades                          trades currently open
//   - breakout_realized_pnl                         realized P&L since start
//   - breakout_monitor_ticks_total                  exit monitor ticks
//
// Collectors register with the default registry in init() and are served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BarsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_bars_ingested_total",
			Help: "Price bars accepted by the engine",
		},
		[]string{"symbol"},
	)

	BarsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakout_bars_rejected_total",
			Help: "Price bars and commands rejected by validation",
		},
	)

	LevelUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_level_updates_total",
			Help: "Support/resistance changes",
		},
		[]string{"symbol"},
	)

	Entries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_entries_total",
			Help: "Trades opened",
		},
		[]string{"direction", "source"},
	)

	Exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_exits_total",
			Help: "Trades closed split by reason and direction",
		},
		[]string{"reason", "direction"},
	)

	GatewayFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakout_gateway_failures_total",
			Help: "Gateway calls that failed or timed out",
		},
		[]string{"op"},
	)

	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "breakout_gateway_latency_seconds",
			Help:    "Gateway call latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	OpenTrades = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "breakout_open_trades",
			Help: "Trades currently open",
		},
	)

	RealizedPnL = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "breakout_realized_pnl",
			Help: "Realized P&L since process start",
		},
	)

	MonitorTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakout_monitor_ticks_total",
			Help: "Exit monitor ticks",
		},
	)
)

func init() {
	prometheus.MustRegister(BarsIngested, BarsRejected, LevelUpdates)
	prometheus.MustRegister(Entries, Exits, OpenTrades, RealizedPnL)
	prometheus.MustRegister(GatewayFailures, GatewayLatency)
	prometheus.MustRegister(MonitorTicks)
}

// ObserveGateway records the latency and outcome of one gateway call.
func ObserveGateway(op string, start time.Time, err error) {
	GatewayLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		GatewayFailures.WithLabelValues(op).Inc()
	}
}
