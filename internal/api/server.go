package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/trace"
	"breakout-trading-bot/internal/types"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBodyBytes       = 64 << 10
	defaultTradesLimit = 50
	maxTradesLimit     = 500
)

// Deps are the collaborators behind the HTTP surface. Optional ones may be
// nil; their routes then answer 503.
type Deps struct {
	Engine  interfaces.Engine
	Quotes  interfaces.Broker
	Account interfaces.Account
	Session interfaces.Session
	Journal interfaces.TradeJournal
	Events  http.Handler
	Mode    string
}

type Server struct {
	deps    Deps
	mux     *http.ServeMux
	httpSrv *http.Server
}

func NewServer(addr string, deps Deps) *Server {
	s := &Server{deps: deps, mux: http.NewServeMux()}
	s.routes()
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("POST /webhook", s.handleWebhook)
	s.mux.HandleFunc("POST /generate_token", s.handleGenerateToken)

	s.mux.HandleFunc("GET /strategies", s.handleStrategies)
	s.mux.HandleFunc("GET /strategy/{symbol}", s.handleStrategy)
	s.mux.HandleFunc("POST /strategy/{symbol}/reset", s.handleReset)
	s.mux.HandleFunc("POST /strategy/{symbol}/exit", s.handleExit)

	s.mux.HandleFunc("GET /ltp/{symbol}", s.handleLTP)
	s.mux.HandleFunc("GET /ohlc/{symbol}", s.handleOHLC)
	s.mux.HandleFunc("GET /positions", s.handlePositions)
	s.mux.HandleFunc("GET /orders", s.handleOrders)
	s.mux.HandleFunc("GET /holdings", s.handleHoldings)

	s.mux.HandleFunc("GET /monitoring", s.handleMonitoring)
	s.mux.HandleFunc("POST /monitoring/start", s.handleMonitoringStart)
	s.mux.HandleFunc("POST /monitoring/stop", s.handleMonitoringStop)

	s.mux.HandleFunc("GET /trades", s.handleTrades)
	s.mux.Handle("GET /metrics", promhttp.Handler())
	if s.deps.Events != nil {
		s.mux.Handle("GET /ws", s.deps.Events)
	}
}

// Handler returns the routed handler wrapped with request tracing.
func (s *Server) Handler() http.Handler {
	return withObservability(s.mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets the websocket upgrader reach the hijacker.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) Hijack() (c net.Conn, rw *bufio.ReadWriter, err error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijacking not supported")
	}
	return h.Hijack()
}

func withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := trace.StartSpan(r.Context(), "http "+r.Method+" "+r.URL.Path)
		defer span.End()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.Debug(ctx, "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.code,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": data})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorWithErr(r.Context(), "Request failed", err, "path", r.URL.Path, "status", code)
	}
	writeJSON(w, code, map[string]any{"status": "error", "error": err.Error()})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, types.ErrNoActiveTrade), errors.Is(err, types.ErrTradeActive):
		return http.StatusConflict
	case errors.Is(err, types.ErrGateway):
		return http.StatusBadGateway
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errUnavailable = errors.New("not available in this deployment")

func symbolParam(r *http.Request) string {
	return types.NormalizeSymbol(r.PathValue("symbol"))
}

// handleHealth counts as active only strategies holding an open trade.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ms := s.deps.Engine.MonitoringStatus()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "success",
		"service":           "breakout-trading-bot",
		"mode":              s.deps.Mode,
		"monitoring_active": ms.Running,
		"active_strategies": len(ms.WatchedSymbols),
		"tracked_symbols":   ms.Strategies,
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, types.NewValidationError("body", err.Error()))
		return
	}

	req, err := decodeWebhook(body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	switch req := req.(type) {
	case priceBarRequest:
		res, err := s.deps.Engine.SubmitPriceBar(r.Context(), req.Bar, req.Qty)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "kind": req.webhookKind(), "data": res})

	case manualActionRequest:
		trade, err := s.deps.Engine.SubmitManualAction(r.Context(), req.Action)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "kind": req.webhookKind(), "data": trade})
	}
}

func (s *Server) handleGenerateToken(w http.ResponseWriter, r *http.Request) {
	if s.deps.Session == nil {
		writeError(w, r, errUnavailable)
		return
	}
	var body struct {
		RequestToken string `json:"request_token"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, r, types.NewValidationError("body", fmt.Sprintf("malformed JSON: %v", err)))
		return
	}
	token, err := s.deps.Session.GenerateSession(r.Context(), body.RequestToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"access_token": token})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.deps.Engine.Statuses(r.Context()))
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Engine.Status(r.Context(), symbolParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, st)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	symbol := symbolParam(r)
	if err := s.deps.Engine.Reset(r.Context(), symbol); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]string{"symbol": symbol, "message": "strategy reset"})
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.Engine.ForceExit(r.Context(), symbolParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, summary)
}

func (s *Server) handleLTP(w http.ResponseWriter, r *http.Request) {
	if s.deps.Quotes == nil {
		writeError(w, r, errUnavailable)
		return
	}
	symbol := symbolParam(r)
	price, err := s.deps.Quotes.LTP(r.Context(), symbol)
	if err != nil {
		writeError(w, r, types.NewGatewayError("ltp", symbol, err))
		return
	}
	writeData(w, map[string]any{"symbol": symbol, "ltp": price})
}

func (s *Server) handleOHLC(w http.ResponseWriter, r *http.Request) {
	if s.deps.Account == nil {
		writeError(w, r, errUnavailable)
		return
	}
	symbol := symbolParam(r)
	ohlc, err := s.deps.Account.OHLC(r.Context(), symbol)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]any{"symbol": symbol, "ohlc": ohlc})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Account == nil {
		writeError(w, r, errUnavailable)
		return
	}
	pos, err := s.deps.Account.Positions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, pos)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if s.deps.Account == nil {
		writeError(w, r, errUnavailable)
		return
	}
	orders, err := s.deps.Account.Orders(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, orders)
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	if s.deps.Account == nil {
		writeError(w, r, errUnavailable)
		return
	}
	holdings, err := s.deps.Account.Holdings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, holdings)
}

func (s *Server) handleMonitoring(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.deps.Engine.MonitoringStatus())
}

func (s *Server) handleMonitoringStart(w http.ResponseWriter, r *http.Request) {
	started := s.deps.Engine.StartMonitoring(r.Context())
	writeData(w, map[string]any{"changed": started, "monitoring": s.deps.Engine.MonitoringStatus()})
}

func (s *Server) handleMonitoringStop(w http.ResponseWriter, r *http.Request) {
	stopped := s.deps.Engine.StopMonitoring(r.Context())
	writeData(w, map[string]any{"changed": stopped, "monitoring": s.deps.Engine.MonitoringStatus()})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.deps.Journal == nil {
		writeError(w, r, errUnavailable)
		return
	}

	limit := defaultTradesLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, types.NewValidationError("limit", "must be a positive integer"))
			return
		}
		limit = min(n, maxTradesLimit)
	}

	trades, err := s.deps.Journal.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, trades)
}
