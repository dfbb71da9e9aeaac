package zerodha

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/types"

	"github.com/google/uuid"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

const (
	ModeDryRun = "DRY_RUN"
	ModeLive   = "LIVE"

	// streamed prices older than this fall through to REST
	streamFreshness = 5 * time.Second

	// Kite rejects tags longer than 20 characters
	maxTagLen = 20
)

var (
	errMissingCredentials = errors.New("missing API key/access token")
	errMissingSecret      = errors.New("missing API key/secret")
	errNoPrice            = errors.New("no price available")
)

type Params struct {
	Mode        string
	APIKey      string
	APISecret   string
	AccessToken string
	Exchange    string
	Product     string
	Streaming   bool
}

// Zerodha is the Kite Connect gateway. In DRY_RUN orders are simulated and
// prices come from the stream, REST quotes (when credentials exist) or the
// last price observed on the ingestion path.
type Zerodha struct {
	p  Params
	kc kiteAPI

	mu          sync.RWMutex
	accessToken string

	streamed  *priceCache
	observed  *priceCache
	mapper    *instrumentMapper
	tickerMgr TickerManager
}

var (
	_ interfaces.Broker        = (*Zerodha)(nil)
	_ interfaces.PriceObserver = (*Zerodha)(nil)
	_ interfaces.Account       = (*Zerodha)(nil)
	_ interfaces.Session       = (*Zerodha)(nil)
	_ interfaces.Streamer      = (*Zerodha)(nil)
)

func NewZerodha(p Params) *Zerodha {
	kc := kiteconnect.New(p.APIKey)
	return newWithClient(p, kc)
}

func newWithClient(p Params, kc kiteAPI) *Zerodha {
	if p.Mode == "" {
		p.Mode = ModeDryRun
	}
	if p.Exchange == "" {
		p.Exchange = "NSE"
	}
	if p.Product == "" {
		p.Product = kiteconnect.ProductMIS
	}
	if p.AccessToken != "" {
		kc.SetAccessToken(p.AccessToken)
	}
	return &Zerodha{
		p:           p,
		kc:          kc,
		accessToken: p.AccessToken,
		streamed:    newPriceCache(streamFreshness),
		observed:    newPriceCache(0),
		mapper:      newInstrumentMapper(),
	}
}

func (z *Zerodha) Mode() string { return z.p.Mode }

func (z *Zerodha) hasCredentials() bool {
	z.mu.RLock()
	defer z.mu.RUnlock()
	return z.p.APIKey != "" && z.accessToken != ""
}

func (z *Zerodha) instrument(symbol string) string {
	return z.p.Exchange + ":" + symbol
}

// call runs a blocking SDK request and gives up when ctx is done.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// ObservePrice remembers the close of an ingested bar for DRY_RUN quotes.
func (z *Zerodha) ObservePrice(symbol string, price float64) {
	z.observed.set(types.NormalizeSymbol(symbol), price)
}

func (z *Zerodha) LTP(ctx context.Context, symbol string) (float64, error) {
	symbol = types.NormalizeSymbol(symbol)

	if price, ok := z.streamed.get(symbol); ok {
		return price, nil
	}

	if z.hasCredentials() {
		key := z.instrument(symbol)
		quotes, err := call(ctx, func() (kiteconnect.QuoteLTP, error) {
			return z.kc.GetLTP(key)
		})
		if err != nil {
			return 0, types.NewGatewayError("ltp", symbol, err)
		}
		q, ok := quotes[key]
		if !ok || q.LastPrice <= 0 {
			return 0, types.NewGatewayError("ltp", symbol, fmt.Errorf("no quote for %s", key))
		}
		return q.LastPrice, nil
	}

	if z.p.Mode == ModeDryRun {
		if price, ok := z.observed.get(symbol); ok {
			return price, nil
		}
		return 0, types.NewGatewayError("ltp", symbol, errNoPrice)
	}
	return 0, types.NewGatewayError("ltp", symbol, errMissingCredentials)
}

// PlaceOrder opens a position: LONG buys, SHORT sells.
func (z *Zerodha) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	return z.submit(ctx, "place_order", req, req.Direction.EntrySide())
}

// CloseOrder flattens a position with the opposite side of req.Direction.
func (z *Zerodha) CloseOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	return z.submit(ctx, "close_order", req, req.Direction.ExitSide())
}

func (z *Zerodha) submit(ctx context.Context, op string, req types.OrderReq, side string) (types.OrderResp, error) {
	symbol := types.NormalizeSymbol(req.Symbol)
	if req.Qty <= 0 {
		return types.OrderResp{}, types.NewGatewayError(op, symbol, fmt.Errorf("invalid quantity %d", req.Qty))
	}
	if err := ctx.Err(); err != nil {
		return types.OrderResp{}, types.NewGatewayError(op, symbol, err)
	}

	if z.p.Mode == ModeDryRun {
		resp := types.OrderResp{
			OrderID: "SIM-" + uuid.NewString(),
			Status:  "SIMULATED",
			Message: "dry-run " + side,
		}
		logger.Debug(ctx, "Simulated order", "symbol", symbol, "side", side, "qty", req.Qty, "order_id", resp.OrderID)
		return resp, nil
	}

	if !z.hasCredentials() {
		return types.OrderResp{}, types.NewGatewayError(op, symbol, errMissingCredentials)
	}

	params := kiteconnect.OrderParams{
		Exchange:        z.p.Exchange,
		Tradingsymbol:   symbol,
		Validity:        kiteconnect.ValidityDay,
		Product:         z.p.Product,
		OrderType:       kiteconnect.OrderTypeMarket,
		TransactionType: side,
		Quantity:        req.Qty,
		Tag:             orderTag(req.Tag),
	}
	resp, err := call(ctx, func() (kiteconnect.OrderResponse, error) {
		return z.kc.PlaceOrder(kiteconnect.VarietyRegular, params)
	})
	if err != nil {
		return types.OrderResp{}, types.NewGatewayError(op, symbol, err)
	}

	return types.OrderResp{OrderID: resp.OrderID, Status: "PLACED", Message: side}, nil
}

func orderTag(tag string) string {
	tag = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, tag)
	if len(tag) > maxTagLen {
		tag = tag[:maxTagLen]
	}
	return tag
}

func (z *Zerodha) OHLC(ctx context.Context, symbol string) (types.OHLC, error) {
	symbol = types.NormalizeSymbol(symbol)
	if !z.hasCredentials() {
		return types.OHLC{}, types.NewGatewayError("ohlc", symbol, errMissingCredentials)
	}

	key := z.instrument(symbol)
	quotes, err := call(ctx, func() (kiteconnect.QuoteOHLC, error) {
		return z.kc.GetOHLC(key)
	})
	if err != nil {
		return types.OHLC{}, types.NewGatewayError("ohlc", symbol, err)
	}
	q, ok := quotes[key]
	if !ok {
		return types.OHLC{}, types.NewGatewayError("ohlc", symbol, fmt.Errorf("no quote for %s", key))
	}
	return types.OHLC{
		Open:      q.OHLC.Open,
		High:      q.OHLC.High,
		Low:       q.OHLC.Low,
		Close:     q.OHLC.Close,
		LastPrice: q.LastPrice,
	}, nil
}

// Positions returns the net positions of the day.
func (z *Zerodha) Positions(ctx context.Context) ([]types.Position, error) {
	if !z.hasCredentials() {
		return nil, types.NewGatewayError("positions", "", errMissingCredentials)
	}
	pos, err := call(ctx, z.kc.GetPositions)
	if err != nil {
		return nil, types.NewGatewayError("positions", "", err)
	}

	out := make([]types.Position, 0, len(pos.Net))
	for _, p := range pos.Net {
		out = append(out, types.Position{
			Symbol:       p.Tradingsymbol,
			Exchange:     p.Exchange,
			Product:      p.Product,
			Quantity:     int(p.Quantity),
			AveragePrice: p.AveragePrice,
			LastPrice:    p.LastPrice,
			PnL:          p.PnL,
		})
	}
	return out, nil
}

func (z *Zerodha) Orders(ctx context.Context) ([]types.Order, error) {
	if !z.hasCredentials() {
		return nil, types.NewGatewayError("orders", "", errMissingCredentials)
	}
	orders, err := call(ctx, z.kc.GetOrders)
	if err != nil {
		return nil, types.NewGatewayError("orders", "", err)
	}

	out := make([]types.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, types.Order{
			OrderID:         o.OrderID,
			Symbol:          o.TradingSymbol,
			TransactionType: o.TransactionType,
			Quantity:        int(o.Quantity),
			AveragePrice:    o.AveragePrice,
			Status:          o.Status,
		})
	}
	return out, nil
}

func (z *Zerodha) Holdings(ctx context.Context) ([]types.Holding, error) {
	if !z.hasCredentials() {
		return nil, types.NewGatewayError("holdings", "", errMissingCredentials)
	}
	holdings, err := call(ctx, z.kc.GetHoldings)
	if err != nil {
		return nil, types.NewGatewayError("holdings", "", err)
	}

	out := make([]types.Holding, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, types.Holding{
			Symbol:       h.Tradingsymbol,
			Exchange:     h.Exchange,
			Quantity:     int(h.Quantity),
			AveragePrice: h.AveragePrice,
			LastPrice:    h.LastPrice,
			PnL:          h.PnL,
		})
	}
	return out, nil
}

// GenerateSession exchanges a login request token for an access token and
// installs it on the REST client.
func (z *Zerodha) GenerateSession(ctx context.Context, requestToken string) (string, error) {
	if z.p.APIKey == "" || z.p.APISecret == "" {
		return "", types.NewGatewayError("session", "", errMissingSecret)
	}
	if strings.TrimSpace(requestToken) == "" {
		return "", types.NewValidationError("request_token", "must not be empty")
	}

	sess, err := call(ctx, func() (kiteconnect.UserSession, error) {
		return z.kc.GenerateSession(requestToken, z.p.APISecret)
	})
	if err != nil {
		return "", types.NewGatewayError("session", "", err)
	}

	z.mu.Lock()
	z.accessToken = sess.AccessToken
	z.mu.Unlock()
	z.kc.SetAccessToken(sess.AccessToken)

	logger.Info(ctx, "Kite session generated")
	return sess.AccessToken, nil
}

// Start streams live prices for symbols into the LTP cache. It is a no-op
// unless streaming is enabled and credentials are present.
func (z *Zerodha) Start(ctx context.Context, symbols []string) error {
	if !z.p.Streaming {
		return nil
	}
	if !z.hasCredentials() {
		logger.Warn(ctx, "Streaming requested without credentials, using REST quotes only")
		return nil
	}
	if z.tickerMgr != nil {
		return nil
	}

	wanted := make([]string, 0, len(symbols))
	for _, s := range symbols {
		wanted = append(wanted, types.NormalizeSymbol(s))
	}

	instruments, err := call(ctx, func() (kiteconnect.Instruments, error) {
		return z.kc.GetInstrumentsByExchange(z.p.Exchange)
	})
	if err != nil {
		return types.NewGatewayError("instruments", "", err)
	}
	if missing := z.mapper.load(instruments, wanted); len(missing) > 0 {
		logger.Warn(ctx, "Symbols without instrument token will not stream", "symbols", missing)
		wanted = subtract(wanted, missing)
	}

	z.mu.RLock()
	token := z.accessToken
	z.mu.RUnlock()

	tm := newTickerManager(z.p.APIKey, token, z.mapper, z.streamed)
	if err := tm.Start(ctx); err != nil {
		return fmt.Errorf("failed to start ticker manager: %w", err)
	}
	if err := tm.Subscribe(ctx, wanted); err != nil {
		tm.Stop(ctx)
		return fmt.Errorf("failed to subscribe to symbols: %w", err)
	}

	z.tickerMgr = tm
	return nil
}

func (z *Zerodha) Stop(ctx context.Context) {
	if z.tickerMgr != nil {
		z.tickerMgr.Stop(ctx)
		z.tickerMgr = nil
	}
	z.mapper.clear()
}

func subtract(all, drop []string) []string {
	skip := make(map[string]bool, len(drop))
	for _, s := range drop {
		skip[s] = true
	}
	out := all[:0]
	for _, s := range all {
		if !skip[s] {
			out = append(out, s)
		}
	}
	return out
}
