package zerodha

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"breakout-trading-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	"github.com/zerodha/gokiteconnect/v4/models"
)

// fakeKite stands in for the Kite REST client.
type fakeKite struct {
	mu       sync.Mutex
	token    string
	ltpJSON  string
	ltpDelay time.Duration
	orders   []kiteconnect.OrderParams
	failNext error
}

func (f *fakeKite) SetAccessToken(t string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = t
}

func (f *fakeKite) GenerateSession(requestToken, apiSecret string) (kiteconnect.UserSession, error) {
	var s kiteconnect.UserSession
	err := json.Unmarshal([]byte(`{"access_token":"access-`+requestToken+`"}`), &s)
	return s, err
}

func (f *fakeKite) GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error) {
	if f.ltpDelay > 0 {
		time.Sleep(f.ltpDelay)
	}
	var q kiteconnect.QuoteLTP
	if err := json.Unmarshal([]byte(f.ltpJSON), &q); err != nil {
		return nil, err
	}
	return q, nil
}

func (f *fakeKite) GetOHLC(instruments ...string) (kiteconnect.QuoteOHLC, error) {
	var q kiteconnect.QuoteOHLC
	err := json.Unmarshal([]byte(`{"NSE:INFY":{"last_price":1510,"ohlc":{"open":1490,"high":1520,"low":1480,"close":1500}}}`), &q)
	return q, err
}

func (f *fakeKite) PlaceOrder(variety string, p kiteconnect.OrderParams) (kiteconnect.OrderResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return kiteconnect.OrderResponse{}, err
	}
	f.orders = append(f.orders, p)
	return kiteconnect.OrderResponse{OrderID: "KITE-1"}, nil
}

func (f *fakeKite) GetPositions() (kiteconnect.Positions, error) {
	var p kiteconnect.Positions
	err := json.Unmarshal([]byte(`{"net":[{"tradingsymbol":"INFY","exchange":"NSE","product":"MIS","quantity":5,"average_price":1500,"last_price":1510,"pnl":50}],"day":[]}`), &p)
	return p, err
}

func (f *fakeKite) GetOrders() (kiteconnect.Orders, error) {
	var o kiteconnect.Orders
	err := json.Unmarshal([]byte(`[{"order_id":"KITE-1","tradingsymbol":"INFY","transaction_type":"BUY","quantity":5,"average_price":1500,"status":"COMPLETE"}]`), &o)
	return o, err
}

func (f *fakeKite) GetHoldings() (kiteconnect.Holdings, error) {
	return kiteconnect.Holdings{}, nil
}

func (f *fakeKite) GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error) {
	return kiteconnect.Instruments{
		{InstrumentToken: 408065, Tradingsymbol: "INFY"},
		{InstrumentToken: 2953217, Tradingsymbol: "TCS"},
	}, nil
}

func liveParams() Params {
	return Params{Mode: ModeLive, APIKey: "key", APISecret: "secret", AccessToken: "token", Exchange: "NSE"}
}

func TestDryRunSimulatesOrders(t *testing.T) {
	kc := &fakeKite{}
	z := newWithClient(Params{Mode: ModeDryRun}, kc)

	resp, err := z.PlaceOrder(context.Background(), types.OrderReq{Symbol: "INFY", Direction: types.DirectionLong, Qty: 1})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.OrderID, "SIM-"))
	assert.Equal(t, "SIMULATED", resp.Status)

	resp, err = z.CloseOrder(context.Background(), types.OrderReq{Symbol: "INFY", Direction: types.DirectionLong, Qty: 1})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "SELL")
	assert.Empty(t, kc.orders)
}

func TestDryRunLTPUsesObservedPrice(t *testing.T) {
	z := newWithClient(Params{Mode: ModeDryRun}, &fakeKite{})

	_, err := z.LTP(context.Background(), "INFY")
	assert.ErrorIs(t, err, types.ErrGateway)

	z.ObservePrice("infy", 1500.5)
	price, err := z.LTP(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, 1500.5, price)
}

func TestStreamedPriceWinsOverREST(t *testing.T) {
	kc := &fakeKite{ltpJSON: `{"NSE:INFY":{"instrument_token":408065,"last_price":1400}}`}
	z := newWithClient(liveParams(), kc)

	price, err := z.LTP(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, 1400.0, price)

	z.streamed.set("INFY", 1450)
	price, err = z.LTP(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, 1450.0, price)
}

func TestLTPMissingQuoteIsGatewayError(t *testing.T) {
	z := newWithClient(liveParams(), &fakeKite{ltpJSON: `{}`})

	_, err := z.LTP(context.Background(), "INFY")
	var ge *types.GatewayError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "ltp", ge.Op)
	assert.Equal(t, "INFY", ge.Symbol)
}

func TestLTPHonorsDeadline(t *testing.T) {
	kc := &fakeKite{ltpJSON: `{"NSE:INFY":{"last_price":1400}}`, ltpDelay: 200 * time.Millisecond}
	z := newWithClient(liveParams(), kc)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := z.LTP(ctx, "INFY")
	assert.ErrorIs(t, err, types.ErrGateway)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestLiveOrderSides(t *testing.T) {
	kc := &fakeKite{}
	z := newWithClient(liveParams(), kc)
	ctx := context.Background()

	_, err := z.PlaceOrder(ctx, types.OrderReq{Symbol: "INFY", Direction: types.DirectionLong, Qty: 3, Tag: "BREAKOUT"})
	require.NoError(t, err)
	_, err = z.CloseOrder(ctx, types.OrderReq{Symbol: "INFY", Direction: types.DirectionLong, Qty: 3, Tag: "PROFIT"})
	require.NoError(t, err)
	_, err = z.PlaceOrder(ctx, types.OrderReq{Symbol: "TCS", Direction: types.DirectionShort, Qty: 2})
	require.NoError(t, err)
	_, err = z.CloseOrder(ctx, types.OrderReq{Symbol: "TCS", Direction: types.DirectionShort, Qty: 2})
	require.NoError(t, err)

	require.Len(t, kc.orders, 4)
	sides := []string{kc.orders[0].TransactionType, kc.orders[1].TransactionType, kc.orders[2].TransactionType, kc.orders[3].TransactionType}
	assert.Equal(t, []string{"BUY", "SELL", "SELL", "BUY"}, sides)

	first := kc.orders[0]
	assert.Equal(t, "NSE", first.Exchange)
	assert.Equal(t, "INFY", first.Tradingsymbol)
	assert.Equal(t, kiteconnect.OrderTypeMarket, first.OrderType)
	assert.Equal(t, kiteconnect.ProductMIS, first.Product)
	assert.Equal(t, 3, first.Quantity)
	assert.Equal(t, "BREAKOUT", first.Tag)
}

func TestLiveOrderFailureIsGatewayError(t *testing.T) {
	kc := &fakeKite{failNext: errors.New("margin exceeded")}
	z := newWithClient(liveParams(), kc)

	_, err := z.PlaceOrder(context.Background(), types.OrderReq{Symbol: "INFY", Direction: types.DirectionLong, Qty: 1})
	assert.ErrorIs(t, err, types.ErrGateway)
	assert.Contains(t, err.Error(), "margin exceeded")
}

func TestLiveWithoutCredentialsFails(t *testing.T) {
	z := newWithClient(Params{Mode: ModeLive}, &fakeKite{})

	_, err := z.PlaceOrder(context.Background(), types.OrderReq{Symbol: "INFY", Direction: types.DirectionLong, Qty: 1})
	assert.ErrorIs(t, err, errMissingCredentials)

	_, err = z.LTP(context.Background(), "INFY")
	assert.ErrorIs(t, err, types.ErrGateway)

	_, err = z.Positions(context.Background())
	assert.ErrorIs(t, err, types.ErrGateway)
}

func TestOrderTag(t *testing.T) {
	assert.Equal(t, "BREAKOUT", orderTag("BREAKOUT"))
	assert.Equal(t, "stopexit", orderTag("stop-exit"))
	assert.Len(t, orderTag(strings.Repeat("A", 30)), maxTagLen)
}

func TestGenerateSessionInstallsToken(t *testing.T) {
	kc := &fakeKite{}
	z := newWithClient(Params{Mode: ModeLive, APIKey: "key", APISecret: "secret"}, kc)
	assert.False(t, z.hasCredentials())

	_, err := z.GenerateSession(context.Background(), " ")
	assert.ErrorIs(t, err, types.ErrValidation)

	token, err := z.GenerateSession(context.Background(), "req")
	require.NoError(t, err)
	assert.Equal(t, "access-req", token)
	assert.Equal(t, "access-req", kc.token)
	assert.True(t, z.hasCredentials())
}

func TestAccountViews(t *testing.T) {
	z := newWithClient(liveParams(), &fakeKite{})
	ctx := context.Background()

	ohlc, err := z.OHLC(ctx, "infy")
	require.NoError(t, err)
	assert.Equal(t, types.OHLC{Open: 1490, High: 1520, Low: 1480, Close: 1500, LastPrice: 1510}, ohlc)

	pos, err := z.Positions(ctx)
	require.NoError(t, err)
	require.Len(t, pos, 1)
	assert.Equal(t, "INFY", pos[0].Symbol)
	assert.Equal(t, 5, pos[0].Quantity)
	assert.Equal(t, 50.0, pos[0].PnL)

	orders, err := z.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "KITE-1", orders[0].OrderID)
	assert.Equal(t, 5, orders[0].Quantity)

	holdings, err := z.Holdings(ctx)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestInstrumentMapperLoad(t *testing.T) {
	im := newInstrumentMapper()
	missing := im.load(kiteconnect.Instruments{
		{InstrumentToken: 408065, Tradingsymbol: "INFY"},
		{InstrumentToken: 2953217, Tradingsymbol: "TCS"},
	}, []string{"INFY", "WIPRO", "TCS"})

	assert.Equal(t, []string{"WIPRO"}, missing)
	token, ok := im.getToken("INFY")
	assert.True(t, ok)
	assert.Equal(t, uint32(408065), token)
	assert.Equal(t, "TCS", im.getSymbol(2953217))
	assert.Equal(t, []uint32{408065, 2953217}, im.getAllTokens())

	im.clear()
	assert.Empty(t, im.getAllTokens())
}

func TestTickUpdatesPriceCache(t *testing.T) {
	mapper := newInstrumentMapper()
	mapper.addMapping("INFY", 408065)
	cache := newPriceCache(time.Minute)
	tm := newTickerManager("key", "token", mapper, cache).(*tickerManager)

	tm.onTick(models.Tick{InstrumentToken: 408065, LastPrice: 1512.5})
	tm.onTick(models.Tick{InstrumentToken: 1, LastPrice: 99})

	price, ok := cache.get("INFY")
	assert.True(t, ok)
	assert.Equal(t, 1512.5, price)
	_, ok = cache.get("")
	assert.False(t, ok)

	assert.Error(t, tm.Subscribe(context.Background(), []string{"WIPRO"}))
	assert.NoError(t, tm.Subscribe(context.Background(), []string{"INFY"}))
}

func TestPriceCacheExpiry(t *testing.T) {
	now := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	pc := newPriceCache(5 * time.Second)
	pc.now = func() time.Time { return now }

	pc.set("INFY", 0)
	_, ok := pc.get("INFY")
	assert.False(t, ok, "non-positive prices are ignored")

	pc.set("INFY", 100)
	now = now.Add(4 * time.Second)
	p, ok := pc.get("INFY")
	assert.True(t, ok)
	assert.Equal(t, 100.0, p)

	now = now.Add(2 * time.Second)
	_, ok = pc.get("INFY")
	assert.False(t, ok)
}
