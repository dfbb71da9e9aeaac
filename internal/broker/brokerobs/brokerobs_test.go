package brokerobs

import (
	"context"
	"errors"
	"testing"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBroker struct {
	observed map[string]float64
	err      error
	started  []string
	stopped  bool
}

func (s *stubBroker) ObservePrice(symbol string, price float64) { s.observed[symbol] = price }

func (s *stubBroker) LTP(ctx context.Context, symbol string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.observed[symbol], nil
}

func (s *stubBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if s.err != nil {
		return types.OrderResp{}, s.err
	}
	return types.OrderResp{OrderID: "1", Status: "PLACED"}, nil
}

func (s *stubBroker) CloseOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	if s.err != nil {
		return types.OrderResp{}, s.err
	}
	return types.OrderResp{OrderID: "2", Status: "PLACED"}, nil
}

func (s *stubBroker) Start(ctx context.Context, symbols []string) error {
	s.started = symbols
	return s.err
}

func (s *stubBroker) Stop(ctx context.Context) { s.stopped = true }

func TestWrapForwardsCalls(t *testing.T) {
	stub := &stubBroker{observed: map[string]float64{}}
	b := Wrap(stub)

	po, ok := b.(interfaces.PriceObserver)
	require.True(t, ok)
	po.ObservePrice("INFY", 101.5)

	price, err := b.LTP(context.Background(), "INFY")
	require.NoError(t, err)
	assert.Equal(t, 101.5, price)

	resp, err := b.PlaceOrder(context.Background(), types.OrderReq{Symbol: "INFY", Direction: types.DirectionLong, Qty: 1})
	require.NoError(t, err)
	assert.Equal(t, "1", resp.OrderID)

	resp, err = b.CloseOrder(context.Background(), types.OrderReq{Symbol: "INFY", Direction: types.DirectionLong, Qty: 1})
	require.NoError(t, err)
	assert.Equal(t, "2", resp.OrderID)
}

func TestWrapPassesErrorsThrough(t *testing.T) {
	gwErr := types.NewGatewayError("place_order", "INFY", errors.New("rejected"))
	b := Wrap(&stubBroker{observed: map[string]float64{}, err: gwErr})

	_, err := b.PlaceOrder(context.Background(), types.OrderReq{Symbol: "INFY", Direction: types.DirectionShort, Qty: 1})
	assert.ErrorIs(t, err, types.ErrGateway)

	_, err = b.LTP(context.Background(), "INFY")
	assert.Equal(t, gwErr, err)
}

func TestStartStop(t *testing.T) {
	stub := &stubBroker{observed: map[string]float64{}}
	require.NoError(t, Start(context.Background(), stub, []string{"INFY"}))
	assert.Equal(t, []string{"INFY"}, stub.started)

	Stop(context.Background(), stub)
	assert.True(t, stub.stopped)

	stub.err = errors.New("no instruments")
	assert.ErrorContains(t, Start(context.Background(), stub, nil), "broker start failed")
}
