package brokerobs

import (
	"context"
	"fmt"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/trace"
	"breakout-trading-bot/internal/types"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface checks
var (
	_ interfaces.Broker        = (*observableBroker)(nil)
	_ interfaces.PriceObserver = (*observableBroker)(nil)
)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{
		broker: broker,
	}
}

// ObservePrice forwards to the wrapped gateway when it caches observed prices
func (ob *observableBroker) ObservePrice(symbol string, price float64) {
	if po, ok := ob.broker.(interfaces.PriceObserver); ok {
		po.ObservePrice(symbol, price)
	}
}

// LTP returns the last traded price with observability
func (ob *observableBroker) LTP(ctx context.Context, symbol string) (float64, error) {
	ctx, span := trace.StartSpan(ctx, "broker.LTP")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching LTP", "symbol", symbol)

	price, err := ob.broker.LTP(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch LTP", err, "symbol", symbol)
		return 0, err
	}

	logger.DebugSkip(ctx, 1, "LTP fetched successfully", "symbol", symbol, "price", price)
	return price, nil
}

// PlaceOrder places an entry order with observability
func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()
	return ob.order(ctx, "entry", req, req.Direction.EntrySide(), ob.broker.PlaceOrder)
}

// CloseOrder places an exit order with observability
func (ob *observableBroker) CloseOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.CloseOrder")
	defer span.End()
	return ob.order(ctx, "exit", req, req.Direction.ExitSide(), ob.broker.CloseOrder)
}

func (ob *observableBroker) order(
	ctx context.Context,
	kind string,
	req types.OrderReq,
	side string,
	send func(context.Context, types.OrderReq) (types.OrderResp, error),
) (types.OrderResp, error) {
	logger.InfoSkip(ctx, 2, fmt.Sprintf("Placing %s order", kind),
		"symbol", req.Symbol,
		"side", side,
		"qty", req.Qty,
		"tag", req.Tag,
	)

	resp, err := send(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, fmt.Sprintf("Failed to place %s order", kind), err,
			"symbol", req.Symbol,
			"side", side,
			"qty", req.Qty,
		)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 2, "Order placed successfully",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"status", resp.Status,
	)
	return resp, nil
}

// Start initializes price streaming with observability
func Start(ctx context.Context, s interfaces.Streamer, symbols []string) error {
	ctx, span := trace.StartSpan(ctx, "broker.Start")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting broker", "symbols", symbols, "count", len(symbols))

	if err := s.Start(ctx, symbols); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to start broker", err, "symbols", symbols)
		return fmt.Errorf("broker start failed: %w", err)
	}

	logger.InfoSkip(ctx, 1, "Broker started successfully", "symbols", symbols)
	return nil
}

// Stop shuts down price streaming with observability
func Stop(ctx context.Context, s interfaces.Streamer) {
	ctx, span := trace.StartSpan(ctx, "broker.Stop")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Stopping broker")
	s.Stop(ctx)
	logger.InfoSkip(ctx, 1, "Broker stopped successfully")
}
