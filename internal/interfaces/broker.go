package interfaces

import (
	"context"

	"breakout-trading-bot/internal/types"
)

// Broker is the narrow gateway the strategy core trades through.
// Every method fails with a *types.GatewayError, timeouts included.
type Broker interface {
	LTP(ctx context.Context, symbol string) (float64, error)
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
	CloseOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}

// PriceObserver is implemented by gateways that can serve LTP from
// prices seen on the ingestion path.
type PriceObserver interface {
	ObservePrice(symbol string, price float64)
}

// Account exposes read-only brokerage views.
type Account interface {
	OHLC(ctx context.Context, symbol string) (types.OHLC, error)
	Positions(ctx context.Context) ([]types.Position, error)
	Orders(ctx context.Context) ([]types.Order, error)
	Holdings(ctx context.Context) ([]types.Holding, error)
}

// Session exchanges a login request token for an access token.
type Session interface {
	GenerateSession(ctx context.Context, requestToken string) (accessToken string, err error)
}
