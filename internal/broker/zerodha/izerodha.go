package zerodha

import (
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
)

// kiteAPI is the subset of the Kite Connect REST client the gateway uses.
type kiteAPI interface {
	SetAccessToken(accessToken string)
	GenerateSession(requestToken string, apiSecret string) (kiteconnect.UserSession, error)
	GetLTP(instruments ...string) (kiteconnect.QuoteLTP, error)
	GetOHLC(instruments ...string) (kiteconnect.QuoteOHLC, error)
	PlaceOrder(variety string, orderParams kiteconnect.OrderParams) (kiteconnect.OrderResponse, error)
	GetPositions() (kiteconnect.Positions, error)
	GetOrders() (kiteconnect.Orders, error)
	GetHoldings() (kiteconnect.Holdings, error)
	GetInstrumentsByExchange(exchange string) (kiteconnect.Instruments, error)
}

var _ kiteAPI = (*kiteconnect.Client)(nil)
