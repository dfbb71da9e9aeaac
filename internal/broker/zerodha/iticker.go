package zerodha

import (
	"context"
)

// TickerManager defines the interface for WebSocket ticker management
type TickerManager interface {
	// Start initializes and starts the WebSocket connection
	Start(ctx context.Context) error

	// Stop closes the WebSocket connection gracefully
	Stop(ctx context.Context)

	// Subscribe streams last traded prices for symbols already known to the
	// instrument mapper. Subscriptions are replayed on every reconnect.
	Subscribe(ctx context.Context, symbols []string) error
}

// newTickerManager creates a WebSocket ticker manager that writes last
// traded prices into cache.
func newTickerManager(apiKey, accessToken string, mapper *instrumentMapper, cache *priceCache) TickerManager {
	return &tickerManager{
		apiKey:      apiKey,
		accessToken: accessToken,
		cache:       cache,
		mapper:      mapper,
	}
}
