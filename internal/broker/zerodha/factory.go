package zerodha

import (
	"os"

	"breakout-trading-bot/internal/store"
)

// NewFromConfig builds the gateway from the loaded config and the
// KITE_API_KEY, KITE_API_SECRET and KITE_ACCESS_TOKEN environment variables.
func NewFromConfig(cfg *store.Config) *Zerodha {
	return NewZerodha(Params{
		Mode:        cfg.Mode,
		APIKey:      os.Getenv("KITE_API_KEY"),
		APISecret:   os.Getenv("KITE_API_SECRET"),
		AccessToken: os.Getenv("KITE_ACCESS_TOKEN"),
		Exchange:    cfg.Exchange,
		Product:     cfg.Product,
		Streaming:   cfg.Broker.Streaming,
	})
}
