package interfaces

import "context"

// Streamer feeds live prices for a fixed set of symbols.
type Streamer interface {
	Start(ctx context.Context, symbols []string) error
	Stop(ctx context.Context)
}
