package zerodha

import (
	"sync"
	"time"
)

// priceCache keeps the last known price per symbol with thread-safe access
type priceCache struct {
	prices map[string]pricePoint
	ttl    time.Duration
	now    func() time.Time
	mu     sync.RWMutex
}

type pricePoint struct {
	price float64
	at    time.Time
}

// newPriceCache creates a cache whose entries expire after ttl; zero never expires
func newPriceCache(ttl time.Duration) *priceCache {
	return &priceCache{
		prices: make(map[string]pricePoint),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (pc *priceCache) set(symbol string, price float64) {
	if price <= 0 {
		return
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.prices[symbol] = pricePoint{price: price, at: pc.now()}
}

// get returns the cached price if present and still fresh
func (pc *priceCache) get(symbol string) (float64, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	p, ok := pc.prices[symbol]
	if !ok {
		return 0, false
	}
	if pc.ttl > 0 && pc.now().Sub(p.at) > pc.ttl {
		return 0, false
	}
	return p.price, true
}

func (pc *priceCache) clear() {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.prices = make(map[string]pricePoint)
}
