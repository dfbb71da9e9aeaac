package eod

// aggRow represents aggregated trading statistics for a symbol.
// Realized P&L comes from closed trades, so short round trips count too.
type aggRow struct {
	Symbol      string  // Trading symbol
	Trades      int     // Closed trades
	Wins        int     // Closed trades with positive P&L
	Losses      int     // Closed trades with negative P&L
	LongTrades  int     // Closed LONG trades
	ShortTrades int     // Closed SHORT trades
	BuyQty      int     // Total quantity bought
	BuyValue    float64 // Total value of buy orders (qty * price)
	SellQty     int     // Total quantity sold
	SellValue   float64 // Total value of sell orders (qty * price)
	OpenQty     int     // Entries without a matching exit yet
	RealizedPnL float64 // Sum of P&L over closed trades
}
