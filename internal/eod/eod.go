package eod

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/tradelog"
)

type eodSummarizer struct {
	now func() time.Time
}

var _ interfaces.EodSummarizer = (*eodSummarizer)(nil)

var csvHeaders = []string{
	"symbol", "trades", "wins", "losses", "long_trades", "short_trades",
	"buy_qty", "buy_avg", "sell_qty", "sell_avg", "open_qty",
	"realized_pnl", "gross_buy_value", "gross_sell_value",
}

// SummarizeDay writes the realized P&L per symbol for the IST day of t.
// It returns an empty path when nothing was traded that day.
func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	entries, err := tradelog.ReadDay(t)
	if err != nil {
		return "", fmt.Errorf("read trade log: %w", err)
	}

	aggs := aggregate(entries)
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := eodCSVPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(csvHeaders); err != nil {
		return "", err
	}

	var total aggRow
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write(r.record()); err != nil {
			return "", err
		}
		total.Trades += r.Trades
		total.Wins += r.Wins
		total.Losses += r.Losses
		total.LongTrades += r.LongTrades
		total.ShortTrades += r.ShortTrades
		total.OpenQty += r.OpenQty
		total.BuyValue += r.BuyValue
		total.SellValue += r.SellValue
		total.RealizedPnL += r.RealizedPnL
	}
	if err := w.Write([]string{
		"TOTAL",
		strconv.Itoa(total.Trades), strconv.Itoa(total.Wins), strconv.Itoa(total.Losses),
		strconv.Itoa(total.LongTrades), strconv.Itoa(total.ShortTrades),
		"", "", "", "", strconv.Itoa(total.OpenQty),
		fmt.Sprintf("%.2f", total.RealizedPnL),
		fmt.Sprintf("%.2f", total.BuyValue),
		fmt.Sprintf("%.2f", total.SellValue),
	}); err != nil {
		return "", err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return outPath, nil
}

func (s *eodSummarizer) SummarizeToday() (string, error) {
	return s.SummarizeDay(s.now())
}

// ShouldRunNow reports whether market close (15:40 IST) has passed and
// today's summary has not been written yet.
func (s *eodSummarizer) ShouldRunNow() (bool, string) {
	now := s.now()
	outPath := eodCSVPath(now)
	if now.After(marketCloseTime(now)) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}

func aggregate(entries []tradelog.Entry) map[string]*aggRow {
	aggs := map[string]*aggRow{}
	for _, e := range entries {
		if e.Symbol == "" {
			continue
		}
		row := aggs[e.Symbol]
		if row == nil {
			row = &aggRow{Symbol: e.Symbol}
			aggs[e.Symbol] = row
		}

		switch e.Side {
		case "BUY":
			row.BuyQty += e.Qty
			row.BuyValue += float64(e.Qty) * e.Price
		case "SELL":
			row.SellQty += e.Qty
			row.SellValue += float64(e.Qty) * e.Price
		}

		switch e.Event {
		case tradelog.EventEntry:
			row.OpenQty += e.Qty
		case tradelog.EventExit:
			row.OpenQty -= e.Qty
			row.Trades++
			row.RealizedPnL += e.PnL
			switch {
			case e.PnL > 0:
				row.Wins++
			case e.PnL < 0:
				row.Losses++
			}
			if e.Direction == "SHORT" {
				row.ShortTrades++
			} else {
				row.LongTrades++
			}
		}
	}
	return aggs
}

func (r *aggRow) record() []string {
	var buyAvg, sellAvg float64
	if r.BuyQty > 0 {
		buyAvg = r.BuyValue / float64(r.BuyQty)
	}
	if r.SellQty > 0 {
		sellAvg = r.SellValue / float64(r.SellQty)
	}
	return []string{
		r.Symbol,
		strconv.Itoa(r.Trades), strconv.Itoa(r.Wins), strconv.Itoa(r.Losses),
		strconv.Itoa(r.LongTrades), strconv.Itoa(r.ShortTrades),
		strconv.Itoa(r.BuyQty), fmt.Sprintf("%.4f", buyAvg),
		strconv.Itoa(r.SellQty), fmt.Sprintf("%.4f", sellAvg),
		strconv.Itoa(r.OpenQty),
		fmt.Sprintf("%.2f", r.RealizedPnL),
		fmt.Sprintf("%.2f", r.BuyValue),
		fmt.Sprintf("%.2f", r.SellValue),
	}
}
