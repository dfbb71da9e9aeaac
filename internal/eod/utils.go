package eod

import (
	"os"
	"path/filepath"
	"time"

	"breakout-trading-bot/internal/tradelog"
)

func logDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func istNow() time.Time {
	return time.Now().In(tradelog.IST)
}

// eodCSVPath returns logs/eod/YYYY-MM-DD.csv for the IST day of t
func eodCSVPath(t time.Time) string {
	dateStr := t.In(tradelog.IST).Format("2006-01-02")
	return filepath.Join(logDir(), "eod", dateStr+".csv")
}

// marketCloseTime returns 15:40 IST on the day of t
func marketCloseTime(t time.Time) time.Time {
	t = t.In(tradelog.IST)
	return time.Date(t.Year(), t.Month(), t.Day(), 15, 40, 0, 0, tradelog.IST)
}
