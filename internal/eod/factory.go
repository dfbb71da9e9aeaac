package eod

import (
	"time"

	"breakout-trading-bot/internal/interfaces"
)

var defaultSummarizer interfaces.EodSummarizer = NewSummarizer()

// SetDefaultSummarizer allows setting a custom default summarizer (e.g., wrapped with observability)
func SetDefaultSummarizer(summarizer interfaces.EodSummarizer) {
	defaultSummarizer = summarizer
}

func NewSummarizer() interfaces.EodSummarizer {
	return &eodSummarizer{now: istNow}
}

func SummarizeDay(t time.Time) (string, error) {
	return defaultSummarizer.SummarizeDay(t)
}

func SummarizeToday() (string, error) {
	return defaultSummarizer.SummarizeToday()
}

func ShouldRunNow() (bool, string) {
	return defaultSummarizer.ShouldRunNow()
}
