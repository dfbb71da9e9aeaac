package api

import (
	"testing"
	"time"

	"breakout-trading-bot/internal/tradelog"
	"breakout-trading-bot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeWebhookPriceBar(t *testing.T) {
	req, err := decodeWebhook([]byte(`{"symbol":" infy ","high":111.5,"low":104,"close":111,"timestamp":"2025-03-04T09:30:00Z","quantity":3,"ticker_extra":"ignored"}`))
	require.NoError(t, err)

	bar, ok := req.(priceBarRequest)
	require.True(t, ok)
	assert.Equal(t, "price_bar", bar.webhookKind())
	assert.Equal(t, types.PriceBar{
		Symbol:    "INFY",
		High:      111.5,
		Low:       104,
		Close:     111,
		Timestamp: time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC),
	}, bar.Bar)
	assert.Equal(t, 3, bar.Qty)

	req, err = decodeWebhook([]byte(`{"symbol":"RELIANCE","high":2500,"low":2480,"close":2495,"timestamp":"2023-01-01T10:00:00"}`))
	require.NoError(t, err)
	bar, ok = req.(priceBarRequest)
	require.True(t, ok)
	assert.True(t, time.Date(2023, 1, 1, 10, 0, 0, 0, tradelog.IST).Equal(bar.Bar.Timestamp), "zone-less times are IST")
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Time{
		"2025-03-04T09:30:00Z":       time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC),
		"2025-03-04T09:30:00+05:30":  time.Date(2025, 3, 4, 4, 0, 0, 0, time.UTC),
		"2025-03-04T09:30:00.250Z":   time.Date(2025, 3, 4, 9, 30, 0, 250e6, time.UTC),
		"2023-01-01T10:00:00":        time.Date(2023, 1, 1, 10, 0, 0, 0, tradelog.IST),
		"2023-01-01T10:00:00.123456": time.Date(2023, 1, 1, 10, 0, 0, 123456e3, tradelog.IST),
		"":                           {},
	}
	for in, want := range cases {
		got, err := parseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%q: got %v want %v", in, got, want)
	}

	_, err := parseTimestamp("yesterday")
	var ve *types.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "timestamp", ve.Field)
}

func TestDecodeWebhookZeroPriceIsPresent(t *testing.T) {
	req, err := decodeWebhook([]byte(`{"symbol":"INFY","high":0,"low":0,"close":0}`))
	require.NoError(t, err, "zero prices reach the engine, which rejects them")
	_, ok := req.(priceBarRequest)
	assert.True(t, ok)
}

func TestDecodeWebhookManualAction(t *testing.T) {
	cases := map[string]types.Direction{
		"buy":   types.DirectionLong,
		"BUY":   types.DirectionLong,
		"sell":  types.DirectionShort,
		"short": types.DirectionShort,
	}
	for action, want := range cases {
		req, err := decodeWebhook([]byte(`{"symbol":"tcs","action":"` + action + `"}`))
		require.NoError(t, err, action)
		ma, ok := req.(manualActionRequest)
		require.True(t, ok, action)
		assert.Equal(t, types.ManualAction{Symbol: "TCS", Action: want}, ma.Action)
	}
}

func TestDecodeWebhookRejects(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"empty", ``, "body"},
		{"malformed", `{"symbol":`, "body"},
		{"no symbol", `{"high":1,"low":1,"close":1}`, "symbol"},
		{"neither shape", `{"symbol":"INFY"}`, "body"},
		{"ambiguous", `{"symbol":"INFY","close":100,"action":"buy"}`, "body"},
		{"missing high", `{"symbol":"INFY","low":1,"close":1}`, "high"},
		{"missing close", `{"symbol":"INFY","high":2,"low":1}`, "close"},
		{"bad action", `{"symbol":"INFY","action":"hold"}`, "action"},
		{"negative qty", `{"symbol":"INFY","action":"buy","quantity":-1}`, "quantity"},
		{"bad timestamp", `{"symbol":"INFY","high":2,"low":1,"close":1,"timestamp":"01/01/2023"}`, "timestamp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeWebhook([]byte(tc.body))
			require.ErrorIs(t, err, types.ErrValidation)
			var ve *types.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}
