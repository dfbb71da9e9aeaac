package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"breakout-trading-bot/internal/tradelog"
	"breakout-trading-bot/internal/types"
)

// webhookRequest is either a priceBarRequest or a manualActionRequest.
type webhookRequest interface {
	webhookKind() string
}

type priceBarRequest struct {
	Bar types.PriceBar
	Qty int
}

type manualActionRequest struct {
	Action types.ManualAction
}

func (priceBarRequest) webhookKind() string     { return "price_bar" }
func (manualActionRequest) webhookKind() string { return "manual_action" }

// webhookPayload is the raw wire shape; pointer fields tell absent from zero.
type webhookPayload struct {
	Symbol    string   `json:"symbol"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Close     *float64 `json:"close"`
	Timestamp *string  `json:"timestamp"`
	Quantity  *int     `json:"quantity"`
	Action    *string  `json:"action"`
}

// decodeWebhook classifies a webhook body. A body carrying both price fields
// and an action is rejected as ambiguous.
func decodeWebhook(body []byte) (webhookRequest, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, types.NewValidationError("body", "empty request body")
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, types.NewValidationError("body", fmt.Sprintf("malformed JSON: %v", err))
	}

	symbol := types.NormalizeSymbol(p.Symbol)
	if symbol == "" {
		return nil, types.NewValidationError("symbol", "required")
	}

	qty := 0
	if p.Quantity != nil {
		if *p.Quantity <= 0 {
			return nil, types.NewValidationError("quantity", "must be positive")
		}
		qty = *p.Quantity
	}

	hasPrice := p.High != nil || p.Low != nil || p.Close != nil
	hasAction := p.Action != nil

	switch {
	case hasPrice && hasAction:
		return nil, types.NewValidationError("body", "ambiguous payload: both price fields and action present")

	case hasAction:
		dir, err := parseAction(*p.Action)
		if err != nil {
			return nil, err
		}
		return manualActionRequest{Action: types.ManualAction{Symbol: symbol, Action: dir, Quantity: qty}}, nil

	case hasPrice:
		fields := []struct {
			name string
			v    *float64
		}{{"high", p.High}, {"low", p.Low}, {"close", p.Close}}
		for _, f := range fields {
			if f.v == nil {
				return nil, types.NewValidationError(f.name, "required")
			}
		}
		bar := types.PriceBar{Symbol: symbol, High: *p.High, Low: *p.Low, Close: *p.Close}
		if p.Timestamp != nil {
			ts, err := parseTimestamp(*p.Timestamp)
			if err != nil {
				return nil, err
			}
			bar.Timestamp = ts
		}
		return priceBarRequest{Bar: bar, Qty: qty}, nil

	default:
		return nil, types.NewValidationError("body", "expected price fields (high, low, close) or an action")
	}
}

// zone-less alert times are exchange-local
const localTimestamp = "2006-01-02T15:04:05.999999999"

// parseTimestamp accepts RFC3339 or a zone-less ISO time read in IST.
// An empty string means the bar carries no time.
func parseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation(localTimestamp, v, tradelog.IST); err == nil {
		return ts, nil
	}
	return time.Time{}, types.NewValidationError("timestamp", fmt.Sprintf("unrecognized time %q, expected RFC3339 or 2006-01-02T15:04:05", v))
}

func parseAction(action string) (types.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "buy", "long":
		return types.DirectionLong, nil
	case "sell", "short":
		return types.DirectionShort, nil
	default:
		return "", types.NewValidationError("action", fmt.Sprintf("unknown action %q, expected buy or sell", action))
	}
}
