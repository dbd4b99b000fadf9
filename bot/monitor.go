package bot

import (
	"time"

	"github.com/rustyeddy/smctrader/market"
	"github.com/rustyeddy/smctrader/smc"
)

// CloseReason says why an active trade was cleared.
type CloseReason string

const (
	StopLoss   CloseReason = "STOP_LOSS"
	TakeProfit CloseReason = "TAKE_PROFIT"
)

// ActiveTrade is the one open signal an instrument may hold.
type ActiveTrade struct {
	ID          string           `json:"id"`
	Instrument  string           `json:"instrument"`
	Direction   market.Direction `json:"order_type"`
	Entry       float64          `json:"entry"`
	StopLoss    float64          `json:"sl"`
	TakeProfit  float64          `json:"tp"`
	LivePnLPips float64          `json:"live_pnl_pips"`
	Units       float64          `json:"units"`
	RiskAmount  float64          `json:"risk_amount"`
	RR          float64          `json:"rr"`
	CreatedAt   time.Time        `json:"created_at"`
	Signal      *smc.Signal      `json:"signal"`
}

func hitStopLoss(t *ActiveTrade, price float64) bool {
	if t.Direction == market.Buy {
		return price <= t.StopLoss
	}
	return price >= t.StopLoss
}

func hitTakeProfit(t *ActiveTrade, price float64) bool {
	if t.Direction == market.Buy {
		return price >= t.TakeProfit
	}
	return price <= t.TakeProfit
}

// Pips is the open profit at price, in pips of the trade's instrument.
func (t *ActiveTrade) Pips(price float64) float64 {
	d := price - t.Entry
	if t.Direction == market.Sell {
		d = -d
	}
	return d * market.PipMultiplier(t.Instrument)
}

// Track applies price to the trade. When the stop or target is crossed it
// returns the reason and leaves the P/L untouched; otherwise it updates
// LivePnLPips. The stop is checked first.
func (t *ActiveTrade) Track(price float64) (CloseReason, bool) {
	switch {
	case hitStopLoss(t, price):
		return StopLoss, true
	case hitTakeProfit(t, price):
		return TakeProfit, true
	}
	t.LivePnLPips = t.Pips(price)
	return "", false
}
