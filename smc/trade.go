package smc

import (
	"github.com/rustyeddy/smctrader/market"
	"github.com/rustyeddy/smctrader/risk"
)

// Stop and fallback target multipliers: a 5bp stop buffer and a 0.5% target.
const (
	buyStop    = 0.9995
	sellStop   = 1.0005
	buyTarget  = 1.005
	sellTarget = 0.995
)

// prepareTrade enters at the POI edge facing the trade, stops five basis
// points beyond it and targets the first 1H swing formed after the POI,
// falling back to a 0.5% move.
func prepareTrade(dir market.Direction, poi market.Candle, h1 []market.Candle) *Signal {
	sw := DetectSwings(h1)

	sig := &Signal{Direction: dir, EntryPOI: poi}
	if dir == market.Buy {
		sig.Entry = poi.Low
		sig.StopLoss = poi.Low * buyStop
		sig.TakeProfit = sig.Entry * buyTarget
		for _, s := range sw.Highs {
			if s.Time > poi.Time {
				sig.TakeProfit = s.High
				break
			}
		}
	} else {
		sig.Entry = poi.High
		sig.StopLoss = poi.High * sellStop
		sig.TakeProfit = sig.Entry * sellTarget
		for _, s := range sw.Lows {
			if s.Time > poi.Time {
				sig.TakeProfit = s.Low
				break
			}
		}
	}

	sig.Assessment = risk.Assess(risk.Trade{
		Direction:  dir,
		Entry:      sig.Entry,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
	}, h1, poi)
	return sig
}
