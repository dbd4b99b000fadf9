package smc

import (
	"fmt"

	"github.com/rustyeddy/smctrader/market"
)

// MinCandles is the history length each timeframe needs before analysis.
const MinCandles = 5

// Engine turns a 4H and a 1H candle history into a trade decision for one
// instrument. Its only state is the pair of mitigation sets, so Analyze is a
// pure function of those sets and its inputs. Engine is not safe for
// concurrent use.
type Engine struct {
	Instrument string
	analyzer   *Analyzer
}

func NewEngine(instrument string) *Engine {
	return &Engine{Instrument: instrument, analyzer: NewAnalyzer()}
}

// Analyze walks invalid structure → 4H bias → 4H mitigation → 1H entry →
// 1H mitigation → trade. A consumed POI time is added to its timeframe's
// mitigation set; producing a Signal clears both sets.
func (e *Engine) Analyze(h4, h1 []market.Candle) Outcome {
	if len(h4) < MinCandles || len(h1) < MinCandles {
		return &NoTrade{Reason: InvalidStructure, Details: "Waiting for more candle data."}
	}

	bias, nt := e.analyzer.FindBias(h4)
	if nt != nil {
		return nt
	}

	if !Mitigated(bias.POI, h4) {
		return &NoTrade{
			Reason:  Waiting4HMitigation,
			Details: fmt.Sprintf("Waiting for price to tap 4H POI for %s", bias.Direction),
		}
	}
	e.analyzer.h4.Add(bias.POI.Time)

	entry, nt := e.analyzer.FindEntry(bias.Direction, h1)
	if nt != nil {
		return nt
	}

	if !Mitigated(entry.POI, h1) {
		return &NoTrade{Reason: Waiting1HMitigation, Details: "Waiting for price to tap 1H POI"}
	}
	e.analyzer.h1.Add(entry.POI.Time)

	sig := prepareTrade(bias.Direction, entry.POI, h1)
	sig.BiasPOI = bias.POI
	e.analyzer.Reset()
	return sig
}

// Mitigations returns copies of the 4H and 1H mitigation sets.
func (e *Engine) Mitigations() (h4, h1 []int64) {
	return e.analyzer.h4.Times(), e.analyzer.h1.Times()
}
