package smc

import (
	"sort"

	"github.com/rustyeddy/smctrader/market"
)

// MitigationSet holds POI times already consumed by a decision.
type MitigationSet map[int64]struct{}

func (m MitigationSet) Add(t int64) { m[t] = struct{}{} }
func (m MitigationSet) Len() int    { return len(m) }

func (m MitigationSet) Has(t int64) bool {
	_, ok := m[t]
	return ok
}

func (m MitigationSet) Clear() {
	for t := range m {
		delete(m, t)
	}
}

// Times returns the set in ascending order.
func (m MitigationSet) Times() []int64 {
	out := make([]int64, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Setup is a liquidity sweep followed by a structure shift and the order
// block left behind it.
type Setup struct {
	Direction market.Direction `json:"direction"`
	Swept     market.Candle    `json:"swept"`
	Shift     market.Candle    `json:"mss"`
	POI       market.Candle    `json:"poi"`
}

// liquiditySweep compares last against the most recent swing only. A BUY
// setup needs the last swing low taken out, a SELL setup the last swing high.
func liquiditySweep(sw Swings, last market.Candle, dir market.Direction) (market.Candle, bool) {
	if dir == market.Buy {
		if len(sw.Lows) == 0 {
			return market.Candle{}, false
		}
		s := sw.Lows[len(sw.Lows)-1]
		return s, last.Low < s.Low
	}

	if len(sw.Highs) == 0 {
		return market.Candle{}, false
	}
	s := sw.Highs[len(sw.Highs)-1]
	return s, last.High > s.High
}

// structureShift returns the latest opposite swing that formed before the
// swept swing.
func structureShift(swept market.Candle, opposite []market.Candle) (market.Candle, bool) {
	var (
		best  market.Candle
		found bool
	)
	for _, s := range opposite {
		if s.Time < swept.Time && (!found || s.Time > best.Time) {
			best, found = s, true
		}
	}
	return best, found
}

// OrderBlocks returns every candle followed by an opposite-polarity candle
// with a strictly larger body. For BUY the block is bearish and the reversal
// bullish; SELL is the mirror.
func OrderBlocks(candles []market.Candle, dir market.Direction) []market.Candle {
	var out []market.Candle
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1], candles[i]
		if cur.Body() <= prev.Body() {
			continue
		}
		switch dir {
		case market.Buy:
			if prev.Bearish() && cur.Bullish() {
				out = append(out, prev)
			}
		case market.Sell:
			if prev.Bullish() && cur.Bearish() {
				out = append(out, prev)
			}
		}
	}
	return out
}

// Mitigated reports whether any candle after the POI traded back into its range.
func Mitigated(poi market.Candle, candles []market.Candle) bool {
	for _, c := range candles {
		if c.Time > poi.Time && c.Overlaps(poi.Low, poi.High) {
			return true
		}
	}
	return false
}

// findSetup runs sweep, shift and POI search for one direction on one series.
func findSetup(candles []market.Candle, sw Swings, dir market.Direction, used MitigationSet) (Setup, bool) {
	last := candles[len(candles)-1]

	swept, ok := liquiditySweep(sw, last, dir)
	if !ok {
		return Setup{}, false
	}

	opposite := sw.Highs
	if dir == market.Sell {
		opposite = sw.Lows
	}
	shift, ok := structureShift(swept, opposite)
	if !ok {
		return Setup{}, false
	}
	if dir == market.Buy && !(last.Close > shift.High) {
		return Setup{}, false
	}
	if dir == market.Sell && !(last.Close < shift.Low) {
		return Setup{}, false
	}

	var after []market.Candle
	for _, c := range candles {
		if c.Time > shift.Time {
			after = append(after, c)
		}
	}

	blocks := OrderBlocks(after, dir)
	for i := len(blocks) - 1; i >= 0; i-- {
		if used.Has(blocks[i].Time) {
			continue
		}
		return Setup{Direction: dir, Swept: swept, Shift: shift, POI: blocks[i]}, true
	}
	return Setup{}, false
}

// Analyzer finds 4H bias and 1H entries for one instrument and owns the
// per-timeframe mitigation sets.
type Analyzer struct {
	h4 MitigationSet
	h1 MitigationSet
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{h4: MitigationSet{}, h1: MitigationSet{}}
}

// FindBias checks the bullish path first and only then the bearish one, so a
// series qualifying both ways resolves to BUY.
func (a *Analyzer) FindBias(h4 []market.Candle) (Setup, *NoTrade) {
	sw := DetectSwings(h4)
	if len(sw.Highs) == 0 || len(sw.Lows) == 0 {
		return Setup{}, &NoTrade{Reason: InvalidStructure, Details: "Insufficient swing points"}
	}

	for _, dir := range []market.Direction{market.Buy, market.Sell} {
		if s, ok := findSetup(h4, sw, dir, a.h4); ok {
			return s, nil
		}
	}
	return Setup{}, &NoTrade{Reason: NoSetup, Details: "Waiting for 4H liquidity sweep & MSS."}
}

// FindEntry searches the 1H series in the bias direction only.
func (a *Analyzer) FindEntry(dir market.Direction, h1 []market.Candle) (Setup, *NoTrade) {
	sw := DetectSwings(h1)
	if len(sw.Highs) == 0 || len(sw.Lows) == 0 {
		return Setup{}, &NoTrade{Reason: InvalidStructure, Details: "Insufficient swing points"}
	}

	if s, ok := findSetup(h1, sw, dir, a.h1); ok {
		return s, nil
	}
	return Setup{}, &NoTrade{Reason: Waiting1HEntrySetup, Details: "Waiting for 1H liquidity sweep & MSS."}
}

func (a *Analyzer) Reset() {
	a.h4.Clear()
	a.h1.Clear()
}
