package smc

import "github.com/rustyeddy/smctrader/market"

// Swings holds the swing highs and lows of a candle series in time order.
type Swings struct {
	Highs []market.Candle `json:"highs"`
	Lows  []market.Candle `json:"lows"`
}

// DetectSwings flags interior candles that are local extremes. A candle is a
// swing high when high[i] >= high[i-1] and high[i] > high[i+1]; swing lows
// mirror that. A candle may be both. Fewer than three candles yields empty
// sequences.
func DetectSwings(candles []market.Candle) Swings {
	s := Swings{Highs: []market.Candle{}, Lows: []market.Candle{}}
	if len(candles) < 3 {
		return s
	}

	for i := 1; i < len(candles)-1; i++ {
		prev, cur, next := candles[i-1], candles[i], candles[i+1]
		if cur.High >= prev.High && cur.High > next.High {
			s.Highs = append(s.Highs, cur)
		}
		if cur.Low <= prev.Low && cur.Low < next.Low {
			s.Lows = append(s.Lows, cur)
		}
	}
	return s
}
