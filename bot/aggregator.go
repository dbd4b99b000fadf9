package bot

import (
	"time"

	"github.com/rustyeddy/smctrader/market"
)

// series builds candles of one timeframe from ticks. closed holds the
// finalized history in time order; live is the candle still being built.
type series struct {
	tf     market.Timeframe
	live   *market.Candle
	closed []market.Candle
}

func newSeries(tf market.Timeframe) series {
	return series{tf: tf}
}

// push folds price at ts into the series. When ts falls in a later period
// than the live candle, the live candle is finalized and returned and a new
// one is opened at the new boundary. The tick always updates the live candle
// afterwards, so one tick can close a candle and seed the next.
func (s *series) push(ts time.Time, price float64) (market.Candle, bool) {
	start := s.tf.Floor(ts)

	var (
		done   market.Candle
		closed bool
	)
	switch {
	case s.live == nil:
		c := market.NewCandle(start, price)
		s.live = &c
	case start.Unix() > s.live.Time:
		done = *s.live
		s.closed = append(s.closed, done)
		closed = true

		c := market.NewCandle(start, price)
		s.live = &c
	}

	s.live.Update(price)
	return done, closed
}

func (s *series) history() []market.Candle {
	out := make([]market.Candle, len(s.closed))
	copy(out, s.closed)
	return out
}
