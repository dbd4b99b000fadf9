package market

import (
	"fmt"
	"time"
)

// Candle represents OHLC (Open, High, Low, Close) candlestick data.
// Time is the period start in unix seconds, aligned to the candle's timeframe.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Body is the absolute open/close distance.
func (c Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range is high minus low.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

func (c Candle) Bullish() bool { return c.Close > c.Open }
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Overlaps reports whether the candle traded anywhere inside [low, high].
func (c Candle) Overlaps(low, high float64) bool {
	return c.Low <= high && c.High >= low
}

func (c Candle) String() string {
	return fmt.Sprintf("%s O:%.5f H:%.5f L:%.5f C:%.5f",
		time.Unix(c.Time, 0).UTC().Format(time.RFC3339), c.Open, c.High, c.Low, c.Close)
}

// NewCandle opens a candle at price with every OHLC field equal to it.
func NewCandle(start time.Time, price float64) Candle {
	return Candle{
		Time:  start.Unix(),
		Open:  price,
		High:  price,
		Low:   price,
		Close: price,
	}
}

// Update folds a new price into the candle.
func (c *Candle) Update(price float64) {
	if price > c.High {
		c.High = price
	}
	if price < c.Low {
		c.Low = price
	}
	c.Close = price
}
