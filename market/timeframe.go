package market

import (
	"fmt"
	"time"
)

// Timeframe is a candle width in seconds.
type Timeframe int32

const (
	H1 Timeframe = 3600
	H4 Timeframe = 14400
)

// String uses OANDA granularity names: M15, H1, H4, D1.
func (tf Timeframe) String() string {
	sec := int32(tf)
	switch {
	case sec > 0 && sec%86400 == 0:
		return fmt.Sprintf("D%d", sec/86400)
	case sec > 0 && sec%3600 == 0:
		return fmt.Sprintf("H%d", sec/3600)
	case sec > 0 && sec%60 == 0:
		return fmt.Sprintf("M%d", sec/60)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf) * time.Second
}

// Floor truncates t (in UTC) to the start of the candle containing it.
// H1 truncates to the hour; H4 truncates the hour to the lower multiple of 4.
func (tf Timeframe) Floor(t time.Time) time.Time {
	t = t.UTC()
	switch tf {
	case H1:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	case H4:
		return time.Date(t.Year(), t.Month(), t.Day(), (t.Hour()/4)*4, 0, 0, 0, time.UTC)
	default:
		return t.Truncate(tf.Duration())
	}
}
