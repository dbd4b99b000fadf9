package bot

import (
	"fmt"
	"time"
)

// Status is a point in time copy of the bot's state.
type Status struct {
	ConnectionStatus string                      `json:"connection_status"`
	Uptime           string                      `json:"uptime"`
	Instruments      map[string]InstrumentStatus `json:"instruments"`
	Logs             []string                    `json:"logs"`
}

type InstrumentStatus struct {
	Price          float64      `json:"price"`
	AnalysisStatus string       `json:"analysis_status"`
	H1Candles      int          `json:"h1_candles_count"`
	H4Candles      int          `json:"h4_candles_count"`
	ActiveTrade    *ActiveTrade `json:"active_trade"`
}

// Snapshot copies the current state. It holds the read lock only for the copy.
func (b *Bot) Snapshot() Status {
	b.mu.RLock()
	s := Status{
		ConnectionStatus: b.status,
		Uptime:           FormatUptime(b.now().Sub(b.started)),
		Instruments:      make(map[string]InstrumentStatus, len(b.insts)),
	}
	for name, st := range b.insts {
		is := InstrumentStatus{
			Price:          st.price,
			AnalysisStatus: st.analysis,
			H1Candles:      len(st.h1.closed),
			H4Candles:      len(st.h4.closed),
		}
		if st.trade != nil {
			t := *st.trade
			is.ActiveTrade = &t
		}
		s.Instruments[name] = is
	}
	b.mu.RUnlock()

	s.Logs = b.logs.Lines()
	return s
}

// FormatUptime renders d as "{h}h {m}m {s}s".
func FormatUptime(d time.Duration) string {
	sec := int64(d / time.Second)
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%dh %dm %ds", sec/3600, (sec%3600)/60, sec%60)
}
