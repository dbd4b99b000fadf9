package smc

import (
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/smctrader/market"
	"github.com/rustyeddy/smctrader/risk"
)

// Reason says why analyze produced no trade.
type Reason int

const (
	InvalidStructure Reason = iota + 1
	NoSetup
	Waiting4HMitigation
	Waiting1HEntrySetup
	Waiting1HMitigation
)

var reasonCodes = map[Reason]string{
	InvalidStructure:    "INVALID_STRUCTURE",
	NoSetup:             "NO_SETUP",
	Waiting4HMitigation: "WAITING_FOR_4H_POI_MITIGATION",
	Waiting1HEntrySetup: "WAITING_FOR_1H_ENTRY_SETUP",
	Waiting1HMitigation: "WAITING_FOR_1H_POI_MITIGATION",
}

func (r Reason) String() string {
	if s, ok := reasonCodes[r]; ok {
		return s
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Action is the JSON discriminator of an Outcome.
type Action string

const (
	ActionTakeTrade Action = "take_trade"
	ActionNoTrade   Action = "no_trade"
)

// Outcome is the result of one analyze call: a *NoTrade or a *Signal.
// Callers switch on the concrete type.
type Outcome interface {
	Action() Action
	// Status is the human readable line shown for the instrument.
	Status() string
	outcome()
}

// NoTrade carries the reason no signal was produced.
type NoTrade struct {
	Reason  Reason `json:"reason"`
	Details string `json:"details"`
}

func (*NoTrade) outcome()         {}
func (*NoTrade) Action() Action   { return ActionNoTrade }
func (n *NoTrade) Status() string { return n.Details }

func (n *NoTrade) MarshalJSON() ([]byte, error) {
	type plain NoTrade
	return json.Marshal(struct {
		Action Action `json:"action"`
		*plain
	}{ActionNoTrade, (*plain)(n)})
}

// Signal is a prepared trade. It is never mutated after analyze returns it.
type Signal struct {
	Direction  market.Direction `json:"order_type"`
	Entry      float64          `json:"entry"`
	StopLoss   float64          `json:"sl"`
	TakeProfit float64          `json:"tp"`
	risk.Assessment

	BiasPOI  market.Candle `json:"h4_poi"`
	EntryPOI market.Candle `json:"h1_poi"`
}

func (*Signal) outcome()       {}
func (*Signal) Action() Action { return ActionTakeTrade }
func (*Signal) Status() string { return "Analysis complete" }

func (s *Signal) MarshalJSON() ([]byte, error) {
	type plain Signal
	return json.Marshal(struct {
		Action Action `json:"action"`
		*plain
	}{ActionTakeTrade, (*plain)(s)})
}
