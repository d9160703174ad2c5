package models

import "time"

// SignalAction is the direction of a generated trading signal.
type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionFlat SignalAction = "FLAT"
)

// TradingSignal is emitted for eligible coins and consumed by downstream
// execution; this service only produces it.
type TradingSignal struct {
	ID           string
	Symbol       string
	Action       SignalAction
	CurrentPrice float64
	ZScore       float64
	NATR         *float64
	Timestamp    time.Time
}

// EngineStatus is an aggregate snapshot over the running engine, derived on
// demand from the tracker and signal generator rather than kept as state.
type EngineStatus struct {
	IsRunning         bool
	StartTime         time.Time
	ActiveSignalCount int
	TotalCoinCount    int
	LastUpdate        time.Time
}
