package models

// SignalKind classifies a raised alert.
type SignalKind string

const (
	SignalPriceMove        SignalKind = "price_move"
	SignalOpenInterestMove SignalKind = "open_interest_move"
	SignalIntradayHigh     SignalKind = "intraday_high"
	SignalIntradayLow      SignalKind = "intraday_low"
)

// Direction of the move that triggered a signal.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// AlertSignal is a transient anomaly flag raised when a day-over-day move in
// price or open interest crosses a configured percentage threshold.
// Signals are recomputed each evaluation pass and never persisted.
type AlertSignal struct {
	Code         string     `json:"code"`
	Kind         SignalKind `json:"kind"`
	MagnitudePct float64    `json:"magnitude_pct"`
	Direction    Direction  `json:"direction"`
	ObservedAt   string     `json:"observed_at"`
}
