package models

import (
	"encoding/json"
	"time"
)

// Freshness annotates how a snapshot entry was obtained.
type Freshness string

const (
	FreshnessFresh   Freshness = "fresh"   // fetched from the vendor this run
	FreshnessStale   Freshness = "stale"   // cache fallback after a recoverable error
	FreshnessMissing Freshness = "missing" // no vendor data and no cache
)

// InstrumentResult is the best-known daily series for one watched instrument.
type InstrumentResult struct {
	Code      string        `json:"code"`
	Points    []SeriesPoint `json:"points"`
	Freshness Freshness     `json:"freshness"`
	AsOf      string        `json:"as_of,omitempty"` // last persisted date
	Error     string        `json:"error,omitempty"`
}

// IndicatorResult is the best-known observation series for one catalog entry.
type IndicatorResult struct {
	Spec         IndicatorSpec          `json:"spec"`
	Observations []IndicatorObservation `json:"observations"`
	Freshness    Freshness              `json:"freshness"`
	AsOf         string                 `json:"as_of,omitempty"`
	Error        string                 `json:"error,omitempty"`
}

// Snapshot is the best-effort result set of one pipeline run, consumed by the
// report boundary. Indicators keep catalog order.
type Snapshot struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Instruments []InstrumentResult `json:"instruments"`
	Indicators  []IndicatorResult  `json:"indicators"`
	Signals     []AlertSignal      `json:"signals"`
	Usage       json.RawMessage    `json:"usage,omitempty"` // vendor-defined account statistics
}
