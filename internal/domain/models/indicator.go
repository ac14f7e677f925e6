package models

// IndicatorSource tells the pipeline which vendor endpoint feeds an indicator.
type IndicatorSource string

const (
	SourceEDB          IndicatorSource = "edb"
	SourceFuturesQuote IndicatorSource = "futures_quote"
)

// QuotaClass marks whether the indicator's endpoint counts against the
// account's monthly allotment.
type QuotaClass string

const (
	QuotaLimited   QuotaClass = "limited"
	QuotaUnlimited QuotaClass = "unlimited"
)

// IndicatorSpec describes one catalog entry. SourceID is an EDB indicator ID
// for EDB-sourced specs and an instrument code for futures-sourced ones.
type IndicatorSpec struct {
	Name       string          `json:"name"`
	Source     IndicatorSource `json:"source"`
	SourceID   string          `json:"source_id"`
	Unit       string          `json:"unit"`
	Category   string          `json:"category,omitempty"`
	QuotaClass QuotaClass      `json:"quota_class"`
}

// IndicatorObservation is one dated value of a macro indicator.
type IndicatorObservation struct {
	Indicator string  `json:"indicator"`
	Date      string  `json:"date"`
	Value     float64 `json:"value"`
}
