package models

// Granularity identifies the sampling frequency of a stored series.
type Granularity string

const (
	GranularityDaily    Granularity = "daily"
	GranularityMinute   Granularity = "minute"
	GranularityRealtime Granularity = "realtime"
)

// SeriesKey uniquely identifies one persisted instrument series.
type SeriesKey struct {
	Code        string
	Granularity Granularity
}

func (k SeriesKey) String() string {
	return k.Code + "/" + string(k.Granularity)
}

// SeriesPoint is a single OHLCV observation for an instrument on one
// calendar date. Dates are ISO "2006-01-02" strings so lexical order is
// chronological order.
type SeriesPoint struct {
	Date         string  `json:"date"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Close        float64 `json:"close"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
}

// RealtimeQuote is the latest intraday snapshot for one instrument.
type RealtimeQuote struct {
	Code         string  `json:"code"`
	Time         string  `json:"time"`
	Latest       float64 `json:"latest"`
	Open         float64 `json:"open"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	ChangeRatio  float64 `json:"change_ratio"`
}
