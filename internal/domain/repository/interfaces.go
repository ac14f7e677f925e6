package repository

import (
	"context"
	"encoding/json"

	"MacroPull/internal/domain/models"
)

// VendorAPI wraps the quota-segmented vendor endpoints behind typed calls.
// Implementations attach a valid credential to every request and isolate the
// vendor's JSON schema from the rest of the pipeline.
type VendorAPI interface {
	HistoryQuotes(ctx context.Context, codes []string, gran models.Granularity, from, to string) (map[string][]models.SeriesPoint, error)
	RealtimeQuotes(ctx context.Context, codes []string) (map[string]models.RealtimeQuote, error)
	HighFrequency(ctx context.Context, code string, start, end string) ([]models.SeriesPoint, error)
	EDBSeries(ctx context.Context, indicator string, indicatorID, from, to string) ([]models.IndicatorObservation, error)
	TradeDates(ctx context.Context, from, to string) ([]string, error)
	DataUsage(ctx context.Context) (json.RawMessage, error)
}

// Authenticator owns the refresh->access token exchange.
type Authenticator interface {
	EnsureValid(ctx context.Context) (models.Credential, error)
	Invalidate()
}

// SeriesStore persists one tabular file per series and merges partial updates
// by date. Load never fails on a missing series; it returns an empty slice.
type SeriesStore interface {
	Merge(key models.SeriesKey, fresh []models.SeriesPoint) ([]models.SeriesPoint, error)
	Load(key models.SeriesKey) ([]models.SeriesPoint, error)
	MergeObservations(indicator string, fresh []models.IndicatorObservation) ([]models.IndicatorObservation, error)
	LoadObservations(indicator string) ([]models.IndicatorObservation, error)
}

// Metrics records pipeline observability counters.
type Metrics interface {
	RecordFetch(endpoint, outcome string)
	RecordAlert(code string, kind string)
	RecordLastClose(code string, price float64)
	RecordLatency(op string, seconds float64)
}
