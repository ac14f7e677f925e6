package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"MacroPull/internal/domain/models"
	"MacroPull/internal/registry"
	"MacroPull/internal/repository/csvstore"
	"MacroPull/internal/service/ifind"
	xlogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"
)

type fakeAuth struct {
	err error
}

func (f *fakeAuth) EnsureValid(ctx context.Context) (models.Credential, error) {
	if f.err != nil {
		return models.Credential{}, f.err
	}
	return models.Credential{AccessToken: "tok"}, nil
}

func (f *fakeAuth) Invalidate() {}

type fakeVendor struct {
	history    map[string][]models.SeriesPoint
	historyErr error
	edb        map[string][]models.IndicatorObservation
	edbErr     map[string]error
	realtime   map[string]models.RealtimeQuote
	rtErr      error
	tradeDates []string
	tradeErr   error
}

func (f *fakeVendor) HistoryQuotes(ctx context.Context, codes []string, gran models.Granularity, from, to string) (map[string][]models.SeriesPoint, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	out := make(map[string][]models.SeriesPoint)
	for _, c := range codes {
		if pts, ok := f.history[c]; ok {
			out[c] = pts
		}
	}
	if len(out) == 0 {
		return nil, &ifind.EmptyResultError{Endpoint: "cmd_history_quotation"}
	}
	return out, nil
}

func (f *fakeVendor) RealtimeQuotes(ctx context.Context, codes []string) (map[string]models.RealtimeQuote, error) {
	if f.rtErr != nil {
		return nil, f.rtErr
	}
	return f.realtime, nil
}

func (f *fakeVendor) HighFrequency(ctx context.Context, code, start, end string) ([]models.SeriesPoint, error) {
	return f.history[code], nil
}

func (f *fakeVendor) EDBSeries(ctx context.Context, indicator, indicatorID, from, to string) ([]models.IndicatorObservation, error) {
	if err, ok := f.edbErr[indicator]; ok {
		return nil, err
	}
	return f.edb[indicator], nil
}

func (f *fakeVendor) TradeDates(ctx context.Context, from, to string) ([]string, error) {
	return f.tradeDates, f.tradeErr
}

func (f *fakeVendor) DataUsage(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"requests":1}`), nil
}

type noopMetrics struct{}

func (noopMetrics) RecordFetch(endpoint, outcome string)       {}
func (noopMetrics) RecordAlert(code string, kind string)       {}
func (noopMetrics) RecordLastClose(code string, price float64) {}
func (noopMetrics) RecordLatency(op string, seconds float64)   {}

func testPipeline(t *testing.T, vendor *fakeVendor, auth *fakeAuth, catalog *registry.Registry) *Pipeline {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store, err := csvstore.New(t.TempDir(), log)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	engine := NewAlertEngine(AlertThresholds{PricePct: 3.0, OpenInterestPct: 5.0})
	return NewPipeline(auth, vendor, store, catalog, engine, noopMetrics{}, log, []string{"NI00.SHF"}, 30)
}

func dailyPoints(dates []string, closes []float64) []models.SeriesPoint {
	pts := make([]models.SeriesPoint, len(dates))
	for i := range dates {
		pts[i] = models.SeriesPoint{Date: dates[i], Close: closes[i], OpenInterest: 1000}
	}
	return pts
}

func TestRunFreshSnapshot(t *testing.T) {
	vendor := &fakeVendor{
		history: map[string][]models.SeriesPoint{
			"NI00.SHF": dailyPoints([]string{"2026-01-05", "2026-01-06"}, []float64{100, 101}),
		},
		edb: map[string][]models.IndicatorObservation{
			"lme_nickel_inventory": {{Date: "2026-01-05", Value: 42000}},
		},
	}
	catalog, err := registry.New(registry.EDBSpec("lme_nickel_inventory", "S004303610", "ton", "inventory"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	p := testPipeline(t, vendor, &fakeAuth{}, catalog)

	snap, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snap.Instruments) != 1 {
		t.Fatalf("expected 1 instrument, got %d", len(snap.Instruments))
	}
	if snap.Instruments[0].Freshness != models.FreshnessFresh {
		t.Fatalf("expected fresh, got %s", snap.Instruments[0].Freshness)
	}
	if len(snap.Indicators) != 1 || snap.Indicators[0].Freshness != models.FreshnessFresh {
		t.Fatalf("unexpected indicators %v", snap.Indicators)
	}
	if len(snap.Signals) != 0 {
		t.Fatalf("no threshold crossing expected, got %v", snap.Signals)
	}
	if p.Latest() != snap {
		t.Fatalf("latest snapshot not stored")
	}
}

func TestRunRaisesSignals(t *testing.T) {
	vendor := &fakeVendor{
		history: map[string][]models.SeriesPoint{
			"NI00.SHF": dailyPoints([]string{"2026-01-05", "2026-01-06"}, []float64{100, 90}),
		},
	}
	catalog, _ := registry.New()
	p := testPipeline(t, vendor, &fakeAuth{}, catalog)

	snap, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snap.Signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(snap.Signals))
	}
	if snap.Signals[0].Kind != models.SignalPriceMove || snap.Signals[0].Direction != models.DirectionDown {
		t.Fatalf("unexpected signal %v", snap.Signals[0])
	}
}

func TestRunAuthFailureAborts(t *testing.T) {
	vendor := &fakeVendor{}
	catalog, _ := registry.New()
	p := testPipeline(t, vendor, &fakeAuth{err: &ifind.AuthError{Msg: "refresh_token rejected"}}, catalog)

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected auth failure to abort the run")
	}
	if p.Latest() != nil {
		t.Fatalf("no snapshot expected after aborted run")
	}
}

func TestRunQuotaFallsBackToCache(t *testing.T) {
	catalog, err := registry.New(
		registry.EDBSpec("lme_nickel_inventory", "S004303610", "ton", "inventory"),
		registry.EDBSpec("us_dollar_index", "G002600885", "point", "macro"),
	)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	// first pass fills the cache for both indicators
	vendor := &fakeVendor{
		history: map[string][]models.SeriesPoint{
			"NI00.SHF": dailyPoints([]string{"2026-01-06"}, []float64{100}),
		},
		edb: map[string][]models.IndicatorObservation{
			"lme_nickel_inventory": {{Date: "2026-01-05", Value: 42000}},
			"us_dollar_index":      {{Date: "2026-01-05", Value: 101.2}},
		},
	}
	p := testPipeline(t, vendor, &fakeAuth{}, catalog)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	// second pass: one indicator is quota-blocked, the other still works
	vendor.edbErr = map[string]error{
		"lme_nickel_inventory": &ifind.QuotaExceededError{Endpoint: "edb_service", Msg: "quota exceeded"},
	}
	snap, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snap.Indicators) != 2 {
		t.Fatalf("expected 2 indicators, got %d", len(snap.Indicators))
	}

	blocked := snap.Indicators[0]
	if blocked.Spec.Name != "lme_nickel_inventory" {
		t.Fatalf("catalog order changed: %s", blocked.Spec.Name)
	}
	if blocked.Freshness != models.FreshnessStale {
		t.Fatalf("expected stale fallback, got %s", blocked.Freshness)
	}
	if len(blocked.Observations) != 1 || blocked.AsOf != "2026-01-05" {
		t.Fatalf("cached observations not served: %v", blocked)
	}
	if snap.Indicators[1].Freshness != models.FreshnessFresh {
		t.Fatalf("unblocked indicator degraded: %s", snap.Indicators[1].Freshness)
	}
}

func TestRunEmptyRangeWithNoTradingDaysIsFresh(t *testing.T) {
	catalog, _ := registry.New()
	vendor := &fakeVendor{
		history: map[string][]models.SeriesPoint{
			"NI00.SHF": dailyPoints([]string{"2026-01-06"}, []float64{100}),
		},
	}
	p := testPipeline(t, vendor, &fakeAuth{}, catalog)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	// vendor now returns nothing and the calendar confirms a holiday range
	vendor.history = nil
	vendor.tradeDates = nil
	snap, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	res := snap.Instruments[0]
	if res.Freshness != models.FreshnessFresh {
		t.Fatalf("holiday cache should stay fresh, got %s", res.Freshness)
	}
	if len(res.Points) != 1 {
		t.Fatalf("cached points not served: %v", res.Points)
	}
}

func TestRunTransportFailureMarksStale(t *testing.T) {
	catalog, _ := registry.New()
	vendor := &fakeVendor{
		history: map[string][]models.SeriesPoint{
			"NI00.SHF": dailyPoints([]string{"2026-01-06"}, []float64{100}),
		},
	}
	p := testPipeline(t, vendor, &fakeAuth{}, catalog)
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("seed run: %v", err)
	}

	vendor.historyErr = &ifind.TransportError{Endpoint: "cmd_history_quotation", Err: context.DeadlineExceeded}
	snap, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	res := snap.Instruments[0]
	if res.Freshness != models.FreshnessStale {
		t.Fatalf("expected stale, got %s", res.Freshness)
	}
	if res.AsOf != "2026-01-06" {
		t.Fatalf("unexpected as_of %q", res.AsOf)
	}
}

func TestRunNoCacheMarksMissing(t *testing.T) {
	catalog, _ := registry.New()
	vendor := &fakeVendor{
		historyErr: &ifind.TransportError{Endpoint: "cmd_history_quotation", Err: context.DeadlineExceeded},
	}
	p := testPipeline(t, vendor, &fakeAuth{}, catalog)

	snap, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	res := snap.Instruments[0]
	if res.Freshness != models.FreshnessMissing {
		t.Fatalf("expected missing, got %s", res.Freshness)
	}
	if res.Error == "" {
		t.Fatalf("expected fetch error recorded on result")
	}
}

func TestRunWindowBounds(t *testing.T) {
	// the fetch window must end today and span the lookback
	from := util.DaysAgo(30)
	to := util.Today()
	if !(from < to) {
		t.Fatalf("window inverted: %s .. %s", from, to)
	}
}
