package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/registry"
	"MacroPull/internal/service/ifind"
	xlogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"
)

// Pipeline runs one sequential acquisition pass: authenticate, fetch the
// watch list and every catalog indicator, merge into the on-disk cache, then
// evaluate alerts over the merged series. Fetch failures are isolated per
// instrument and per indicator; only a rejected refresh token aborts the run.
// Concurrent invocations are not supported: the cache assumes one pipeline
// instance at a time.
type Pipeline struct {
	auth     drepo.Authenticator
	vendor   drepo.VendorAPI
	store    drepo.SeriesStore
	catalog  *registry.Registry
	alerts   *AlertEngine
	metrics  drepo.Metrics
	log      *xlogger.Logger
	watch    []string
	lookback int // days of history per fetch

	mu   sync.RWMutex
	last *models.Snapshot
}

func NewPipeline(
	auth drepo.Authenticator,
	vendor drepo.VendorAPI,
	store drepo.SeriesStore,
	catalog *registry.Registry,
	alerts *AlertEngine,
	metrics drepo.Metrics,
	log *xlogger.Logger,
	watch []string,
	lookbackDays int,
) *Pipeline {
	return &Pipeline{
		auth:     auth,
		vendor:   vendor,
		store:    store,
		catalog:  catalog,
		alerts:   alerts,
		metrics:  metrics,
		log:      log,
		watch:    watch,
		lookback: lookbackDays,
	}
}

// Run executes one full pass and returns the best-effort snapshot. The
// returned error is non-nil only when the run cannot proceed at all
// (credential rejected).
func (p *Pipeline) Run(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()

	// one credential check up front so a dead refresh token fails fast
	if _, err := p.auth.EnsureValid(ctx); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	from := util.DaysAgo(p.lookback)
	to := util.Today()
	snap := &models.Snapshot{GeneratedAt: time.Now()}

	instruments, err := p.collectInstruments(ctx, from, to)
	if err != nil {
		return nil, err
	}
	snap.Instruments = instruments
	for _, res := range instruments {
		if len(res.Points) > 0 {
			p.metrics.RecordLastClose(res.Code, res.Points[len(res.Points)-1].Close)
		}
		for _, sig := range p.alerts.EvaluateSeries(res.Code, res.Points) {
			p.metrics.RecordAlert(sig.Code, string(sig.Kind))
			p.log.Warn("alert raised",
				xlogger.String("code", sig.Code),
				xlogger.String("kind", string(sig.Kind)),
				xlogger.Any("magnitude_pct", sig.MagnitudePct))
			snap.Signals = append(snap.Signals, sig)
		}
	}

	for spec := range p.catalog.All() {
		res, err := p.collectIndicator(ctx, spec, from, to)
		if err != nil {
			return nil, err
		}
		snap.Indicators = append(snap.Indicators, res)
	}

	if usage, err := p.vendor.DataUsage(ctx); err == nil {
		snap.Usage = usage
	} else {
		p.log.Debug("data usage unavailable", xlogger.Error(err))
	}

	p.metrics.RecordLatency("pipeline_run", time.Since(start).Seconds())
	p.log.Info("pipeline run complete",
		xlogger.Int("instruments", len(snap.Instruments)),
		xlogger.Int("indicators", len(snap.Indicators)),
		xlogger.Int("signals", len(snap.Signals)),
		xlogger.Duration("elapsed", time.Since(start)))

	p.mu.Lock()
	p.last = snap
	p.mu.Unlock()
	return snap, nil
}

// Latest returns the most recent snapshot, or nil before the first run.
func (p *Pipeline) Latest() *models.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Store exposes the series cache to the report boundary.
func (p *Pipeline) Store() drepo.SeriesStore { return p.store }

// Catalog exposes the indicator registry to the report boundary.
func (p *Pipeline) Catalog() *registry.Registry { return p.catalog }

// collectInstruments fetches the daily watch list in one batched call, merges
// the result per instrument, and falls back to the cache on recoverable
// failures. Staleness is acceptable, silence is not.
func (p *Pipeline) collectInstruments(ctx context.Context, from, to string) ([]models.InstrumentResult, error) {
	fetched, fetchErr := p.vendor.HistoryQuotes(ctx, p.watch, models.GranularityDaily, from, to)
	if fatal := asFatal(fetchErr); fatal != nil {
		return nil, fatal
	}
	if fetchErr != nil {
		p.recordFetchError("cmd_history_quotation", fetchErr)
	} else {
		p.metrics.RecordFetch("cmd_history_quotation", "ok")
	}

	var emptyIsLegit bool
	if isEmptyResult(fetchErr) {
		emptyIsLegit = p.noTradingDays(ctx, from, to)
	}

	results := make([]models.InstrumentResult, 0, len(p.watch))
	for _, code := range p.watch {
		code = strings.ToUpper(code)
		key := models.SeriesKey{Code: code, Granularity: models.GranularityDaily}
		res := models.InstrumentResult{Code: code}

		if fresh, ok := fetched[code]; ok {
			merged, err := p.store.Merge(key, fresh)
			if err != nil {
				p.log.Error("cache merge failed", xlogger.String("series", key.String()), xlogger.Error(err))
				res.Points = fresh
				res.Freshness = models.FreshnessFresh
				res.Error = err.Error()
			} else {
				res.Points = merged
				res.Freshness = models.FreshnessFresh
			}
			results = append(results, res)
			continue
		}

		// vendor gave nothing for this code: fall back to the cache
		cached, err := p.store.Load(key)
		switch {
		case err != nil:
			res.Freshness = models.FreshnessMissing
			res.Error = err.Error()
		case len(cached) == 0:
			res.Freshness = models.FreshnessMissing
			if fetchErr != nil {
				res.Error = fetchErr.Error()
			}
		default:
			res.Points = cached
			res.AsOf = cached[len(cached)-1].Date
			if emptyIsLegit {
				// no trading days in range, cache is current
				res.Freshness = models.FreshnessFresh
			} else {
				res.Freshness = models.FreshnessStale
				p.log.Warn("using stale cache",
					xlogger.String("series", key.String()),
					xlogger.String("as_of", res.AsOf))
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// collectIndicator fetches one catalog entry. Quota exhaustion, a closed
// market, or a transport failure degrade this entry to cache fallback without
// touching the rest of the run.
func (p *Pipeline) collectIndicator(ctx context.Context, spec models.IndicatorSpec, from, to string) (models.IndicatorResult, error) {
	res := models.IndicatorResult{Spec: spec}

	var fresh []models.IndicatorObservation
	var fetchErr error
	switch spec.Source {
	case models.SourceEDB:
		fresh, fetchErr = p.vendor.EDBSeries(ctx, spec.Name, spec.SourceID, from, to)
		if fatal := asFatal(fetchErr); fatal != nil {
			return res, fatal
		}
		if fetchErr != nil {
			p.recordFetchError("edb_service", fetchErr)
		} else {
			p.metrics.RecordFetch("edb_service", "ok")
		}
	case models.SourceFuturesQuote:
		fresh, fetchErr = p.fetchFuturesObservations(ctx, spec, from, to)
		if fatal := asFatal(fetchErr); fatal != nil {
			return res, fatal
		}
	default:
		res.Freshness = models.FreshnessMissing
		res.Error = fmt.Sprintf("unsupported source %q", spec.Source)
		return res, nil
	}

	if fetchErr == nil || isEmptyResult(fetchErr) {
		merged, err := p.store.MergeObservations(spec.Name, fresh)
		if err != nil {
			res.Observations = fresh
			res.Freshness = models.FreshnessFresh
			res.Error = err.Error()
			return res, nil
		}
		res.Observations = merged
		res.Freshness = models.FreshnessFresh
		if len(merged) > 0 {
			res.AsOf = merged[len(merged)-1].Date
		}
		return res, nil
	}

	// recoverable failure: serve the last persisted observations
	cached, err := p.store.LoadObservations(spec.Name)
	if err != nil || len(cached) == 0 {
		res.Freshness = models.FreshnessMissing
		res.Error = fetchErr.Error()
		return res, nil
	}
	res.Observations = cached
	res.Freshness = models.FreshnessStale
	res.AsOf = cached[len(cached)-1].Date
	res.Error = fetchErr.Error()

	var quota *ifind.QuotaExceededError
	if errors.As(fetchErr, &quota) {
		p.log.Warn("EDB quota exhausted, serving cache",
			xlogger.String("indicator", spec.Name),
			xlogger.String("as_of", res.AsOf))
	} else {
		p.log.Warn("indicator fetch failed, serving cache",
			xlogger.String("indicator", spec.Name),
			xlogger.Error(fetchErr))
	}
	return res, nil
}

// fetchFuturesObservations pulls quote history for a futures-sourced
// indicator, persists the OHLCV series, and reports the closes as the
// indicator's observations.
func (p *Pipeline) fetchFuturesObservations(ctx context.Context, spec models.IndicatorSpec, from, to string) ([]models.IndicatorObservation, error) {
	code := strings.ToUpper(spec.SourceID)
	fetched, err := p.vendor.HistoryQuotes(ctx, []string{code}, models.GranularityDaily, from, to)
	if err != nil {
		p.recordFetchError("cmd_history_quotation", err)
		return nil, err
	}
	p.metrics.RecordFetch("cmd_history_quotation", "ok")

	points := fetched[code]
	key := models.SeriesKey{Code: code, Granularity: models.GranularityDaily}
	if merged, mergeErr := p.store.Merge(key, points); mergeErr == nil {
		points = merged
	} else {
		p.log.Error("cache merge failed", xlogger.String("series", key.String()), xlogger.Error(mergeErr))
	}

	obs := make([]models.IndicatorObservation, 0, len(points))
	for _, pt := range points {
		obs = append(obs, models.IndicatorObservation{
			Indicator: spec.Name,
			Date:      pt.Date,
			Value:     pt.Close,
		})
	}
	return obs, nil
}

// noTradingDays asks the trading calendar whether the range is legitimately
// empty. A calendar failure counts as "unknown", i.e. not legit.
func (p *Pipeline) noTradingDays(ctx context.Context, from, to string) bool {
	dates, err := p.vendor.TradeDates(ctx, from, to)
	if err != nil {
		p.log.Debug("trade calendar unavailable", xlogger.Error(err))
		return false
	}
	return len(dates) == 0
}

func (p *Pipeline) recordFetchError(endpoint string, err error) {
	p.metrics.RecordFetch(endpoint, errorOutcome(err))
}

// asFatal surfaces only errors that must abort the whole run.
func asFatal(err error) error {
	var auth *ifind.AuthError
	if errors.As(err, &auth) {
		return fmt.Errorf("vendor rejected credentials: %w", err)
	}
	return nil
}

func isEmptyResult(err error) bool {
	var empty *ifind.EmptyResultError
	return errors.As(err, &empty)
}

func errorOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isEmptyResult(err):
		return "empty"
	default:
		var quota *ifind.QuotaExceededError
		var closed *ifind.MarketClosedError
		if errors.As(err, &quota) {
			return "quota_exceeded"
		}
		if errors.As(err, &closed) {
			return "market_closed"
		}
		return "error"
	}
}
