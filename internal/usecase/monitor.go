package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	icache "MacroPull/internal/service/cache"
	"MacroPull/internal/service/ifind"
	xlogger "MacroPull/pkg/logger"
)

// Session is one intraday trading window, bounds in "15:04" local time.
type Session struct {
	Start string
	End   string
}

// DefaultSessions are the SHFE day and night windows.
var DefaultSessions = []Session{
	{Start: "09:00", End: "10:15"},
	{Start: "10:30", End: "11:30"},
	{Start: "13:30", End: "15:00"},
	{Start: "21:00", End: "23:00"},
}

// Broadcaster pushes monitor updates to connected report clients.
type Broadcaster interface {
	Broadcast(v any)
}

// MonitorUpdate is one poll result pushed over the live feed.
type MonitorUpdate struct {
	At      time.Time                       `json:"at"`
	Quotes  map[string]models.RealtimeQuote `json:"quotes"`
	Signals []models.AlertSignal            `json:"signals,omitempty"`
	Stale   bool                            `json:"stale"` // true when serving cache fallback
}

// Monitor polls realtime quotes during trading sessions, raises intraday
// threshold signals with a per-(instrument,kind) cooldown, and appends each
// poll to a JSONL log for the day.
type Monitor struct {
	vendor     drepo.VendorAPI
	alerts     *AlertEngine
	metrics    drepo.Metrics
	log        *xlogger.Logger
	broadcast  Broadcaster
	watch      []string
	sessions   []Session
	interval   time.Duration
	cooldown   time.Duration
	logDir     string
	lastQuotes map[string]models.RealtimeQuote
	muted      *icache.TTLCache // cooldown: key present = suppressed
	now        func() time.Time
}

func NewMonitor(
	vendor drepo.VendorAPI,
	alerts *AlertEngine,
	metrics drepo.Metrics,
	log *xlogger.Logger,
	broadcast Broadcaster,
	watch []string,
	sessions []Session,
	interval, cooldown time.Duration,
	logDir string,
) *Monitor {
	if len(sessions) == 0 {
		sessions = DefaultSessions
	}
	return &Monitor{
		vendor:     vendor,
		alerts:     alerts,
		metrics:    metrics,
		log:        log,
		broadcast:  broadcast,
		watch:      watch,
		sessions:   sessions,
		interval:   interval,
		cooldown:   cooldown,
		logDir:     logDir,
		lastQuotes: make(map[string]models.RealtimeQuote),
		muted:      icache.NewTTLCache(),
		now:        time.Now,
	}
}

// Start blocks polling until the context is cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.Info("realtime monitor started",
		xlogger.Strings("watch", m.watch),
		xlogger.Duration("interval", m.interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !m.inSession(m.now()) {
				continue
			}
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	quotes, err := m.vendor.RealtimeQuotes(ctx, m.watch)
	if err != nil {
		var closed *ifind.MarketClosedError
		if errors.As(err, &closed) {
			// expected at session edges, keep serving the last snapshot
			m.metrics.RecordFetch("real_time_quotation", "market_closed")
			if len(m.lastQuotes) > 0 && m.broadcast != nil {
				m.broadcast.Broadcast(MonitorUpdate{At: m.now(), Quotes: m.lastQuotes, Stale: true})
			}
			return
		}
		m.metrics.RecordFetch("real_time_quotation", "error")
		m.log.Warn("realtime fetch failed", xlogger.Error(err))
		return
	}
	m.metrics.RecordFetch("real_time_quotation", "ok")

	var signals []models.AlertSignal
	for code, q := range quotes {
		m.metrics.RecordLastClose(code, q.Latest)
		signals = append(signals, m.checkQuote(code, q)...)
		m.lastQuotes[code] = q
	}
	for _, sig := range signals {
		m.metrics.RecordAlert(sig.Code, string(sig.Kind))
		m.log.Warn("intraday alert",
			xlogger.String("code", sig.Code),
			xlogger.String("kind", string(sig.Kind)),
			xlogger.Any("magnitude_pct", sig.MagnitudePct))
	}

	update := MonitorUpdate{At: m.now(), Quotes: quotes, Signals: signals}
	if m.broadcast != nil {
		m.broadcast.Broadcast(update)
	}
	m.appendLog(update)
}

// checkQuote raises intraday signals for one instrument against its previous
// poll, respecting the per-(instrument,kind) cooldown.
func (m *Monitor) checkQuote(code string, q models.RealtimeQuote) []models.AlertSignal {
	var signals []models.AlertSignal
	observedAt := m.now().Format("2006-01-02")

	// day change comes straight from the vendor's changeRatio
	if math.Abs(q.ChangeRatio) >= m.alerts.thresholds.PricePct && m.arm(code, models.SignalPriceMove) {
		signals = append(signals, models.AlertSignal{
			Code:         code,
			Kind:         models.SignalPriceMove,
			MagnitudePct: q.ChangeRatio,
			Direction:    direction(q.ChangeRatio),
			ObservedAt:   observedAt,
		})
	}

	if prev, ok := m.lastQuotes[code]; ok && prev.OpenInterest > 0 {
		pct := float64(q.OpenInterest-prev.OpenInterest) / float64(prev.OpenInterest) * 100
		if math.Abs(pct) >= m.alerts.thresholds.OpenInterestPct && m.arm(code, models.SignalOpenInterestMove) {
			signals = append(signals, models.AlertSignal{
				Code:         code,
				Kind:         models.SignalOpenInterestMove,
				MagnitudePct: pct,
				Direction:    direction(pct),
				ObservedAt:   observedAt,
			})
		}
	}

	// touching the intraday extremes (within 0.1%)
	if q.High > 0 && q.Latest >= q.High*0.999 && m.arm(code, models.SignalIntradayHigh) {
		signals = append(signals, models.AlertSignal{
			Code:       code,
			Kind:       models.SignalIntradayHigh,
			Direction:  models.DirectionUp,
			ObservedAt: observedAt,
		})
	}
	if q.Low > 0 && q.Latest <= q.Low*1.001 && m.arm(code, models.SignalIntradayLow) {
		signals = append(signals, models.AlertSignal{
			Code:       code,
			Kind:       models.SignalIntradayLow,
			Direction:  models.DirectionDown,
			ObservedAt: observedAt,
		})
	}

	return signals
}

// arm reports whether a signal kind may fire for code, and starts its
// cooldown when it may.
func (m *Monitor) arm(code string, kind models.SignalKind) bool {
	key := code + ":" + string(kind)
	if _, muted := m.muted.Get(key); muted {
		return false
	}
	m.muted.Set(key, struct{}{}, m.cooldown)
	return true
}

func (m *Monitor) inSession(now time.Time) bool {
	clock := now.Format("15:04")
	for _, s := range m.sessions {
		if s.Start <= clock && clock <= s.End {
			return true
		}
	}
	return false
}

func (m *Monitor) appendLog(update MonitorUpdate) {
	if m.logDir == "" {
		return
	}
	if err := os.MkdirAll(m.logDir, 0o755); err != nil {
		return
	}
	path := filepath.Join(m.logDir, fmt.Sprintf("realtime_%s.jsonl", update.At.Format("2006-01-02")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		m.log.Debug("realtime log open failed", xlogger.Error(err))
		return
	}
	defer f.Close()
	b, err := json.Marshal(update)
	if err != nil {
		return
	}
	if _, err := f.Write(append(b, '\n')); err != nil {
		m.log.Debug("realtime log write failed", xlogger.Error(err))
	}
}
