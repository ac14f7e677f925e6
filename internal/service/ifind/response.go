package ifind

import (
	"fmt"
	"strconv"
	"strings"

	"MacroPull/internal/domain/models"
)

// envelope is the common shape of every vendor response. The per-indicator
// columns under "table" arrive as numbers, numeric strings, empty strings or
// nulls depending on the endpoint, so they decode as loose values and are
// coerced on access.
type envelope struct {
	ErrorCode int     `json:"errorcode"`
	ErrMsg    string  `json:"errmsg"`
	Tables    []table `json:"tables"`
}

type table struct {
	ThsCode string           `json:"thscode"`
	Time    []string         `json:"time"`
	Table   map[string][]any `json:"table"`
}

func vendorError(env *envelope) error {
	return fmt.Errorf("vendor errorcode %d: %s", env.ErrorCode, env.ErrMsg)
}

// empty reports whether the envelope carries no rows at all.
func (e *envelope) empty() bool {
	for _, t := range e.Tables {
		if len(t.Time) > 0 {
			return false
		}
	}
	return true
}

// column returns the coerced float at row i of the named column, or ok=false
// when the cell is missing or not numeric.
func (t *table) column(name string, i int) (float64, bool) {
	vals, ok := t.Table[name]
	if !ok || i >= len(vals) {
		return 0, false
	}
	return asFloat(vals[i])
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// points converts one quote table into ordered series points. Rows with no
// close are skipped (the vendor pads non-trading days with blanks).
func (t *table) points() []models.SeriesPoint {
	pts := make([]models.SeriesPoint, 0, len(t.Time))
	for i, date := range t.Time {
		closePx, ok := t.column("close", i)
		if !ok {
			continue
		}
		p := models.SeriesPoint{Date: normalizeDate(date), Close: closePx}
		if v, ok := t.column("open", i); ok {
			p.Open = v
		}
		if v, ok := t.column("high", i); ok {
			p.High = v
		}
		if v, ok := t.column("low", i); ok {
			p.Low = v
		}
		if v, ok := t.column("volume", i); ok {
			p.Volume = int64(v)
		}
		if v, ok := t.column("openInterest", i); ok {
			p.OpenInterest = int64(v)
		}
		pts = append(pts, p)
	}
	return pts
}

// quote converts a realtime table, which carries a single row per instrument.
func (t *table) quote() (models.RealtimeQuote, bool) {
	latest, ok := t.column("latest", 0)
	if !ok {
		return models.RealtimeQuote{}, false
	}
	q := models.RealtimeQuote{
		Code:   strings.ToUpper(t.ThsCode),
		Latest: latest,
	}
	if len(t.Time) > 0 {
		q.Time = t.Time[0]
	}
	if v, ok := t.column("open", 0); ok {
		q.Open = v
	}
	if v, ok := t.column("high", 0); ok {
		q.High = v
	}
	if v, ok := t.column("low", 0); ok {
		q.Low = v
	}
	if v, ok := t.column("volume", 0); ok {
		q.Volume = int64(v)
	}
	if v, ok := t.column("openInterest", 0); ok {
		q.OpenInterest = int64(v)
	}
	if v, ok := t.column("changeRatio", 0); ok {
		q.ChangeRatio = v
	}
	return q, true
}

// observations extracts the dated values keyed by the EDB indicator ID.
func (t *table) observations(indicator, indicatorID string) []models.IndicatorObservation {
	obs := make([]models.IndicatorObservation, 0, len(t.Time))
	for i, date := range t.Time {
		v, ok := t.column(indicatorID, i)
		if !ok {
			continue
		}
		obs = append(obs, models.IndicatorObservation{
			Indicator: indicator,
			Date:      normalizeDate(date),
			Value:     v,
		})
	}
	return obs
}

// normalizeDate trims a trailing time component the vendor sometimes appends
// to daily timestamps.
func normalizeDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}
