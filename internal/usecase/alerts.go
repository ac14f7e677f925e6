package usecase

import (
	"math"

	"MacroPull/internal/domain/models"
)

// AlertThresholds are day-over-day percentage moves that trigger a signal.
// Passed in explicitly so the engine stays testable without global config.
type AlertThresholds struct {
	PricePct        float64
	OpenInterestPct float64
}

// AlertEngine compares consecutive daily observations per instrument and
// raises threshold-crossing signals. Signals are recomputed each pass.
type AlertEngine struct {
	thresholds AlertThresholds
}

func NewAlertEngine(thresholds AlertThresholds) *AlertEngine {
	return &AlertEngine{thresholds: thresholds}
}

// Evaluate checks one (prior, current) pair. A missing prior raises nothing:
// absence of history is not itself anomalous. Price and open-interest signals
// are independent and may both fire.
func (e *AlertEngine) Evaluate(code string, prior, current *models.SeriesPoint) []models.AlertSignal {
	if prior == nil || current == nil {
		return nil
	}

	var signals []models.AlertSignal

	if prior.Close > 0 {
		pct := (current.Close - prior.Close) / prior.Close * 100
		if math.Abs(pct) >= e.thresholds.PricePct {
			signals = append(signals, models.AlertSignal{
				Code:         code,
				Kind:         models.SignalPriceMove,
				MagnitudePct: pct,
				Direction:    direction(pct),
				ObservedAt:   current.Date,
			})
		}
	}

	// zero prior open interest means no meaningful base, not an anomaly
	if prior.OpenInterest > 0 {
		pct := float64(current.OpenInterest-prior.OpenInterest) / float64(prior.OpenInterest) * 100
		if math.Abs(pct) >= e.thresholds.OpenInterestPct {
			signals = append(signals, models.AlertSignal{
				Code:         code,
				Kind:         models.SignalOpenInterestMove,
				MagnitudePct: pct,
				Direction:    direction(pct),
				ObservedAt:   current.Date,
			})
		}
	}

	return signals
}

// EvaluateSeries applies Evaluate to the two most recent points of a daily
// series.
func (e *AlertEngine) EvaluateSeries(code string, points []models.SeriesPoint) []models.AlertSignal {
	if len(points) < 2 {
		return nil
	}
	prior := points[len(points)-2]
	current := points[len(points)-1]
	return e.Evaluate(code, &prior, &current)
}

func direction(pct float64) models.Direction {
	if pct >= 0 {
		return models.DirectionUp
	}
	return models.DirectionDown
}
