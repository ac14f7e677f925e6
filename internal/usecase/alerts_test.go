package usecase

import (
	"math"
	"testing"

	"MacroPull/internal/domain/models"
)

func testEngine() *AlertEngine {
	return NewAlertEngine(AlertThresholds{PricePct: 3.0, OpenInterestPct: 5.0})
}

func TestEvaluatePriceMoveUp(t *testing.T) {
	e := testEngine()
	prior := &models.SeriesPoint{Date: "2026-01-05", Close: 100, OpenInterest: 1000}
	current := &models.SeriesPoint{Date: "2026-01-06", Close: 103, OpenInterest: 1000}

	signals := e.Evaluate("NI00.SHF", prior, current)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	s := signals[0]
	if s.Kind != models.SignalPriceMove {
		t.Fatalf("unexpected kind %s", s.Kind)
	}
	if s.Direction != models.DirectionUp {
		t.Fatalf("unexpected direction %s", s.Direction)
	}
	if math.Abs(s.MagnitudePct-3.0) > 1e-9 {
		t.Fatalf("unexpected magnitude %f", s.MagnitudePct)
	}
	if s.ObservedAt != "2026-01-06" {
		t.Fatalf("unexpected observed_at %s", s.ObservedAt)
	}
}

func TestEvaluateOpenInterestDown(t *testing.T) {
	e := testEngine()
	prior := &models.SeriesPoint{Date: "2026-01-05", Close: 100, OpenInterest: 1000}
	current := &models.SeriesPoint{Date: "2026-01-06", Close: 101, OpenInterest: 950}

	signals := e.Evaluate("NI00.SHF", prior, current)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	s := signals[0]
	if s.Kind != models.SignalOpenInterestMove {
		t.Fatalf("unexpected kind %s", s.Kind)
	}
	if s.Direction != models.DirectionDown {
		t.Fatalf("unexpected direction %s", s.Direction)
	}
	if math.Abs(s.MagnitudePct-(-5.0)) > 1e-9 {
		t.Fatalf("unexpected magnitude %f", s.MagnitudePct)
	}
}

func TestEvaluateBothFire(t *testing.T) {
	e := testEngine()
	prior := &models.SeriesPoint{Date: "2026-01-05", Close: 100, OpenInterest: 1000}
	current := &models.SeriesPoint{Date: "2026-01-06", Close: 90, OpenInterest: 1100}

	signals := e.Evaluate("NI00.SHF", prior, current)
	if len(signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(signals))
	}
	if signals[0].Kind != models.SignalPriceMove || signals[1].Kind != models.SignalOpenInterestMove {
		t.Fatalf("unexpected kinds %s %s", signals[0].Kind, signals[1].Kind)
	}
}

func TestEvaluateBelowThreshold(t *testing.T) {
	e := testEngine()
	prior := &models.SeriesPoint{Date: "2026-01-05", Close: 100, OpenInterest: 1000}
	current := &models.SeriesPoint{Date: "2026-01-06", Close: 101, OpenInterest: 1010}

	if signals := e.Evaluate("NI00.SHF", prior, current); len(signals) != 0 {
		t.Fatalf("expected no signals, got %d", len(signals))
	}
}

func TestEvaluateZeroPriorOpenInterest(t *testing.T) {
	e := testEngine()
	prior := &models.SeriesPoint{Date: "2026-01-05", Close: 100, OpenInterest: 0}
	current := &models.SeriesPoint{Date: "2026-01-06", Close: 100, OpenInterest: 5000}

	if signals := e.Evaluate("NI00.SHF", prior, current); len(signals) != 0 {
		t.Fatalf("expected no signals on zero prior open interest, got %d", len(signals))
	}
}

func TestEvaluateMissingPrior(t *testing.T) {
	e := testEngine()
	current := &models.SeriesPoint{Date: "2026-01-06", Close: 100, OpenInterest: 1000}

	if signals := e.Evaluate("NI00.SHF", nil, current); signals != nil {
		t.Fatalf("expected nil, got %v", signals)
	}
}

func TestEvaluateSeriesUsesLastPair(t *testing.T) {
	e := testEngine()
	points := []models.SeriesPoint{
		{Date: "2026-01-02", Close: 50, OpenInterest: 500},
		{Date: "2026-01-05", Close: 100, OpenInterest: 1000},
		{Date: "2026-01-06", Close: 104, OpenInterest: 1000},
	}

	signals := e.EvaluateSeries("NI00.SHF", points)
	if len(signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(signals))
	}
	if math.Abs(signals[0].MagnitudePct-4.0) > 1e-9 {
		t.Fatalf("unexpected magnitude %f", signals[0].MagnitudePct)
	}
}

func TestEvaluateSeriesTooShort(t *testing.T) {
	e := testEngine()
	points := []models.SeriesPoint{{Date: "2026-01-06", Close: 100, OpenInterest: 1000}}

	if signals := e.EvaluateSeries("NI00.SHF", points); signals != nil {
		t.Fatalf("expected nil, got %v", signals)
	}
}
