package csvstore

import (
	"os"
	"path/filepath"
	"testing"

	"MacroPull/internal/domain/models"
	xlogger "MacroPull/pkg/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	s, err := New(t.TempDir(), log)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return s
}

func dailyKey(code string) models.SeriesKey {
	return models.SeriesKey{Code: code, Granularity: models.GranularityDaily}
}

func TestMergeRoundTrip(t *testing.T) {
	s := testStore(t)
	key := dailyKey("NI00.SHF")
	points := []models.SeriesPoint{
		{Date: "2026-01-05", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10, OpenInterest: 100},
		{Date: "2026-01-06", Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20, OpenInterest: 110},
	}

	merged, err := s.Merge(key, points)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 points, got %d", len(merged))
	}

	loaded, err := s.Load(key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 points, got %d", len(loaded))
	}
	if loaded[0] != points[0] || loaded[1] != points[1] {
		t.Fatalf("round trip mismatch: %v", loaded)
	}
}

func TestMergeIdempotent(t *testing.T) {
	s := testStore(t)
	key := dailyKey("NI00.SHF")
	points := []models.SeriesPoint{
		{Date: "2026-01-05", Close: 1.5, Volume: 10, OpenInterest: 100},
	}

	if _, err := s.Merge(key, points); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	merged, err := s.Merge(key, points)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if len(merged) != 1 {
		t.Fatalf("expected 1 point after repeat merge, got %d", len(merged))
	}
}

func TestMergeRetainsAbsentDates(t *testing.T) {
	s := testStore(t)
	key := dailyKey("NI00.SHF")

	if _, err := s.Merge(key, []models.SeriesPoint{
		{Date: "2026-01-05", Close: 1.5},
		{Date: "2026-01-06", Close: 2.5},
	}); err != nil {
		t.Fatalf("seed merge: %v", err)
	}

	// later pull covers only the newer date
	merged, err := s.Merge(key, []models.SeriesPoint{
		{Date: "2026-01-06", Close: 2.5},
		{Date: "2026-01-07", Close: 3.0},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 points, got %d", len(merged))
	}
	if merged[0].Date != "2026-01-05" || merged[2].Date != "2026-01-07" {
		t.Fatalf("unexpected order: %v", merged)
	}
}

func TestMergeRestatementOverwrites(t *testing.T) {
	s := testStore(t)
	key := dailyKey("NI00.SHF")

	if _, err := s.Merge(key, []models.SeriesPoint{{Date: "2026-01-05", Close: 1.5}}); err != nil {
		t.Fatalf("seed merge: %v", err)
	}
	merged, err := s.Merge(key, []models.SeriesPoint{{Date: "2026-01-05", Close: 1.7}})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 1 {
		t.Fatalf("expected 1 point, got %d", len(merged))
	}
	if merged[0].Close != 1.7 {
		t.Fatalf("expected restated close 1.7, got %f", merged[0].Close)
	}
}

func TestLoadMissingSeries(t *testing.T) {
	s := testStore(t)

	points, err := s.Load(dailyKey("ZN00.SHF"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(points) != 0 {
		t.Fatalf("expected empty, got %d", len(points))
	}
}

func TestSeriesFileNaming(t *testing.T) {
	s := testStore(t)
	key := dailyKey("NI00.SHF")

	if _, err := s.Merge(key, []models.SeriesPoint{{Date: "2026-01-05", Close: 1}}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.dir, "NI00_SHF_daily.csv")); err != nil {
		t.Fatalf("expected sanitized file name: %v", err)
	}
}

func TestObservationsRoundTrip(t *testing.T) {
	s := testStore(t)
	obs := []models.IndicatorObservation{
		{Date: "2026-01-05", Value: 42.5},
		{Date: "2026-01-06", Value: 43.0},
	}

	if _, err := s.MergeObservations("lme_nickel_inventory", obs); err != nil {
		t.Fatalf("merge: %v", err)
	}
	loaded, err := s.LoadObservations("lme_nickel_inventory")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(loaded))
	}
	if loaded[0].Indicator != "lme_nickel_inventory" {
		t.Fatalf("indicator not set on load: %q", loaded[0].Indicator)
	}
	if loaded[1].Value != 43.0 {
		t.Fatalf("unexpected value %f", loaded[1].Value)
	}
}

func TestObservationRestatement(t *testing.T) {
	s := testStore(t)

	if _, err := s.MergeObservations("us_dollar_index", []models.IndicatorObservation{{Date: "2026-01-05", Value: 100}}); err != nil {
		t.Fatalf("seed merge: %v", err)
	}
	merged, err := s.MergeObservations("us_dollar_index", []models.IndicatorObservation{{Date: "2026-01-05", Value: 101}})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 1 || merged[0].Value != 101 {
		t.Fatalf("expected restated value 101, got %v", merged)
	}
}
