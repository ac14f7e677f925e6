package csvstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"MacroPull/internal/domain/models"
	drepo "MacroPull/internal/domain/repository"
	xlogger "MacroPull/pkg/logger"
)

var seriesHeader = []string{"date", "open", "high", "low", "close", "volume", "openInterest"}
var observationHeader = []string{"date", "value"}

// Store keeps one CSV file per series under a single data directory. Merge is
// a partial update by date: fresh rows overwrite existing dates, rows absent
// from the update are retained, and the file is replaced atomically so a
// failed run never leaves a half-written cache.
type Store struct {
	dir string
	log *xlogger.Logger
}

func New(dir string, log *xlogger.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

func (s *Store) seriesPath(key models.SeriesKey) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.csv", safeName(key.Code), key.Granularity))
}

func (s *Store) observationPath(indicator string) string {
	return filepath.Join(s.dir, fmt.Sprintf("edb_%s.csv", safeName(indicator)))
}

func safeName(name string) string {
	r := strings.NewReplacer(".", "_", "/", "_", " ", "_")
	return r.Replace(name)
}

// Merge overlays fresh points onto the persisted series and writes the result
// back. Returns the full merged sequence in date order.
func (s *Store) Merge(key models.SeriesKey, fresh []models.SeriesPoint) ([]models.SeriesPoint, error) {
	existing, err := s.Load(key)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]models.SeriesPoint, len(existing)+len(fresh))
	for _, p := range existing {
		byDate[p.Date] = p
	}
	for _, p := range fresh {
		if old, ok := byDate[p.Date]; ok && old != p {
			// vendor restatement: overwrite, but leave an audit trail
			s.log.Warn("cached point restated",
				xlogger.String("series", key.String()),
				xlogger.String("date", p.Date),
				xlogger.Any("old_close", old.Close),
				xlogger.Any("new_close", p.Close))
		}
		byDate[p.Date] = p
	}

	merged := make([]models.SeriesPoint, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })

	rows := make([][]string, 0, len(merged))
	for _, p := range merged {
		rows = append(rows, []string{
			p.Date,
			formatFloat(p.Open),
			formatFloat(p.High),
			formatFloat(p.Low),
			formatFloat(p.Close),
			strconv.FormatInt(p.Volume, 10),
			strconv.FormatInt(p.OpenInterest, 10),
		})
	}
	if err := s.writeFile(s.seriesPath(key), seriesHeader, rows); err != nil {
		return nil, err
	}
	return merged, nil
}

// Load returns the persisted series, or an empty slice when none exists.
func (s *Store) Load(key models.SeriesKey) ([]models.SeriesPoint, error) {
	records, err := s.readFile(s.seriesPath(key), len(seriesHeader))
	if err != nil {
		return nil, err
	}
	points := make([]models.SeriesPoint, 0, len(records))
	for _, rec := range records {
		points = append(points, models.SeriesPoint{
			Date:         rec[0],
			Open:         parseFloat(rec[1]),
			High:         parseFloat(rec[2]),
			Low:          parseFloat(rec[3]),
			Close:        parseFloat(rec[4]),
			Volume:       parseInt(rec[5]),
			OpenInterest: parseInt(rec[6]),
		})
	}
	return points, nil
}

// MergeObservations overlays fresh indicator observations by date, with the
// same overwrite/retain policy as Merge.
func (s *Store) MergeObservations(indicator string, fresh []models.IndicatorObservation) ([]models.IndicatorObservation, error) {
	existing, err := s.LoadObservations(indicator)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]models.IndicatorObservation, len(existing)+len(fresh))
	for _, o := range existing {
		byDate[o.Date] = o
	}
	for _, o := range fresh {
		o.Indicator = indicator
		if old, ok := byDate[o.Date]; ok && old.Value != o.Value {
			s.log.Warn("cached observation restated",
				xlogger.String("indicator", indicator),
				xlogger.String("date", o.Date),
				xlogger.Any("old_value", old.Value),
				xlogger.Any("new_value", o.Value))
		}
		byDate[o.Date] = o
	}

	merged := make([]models.IndicatorObservation, 0, len(byDate))
	for _, o := range byDate {
		merged = append(merged, o)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date < merged[j].Date })

	rows := make([][]string, 0, len(merged))
	for _, o := range merged {
		rows = append(rows, []string{o.Date, formatFloat(o.Value)})
	}
	if err := s.writeFile(s.observationPath(indicator), observationHeader, rows); err != nil {
		return nil, err
	}
	return merged, nil
}

// LoadObservations returns the persisted observations, empty when none exist.
func (s *Store) LoadObservations(indicator string) ([]models.IndicatorObservation, error) {
	records, err := s.readFile(s.observationPath(indicator), len(observationHeader))
	if err != nil {
		return nil, err
	}
	obs := make([]models.IndicatorObservation, 0, len(records))
	for _, rec := range records {
		obs = append(obs, models.IndicatorObservation{
			Indicator: indicator,
			Date:      rec[0],
			Value:     parseFloat(rec[1]),
		})
	}
	return obs, nil
}

func (s *Store) readFile(path string, width int) ([][]string, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = width
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil // skip header
}

// writeFile writes to a temp file in the same directory and renames it over
// the target, so readers never observe a partial file.
func (s *Store) writeFile(path string, header []string, rows [][]string) error {
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

var _ drepo.SeriesStore = (*Store)(nil)
