package file

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"raindrop-charts/src/helpers"
	"raindrop-charts/src/logger"
	"raindrop-charts/src/models"
	"raindrop-charts/src/utils"

	"github.com/parquet-go/parquet-go"
)

// Bar is the on-disk row layout shared by the parquet and CSV formats.
type Bar struct {
	Timestamp int64   `parquet:"t"` // Unix timestamp in milliseconds
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    float64 `parquet:"v"`
}

var csvHeader = []string{"t", "o", "h", "l", "c", "v"}

// naive timestamp layouts accepted in CSV files, read in the source timezone
var naiveLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"}

// FileSource serves bars from {dir}/{SYMBOL}.{parquet|csv}.
type FileSource struct {
	SourceConfig models.MSourceConfig
	Scheduler    *utils.MarketScheduler
	Logger       *logger.Logger
}

// -----------------------------------------------------------------------------

func NewFileSource(sourceCfg models.MSourceConfig, scheduler *utils.MarketScheduler) *FileSource {
	if sourceCfg.Format == "" {
		sourceCfg.Format = "parquet"
	}
	return &FileSource{
		SourceConfig: sourceCfg,
		Scheduler:    scheduler,
		Logger:       logger.NewLogger("FileSource-" + sourceCfg.Name),
	}
}

// -----------------------------------------------------------------------------

func (s *FileSource) Name() string {
	return s.SourceConfig.Name
}

// -----------------------------------------------------------------------------

// Path is where the bars of symbol live.
func (s *FileSource) Path(symbol string) string {
	return filepath.Join(s.SourceConfig.Dir, strings.ToUpper(symbol)+"."+s.SourceConfig.Format)
}

// -----------------------------------------------------------------------------

// FetchBars reads the symbol file and keeps the bars in [req.Start, req.End).
// A missing file yields no bars. Rows that cannot be parsed are skipped.
func (s *FileSource) FetchBars(ctx context.Context, req models.MBarRequest) ([]models.MBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := s.Path(req.Symbol)
	loc, err := s.location(req.Symbol)
	if err != nil {
		return nil, helpers.NewDataSourceError(s.Name(), err)
	}

	var rows []Bar
	var skipped int
	switch s.SourceConfig.Format {
	case "parquet":
		rows, err = parquet.ReadFile[Bar](path)
	case "csv":
		rows, skipped, err = readCSV(path, loc)
	default:
		err = fmt.Errorf("unsupported format '%s'", s.SourceConfig.Format)
	}
	if errors.Is(err, os.ErrNotExist) {
		s.Logger.Debug("No bar file for %s at %s", req.Symbol, path)
		return nil, nil
	}
	if err != nil {
		return nil, helpers.NewDataSourceError(s.Name(), fmt.Errorf("failed to read '%s': %w", path, err))
	}
	if skipped > 0 {
		s.Logger.Warning("Skipped %d malformed rows in %s", skipped, path)
	}

	bars := make([]models.MBar, 0, len(rows))
	for _, r := range rows {
		ts := time.UnixMilli(r.Timestamp).In(loc)
		if ts.Before(req.Start) || !ts.Before(req.End) {
			continue
		}
		bars = append(bars, models.MBar{
			Symbol:    strings.ToUpper(req.Symbol),
			Timestamp: ts,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	s.Logger.Info("Loaded %s: %d bars from %s", req.Symbol, len(bars), path)
	return bars, nil
}

// -----------------------------------------------------------------------------

// WriteBars stores bars for symbol in the configured format, replacing any
// existing file.
func (s *FileSource) WriteBars(symbol string, bars []models.MBar) error {
	if err := os.MkdirAll(s.SourceConfig.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create '%s': %w", s.SourceConfig.Dir, err)
	}

	rows := make([]Bar, len(bars))
	for i, b := range bars {
		rows[i] = Bar{
			Timestamp: b.Timestamp.UnixMilli(),
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}

	path := s.Path(symbol)
	switch s.SourceConfig.Format {
	case "parquet":
		return parquet.WriteFile(path, rows)
	case "csv":
		return writeCSV(path, rows)
	default:
		return fmt.Errorf("unsupported format '%s'", s.SourceConfig.Format)
	}
}

// -----------------------------------------------------------------------------

func (s *FileSource) location(symbol string) (*time.Location, error) {
	if s.SourceConfig.Timezone != "" {
		return time.LoadLocation(s.SourceConfig.Timezone)
	}
	if s.Scheduler != nil {
		return s.Scheduler.Location(symbol), nil
	}
	return time.UTC, nil
}

// -----------------------------------------------------------------------------

func readCSV(path string, loc *time.Location) ([]Bar, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range csvHeader {
		if _, ok := cols[name]; !ok {
			return nil, 0, fmt.Errorf("missing column '%s' in header %v", name, header)
		}
	}

	var rows []Bar
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		bar, ok := parseCSVRow(record, cols, loc)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, bar)
	}
	return rows, skipped, nil
}

// -----------------------------------------------------------------------------

func parseCSVRow(record []string, cols map[string]int, loc *time.Location) (Bar, bool) {
	field := func(name string) (string, bool) {
		i := cols[name]
		if i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	raw, ok := field("t")
	if !ok {
		return Bar{}, false
	}
	ts, ok := parseTimestamp(raw, loc)
	if !ok {
		return Bar{}, false
	}

	var values [5]float64
	for i, name := range csvHeader[1:] {
		str, ok := field(name)
		if !ok {
			return Bar{}, false
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return Bar{}, false
		}
		values[i] = v
	}

	return Bar{
		Timestamp: ts.UnixMilli(),
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, true
}

// -----------------------------------------------------------------------------

// parseTimestamp accepts unix milliseconds, RFC3339, or a naive local time.
func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// -----------------------------------------------------------------------------

func writeCSV(path string, rows []Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range rows {
		if err := w.Write([]string{
			strconv.FormatInt(b.Timestamp, 10),
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			floatStr(b.Volume),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
