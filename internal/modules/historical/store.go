package historical

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aristath/hodl/internal/domain"
	"github.com/aristath/hodl/internal/utils"
	"github.com/rs/zerolog"
)

var cacheHeader = []string{"Date", "Open", "High", "Low", "Close", "Adj Close", "Volume"}

// dateLayouts are accepted when reading a cache; writes use domain.BarLayout.
var dateLayouts = []string{
	domain.DayLayout,
	domain.DateTimeLayout,
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
}

// Store persists price series as ";"-separated files with "," decimals
// under {root}/{ticker}/{interval}/{ticker}.csv.
type Store struct {
	root string
	log  zerolog.Logger
}

// NewStore creates a store rooted at root.
func NewStore(root string, log zerolog.Logger) *Store {
	return &Store{
		root: root,
		log:  log.With().Str("component", "price_store").Logger(),
	}
}

// Path returns the cache file of a ticker and interval.
func (s *Store) Path(ticker, interval string) string {
	return filepath.Join(s.root, ticker, interval, ticker+".csv")
}

// Exists reports whether a cache file is present.
func (s *Store) Exists(ticker, interval string) (bool, error) {
	_, err := os.Stat(s.Path(ticker, interval))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat price cache: %w", err)
}

// EnsureDir creates the directory of a cache file if needed.
func (s *Store) EnsureDir(ticker, interval string) error {
	dir := filepath.Dir(s.Path(ticker, interval))
	if _, err := os.Stat(dir); err == nil {
		s.log.Debug().Str("path", dir).Msg("Cache directory already exists")
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	s.log.Debug().Str("path", dir).Msg("Cache directory created")
	return nil
}

// Read loads every bar of a cache, in file order.
func (s *Store) Read(ticker, interval string) ([]domain.Bar, error) {
	path := s.Path(ticker, interval)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price cache: %w", err)
	}
	defer f.Close()

	return readBars(path, f)
}

// LastDate returns the most recent date in a cache. ok is false when the
// cache holds no rows.
func (s *Store) LastDate(ticker, interval string) (last time.Time, ok bool, err error) {
	bars, err := s.Read(ticker, interval)
	if err != nil {
		return time.Time{}, false, err
	}
	for _, b := range bars {
		if !ok || b.Date.After(last) {
			last, ok = b.Date, true
		}
	}
	return last, ok, nil
}

// Write stores bars. A missing cache is created with all bars. An existing
// cache only receives the bars strictly after its last date, appended to
// the end of the file; existing rows are never rewritten. It returns the
// number of rows written.
func (s *Store) Write(ticker, interval string, bars []domain.Bar) (int, error) {
	exists, err := s.Exists(ticker, interval)
	if err != nil {
		return 0, err
	}
	if !exists {
		return s.create(ticker, interval, bars)
	}

	last, ok, err := s.LastDate(ticker, interval)
	if err != nil {
		return 0, err
	}

	fresh := bars
	if ok {
		fresh = After(bars, last, interval)
	}
	if len(fresh) == 0 {
		s.log.Debug().Str("ticker", ticker).Str("interval", interval).Msg("No new rows to append")
		return 0, nil
	}

	return s.append(ticker, interval, fresh)
}

func (s *Store) create(ticker, interval string, bars []domain.Bar) (int, error) {
	if err := s.EnsureDir(ticker, interval); err != nil {
		return 0, err
	}
	path := s.Path(ticker, interval)
	rows := normalize(bars, interval)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.Write(cacheHeader); err != nil {
		return 0, err
	}
	if err := writeBars(w, rows, interval); err != nil {
		return 0, err
	}

	// Write then rename so a crash never leaves a half-written cache.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("failed to write price cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("failed to move price cache into place: %w", err)
	}

	s.log.Info().Str("path", path).Int("rows", len(rows)).Msg("Created price cache")
	return len(rows), nil
}

func (s *Store) append(ticker, interval string, bars []domain.Bar) (int, error) {
	path := s.Path(ticker, interval)
	rows := normalize(bars, interval)

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open price cache for append: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	needsNewline, err := missingTrailingNewline(f)
	if err != nil {
		return 0, err
	}
	if needsNewline {
		buf.WriteByte('\n')
	}

	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := writeBars(w, rows, interval); err != nil {
		return 0, err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return 0, fmt.Errorf("failed to append to price cache: %w", err)
	}

	s.log.Info().Str("path", path).Int("rows", len(rows)).Msg("Appended to price cache")
	return len(rows), nil
}

// After returns the bars strictly after last, compared at the resolution
// the interval is persisted with.
func After(bars []domain.Bar, last time.Time, interval string) []domain.Bar {
	cutoff := barKey(last, interval)
	var out []domain.Bar
	for _, b := range bars {
		if barKey(b.Date, interval).After(cutoff) {
			out = append(out, b)
		}
	}
	return out
}

// barKey reduces a timestamp to what the cache can represent: the
// calendar date for daily and longer intervals, the UTC second otherwise.
func barKey(t time.Time, interval string) time.Time {
	if domain.IsIntraday(interval) {
		return t.UTC().Truncate(time.Second)
	}
	return domain.TruncateDay(t)
}

func formatBarDate(t time.Time, interval string) string {
	if domain.IsIntraday(interval) {
		t = t.UTC()
	}
	// Daily bars keep the calendar date of their own location, the exchange day.
	return t.Format(domain.BarLayout(interval))
}

// normalize sorts bars by date and drops duplicate dates, keeping the
// first occurrence.
func normalize(bars []domain.Bar, interval string) []domain.Bar {
	rows := make([]domain.Bar, len(bars))
	copy(rows, bars)
	sort.SliceStable(rows, func(i, j int) bool {
		return barKey(rows[i].Date, interval).Before(barKey(rows[j].Date, interval))
	})

	out := rows[:0]
	for i, b := range rows {
		if i > 0 && barKey(b.Date, interval).Equal(barKey(out[len(out)-1].Date, interval)) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func writeBars(w *csv.Writer, bars []domain.Bar, interval string) error {
	for _, b := range bars {
		record := []string{
			formatBarDate(b.Date, interval),
			utils.FormatDecimalCommaFloat(b.Open),
			utils.FormatDecimalCommaFloat(b.High),
			utils.FormatDecimalCommaFloat(b.Low),
			utils.FormatDecimalCommaFloat(b.Close),
			utils.FormatDecimalCommaFloat(b.AdjClose),
			fmt.Sprintf("%d", b.Volume),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func readBars(path string, r io.Reader) ([]domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.MissingDateColumnError{Path: path}
	}
	if err != nil {
		return nil, &domain.ParseError{Path: path, Line: 1, Err: err}
	}

	cols := utils.HeaderIndex(header)
	dateCol, ok := cols["date"]
	if !ok {
		return nil, &domain.MissingDateColumnError{Path: path}
	}
	col := func(name string) int {
		if i, ok := cols[name]; ok {
			return i
		}
		return -1
	}
	openCol, highCol, lowCol, closeCol := col("open"), col("high"), col("low"), col("close")
	adjCol, volCol := col("adj close"), col("volume")

	var bars []domain.Bar
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.ParseError{Path: path, Err: err}
		}
		line, _ := reader.FieldPos(0)

		date, err := parseDate(utils.Field(record, dateCol))
		if err != nil {
			return nil, &domain.ParseError{Path: path, Line: line, Column: "Date", Err: err}
		}

		bar := domain.Bar{Date: date}
		for _, f := range []struct {
			col  int
			name string
			dst  *float64
		}{
			{openCol, "Open", &bar.Open},
			{highCol, "High", &bar.High},
			{lowCol, "Low", &bar.Low},
			{closeCol, "Close", &bar.Close},
			{adjCol, "Adj Close", &bar.AdjClose},
		} {
			v, err := utils.ParseDecimalCommaFloat(utils.Field(record, f.col))
			if err != nil {
				return nil, &domain.ParseError{Path: path, Line: line, Column: f.name, Err: err}
			}
			*f.dst = v
		}

		vol, err := utils.ParseDecimalCommaFloat(utils.Field(record, volCol))
		if err != nil {
			return nil, &domain.ParseError{Path: path, Line: line, Column: "Volume", Err: err}
		}
		bar.Volume = int64(vol)

		bars = append(bars, bar)
	}

	return bars, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func missingTrailingNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("failed to stat price cache: %w", err)
	}
	if info.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, fmt.Errorf("failed to read price cache: %w", err)
	}
	return last[0] != '\n', nil
}
