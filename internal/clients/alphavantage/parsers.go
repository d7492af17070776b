package alphavantage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/hodl/internal/domain"
)

// seriesKeys maps a bar interval to its API function and response key.
var seriesKeys = map[string]struct {
	function string
	key      string
}{
	"1d":  {function: "TIME_SERIES_DAILY", key: "Time Series (Daily)"},
	"1wk": {function: "TIME_SERIES_WEEKLY", key: "Weekly Time Series"},
	"1mo": {function: "TIME_SERIES_MONTHLY", key: "Monthly Time Series"},
}

type ohlcvEntry struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// parseDailyTimeSeries parses a TIME_SERIES_DAILY response, newest first.
func parseDailyTimeSeries(body []byte) ([]domain.Bar, error) {
	return parseTimeSeries(body, seriesKeys["1d"].key)
}

func parseTimeSeries(body []byte, key string) ([]domain.Bar, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode time series: %w", err)
	}

	series, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("response has no %q section", key)
	}

	var entries map[string]ohlcvEntry
	if err := json.Unmarshal(series, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", key, err)
	}

	bars := make([]domain.Bar, 0, len(entries))
	for date, e := range entries {
		d := parseDate(date)
		if d.IsZero() {
			continue
		}
		closePrice := parseFloat64(e.Close)
		bars = append(bars, domain.Bar{
			Date:     d,
			Open:     parseFloat64(e.Open),
			High:     parseFloat64(e.High),
			Low:      parseFloat64(e.Low),
			Close:    closePrice,
			AdjClose: closePrice,
			Volume:   parseInt64(e.Volume),
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.After(bars[j].Date)
	})
	return bars, nil
}

func parseFloat64(s string) float64 {
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	switch s {
	case "", "None", "null", "-", ".":
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return int64(parseFloat64(s))
}

func parseDate(s string) time.Time {
	t, err := time.Parse(domain.DayLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
