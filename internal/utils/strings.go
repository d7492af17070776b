package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseEuroDecimal parses a number written with "." as thousands separator
// and "," as decimal separator ("1.234,56"). Blank cells are zero.
func ParseEuroDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	normalized := strings.ReplaceAll(s, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

// ParseDecimalCommaFloat parses a float written with "," as decimal
// separator and no thousands separator ("185,2").
func ParseDecimalCommaFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return f, nil
}

// FormatDecimalCommaFloat is the inverse of ParseDecimalCommaFloat.
func FormatDecimalCommaFloat(f float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(f, 'f', -1, 64), ".", ",")
}

// HeaderIndex maps lower-cased, trimmed column names to their position.
// The first occurrence of a duplicated name wins.
func HeaderIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

// Field returns record[i] trimmed, or "" when the row is short.
func Field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
