// Package universe maps ISINs to the tickers used by market data providers.
package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aristath/hodl/internal/domain"
	"github.com/aristath/hodl/internal/utils"
)

// ReferenceTable is the ISIN -> ticker table of an exchange listing
// (e.g. the Xetra "ISIN;Mnemonic;..." export). Read-only after load.
type ReferenceTable struct {
	tickers map[string]string
}

// LoadReferenceTable reads the ";"-separated listing at path.
func LoadReferenceTable(path string) (*ReferenceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	defer f.Close()

	return ParseReferenceTable(path, f)
}

// ParseReferenceTable reads a listing from r. Only the ISIN and Mnemonic
// columns are used; when an ISIN is listed twice the first row wins.
func ParseReferenceTable(name string, r io.Reader) (*ReferenceTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty file")
		}
		return nil, &domain.ParseError{Path: name, Line: 1, Err: fmt.Errorf("failed to read header: %w", err)}
	}

	cols := utils.HeaderIndex(header)
	isinCol, ok := cols["isin"]
	if !ok {
		return nil, &domain.ParseError{Path: name, Line: 1, Column: "ISIN", Err: errors.New("required column missing")}
	}
	tickerCol, ok := cols["mnemonic"]
	if !ok {
		return nil, &domain.ParseError{Path: name, Line: 1, Column: "Mnemonic", Err: errors.New("required column missing")}
	}

	table := &ReferenceTable{tickers: make(map[string]string)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.ParseError{Path: name, Err: err}
		}

		isin := utils.Field(record, isinCol)
		if isin == "" {
			continue
		}
		if _, exists := table.tickers[isin]; !exists {
			table.tickers[isin] = utils.Field(record, tickerCol)
		}
	}

	return table, nil
}

// NewReferenceTable builds a table from an in-memory ISIN -> ticker map.
func NewReferenceTable(tickers map[string]string) *ReferenceTable {
	t := &ReferenceTable{tickers: make(map[string]string, len(tickers))}
	for isin, ticker := range tickers {
		t.tickers[isin] = ticker
	}
	return t
}

// Lookup returns the listed ticker of an ISIN. A listed ISIN may have an
// empty ticker; ok reports whether the ISIN is listed at all.
func (t *ReferenceTable) Lookup(isin string) (ticker string, ok bool) {
	ticker, ok = t.tickers[isin]
	return ticker, ok
}

// Len returns the number of listed ISINs.
func (t *ReferenceTable) Len() int {
	return len(t.tickers)
}
