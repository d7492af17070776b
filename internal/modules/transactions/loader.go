// Package transactions loads the broker transaction export.
package transactions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aristath/hodl/internal/domain"
	"github.com/aristath/hodl/internal/utils"
)

// Separator is the field delimiter of the broker export.
const Separator = ';'

// Required columns of the export (matched case-insensitively).
var requiredColumns = []string{"isin", "type", "shares", "amount", "status"}

// Load reads the export at path and returns its executed trades.
func Load(path string) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	defer f.Close()

	return Parse(path, f)
}

// Parse reads an export from r. name is only used in error messages.
// Rows whose status is not "Executed" are dropped; the "reference"
// column is ignored.
func Parse(name string, r io.Reader) ([]domain.Transaction, error) {
	reader := csv.NewReader(r)
	reader.Comma = Separator
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
	for _, col := range requiredColumns {
		if _, ok := cols[col]; !ok {
			return nil, &domain.ParseError{Path: name, Line: 1, Column: col, Err: errors.New("required column missing")}
		}
	}
	descCol, hasDesc := cols["description"]
	if !hasDesc {
		descCol = -1
	}

	var txs []domain.Transaction
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.ParseError{Path: name, Err: err}
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}

		status := utils.Field(record, cols["status"])
		if status != domain.StatusExecuted {
			continue
		}

		shares, err := utils.ParseEuroDecimal(utils.Field(record, cols["shares"]))
		if err != nil {
			return nil, &domain.ParseError{Path: name, Line: line, Column: "shares", Err: err}
		}
		amount, err := utils.ParseEuroDecimal(utils.Field(record, cols["amount"]))
		if err != nil {
			return nil, &domain.ParseError{Path: name, Line: line, Column: "amount", Err: err}
		}

		txs = append(txs, domain.Transaction{
			ISIN:        utils.Field(record, cols["isin"]),
			Description: utils.Field(record, descCol),
			Type:        utils.Field(record, cols["type"]),
			Shares:      shares,
			Amount:      amount,
			Status:      status,
		})
	}

	return txs, nil
}

// UniqueISINs returns the non-empty ISINs in order of first appearance.
func UniqueISINs(txs []domain.Transaction) []string {
	seen := make(map[string]bool)
	var isins []string
	for _, tx := range txs {
		if tx.ISIN == "" || seen[tx.ISIN] {
			continue
		}
		seen[tx.ISIN] = true
		isins = append(isins, tx.ISIN)
	}
	return isins
}

// Descriptions maps each ISIN to its first non-empty description.
func Descriptions(txs []domain.Transaction) map[string]string {
	out := make(map[string]string)
	for _, tx := range txs {
		if tx.ISIN == "" || tx.Description == "" {
			continue
		}
		if _, ok := out[tx.ISIN]; !ok {
			out[tx.ISIN] = tx.Description
		}
	}
	return out
}

func isBlank(record []string) bool {
	for _, f := range record {
		if f != "" {
			return false
		}
	}
	return true
}
