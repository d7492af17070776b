// Package domain provides the core types shared by the loader, the
// aggregator and the price history synchronizer.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatusExecuted is the only transaction status that takes part in aggregation.
const StatusExecuted = "Executed"

// TradeType is the normalized kind of a trade row.
type TradeType string

const (
	TradeBuy  TradeType = "Buy"
	TradeSell TradeType = "Sell"

	// tradeSavingsPlan is booked by the broker for recurring purchases.
	tradeSavingsPlan = "Savings plan"
)

// NormalizeTradeType maps the raw type column onto Buy or Sell.
// "Savings plan" rows are purchases. Any other value is rejected.
func NormalizeTradeType(isin, raw string) (TradeType, error) {
	switch strings.TrimSpace(raw) {
	case string(TradeBuy), tradeSavingsPlan:
		return TradeBuy, nil
	case string(TradeSell):
		return TradeSell, nil
	default:
		return "", &UnrecognizedTradeTypeError{ISIN: isin, Type: raw}
	}
}

// Transaction is one row of the broker export.
type Transaction struct {
	ISIN        string
	Description string
	Type        string // raw value, see NormalizeTradeType
	Shares      decimal.Decimal
	Amount      decimal.Decimal // negative for buys (cash outflow), positive for sells
	Status      string
}

// PositionStatus tells whether a position is still held.
type PositionStatus string

const (
	StatusHodl PositionStatus = "Hodl"
	StatusSold PositionStatus = "Sold"
)

// Position is the lifetime trading summary of one security.
type Position struct {
	ISIN         string          `json:"isin"`
	Description  string          `json:"description"`
	NetShares    decimal.Decimal `json:"net_shares"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	AvgSellPrice decimal.Decimal `json:"avg_sell_price"`
	Status       PositionStatus  `json:"status"`
	Profit       decimal.Decimal `json:"profit"`
}

// Bar is a single OHLCV record.
type Bar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
}
