// Package portfolio derives per-security positions from executed trades.
package portfolio

import (
	"github.com/aristath/hodl/internal/domain"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

// DescriptionNotFound is used when a security has no description.
const DescriptionNotFound = "not found"

// hodlThreshold absorbs floating point noise in share counts: a position
// with at most this many shares left counts as sold.
var hodlThreshold = decimal.RequireFromString("0.1")

type totals struct {
	buyShares  decimal.Decimal
	buyAmount  decimal.Decimal
	sellShares decimal.Decimal
	sellAmount decimal.Decimal
}

// Aggregate reduces executed trades to one Position per ISIN, in order of
// first appearance. Rows without an ISIN (cash movements) are ignored.
//
// An unrecognized trade type or a security without bought shares aborts
// the whole aggregation.
func Aggregate(txs []domain.Transaction, descriptions map[string]string) ([]domain.Position, error) {
	byISIN := make(map[string]*totals)
	var order []string

	for _, tx := range txs {
		if tx.ISIN == "" {
			continue
		}

		tradeType, err := domain.NormalizeTradeType(tx.ISIN, tx.Type)
		if err != nil {
			return nil, err
		}

		acc, ok := byISIN[tx.ISIN]
		if !ok {
			acc = &totals{}
			byISIN[tx.ISIN] = acc
			order = append(order, tx.ISIN)
		}

		switch tradeType {
		case domain.TradeBuy:
			acc.buyShares = acc.buyShares.Add(tx.Shares)
			acc.buyAmount = acc.buyAmount.Add(tx.Amount)
		case domain.TradeSell:
			acc.sellShares = acc.sellShares.Add(tx.Shares)
			acc.sellAmount = acc.sellAmount.Add(tx.Amount)
		}
	}

	positions := make([]domain.Position, 0, len(order))
	for _, isin := range order {
		pos, err := buildPosition(isin, byISIN[isin], descriptions)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}

	return positions, nil
}

func buildPosition(isin string, t *totals, descriptions map[string]string) (domain.Position, error) {
	if t.buyShares.IsZero() {
		return domain.Position{}, &domain.NoBuySharesError{ISIN: isin}
	}

	// Buy amounts are cash outflows, hence negative.
	avgBuy := t.buyAmount.Neg().Div(t.buyShares)

	avgSell := decimal.Zero
	if !t.sellShares.IsZero() {
		avgSell = t.sellAmount.Div(t.sellShares)
	}

	net := t.buyShares.Sub(t.sellShares)

	status := domain.StatusHodl
	profit := decimal.Zero
	if net.LessThanOrEqual(hodlThreshold) {
		status = domain.StatusSold
		profit = t.buyAmount.Add(t.sellAmount).Abs()
	}

	description, ok := descriptions[isin]
	if !ok || description == "" {
		description = DescriptionNotFound
	}

	return domain.Position{
		ISIN:         isin,
		Description:  description,
		NetShares:    net,
		AvgBuyPrice:  avgBuy,
		AvgSellPrice: avgSell,
		Status:       status,
		Profit:       profit,
	}, nil
}

// TotalInvested is the cost basis of the held positions: the sum of
// net shares times average buy price over Hodl positions.
func TotalInvested(positions []domain.Position) float64 {
	var shares, prices []float64
	for _, p := range positions {
		if p.Status != domain.StatusHodl {
			continue
		}
		shares = append(shares, p.NetShares.InexactFloat64())
		prices = append(prices, p.AvgBuyPrice.InexactFloat64())
	}
	if len(shares) == 0 {
		return 0
	}
	return floats.Dot(shares, prices)
}

// RealizedProfit sums the profit of closed positions.
func RealizedProfit(positions []domain.Position) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(p.Profit)
	}
	return total
}
