package portfolio

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/aristath/hodl/internal/domain"
	"github.com/shopspring/decimal"
)

// WriteReport renders positions as an aligned table followed by the
// portfolio totals.
func WriteReport(w io.Writer, positions []domain.Position) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "ISIN\tDescription\tTotal Shares\tAvg Buy Price\tAvg Sell Price\tStatus\tProfit\t")
	for _, p := range positions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			p.ISIN,
			p.Description,
			FormatAmount(p.NetShares),
			FormatAmount(p.AvgBuyPrice),
			FormatAmount(p.AvgSellPrice),
			p.Status,
			FormatAmount(p.Profit),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nInvested (held): %s\nRealized profit: %s\n",
		FormatAmount(decimal.NewFromFloat(TotalInvested(positions))),
		FormatAmount(RealizedProfit(positions)),
	)
	return err
}

// FormatAmount renders d with three decimals and "," thousands
// separators, e.g. 1234.5 -> "1,234.500".
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(3)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + b.String() + "." + frac
}
