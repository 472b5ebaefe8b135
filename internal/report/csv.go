package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

// CSVFilename is the suggested download name for WriteCSV output.
const CSVFilename = "ltv_calculator_output.csv"

var csvHeader = []string{
	"Period",
	"Active Customers (% of cohort)",
	"Revenue per Customer",
	"Gross Margin per Customer",
	"Cumulative Margin per Customer",
	"Cumulative Margin per Cohort",
}

// WriteCSV writes one row per period. Revenue and margin columns are the
// discounted per-period values.
func WriteCSV(w io.Writer, res ltv.ProjectionResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range res.Periods {
		row := []string{
			strconv.Itoa(p.Index),
			fixed(p.ActivePct, 2),
			fixed(p.DiscountedRevenue, 2),
			fixed(p.DiscountedMargin, 2),
			fixed(p.CumulativeMargin, 2),
			fixed(p.CumulativeMarginCohort, 2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv period %d: %w", p.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
