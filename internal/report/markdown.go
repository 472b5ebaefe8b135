package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

const (
	ltvMethodURL      = "https://www.investopedia.com/terms/l/lifetimevalue.asp"
	churnURL          = "https://www.investopedia.com/terms/c/churnrate.asp"
	discountRateURL   = "https://www.investopedia.com/terms/d/discountrate.asp"
	sensitivityURL    = "https://www.investopedia.com/terms/s/sensitivityanalysis.asp"
	periodDetailTitle = "Period Detail"
)

var driverLabels = map[ltv.Driver]string{
	ltv.DriverCohortSize:      "Cohort size",
	ltv.DriverAOV:             "Average order value",
	ltv.DriverOrdersPerPeriod: "Orders per period",
	ltv.DriverGrossMargin:     "Gross margin %",
	ltv.DriverChurnRate:       "Churn % per period",
	ltv.DriverHorizon:         "Horizon (periods)",
	ltv.DriverDiscountRate:    "Discount rate % per period",
	ltv.DriverCAC:             "CAC",
}

func DriverLabel(d ltv.Driver) string {
	if s, ok := driverLabels[d]; ok {
		return s
	}
	return string(d)
}

// BuildMarkdown renders the full report for doc.
func BuildMarkdown(doc Document) string {
	in, res := doc.Inputs, doc.Result
	unit := UnitLabel(in.PeriodUnit, false)

	var b strings.Builder
	fmt.Fprintf(&b, "# Customer Lifetime Value Projection\n\n")
	fmt.Fprintf(&b, "- Date: %s\n", doc.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Horizon: %s\n", HorizonLabel(in.HorizonPeriods, in.PeriodUnit))
	fmt.Fprintf(&b, "- Cohort size: %s customers\n\n", FormatNumber(in.CohortSize))
	fmt.Fprintf(&b, "%s\n\n", Disclaimer)

	fmt.Fprintf(&b, "## Key Metrics\n\n")
	fmt.Fprintf(&b, "| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| LTV per customer (revenue) | %s |\n", doc.KPIs.LTVRevenuePerCustomer)
	fmt.Fprintf(&b, "| LTV per customer (gross margin) | %s |\n", doc.KPIs.LTVMarginPerCustomer)
	fmt.Fprintf(&b, "| Cohort gross-margin LTV | %s |\n", doc.KPIs.LTVMarginCohort)
	fmt.Fprintf(&b, "| LTV:CAC | %s |\n", doc.KPIs.LTVToCACRatio)
	fmt.Fprintf(&b, "| Horizon | %s |\n", doc.KPIs.HorizonLabel)
	fmt.Fprintf(&b, "| Gross margin | %s |\n\n", doc.KPIs.MarginLabel)
	fmt.Fprintf(&b, "%s\n\n", doc.KPIs.CACNote)

	fmt.Fprintf(&b, "## Summary\n\n")
	for _, s := range doc.Summary {
		fmt.Fprintf(&b, "- %s\n", sanitize(s))
	}
	fmt.Fprintf(&b, "\n")

	fmt.Fprintf(&b, "## Assumptions\n\n")
	fmt.Fprintf(&b, "The model starts the whole cohort active in period 1 and applies a constant "+
		"[churn rate](%s) every period after that. [Lifetime value](%s) is the sum of per-period "+
		"revenue or gross margin per original customer.\n\n", churnURL, ltvMethodURL)
	fmt.Fprintf(&b, "| Assumption | Value |\n|------------|-------|\n")
	fmt.Fprintf(&b, "| Cohort size | %s |\n", FormatNumber(in.CohortSize))
	fmt.Fprintf(&b, "| Average order value | %s |\n", FormatCurrency(in.AOV))
	fmt.Fprintf(&b, "| Orders per %s | %s |\n", unit, fixed(in.OrdersPerPeriod, 2))
	fmt.Fprintf(&b, "| Gross margin | %s |\n", FormatPercent(in.GrossMarginPct, 1))
	fmt.Fprintf(&b, "| Churn per %s | %s |\n", unit, FormatPercent(in.ChurnPct, 1))
	fmt.Fprintf(&b, "| Horizon | %s |\n", HorizonLabel(in.HorizonPeriods, in.PeriodUnit))
	if in.DiscountEnabled() {
		fmt.Fprintf(&b, "| [Discount rate](%s) per %s | %s |\n", discountRateURL, unit, FormatPercent(in.DiscountPct, 2))
	} else {
		fmt.Fprintf(&b, "| [Discount rate](%s) per %s | Off |\n", discountRateURL, unit)
	}
	if in.CACEnabled() {
		fmt.Fprintf(&b, "| CAC | %s |\n", FormatCurrency(in.CAC))
	} else {
		fmt.Fprintf(&b, "| CAC | Not set |\n")
	}
	fmt.Fprintf(&b, "\n")

	if len(doc.Sensitivity) > 0 {
		fmt.Fprintf(&b, "## Sensitivity\n\n")
		fmt.Fprintf(&b, "Each driver is moved down and up by %.0f%% with everything else held fixed "+
			"([sensitivity analysis](%s)). Rows are ordered by the swing in gross-margin LTV per customer.\n\n",
			ltv.DefaultSensitivityStep*100, sensitivityURL)
		fmt.Fprintf(&b, "| Driver | Low | High | LTV at low | LTV at high | Swing |\n")
		fmt.Fprintf(&b, "|--------|-----|------|------------|-------------|-------|\n")
		for _, d := range doc.Sensitivity {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				sanitizeCell(DriverLabel(d.Driver)),
				driverValue(d.Driver, d.Low),
				driverValue(d.Driver, d.High),
				FormatCurrency(d.LTVLow),
				FormatCurrency(d.LTVHigh),
				FormatCurrency(d.LTVDeltaUSD))
		}
		fmt.Fprintf(&b, "\n")
	}

	if c := strings.TrimSpace(doc.Commentary); c != "" {
		fmt.Fprintf(&b, "## Analyst Commentary\n\n%s\n\n", c)
	}

	fmt.Fprintf(&b, "## %s\n\n", periodDetailTitle)
	fmt.Fprintf(&b, "Revenue and margin are per original customer")
	if in.DiscountEnabled() {
		fmt.Fprintf(&b, ", discounted to period 1")
	}
	fmt.Fprintf(&b, ".\n\n")
	fmt.Fprintf(&b, "| Period | Active | Revenue | Gross margin | Cumulative margin | Cumulative margin (cohort) |\n")
	fmt.Fprintf(&b, "|--------|--------|---------|--------------|-------------------|----------------------------|\n")
	for _, p := range res.Periods {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			p.Index,
			FormatPercent(p.ActivePct, 2),
			FormatCurrency(p.DiscountedRevenue),
			FormatCurrency(p.DiscountedMargin),
			FormatCurrency(p.CumulativeMargin),
			FormatCurrency(p.CumulativeMarginCohort))
	}
	return b.String()
}

func driverValue(d ltv.Driver, v float64) string {
	switch d {
	case ltv.DriverAOV, ltv.DriverCAC:
		return FormatCurrency(v)
	case ltv.DriverGrossMargin, ltv.DriverChurnRate, ltv.DriverDiscountRate:
		return FormatPercent(v, 2)
	}
	return fixed(v, 2)
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func sanitizeCell(s string) string {
	return strings.ReplaceAll(sanitize(s), "|", "\\|")
}
