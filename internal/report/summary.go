package report

import (
	"fmt"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

// BuildSummary returns the narrative sentences for a projection. The CAC
// sentence is only present when CAC is set.
func BuildSummary(in ltv.ModelInputs, res ltv.ProjectionResult) []string {
	unit := UnitLabel(in.PeriodUnit, false)
	out := []string{
		fmt.Sprintf("Over %s, LTV per customer (revenue) is %s, with gross-margin LTV of %s.",
			HorizonLabel(in.HorizonPeriods, in.PeriodUnit),
			FormatCurrency(res.LTVRevenuePerCustomer),
			FormatCurrency(res.LTVMarginPerCustomer)),
		fmt.Sprintf("Your model assumes %s orders per %s at an AOV of %s, with %s gross margin.",
			fixed(in.OrdersPerPeriod, 2), unit, FormatCurrency(in.AOV), FormatPercent(in.GrossMarginPct, 1)),
		fmt.Sprintf("Churn is %s per %s, meaning only %s%% of the original cohort remains active by the end of the horizon.",
			FormatPercent(in.ChurnPct, 1), unit, FormatNumber(res.FinalActivePct())),
	}
	if res.LTVToCACRatio == nil {
		return out
	}
	ratio := FormatRatio(*res.LTVToCACRatio)
	if res.PaybackPeriod != nil {
		out = append(out, fmt.Sprintf("With CAC at %s, your LTV:CAC is %s, and you hit payback around period %d.",
			FormatCurrency(in.CAC), ratio, *res.PaybackPeriod))
	} else {
		out = append(out, fmt.Sprintf("With CAC at %s, your LTV:CAC is %s, but payback is not reached within the modeled horizon.",
			FormatCurrency(in.CAC), ratio))
	}
	return out
}

func EmptySummary() []string {
	return []string{summaryPlaceholder}
}
