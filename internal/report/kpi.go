package report

import (
	"fmt"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

const (
	cacHint            = "Add CAC to see LTV:CAC and payback."
	summaryPlaceholder = "Run the LTV model to populate your summary."
)

// KPIs are the headline figures shown above the chart, already formatted.
type KPIs struct {
	LTVRevenuePerCustomer string `json:"ltv_revenue_per_customer"`
	LTVMarginPerCustomer  string `json:"ltv_margin_per_customer"`
	LTVMarginCohort       string `json:"ltv_margin_cohort"`
	LTVToCACRatio         string `json:"ltv_to_cac_ratio"`
	HorizonLabel          string `json:"horizon_label"`
	MarginLabel           string `json:"margin_label"`
	CACNote               string `json:"cac_note"`
}

func BuildKPIs(in ltv.ModelInputs, res ltv.ProjectionResult) KPIs {
	k := KPIs{
		LTVRevenuePerCustomer: FormatCurrency(res.LTVRevenuePerCustomer),
		LTVMarginPerCustomer:  FormatCurrency(res.LTVMarginPerCustomer),
		LTVMarginCohort:       FormatCurrency(res.LTVMarginCohort),
		LTVToCACRatio:         Placeholder,
		HorizonLabel:          HorizonLabel(in.HorizonPeriods, in.PeriodUnit),
		MarginLabel:           FormatPercent(in.GrossMarginPct, 1),
		CACNote:               cacHint,
	}
	if res.LTVToCACRatio != nil {
		k.LTVToCACRatio = FormatRatio(*res.LTVToCACRatio)
		if res.PaybackPeriod != nil {
			k.CACNote = fmt.Sprintf("Payback reached in ~%s.", HorizonLabel(*res.PaybackPeriod, in.PeriodUnit))
		} else {
			k.CACNote = fmt.Sprintf("Payback not reached within %s.", HorizonLabel(in.HorizonPeriods, in.PeriodUnit))
		}
	}
	return k
}

// EmptyKPIs is what the calculator shows before a run or after a
// rejected one.
func EmptyKPIs() KPIs {
	return KPIs{
		LTVRevenuePerCustomer: Placeholder,
		LTVMarginPerCustomer:  Placeholder,
		LTVMarginCohort:       Placeholder,
		LTVToCACRatio:         Placeholder,
		HorizonLabel:          Placeholder,
		MarginLabel:           Placeholder,
		CACNote:               cacHint,
	}
}
