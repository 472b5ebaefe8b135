package ltv

// Raw field names accepted by Validate. The names match the calculator
// form; the *Alias names are accepted as well.
const (
	FieldCohortSize      = "cohortSize"
	FieldAOV             = "aov"
	FieldOrdersPerPeriod = "ordersPerPeriod"
	FieldGrossMargin     = "grossMargin"
	FieldChurnRate       = "churnRate"
	FieldHorizon         = "horizon"
	FieldDiscountRate    = "discountRate"
	FieldCAC             = "cac"
	FieldTimeUnit        = "timeUnit"

	FieldGrossMarginAlias  = "grossMarginPct"
	FieldChurnRateAlias    = "churnPct"
	FieldHorizonAlias      = "horizonPeriods"
	FieldDiscountRateAlias = "discountPct"
	FieldTimeUnitAlias     = "periodUnit"
)

// RawInputs maps field names to unparsed values: strings, numbers, or
// nothing at all.
type RawInputs map[string]any

type PeriodUnit string

const (
	UnitWeek  PeriodUnit = "week"
	UnitMonth PeriodUnit = "month"
	UnitYear  PeriodUnit = "year"
)

// ModelInputs is a fully validated set of assumptions. Values are only
// produced by Validate.
type ModelInputs struct {
	CohortSize      float64    `json:"cohort_size"`
	AOV             float64    `json:"aov"`
	OrdersPerPeriod float64    `json:"orders_per_period"`
	GrossMarginPct  float64    `json:"gross_margin_pct"`
	ChurnPct        float64    `json:"churn_pct"`
	HorizonPeriods  int        `json:"horizon_periods"`
	DiscountPct     float64    `json:"discount_pct"`
	CAC             float64    `json:"cac"`
	PeriodUnit      PeriodUnit `json:"period_unit"`
}

// DiscountEnabled reports whether per-period discounting applies.
func (in ModelInputs) DiscountEnabled() bool { return in.DiscountPct > 0 }

// CACEnabled reports whether LTV:CAC and payback are tracked.
func (in ModelInputs) CACEnabled() bool { return in.CAC > 0 }

// Period holds one simulated period, per customer unless noted.
type Period struct {
	Index                  int     `json:"period"`
	ActiveFraction         float64 `json:"active_fraction"`
	ActivePct              float64 `json:"active_pct"`
	Orders                 float64 `json:"orders"`
	Revenue                float64 `json:"revenue"`
	Margin                 float64 `json:"margin"`
	DiscountFactor         float64 `json:"discount_factor"`
	DiscountedRevenue      float64 `json:"discounted_revenue"`
	DiscountedMargin       float64 `json:"discounted_margin"`
	CumulativeRevenue      float64 `json:"cumulative_revenue"`
	CumulativeMargin       float64 `json:"cumulative_margin"`
	CumulativeMarginCohort float64 `json:"cumulative_margin_cohort"`
}

type ProjectionResult struct {
	PeriodLabels                []int     `json:"period_labels"`
	ActiveCustomerPct           []float64 `json:"active_customer_pct"`
	CumulativeMarginPerCustomer []float64 `json:"cumulative_margin_per_customer"`
	Periods                     []Period  `json:"periods"`

	LTVRevenuePerCustomer float64 `json:"ltv_revenue_per_customer"`
	LTVMarginPerCustomer  float64 `json:"ltv_margin_per_customer"`
	LTVMarginCohort       float64 `json:"ltv_margin_cohort"`

	// LTVToCACRatio and PaybackPeriod are nil when CAC is not set.
	// PaybackPeriod is also nil when the horizon ends before payback.
	LTVToCACRatio *float64 `json:"ltv_to_cac_ratio"`
	PaybackPeriod *int     `json:"payback_period"`
}

// FinalActivePct is the active share of the cohort in the last period.
func (r ProjectionResult) FinalActivePct() float64 {
	if len(r.ActiveCustomerPct) == 0 {
		return 0
	}
	return r.ActiveCustomerPct[len(r.ActiveCustomerPct)-1]
}

// DefaultRawInputs returns the calculator's reset values. Discount rate
// and CAC are left empty.
func DefaultRawInputs() RawInputs {
	return RawInputs{
		FieldCohortSize:      "100",
		FieldAOV:             "80",
		FieldOrdersPerPeriod: "1",
		FieldGrossMargin:     "65",
		FieldChurnRate:       "8",
		FieldHorizon:         "24",
		FieldDiscountRate:    "",
		FieldCAC:             "",
		FieldTimeUnit:        string(UnitMonth),
	}
}
