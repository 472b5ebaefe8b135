package ltv

import "math"

// Project runs the cohort decay simulation over in.HorizonPeriods
// periods. It is a pure function of its input.
//
// Period 1 is never discounted: values are stated as of period 1, so the
// factor for period t is 1/(1+r)^(t-1).
func Project(in ModelInputs) ProjectionResult {
	horizon := in.HorizonPeriods
	if horizon < 1 {
		horizon = 1
	}
	churn := in.ChurnPct / 100
	marginRate := in.GrossMarginPct / 100
	discountRate := 0.0
	if in.DiscountEnabled() {
		discountRate = in.DiscountPct / 100
	}

	res := ProjectionResult{
		PeriodLabels:                make([]int, 0, horizon),
		ActiveCustomerPct:           make([]float64, 0, horizon),
		CumulativeMarginPerCustomer: make([]float64, 0, horizon),
		Periods:                     make([]Period, 0, horizon),
	}

	active := 1.0
	cumRevenue := 0.0
	cumMargin := 0.0

	paybackFound := false
	paybackPeriod := 0
	runningVsCAC := 0.0

	for t := 1; t <= horizon; t++ {
		if t > 1 {
			active *= 1 - churn
		}

		orders := active * in.OrdersPerPeriod
		revenue := orders * in.AOV
		margin := revenue * marginRate

		factor := discountFactor(discountRate, t)
		discRevenue := revenue * factor
		discMargin := margin * factor

		cumRevenue += discRevenue
		cumMargin += discMargin

		if in.CACEnabled() && !paybackFound {
			runningVsCAC += discMargin
			if runningVsCAC >= in.CAC {
				paybackFound = true
				paybackPeriod = t
			}
		}

		res.PeriodLabels = append(res.PeriodLabels, t)
		res.ActiveCustomerPct = append(res.ActiveCustomerPct, active*100)
		res.CumulativeMarginPerCustomer = append(res.CumulativeMarginPerCustomer, cumMargin)
		res.Periods = append(res.Periods, Period{
			Index:                  t,
			ActiveFraction:         active,
			ActivePct:              active * 100,
			Orders:                 orders,
			Revenue:                revenue,
			Margin:                 margin,
			DiscountFactor:         factor,
			DiscountedRevenue:      discRevenue,
			DiscountedMargin:       discMargin,
			CumulativeRevenue:      cumRevenue,
			CumulativeMargin:       cumMargin,
			CumulativeMarginCohort: cumMargin * in.CohortSize,
		})
	}

	res.LTVRevenuePerCustomer = cumRevenue
	res.LTVMarginPerCustomer = cumMargin
	res.LTVMarginCohort = cumMargin * in.CohortSize
	if in.CACEnabled() {
		ratio := cumMargin / in.CAC
		res.LTVToCACRatio = &ratio
		if paybackFound {
			p := paybackPeriod
			res.PaybackPeriod = &p
		}
	}
	return res
}

// A zero rate short-circuits to 1 rather than going through math.Pow.
func discountFactor(rate float64, t int) float64 {
	if rate <= 0 {
		return 1
	}
	return 1 / math.Pow(1+rate, float64(t-1))
}
