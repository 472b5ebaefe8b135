package ltv

import (
	"errors"
	"fmt"
	"math"
)

// MaxSweepPoints bounds SweepRange.
const MaxSweepPoints = 10000

// ErrSweepTooLarge is returned by SweepRange when a range would yield more
// than MaxSweepPoints values.
var ErrSweepTooLarge = errors.New("sweep range too large")

type SweepPoint struct {
	Value                 float64  `json:"value"`
	Valid                 bool     `json:"valid"`
	Error                 string   `json:"error,omitempty"`
	LTVRevenuePerCustomer float64  `json:"ltv_revenue_per_customer"`
	LTVMarginPerCustomer  float64  `json:"ltv_margin_per_customer"`
	LTVMarginCohort       float64  `json:"ltv_margin_cohort"`
	LTVToCACRatio         *float64 `json:"ltv_to_cac_ratio"`
	PaybackPeriod         *int     `json:"payback_period"`
	FinalActivePct        float64  `json:"final_active_pct"`
}

// Sweep projects base once per value of driver d. Values that fail
// validation produce a point with Valid=false instead of an error.
// progress, when non-nil, is called after every point.
func Sweep(base ModelInputs, d Driver, values []float64, progress func(done, total int)) ([]SweepPoint, error) {
	if _, err := ParseDriver(string(d)); err != nil {
		return nil, err
	}
	out := make([]SweepPoint, 0, len(values))
	for i, v := range values {
		in := d.with(base, v)
		p := SweepPoint{Value: v}
		if err := check(in); err != nil {
			p.Error = err.Error()
		} else {
			res := Project(in)
			p.Valid = true
			p.LTVRevenuePerCustomer = res.LTVRevenuePerCustomer
			p.LTVMarginPerCustomer = res.LTVMarginPerCustomer
			p.LTVMarginCohort = res.LTVMarginCohort
			p.LTVToCACRatio = res.LTVToCACRatio
			p.PaybackPeriod = res.PaybackPeriod
			p.FinalActivePct = res.FinalActivePct()
		}
		out = append(out, p)
		if progress != nil {
			progress(i+1, len(values))
		}
	}
	return out, nil
}

// SweepRange returns from, from+step, ... up to and including to.
func SweepRange(from, to, step float64) ([]float64, error) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, errors.New("step must be a positive number")
	}
	if math.IsNaN(from) || math.IsNaN(to) || math.IsInf(from, 0) || math.IsInf(to, 0) {
		return nil, errors.New("range bounds must be finite")
	}
	if to < from {
		return nil, fmt.Errorf("range end %g is before start %g", to, from)
	}
	span := math.Floor((to-from)/step + 1e-9)
	if math.IsInf(span, 0) || math.IsNaN(span) || span+1 > MaxSweepPoints {
		return nil, fmt.Errorf("%w: range yields %g points, limit is %d", ErrSweepTooLarge, span+1, MaxSweepPoints)
	}
	n := int(span) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, from+float64(i)*step)
	}
	return out, nil
}
