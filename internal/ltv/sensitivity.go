package ltv

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

const DefaultSensitivityStep = 0.10

// churnCeiling is the largest churn percentage that still validates.
var churnCeiling = math.Nextafter(100, 0)

type Driver string

const (
	DriverCohortSize      Driver = FieldCohortSize
	DriverAOV             Driver = FieldAOV
	DriverOrdersPerPeriod Driver = FieldOrdersPerPeriod
	DriverGrossMargin     Driver = FieldGrossMargin
	DriverChurnRate       Driver = FieldChurnRate
	DriverHorizon         Driver = FieldHorizon
	DriverDiscountRate    Driver = FieldDiscountRate
	DriverCAC             Driver = FieldCAC
)

var driverAliases = map[string]Driver{
	strings.ToLower(FieldCohortSize):        DriverCohortSize,
	strings.ToLower(FieldAOV):               DriverAOV,
	strings.ToLower(FieldOrdersPerPeriod):   DriverOrdersPerPeriod,
	strings.ToLower(FieldGrossMargin):       DriverGrossMargin,
	strings.ToLower(FieldGrossMarginAlias):  DriverGrossMargin,
	strings.ToLower(FieldChurnRate):         DriverChurnRate,
	strings.ToLower(FieldChurnRateAlias):    DriverChurnRate,
	strings.ToLower(FieldHorizon):           DriverHorizon,
	strings.ToLower(FieldHorizonAlias):      DriverHorizon,
	strings.ToLower(FieldDiscountRate):      DriverDiscountRate,
	strings.ToLower(FieldDiscountRateAlias): DriverDiscountRate,
	strings.ToLower(FieldCAC):               DriverCAC,
}

func ParseDriver(s string) (Driver, error) {
	d, ok := driverAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown driver %q", s)
	}
	return d, nil
}

func (d Driver) value(in ModelInputs) float64 {
	switch d {
	case DriverCohortSize:
		return in.CohortSize
	case DriverAOV:
		return in.AOV
	case DriverOrdersPerPeriod:
		return in.OrdersPerPeriod
	case DriverGrossMargin:
		return in.GrossMarginPct
	case DriverChurnRate:
		return in.ChurnPct
	case DriverHorizon:
		return float64(in.HorizonPeriods)
	case DriverDiscountRate:
		return in.DiscountPct
	case DriverCAC:
		return in.CAC
	}
	return 0
}

// with returns a copy of in with the driver set to v. Cohort size and
// horizon get the same floors Validate applies.
func (d Driver) with(in ModelInputs, v float64) ModelInputs {
	switch d {
	case DriverCohortSize:
		in.CohortSize = math.Max(v, 1)
	case DriverAOV:
		in.AOV = v
	case DriverOrdersPerPeriod:
		in.OrdersPerPeriod = v
	case DriverGrossMargin:
		in.GrossMarginPct = v
	case DriverChurnRate:
		in.ChurnPct = v
	case DriverHorizon:
		in.HorizonPeriods = horizonPeriods(v)
	case DriverDiscountRate:
		in.DiscountPct = v
	case DriverCAC:
		in.CAC = v
	}
	return in
}

type SensitivityDriver struct {
	Driver      Driver  `json:"driver"`
	Base        float64 `json:"base"`
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
	LTVLow      float64 `json:"ltv_margin_low"`
	LTVHigh     float64 `json:"ltv_margin_high"`
	LTVDeltaUSD float64 `json:"ltv_delta_usd"`
	Direction   string  `json:"direction"`
}

type sensitivityCandidate struct {
	driver    Driver
	clamp     func(float64) float64
	direction string
}

// Sensitivity moves each driver down and up by a relative step and
// reports how far margin LTV per customer swings, largest first. A step
// of zero or less uses DefaultSensitivityStep.
func Sensitivity(in ModelInputs, step float64) []SensitivityDriver {
	if step <= 0 {
		step = DefaultSensitivityStep
	}
	positive := func(v float64) float64 { return math.Max(v, math.SmallestNonzeroFloat64) }
	cands := []sensitivityCandidate{
		{driver: DriverAOV, clamp: positive, direction: "Higher average order value increases LTV"},
		{driver: DriverOrdersPerPeriod, clamp: positive, direction: "Higher order frequency increases LTV"},
		{driver: DriverGrossMargin, clamp: func(v float64) float64 { return math.Min(math.Max(v, 0), 100) }, direction: "Higher gross margin increases LTV"},
		{driver: DriverChurnRate, clamp: func(v float64) float64 { return math.Min(math.Max(v, 0), churnCeiling) }, direction: "Lower churn increases LTV"},
		{driver: DriverDiscountRate, clamp: func(v float64) float64 { return math.Max(v, 0) }, direction: "Lower discount rate increases LTV"},
	}

	out := make([]SensitivityDriver, 0, len(cands))
	for _, c := range cands {
		base := c.driver.value(in)
		low := c.clamp(base * (1 - step))
		high := c.clamp(base * (1 + step))
		ltvLow := Project(c.driver.with(in, low)).LTVMarginPerCustomer
		ltvHigh := Project(c.driver.with(in, high)).LTVMarginPerCustomer
		delta := math.Abs(ltvHigh - ltvLow)
		out = append(out, SensitivityDriver{
			Driver:      c.driver,
			Base:        base,
			Low:         low,
			High:        high,
			LTVLow:      ltvLow,
			LTVHigh:     ltvHigh,
			LTVDeltaUSD: delta,
			Direction:   fmt.Sprintf("%s by $%.2f", c.direction, delta),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LTVDeltaUSD > out[j].LTVDeltaUSD })
	return out
}
