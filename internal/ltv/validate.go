package ltv

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// horizonCeiling keeps the float-to-int conversion defined. Callers that
// need a tighter bound (the HTTP API) enforce their own limit.
const horizonCeiling = math.MaxInt32

// Validate normalizes raw field values into ModelInputs. Unparseable or
// empty values read as zero. Cohort size and horizon are floored to 1
// before the checks run. Any failed check rejects the whole input with a
// *ValidationError wrapping ErrInvalidInputs.
func Validate(raw RawInputs) (ModelInputs, error) {
	in := ModelInputs{
		CohortSize:      math.Max(raw.number(FieldCohortSize), 1),
		AOV:             raw.number(FieldAOV),
		OrdersPerPeriod: raw.number(FieldOrdersPerPeriod),
		GrossMarginPct:  raw.number(FieldGrossMargin, FieldGrossMarginAlias),
		ChurnPct:        raw.number(FieldChurnRate, FieldChurnRateAlias),
		HorizonPeriods:  horizonPeriods(raw.number(FieldHorizon, FieldHorizonAlias)),
		DiscountPct:     raw.number(FieldDiscountRate, FieldDiscountRateAlias),
		CAC:             raw.number(FieldCAC),
		PeriodUnit:      ParsePeriodUnit(raw.text(FieldTimeUnit, FieldTimeUnitAlias)),
	}
	if err := check(in); err != nil {
		return ModelInputs{}, err
	}
	return in, nil
}

func check(in ModelInputs) error {
	var violations []Violation
	if in.AOV <= 0 {
		violations = append(violations, Violation{Field: FieldAOV, Value: in.AOV, Message: "must be greater than 0"})
	}
	if in.OrdersPerPeriod <= 0 {
		violations = append(violations, Violation{Field: FieldOrdersPerPeriod, Value: in.OrdersPerPeriod, Message: "must be greater than 0"})
	}
	if in.GrossMarginPct < 0 || in.GrossMarginPct > 100 {
		violations = append(violations, Violation{Field: FieldGrossMargin, Value: in.GrossMarginPct, Message: "must be between 0 and 100"})
	}
	if in.ChurnPct < 0 || in.ChurnPct >= 100 {
		violations = append(violations, Violation{Field: FieldChurnRate, Value: in.ChurnPct, Message: "must be at least 0 and below 100"})
	}
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// ParsePeriodUnit maps a label to a PeriodUnit. Anything other than week
// or year means month.
func ParsePeriodUnit(s string) PeriodUnit {
	switch PeriodUnit(strings.ToLower(strings.TrimSpace(s))) {
	case UnitWeek:
		return UnitWeek
	case UnitYear:
		return UnitYear
	default:
		return UnitMonth
	}
}

func horizonPeriods(v float64) int {
	v = math.Max(v, 1)
	if v > horizonCeiling {
		return horizonCeiling
	}
	return int(v)
}

func (r RawInputs) lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func (r RawInputs) number(keys ...string) float64 {
	v, ok := r.lookup(keys...)
	if !ok {
		return 0
	}
	return parseNumber(v)
}

func (r RawInputs) text(keys ...string) string {
	v, ok := r.lookup(keys...)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	}
	return ""
}

func parseNumber(v any) float64 {
	var n float64
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return parsePrefixedInt(s)
		}
		n = f
	case []string:
		// url.Values hands over every submitted value.
		if len(t) == 0 {
			return 0
		}
		return parseNumber(t[0])
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		n = f
	case float64:
		n = t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	default:
		return 0
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// parsePrefixedInt reads unsigned 0x, 0o and 0b integer literals. Signs and
// digit separators are not accepted.
func parsePrefixedInt(s string) float64 {
	if len(s) < 3 || s[0] != '0' || strings.ContainsRune(s, '_') {
		return 0
	}
	switch s[1] {
	case 'x', 'X', 'o', 'O', 'b', 'B':
	default:
		return 0
	}
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0
	}
	return float64(u)
}
