// Package cli holds flag plumbing shared by the command-line binaries.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

var inputFlags = []struct {
	field string
	usage string
}{
	{ltv.FieldCohortSize, "Customers acquired in the cohort"},
	{ltv.FieldAOV, "Average order value"},
	{ltv.FieldOrdersPerPeriod, "Orders per active customer per period"},
	{ltv.FieldGrossMargin, "Gross margin percent (0-100)"},
	{ltv.FieldChurnRate, "Churn percent per period (0-100)"},
	{ltv.FieldHorizon, "Projection horizon in periods"},
	{ltv.FieldDiscountRate, "Discount percent per period (empty disables discounting)"},
	{ltv.FieldCAC, "Customer acquisition cost (empty disables LTV:CAC and payback)"},
	{ltv.FieldTimeUnit, "Period unit: week, month or year"},
}

// BindInputs registers one string flag per calculator field on fs, each
// defaulting to the calculator's reset value. The returned func collects
// the parsed values.
func BindInputs(fs *flag.FlagSet) func() ltv.RawInputs {
	defaults := ltv.DefaultRawInputs()
	values := make(map[string]*string, len(inputFlags))
	for _, f := range inputFlags {
		def, _ := defaults[f.field].(string)
		values[f.field] = fs.String(f.field, def, f.usage)
	}
	return func() ltv.RawInputs {
		raw := make(ltv.RawInputs, len(values))
		for field, v := range values {
			raw[field] = *v
		}
		return raw
	}
}

// ReportViolations prints one line per rejected field.
func ReportViolations(w io.Writer, err error) {
	ve, ok := ltv.AsValidationError(err)
	if !ok {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	for _, v := range ve.Violations {
		fmt.Fprintf(w, "invalid -%s=%g: %s\n", v.Field, v.Value, v.Message)
	}
}

// ErrHorizonLimit is returned when a run asks for more periods than the
// configured LTV_MAX_HORIZON.
var ErrHorizonLimit = errors.New("horizon limit exceeded")

// CheckHorizon rejects inputs whose horizon exceeds limit. A limit of
// zero or less disables the check.
func CheckHorizon(in ltv.ModelInputs, limit int) error {
	if limit > 0 && in.HorizonPeriods > limit {
		return fmt.Errorf("%w: horizon %d is above %d periods", ErrHorizonLimit, in.HorizonPeriods, limit)
	}
	return nil
}

// CheckSweepHorizon applies the same limit to the largest value of a
// horizon sweep.
func CheckSweepHorizon(d ltv.Driver, to float64, limit int) error {
	if d == ltv.DriverHorizon && limit > 0 && to > float64(limit) {
		return fmt.Errorf("%w: horizon sweep ends at %g, above %d periods", ErrHorizonLimit, to, limit)
	}
	return nil
}

// Output opens path for writing, or returns stdout when path is empty.
func Output(path string) (io.WriteCloser, error) {
	if strings.TrimSpace(path) == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
