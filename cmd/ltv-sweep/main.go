package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"

	"github.com/joelkehle/cohort-ltv/internal/cli"
	"github.com/joelkehle/cohort-ltv/internal/config"
	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

func main() {
	fs := flag.NewFlagSet("ltv-sweep", flag.ExitOnError)
	driver := fs.String("driver", string(ltv.DriverChurnRate), "Input to vary (cohortSize, aov, ordersPerPeriod, grossMargin, churnRate, horizon, discountRate, cac)")
	from := fs.Float64("from", 1, "First value")
	to := fs.Float64("to", 20, "Last value")
	step := fs.Float64("step", 1, "Increment between values")
	output := fs.String("output", "", "Path to write CSV (defaults to stdout)")
	quiet := fs.Bool("quiet", false, "Hide the progress bar")
	inputs := cli.BindInputs(fs)
	_ = fs.Parse(os.Args[1:])

	cfg := config.Load()
	base, err := ltv.Validate(inputs())
	if err != nil {
		cli.ReportViolations(os.Stderr, err)
		os.Exit(1)
	}
	d, err := ltv.ParseDriver(*driver)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	if err := checkLimits(base, d, *to, cfg.MaxHorizon); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	values, err := ltv.SweepRange(*from, *to, *step)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	var progress func(done, total int)
	if !*quiet {
		bar := progressbar.NewOptions(len(values),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("sweeping "+string(d)),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		progress = func(done, _ int) { _ = bar.Set(done) }
	}
	points, err := ltv.Sweep(base, d, values, progress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	out, err := cli.Output(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open output: %v\n", err)
		os.Exit(1)
	}
	if err := writePoints(out, d, points); err != nil {
		fmt.Fprintf(os.Stderr, "write csv: %v\n", err)
		os.Exit(1)
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close output: %v\n", err)
		os.Exit(1)
	}
}

// checkLimits applies LTV_MAX_HORIZON to the base inputs and, for a horizon
// sweep, to its last value.
func checkLimits(base ltv.ModelInputs, d ltv.Driver, to float64, maxHorizon int) error {
	if err := cli.CheckHorizon(base, maxHorizon); err != nil {
		return err
	}
	return cli.CheckSweepHorizon(d, to, maxHorizon)
}

func writePoints(w io.Writer, d ltv.Driver, points []ltv.SweepPoint) error {
	cw := csv.NewWriter(w)
	header := []string{string(d), "valid", "ltv_revenue_per_customer", "ltv_margin_per_customer",
		"ltv_margin_cohort", "ltv_to_cac_ratio", "payback_period", "final_active_pct", "error"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.Value, 'g', -1, 64),
			strconv.FormatBool(p.Valid),
			money(p.LTVRevenuePerCustomer),
			money(p.LTVMarginPerCustomer),
			money(p.LTVMarginCohort),
			"",
			"",
			strconv.FormatFloat(p.FinalActivePct, 'f', 2, 64),
			p.Error,
		}
		if p.LTVToCACRatio != nil {
			row[5] = strconv.FormatFloat(*p.LTVToCACRatio, 'f', 4, 64)
		}
		if p.PaybackPeriod != nil {
			row[6] = strconv.Itoa(*p.PaybackPeriod)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
