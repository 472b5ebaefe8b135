package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/joelkehle/cohort-ltv/internal/advisor"
	"github.com/joelkehle/cohort-ltv/internal/cli"
	"github.com/joelkehle/cohort-ltv/internal/config"
	"github.com/joelkehle/cohort-ltv/internal/ltv"
	"github.com/joelkehle/cohort-ltv/internal/observability"
	"github.com/joelkehle/cohort-ltv/internal/report"
)

var formats = []string{"text", "markdown", "json", "csv", "html", "pdf", "chart"}

type options struct {
	format     string
	output     string
	commentary bool
	maxHorizon int
	raw        ltv.RawInputs
}

func main() {
	fs := flag.NewFlagSet("ltv", flag.ExitOnError)
	format := fs.String("format", "text", "Output format: "+strings.Join(formats, "|"))
	output := fs.String("output", "", "Path to write output (defaults to stdout)")
	commentary := fs.Bool("commentary", false, "Ask the LLM advisor for commentary (needs ANTHROPIC_API_KEY)")
	inputs := cli.BindInputs(fs)
	_ = fs.Parse(os.Args[1:])

	cfg := config.Load()
	log, err := observability.NewLogger(observability.LoggerConfig{
		ServiceName: cfg.ServiceName,
		Level:       cfg.LogLevel,
		Format:      "console",
		Output:      "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := options{
		format:     *format,
		output:     *output,
		commentary: *commentary,
		maxHorizon: cfg.MaxHorizon,
		raw:        inputs(),
	}
	deps := runDeps{log: log}
	if opts.format == "pdf" {
		deps.pdf = report.NewPDFRenderer(cfg.ChromePath, cfg.HTTPTimeout)
	}
	if opts.commentary {
		adv, err := advisor.NewFromKey(cfg.AnthropicAPIKey, cfg.NoLLM, log)
		if err != nil {
			log.Warn("commentary skipped", zap.Error(err))
		}
		deps.advisor = adv
	}

	out, err := cli.Output(opts.output)
	if err != nil {
		log.Fatal("open output", zap.Error(err))
	}
	runErr := run(ctx, opts, deps, out)
	if err := out.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		if _, ok := ltv.AsValidationError(runErr); ok {
			cli.ReportViolations(os.Stderr, runErr)
			os.Exit(1)
		}
		log.Fatal("ltv failed", zap.Error(runErr))
	}
}

type pdfRenderer interface {
	Render(ctx context.Context, doc report.Document) ([]byte, error)
}

type runDeps struct {
	log     *zap.Logger
	pdf     pdfRenderer
	advisor *advisor.Advisor
}

func run(ctx context.Context, opts options, deps runDeps, w io.Writer) error {
	if deps.log == nil {
		deps.log = zap.NewNop()
	}
	in, err := ltv.Validate(opts.raw)
	if err != nil {
		return err
	}
	if err := cli.CheckHorizon(in, opts.maxHorizon); err != nil {
		return err
	}
	res := ltv.Project(in)
	deps.log.Debug("projected",
		zap.Int("horizon", in.HorizonPeriods),
		zap.Float64("ltv_margin", res.LTVMarginPerCustomer),
	)

	if opts.format == "csv" {
		return report.WriteCSV(w, res)
	}
	doc := report.BuildDocument(in, res)
	if opts.commentary {
		deps.advisor.Annotate(ctx, &doc)
	}

	switch opts.format {
	case "text":
		return writeText(w, doc)
	case "markdown":
		_, err := io.WriteString(w, doc.ReportMarkdown)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "html":
		html, err := report.RenderHTML(doc)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html)
		return err
	case "pdf":
		if deps.pdf == nil {
			return errors.New("pdf renderer not configured")
		}
		pdf, err := deps.pdf.Render(ctx, doc)
		if err != nil {
			return err
		}
		_, err = w.Write(pdf)
		return err
	case "chart":
		_, err := io.WriteString(w, report.RenderSVG(doc.Chart))
		return err
	default:
		return fmt.Errorf("unknown format %q (want %s)", opts.format, strings.Join(formats, "|"))
	}
}

func writeText(w io.Writer, doc report.Document) error {
	k := doc.KPIs
	var b strings.Builder
	fmt.Fprintf(&b, "Horizon:                %s\n", k.HorizonLabel)
	fmt.Fprintf(&b, "Revenue LTV / customer: %s\n", k.LTVRevenuePerCustomer)
	fmt.Fprintf(&b, "Margin LTV / customer:  %s (%s margin)\n", k.LTVMarginPerCustomer, k.MarginLabel)
	fmt.Fprintf(&b, "Cohort margin LTV:      %s\n", k.LTVMarginCohort)
	fmt.Fprintf(&b, "LTV:CAC:                %s\n", k.LTVToCACRatio)
	fmt.Fprintf(&b, "%s\n\n", k.CACNote)
	for _, line := range doc.Summary {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	if doc.Commentary != "" {
		fmt.Fprintf(&b, "\n%s\n", doc.Commentary)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
