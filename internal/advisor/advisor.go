// Package advisor asks a language model for a short plain-language reading
// of a projection. It is optional: reports are complete without it.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
	"github.com/joelkehle/cohort-ltv/internal/report"
)

const systemPrompt = "You are a retail finance analyst reviewing a customer lifetime value projection. " +
	"Write two or three short paragraphs of plain prose for an operator: what the numbers imply, " +
	"which assumption matters most, and one concrete thing to check. No headings, no lists, no markdown tables."

const maxAttempts = 3

// ErrDisabled is returned by NewFromKey when commentary is switched off or
// no API key is configured.
var ErrDisabled = errors.New("commentary disabled")

type Advisor struct {
	caller Caller
	log    *zap.Logger
	sleep  func(context.Context, time.Duration) error
}

func New(caller Caller, log *zap.Logger) *Advisor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Advisor{caller: caller, log: log, sleep: sleepContext}
}

// NewFromKey builds an Anthropic-backed advisor.
func NewFromKey(apiKey string, disabled bool, log *zap.Logger) (*Advisor, error) {
	apiKey = strings.TrimSpace(apiKey)
	if disabled {
		return nil, fmt.Errorf("%w: LTV_NO_LLM is set", ErrDisabled)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY not configured", ErrDisabled)
	}
	return New(NewAnthropicCaller(apiKey), log), nil
}

// Enabled reports whether a is usable. A nil advisor is valid and disabled.
func (a *Advisor) Enabled() bool {
	return a != nil && a.caller != nil
}

// Commentary returns the model's reading of doc. Transport failures that
// look transient are retried with backoff, as are empty replies.
func (a *Advisor) Commentary(ctx context.Context, doc report.Document) (string, error) {
	if !a.Enabled() {
		return "", ErrDisabled
	}
	prompt := buildPrompt(doc)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := a.caller.Generate(ctx, systemPrompt, prompt)
		if err != nil {
			class := classifyTransportError(err)
			if class.retryable() && attempt < maxAttempts {
				a.log.Warn("commentary transport failure, retrying",
					zap.Int("attempt", attempt), zap.Error(err))
				if serr := a.sleep(ctx, backoffDelay(attempt)); serr != nil {
					return "", fmt.Errorf("commentary: %w", serr)
				}
				continue
			}
			return "", fmt.Errorf("commentary transport failure: %w", err)
		}
		text := cleanCommentary(raw)
		if text == "" {
			if attempt < maxAttempts {
				a.log.Warn("commentary empty, retrying", zap.Int("attempt", attempt))
				continue
			}
			return "", errors.New("commentary failed: empty response")
		}
		return text, nil
	}
	return "", errors.New("commentary failed after retries")
}

// Annotate attaches commentary to doc when the advisor is enabled. Errors
// are logged and leave doc unchanged.
func (a *Advisor) Annotate(ctx context.Context, doc *report.Document) bool {
	if !a.Enabled() || doc == nil {
		return false
	}
	text, err := a.Commentary(ctx, *doc)
	if err != nil {
		a.log.Warn("commentary unavailable", zap.Error(err))
		return false
	}
	doc.SetCommentary(text)
	return true
}

func buildPrompt(doc report.Document) string {
	in := doc.Inputs
	var b strings.Builder
	fmt.Fprintf(&b, "Cohort projection over %s.\n\n", doc.KPIs.HorizonLabel)
	fmt.Fprintf(&b, "Assumptions:\n")
	fmt.Fprintf(&b, "- Cohort size: %s\n", report.FormatNumber(in.CohortSize))
	fmt.Fprintf(&b, "- Average order value: %s\n", report.FormatCurrency(in.AOV))
	fmt.Fprintf(&b, "- Orders per %s: %.2f\n", report.UnitLabel(in.PeriodUnit, false), in.OrdersPerPeriod)
	fmt.Fprintf(&b, "- Gross margin: %.1f%%\n", in.GrossMarginPct)
	fmt.Fprintf(&b, "- Churn per %s: %.1f%%\n", report.UnitLabel(in.PeriodUnit, false), in.ChurnPct)
	if in.DiscountEnabled() {
		fmt.Fprintf(&b, "- Discount rate per period: %.2f%%\n", in.DiscountPct)
	}
	if in.CACEnabled() {
		fmt.Fprintf(&b, "- CAC: %s\n", report.FormatCurrency(in.CAC))
	}
	fmt.Fprintf(&b, "\nResults:\n")
	fmt.Fprintf(&b, "- LTV per customer (revenue): %s\n", doc.KPIs.LTVRevenuePerCustomer)
	fmt.Fprintf(&b, "- LTV per customer (gross margin): %s\n", doc.KPIs.LTVMarginPerCustomer)
	fmt.Fprintf(&b, "- Cohort gross-margin LTV: %s\n", doc.KPIs.LTVMarginCohort)
	fmt.Fprintf(&b, "- LTV:CAC: %s\n", doc.KPIs.LTVToCACRatio)
	fmt.Fprintf(&b, "- %s\n", doc.KPIs.CACNote)
	if len(doc.Sensitivity) > 0 {
		fmt.Fprintf(&b, "\nSensitivity (margin LTV swing for a %.0f%% move each way):\n", ltv.DefaultSensitivityStep*100)
		for _, d := range doc.Sensitivity {
			fmt.Fprintf(&b, "- %s: %s\n", report.DriverLabel(d.Driver), report.FormatCurrency(d.LTVDeltaUSD))
		}
	}
	return b.String()
}

// cleanCommentary strips code fences and headings a model may add anyway.
func cleanCommentary(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if _, rest, ok := strings.Cut(s, "\n"); ok {
			s = rest
		}
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "#") {
			continue
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
