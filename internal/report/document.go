package report

import (
	"time"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

const Disclaimer = "This projection is a deterministic model of the assumptions entered, not a forecast. " +
	"Actual retention and ordering behavior will differ from a constant churn rate."

// now is replaced in tests.
var now = time.Now

// Document bundles a projection with everything needed to present it.
type Document struct {
	GeneratedAt    time.Time               `json:"generated_at"`
	Inputs         ltv.ModelInputs         `json:"inputs"`
	Result         ltv.ProjectionResult    `json:"result"`
	KPIs           KPIs                    `json:"kpis"`
	Summary        []string                `json:"summary"`
	Chart          ChartSpec               `json:"chart"`
	Sensitivity    []ltv.SensitivityDriver `json:"sensitivity"`
	Commentary     string                  `json:"commentary,omitempty"`
	ReportMarkdown string                  `json:"report_markdown"`
	Disclaimer     string                  `json:"disclaimer"`
}

func BuildDocument(in ltv.ModelInputs, res ltv.ProjectionResult) Document {
	doc := Document{
		GeneratedAt: now().UTC(),
		Inputs:      in,
		Result:      res,
		KPIs:        BuildKPIs(in, res),
		Summary:     BuildSummary(in, res),
		Chart:       BuildChart(in, res),
		Sensitivity: ltv.Sensitivity(in, ltv.DefaultSensitivityStep),
		Disclaimer:  Disclaimer,
	}
	doc.ReportMarkdown = BuildMarkdown(doc)
	return doc
}

// SetCommentary attaches analyst commentary and re-renders the markdown.
func (d *Document) SetCommentary(text string) {
	d.Commentary = text
	d.ReportMarkdown = BuildMarkdown(*d)
}
