package report

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
)

const (
	ActiveSeriesLabel = "Active Customers (% of Cohort)"
	LTVSeriesLabel    = "Cumulative Gross-Margin LTV per Customer (USD)"

	activeColor = "#38bdf8"
	ltvColor    = "#a855f7"
	tickColor   = "#9ca3af"
)

// ChartSpec is a Chart.js line chart configuration. Tick callbacks cannot
// travel as JSON, so scales carry a Format hint ("percent" or "usd")
// instead.
type ChartSpec struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
}

type ChartData struct {
	Labels   []int          `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

type ChartDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
	BorderWidth     int       `json:"borderWidth"`
	Tension         float64   `json:"tension"`
	YAxisID         string    `json:"yAxisID"`
}

type ChartOptions struct {
	Responsive          bool                  `json:"responsive"`
	MaintainAspectRatio bool                  `json:"maintainAspectRatio"`
	Interaction         ChartInteraction      `json:"interaction"`
	Scales              map[string]ChartScale `json:"scales"`
}

type ChartInteraction struct {
	Mode      string `json:"mode"`
	Intersect bool   `json:"intersect"`
}

type ChartScale struct {
	Position string      `json:"position,omitempty"`
	Title    *ChartTitle `json:"title,omitempty"`
	Ticks    ChartTicks  `json:"ticks"`
	Grid     ChartGrid   `json:"grid"`
}

type ChartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
	Color   string `json:"color"`
}

type ChartTicks struct {
	Color  string `json:"color"`
	Format string `json:"format,omitempty"`
}

type ChartGrid struct {
	Color           string `json:"color,omitempty"`
	DrawOnChartArea *bool  `json:"drawOnChartArea,omitempty"`
}

// BuildChart plots active customer share on the left axis and cumulative
// margin LTV per customer on the right axis.
func BuildChart(in ltv.ModelInputs, res ltv.ProjectionResult) ChartSpec {
	noArea := false
	return ChartSpec{
		Type: "line",
		Data: ChartData{
			Labels: append([]int(nil), res.PeriodLabels...),
			Datasets: []ChartDataset{
				{
					Label:           ActiveSeriesLabel,
					Data:            append([]float64(nil), res.ActiveCustomerPct...),
					BorderColor:     activeColor,
					BackgroundColor: "rgba(56, 189, 248, 0.2)",
					BorderWidth:     2,
					Tension:         0.25,
					YAxisID:         "y",
				},
				{
					Label:           LTVSeriesLabel,
					Data:            append([]float64(nil), res.CumulativeMarginPerCustomer...),
					BorderColor:     ltvColor,
					BackgroundColor: "rgba(168, 85, 247, 0.15)",
					BorderWidth:     2,
					Tension:         0.25,
					YAxisID:         "y1",
				},
			},
		},
		Options: ChartOptions{
			Responsive:          true,
			MaintainAspectRatio: false,
			Interaction:         ChartInteraction{Mode: "index", Intersect: false},
			Scales: map[string]ChartScale{
				"x": {
					Title: &ChartTitle{Display: true, Text: fmt.Sprintf("Period (%s)", UnitLabel(in.PeriodUnit, true)), Color: tickColor},
					Ticks: ChartTicks{Color: tickColor},
					Grid:  ChartGrid{Color: "rgba(55, 65, 81, 0.6)"},
				},
				"y": {
					Position: "left",
					Ticks:    ChartTicks{Color: tickColor, Format: "percent"},
					Grid:     ChartGrid{Color: "rgba(31, 41, 55, 0.7)"},
				},
				"y1": {
					Position: "right",
					Ticks:    ChartTicks{Color: tickColor, Format: "usd"},
					Grid:     ChartGrid{DrawOnChartArea: &noArea},
				},
			},
		},
	}
}

// SVG canvas geometry.
const (
	svgWidth   = 800
	svgHeight  = 360
	plotLeft   = 64
	plotRight  = svgWidth - 80
	plotTop    = 40
	plotBottom = svgHeight - 56
	yTicks     = 5
)

// RenderSVG draws spec as a static SVG for reports that cannot run
// Chart.js. Only the first two datasets are drawn, against the left and
// right axes respectively.
func RenderSVG(spec ChartSpec) string {
	var left, right ChartDataset
	if len(spec.Data.Datasets) > 0 {
		left = spec.Data.Datasets[0]
	}
	if len(spec.Data.Datasets) > 1 {
		right = spec.Data.Datasets[1]
	}
	leftMax := niceCeil(maxOf(left.Data))
	rightMax := niceCeil(maxOf(right.Data))
	xTitle := ""
	if x, ok := spec.Options.Scales["x"]; ok && x.Title != nil {
		xTitle = x.Title.Text
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d" font-family="sans-serif" font-size="11">`, svgWidth, svgHeight, svgWidth, svgHeight)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="#ffffff"/>`, svgWidth, svgHeight)

	for i := 0; i <= yTicks; i++ {
		frac := float64(i) / yTicks
		y := plotBottom - frac*(plotBottom-plotTop)
		fmt.Fprintf(&b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#e5e7eb"/>`, plotLeft, y, plotRight, y)
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" text-anchor="end" fill="%s">%.0f%%</text>`, plotLeft-6, y+4, tickColor, frac*leftMax)
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" text-anchor="start" fill="%s">$%.0f</text>`, plotRight+6, y+4, tickColor, frac*rightMax)
	}
	fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`, plotLeft, plotBottom, plotRight, plotBottom, tickColor)

	labels := spec.Data.Labels
	every := int(math.Ceil(float64(len(labels)) / 12))
	if every < 1 {
		every = 1
	}
	for i, label := range labels {
		if i%every != 0 && i != len(labels)-1 {
			continue
		}
		fmt.Fprintf(&b, `<text x="%.1f" y="%d" text-anchor="middle" fill="%s">%d</text>`, xAt(i, len(labels)), plotBottom+16, tickColor, label)
	}
	if xTitle != "" {
		fmt.Fprintf(&b, `<text x="%d" y="%d" text-anchor="middle" fill="%s">%s</text>`, (plotLeft+plotRight)/2, plotBottom+36, tickColor, html.EscapeString(xTitle))
	}

	writePolyline(&b, left, leftMax)
	writePolyline(&b, right, rightMax)

	legendX := plotLeft
	for _, ds := range []ChartDataset{left, right} {
		if ds.Label == "" {
			continue
		}
		fmt.Fprintf(&b, `<rect x="%d" y="14" width="12" height="12" fill="%s"/>`, legendX, ds.BorderColor)
		fmt.Fprintf(&b, `<text x="%d" y="24" fill="#1f2937">%s</text>`, legendX+18, html.EscapeString(ds.Label))
		legendX += 18 + 7*len(ds.Label)
	}
	b.WriteString(`</svg>`)
	return b.String()
}

func writePolyline(b *strings.Builder, ds ChartDataset, top float64) {
	if len(ds.Data) == 0 {
		return
	}
	points := make([]string, 0, len(ds.Data))
	for i, v := range ds.Data {
		y := plotBottom - (v/top)*(plotBottom-plotTop)
		points = append(points, fmt.Sprintf("%.1f,%.1f", xAt(i, len(ds.Data)), y))
	}
	width := ds.BorderWidth
	if width <= 0 {
		width = 2
	}
	fmt.Fprintf(b, `<polyline fill="none" stroke="%s" stroke-width="%d" points="%s"/>`, ds.BorderColor, width, strings.Join(points, " "))
}

func xAt(i, n int) float64 {
	if n <= 1 {
		return (plotLeft + plotRight) / 2
	}
	return plotLeft + float64(i)*float64(plotRight-plotLeft)/float64(n-1)
}

func maxOf(vs []float64) float64 {
	m := 0.0
	for _, v := range vs {
		if finite(v) && v > m {
			m = v
		}
	}
	return m
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, step := range []float64{1, 2, 5, 10} {
		if v <= step*exp {
			return step * exp
		}
	}
	return 10 * exp
}
