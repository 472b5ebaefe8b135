package report

import (
	_ "embed"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed style.css
var styleCSS string

var (
	rePeriodDetail = regexp.MustCompile(`(?i)<h2([^>]*)>\s*` + periodDetailTitle + `\s*</h2>`)
	reTable        = regexp.MustCompile(`<table>`)
)

// RenderHTML converts the document markdown to a standalone HTML page with
// the chart drawn inline.
func RenderHTML(doc Document) (string, error) {
	var content strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(doc.ReportMarkdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	contentHTML := applyPrintLayoutHooks(content.String())

	return "<!doctype html><html><head><meta charset='utf-8'><title>Customer LTV Projection</title>" +
		"<style>" + styleCSS + "</style></head><body>" +
		"<div class='report-wrap'><div class='report-header'>" +
		"<div class='report-meta'>" + buildMetaHTML(doc) + "</div>" +
		"<div class='report-badges'>" + buildBadgeHTML(doc) + "</div>" +
		"</div>" +
		"<figure class='report-chart'>" + RenderSVG(doc.Chart) + "</figure>" +
		"<div class='report-html'>" + contentHTML + "</div></div>" +
		"</body></html>", nil
}

// applyPrintLayoutHooks starts the period table on a fresh page and tags
// tables so print CSS can target them.
func applyPrintLayoutHooks(contentHTML string) string {
	out := rePeriodDetail.ReplaceAllString(contentHTML, `<h2$1 data-page-break-before="true">`+periodDetailTitle+`</h2>`)
	return reTable.ReplaceAllString(out, `<table class="report-table">`)
}

func buildMetaHTML(doc Document) string {
	var out strings.Builder
	out.WriteString("<div><strong>Horizon:</strong> " + html.EscapeString(doc.KPIs.HorizonLabel) + "</div>")
	out.WriteString("<div><strong>Margin LTV per customer:</strong> " + html.EscapeString(doc.KPIs.LTVMarginPerCustomer) + "</div>")
	if !doc.GeneratedAt.IsZero() {
		out.WriteString("<div><strong>Date:</strong> " + html.EscapeString(doc.GeneratedAt.In(time.Local).Format("January 2, 2006 at 3:04 PM MST")) + "</div>")
	}
	return out.String()
}

func buildBadgeHTML(doc Document) string {
	var out strings.Builder
	if doc.Result.LTVToCACRatio != nil {
		out.WriteString("<span class='report-badge'>LTV:CAC " + html.EscapeString(doc.KPIs.LTVToCACRatio) + "</span>")
	}
	if doc.Result.PaybackPeriod != nil {
		out.WriteString("<span class='report-badge'>Payback: period " + fmt.Sprint(*doc.Result.PaybackPeriod) + "</span>")
	}
	if doc.Inputs.DiscountEnabled() {
		out.WriteString("<span class='report-badge'>Discounted " + html.EscapeString(FormatPercent(doc.Inputs.DiscountPct, 2)) + "</span>")
	}
	return out.String()
}
