package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/cohort-ltv/internal/advisor"
	"github.com/joelkehle/cohort-ltv/internal/observability"
	"github.com/joelkehle/cohort-ltv/internal/report"
)

type fakePDF struct {
	err   error
	calls int
}

func (f *fakePDF) Render(_ context.Context, doc report.Document) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 " + doc.KPIs.LTVMarginPerCustomer), nil
}

type cannedCaller string

func (c cannedCaller) Generate(context.Context, string, string) (string, error) {
	return string(c), nil
}

func newServerForTest(opts Options) http.Handler {
	if opts.MaxHorizon == 0 {
		opts.MaxHorizon = 1200
	}
	return NewServer(opts)
}

func defaultBody() map[string]any {
	return map[string]any{
		"cohortSize":      "100",
		"aov":             "80",
		"ordersPerPeriod": "1",
		"grossMargin":     "65",
		"churnRate":       "8",
		"horizon":         "24",
		"cac":             "500",
		"timeUnit":        "month",
	}
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	blob, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(blob))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error envelope: %s", rec.Body.String())
	return errObj["code"].(string)
}

func TestHealthAndDefaults(t *testing.T) {
	h := newServerForTest(Options{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/defaults", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	inputs := decode(t, rec)["inputs"].(map[string]any)
	assert.Equal(t, "80", inputs["aov"])
	assert.Equal(t, "month", inputs["timeUnit"])
}

func TestProjectReturnsDocument(t *testing.T) {
	h := newServerForTest(Options{})
	rec := postJSON(t, h, "/v1/project", defaultBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	kpis := body["kpis"].(map[string]any)
	assert.Equal(t, "$562.13", kpis["ltv_margin_per_customer"])
	assert.Equal(t, "Payback reached in ~18 months.", kpis["cac_note"])
	result := body["result"].(map[string]any)
	assert.Equal(t, 18.0, result["payback_period"])
	assert.Len(t, result["period_labels"], 24)
	assert.Len(t, body["summary"], 4)
	assert.Contains(t, body["report_markdown"], "## Key Metrics")
	assert.NotContains(t, body, "commentary")
}

func TestProjectRejectionCarriesPlaceholders(t *testing.T) {
	metrics := observability.NewMetrics()
	h := newServerForTest(Options{Metrics: metrics})
	b := defaultBody()
	b["churnRate"] = "100"
	rec := postJSON(t, h, "/v1/project", b)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, false, body["ok"])
	errObj := body["error"].(map[string]any)
	assert.Equal(t, CodeInvalidInputs, errObj["code"])
	violations := errObj["violations"].([]any)
	require.Len(t, violations, 1)
	assert.Equal(t, "churnRate", violations[0].(map[string]any)["field"])
	assert.Equal(t, "–", body["kpis"].(map[string]any)["ltv_margin_per_customer"])
	assert.Equal(t, []any{"Run the LTV model to populate your summary."}, body["summary"])

	mrec := httptest.NewRecorder()
	h.ServeHTTP(mrec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, mrec.Body.String(), `ltv_validation_rejections_total{field="churnRate"} 1`)
}

func TestProjectAcceptsFormBody(t *testing.T) {
	h := newServerForTest(Options{})
	form := url.Values{}
	for k, v := range defaultBody() {
		form.Set(k, v.(string))
	}
	form.Set("timeUnit", "week")
	req := httptest.NewRequest(http.MethodPost, "/v1/validate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	inputs := decode(t, rec)["inputs"].(map[string]any)
	assert.Equal(t, "week", inputs["period_unit"])
	assert.Equal(t, 24.0, inputs["horizon_periods"])
}

func TestValidateRejectsNonObjectBody(t *testing.T) {
	h := newServerForTest(Options{})
	rec := postJSON(t, h, "/v1/validate", []int{1, 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, errorCode(t, rec))
}

func TestHorizonLimit(t *testing.T) {
	h := newServerForTest(Options{MaxHorizon: 60})
	b := defaultBody()
	b["horizon"] = 61
	rec := postJSON(t, h, "/v1/project.csv", b)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeLimitExceeded, errorCode(t, rec))
}

func TestProjectCSV(t *testing.T) {
	h := newServerForTest(Options{})
	rec := postJSON(t, h, "/v1/project.csv", defaultBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "ltv_calculator_output.csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 25)
	assert.Equal(t, "1,100.00,80.00,52.00,52.00,5200.00", lines[1])
}

func TestReportMarkdownAndHTML(t *testing.T) {
	h := newServerForTest(Options{})
	rec := postJSON(t, h, "/v1/report", defaultBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Customer Lifetime Value Projection"))

	rec = postJSON(t, h, "/v1/report.html", defaultBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestReportPDF(t *testing.T) {
	pdf := &fakePDF{}
	h := newServerForTest(Options{PDF: pdf})
	rec := postJSON(t, h, "/v1/report.pdf", defaultBody())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 $562.13", rec.Body.String())
	assert.Equal(t, 1, pdf.calls)
}

func TestReportPDFFailures(t *testing.T) {
	rec := postJSON(t, newServerForTest(Options{}), "/v1/report.pdf", defaultBody())
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, CodeUnavailable, errorCode(t, rec))

	metrics := observability.NewMetrics()
	h := newServerForTest(Options{PDF: &fakePDF{err: errors.New("chrome missing")}, Metrics: metrics})
	rec = postJSON(t, h, "/v1/report.pdf", defaultBody())
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, CodeRenderFailed, errorCode(t, rec))

	mrec := httptest.NewRecorder()
	h.ServeHTTP(mrec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, mrec.Body.String(), `ltv_renders_total{format="pdf",status="error"} 1`)
}

func TestProjectWithCommentary(t *testing.T) {
	adv := advisor.New(cannedCaller("Churn is the lever to watch."), nil)
	h := newServerForTest(Options{Advisor: adv})

	rec := postJSON(t, h, "/v1/project?commentary=1", defaultBody())
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Churn is the lever to watch.", body["commentary"])
	assert.Contains(t, body["report_markdown"], "## Analyst Commentary")

	rec = postJSON(t, h, "/v1/project", defaultBody())
	assert.NotContains(t, decode(t, rec), "commentary")
}

func TestSensitivityEndpoint(t *testing.T) {
	h := newServerForTest(Options{})
	rec := postJSON(t, h, "/v1/sensitivity?step=0.2", defaultBody())
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 0.2, body["step"])
	assert.Len(t, body["drivers"], 5)

	rec = postJSON(t, h, "/v1/sensitivity?step=2", defaultBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweepEndpoint(t *testing.T) {
	h := newServerForTest(Options{})
	rec := postJSON(t, h, "/v1/sweep?driver=churnPct&from=2&to=20&step=2", defaultBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "churnRate", body["driver"])
	points := body["points"].([]any)
	require.Len(t, points, 10)
	assert.Equal(t, true, points[0].(map[string]any)["valid"])

	rec = postJSON(t, h, "/v1/sweep?driver=timeUnit&from=1&to=2&step=1", defaultBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = postJSON(t, h, "/v1/sweep?driver=aov&from=10&to=1&step=1", defaultBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSweepHorizonRespectsLimit(t *testing.T) {
	h := newServerForTest(Options{MaxHorizon: 100})
	rec := postJSON(t, h, "/v1/sweep?driver=horizon&from=12&to=240&step=12", defaultBody())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeLimitExceeded, errorCode(t, rec))
}

func TestSweepRejectsOversizedRange(t *testing.T) {
	h := newServerForTest(Options{})
	for _, q := range []string{
		"driver=aov&from=0&to=1e20&step=1",
		"driver=aov&from=0&to=1e300&step=1e-300",
		"driver=cac&from=0&to=20000&step=1",
	} {
		rec := postJSON(t, h, "/v1/sweep?"+q, defaultBody())
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Equal(t, CodeLimitExceeded, errorCode(t, rec), q)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newServerForTest(Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/project", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAccessLogRecordsRouteLatency(t *testing.T) {
	metrics := observability.NewMetrics()
	h := newServerForTest(Options{Metrics: metrics})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mrec := httptest.NewRecorder()
	h.ServeHTTP(mrec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, mrec.Body.String(), `route="/v1/health"`)
}
