package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/joelkehle/cohort-ltv/internal/advisor"
	"github.com/joelkehle/cohort-ltv/internal/ltv"
	"github.com/joelkehle/cohort-ltv/internal/observability"
	"github.com/joelkehle/cohort-ltv/internal/report"
)

const maxBodyBytes = 1 << 20

// PDFRenderer turns a report document into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, doc report.Document) ([]byte, error)
}

type Options struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	PDF     PDFRenderer
	Advisor *advisor.Advisor
	// MaxHorizon caps horizon periods per request. Zero means no cap.
	MaxHorizon int
	// Timeout bounds each request. Zero disables the timeout middleware.
	Timeout time.Duration
}

type Server struct {
	log        *zap.Logger
	metrics    *observability.Metrics
	pdf        PDFRenderer
	advisor    *advisor.Advisor
	maxHorizon int
}

func NewServer(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		log:        log,
		metrics:    opts.Metrics,
		pdf:        opts.PDF,
		advisor:    opts.Advisor,
		maxHorizon: opts.MaxHorizon,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log, s.metrics))
	r.Use(middleware.Recoverer)
	if opts.Timeout > 0 {
		r.Use(middleware.Timeout(opts.Timeout))
	}

	r.Get("/v1/health", s.handleHealth)
	r.Get("/v1/defaults", s.handleDefaults)
	r.Post("/v1/validate", s.handleValidate)
	r.Post("/v1/project", s.handleProject)
	r.Post("/v1/project.csv", s.handleProjectCSV)
	r.Post("/v1/report", s.handleReportMarkdown)
	r.Post("/v1/report.html", s.handleReportHTML)
	r.Post("/v1/report.pdf", s.handleReportPDF)
	r.Post("/v1/sensitivity", s.handleSensitivity)
	r.Post("/v1/sweep", s.handleSweep)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	e := apiError(err)
	writeJSON(w, e.Status, errorPayload(e))
}

// readInputs accepts a JSON object or a form body carrying the raw field
// values.
func readInputs(r *http.Request) (ltv.RawInputs, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, newError(CodeValidation, "invalid form body: "+err.Error(), false)
		}
		raw := ltv.RawInputs{}
		for k, v := range r.PostForm {
			raw[k] = v
		}
		return raw, nil
	}

	blob, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, newError(CodeValidation, "read body: "+err.Error(), false)
	}
	if len(blob) > maxBodyBytes {
		return nil, newError(CodeLimitExceeded, "request body too large", false)
	}
	if len(bytes.TrimSpace(blob)) == 0 {
		return ltv.RawInputs{}, nil
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, newError(CodeValidation, "request body must be a JSON object", false)
	}
	return ltv.RawInputs(raw), nil
}

// validate reads and validates the request inputs, enforcing the horizon
// cap. Rejections are counted by field.
func (s *Server) validate(r *http.Request) (ltv.ModelInputs, error) {
	ctx, span := observability.StartSpan(r.Context(), "ltv.validate")
	defer span.End()

	raw, err := readInputs(r.WithContext(ctx))
	if err != nil {
		span.SetStatus(codes.Error, "bad request body")
		return ltv.ModelInputs{}, err
	}
	in, err := ltv.Validate(raw)
	if err != nil {
		if ve, ok := ltv.AsValidationError(err); ok {
			s.metrics.ObserveRejection(ve.Fields())
		}
		span.SetStatus(codes.Error, "invalid inputs")
		return ltv.ModelInputs{}, err
	}
	if s.maxHorizon > 0 && in.HorizonPeriods > s.maxHorizon {
		s.metrics.ObserveRejection([]string{ltv.FieldHorizon})
		span.SetStatus(codes.Error, "horizon limit")
		return ltv.ModelInputs{}, newError(CodeLimitExceeded,
			fmt.Sprintf("horizon %d exceeds the limit of %d periods", in.HorizonPeriods, s.maxHorizon), false)
	}
	return in, nil
}

func (s *Server) project(ctx context.Context, in ltv.ModelInputs) ltv.ProjectionResult {
	_, span := observability.StartSpan(ctx, "ltv.project",
		attribute.Int("ltv.horizon", in.HorizonPeriods),
		attribute.String("ltv.period_unit", string(in.PeriodUnit)),
		attribute.Bool("ltv.discounted", in.DiscountEnabled()),
	)
	defer span.End()
	res := ltv.Project(in)
	s.metrics.ObserveProjection(in.HorizonPeriods)
	return res
}

// document validates, projects and, when asked via ?commentary=1, adds
// analyst commentary.
func (s *Server) document(r *http.Request) (report.Document, error) {
	in, err := s.validate(r)
	if err != nil {
		return report.Document{}, err
	}
	doc := report.BuildDocument(in, s.project(r.Context(), in))
	if wantCommentary(r) {
		s.advisor.Annotate(r.Context(), &doc)
	}
	return doc, nil
}

func wantCommentary(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("commentary"))
	return err == nil && v
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDefaults(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "inputs": ltv.DefaultRawInputs()})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	in, err := s.validate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "inputs": in})
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r)
	if err != nil {
		e := apiError(err)
		payload := errorPayload(e)
		payload["kpis"] = report.EmptyKPIs()
		payload["summary"] = report.EmptySummary()
		writeJSON(w, e.Status, payload)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
		report.Document
	}{OK: true, Document: doc})
}

func (s *Server) handleProjectCSV(w http.ResponseWriter, r *http.Request) {
	in, err := s.validate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	res := s.project(r.Context(), in)
	var buf bytes.Buffer
	err = s.render(r.Context(), "csv", func() error { return report.WriteCSV(&buf, res) })
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.CSVFilename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.ObserveRender("markdown", nil)
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc.ReportMarkdown)
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	doc, err := s.document(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var out string
	err = s.render(r.Context(), "html", func() error {
		var rerr error
		out, rerr = report.RenderHTML(doc)
		return rerr
	})
	if err != nil {
		writeError(w, newError(CodeRenderFailed, err.Error(), false))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if s.pdf == nil {
		writeError(w, newError(CodeUnavailable, "pdf rendering is not configured", false))
		return
	}
	doc, err := s.document(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var pdf []byte
	err = s.render(r.Context(), "pdf", func() error {
		var rerr error
		pdf, rerr = s.pdf.Render(r.Context(), doc)
		return rerr
	})
	if err != nil {
		s.log.Error("pdf render failed", zap.Error(err), zap.String("request_id", middleware.GetReqID(r.Context())))
		writeError(w, newError(CodeRenderFailed, err.Error(), true))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="ltv_report.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (s *Server) handleSensitivity(w http.ResponseWriter, r *http.Request) {
	step := ltv.DefaultSensitivityStep
	if v := strings.TrimSpace(r.URL.Query().Get("step")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 || f >= 1 {
			writeError(w, newError(CodeValidation, "step must be a fraction between 0 and 1", false))
			return
		}
		step = f
	}
	in, err := s.validate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"inputs":  in,
		"step":    step,
		"drivers": ltv.Sensitivity(in, step),
	})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	driver, err := ltv.ParseDriver(q.Get("driver"))
	if err != nil {
		writeError(w, newError(CodeValidation, err.Error(), false))
		return
	}
	from, ferr := strconv.ParseFloat(q.Get("from"), 64)
	to, terr := strconv.ParseFloat(q.Get("to"), 64)
	step, serr := strconv.ParseFloat(q.Get("step"), 64)
	if ferr != nil || terr != nil || serr != nil {
		writeError(w, newError(CodeValidation, "from, to and step must be numbers", false))
		return
	}
	values, err := ltv.SweepRange(from, to, step)
	if err != nil {
		code := CodeValidation
		if errors.Is(err, ltv.ErrSweepTooLarge) {
			code = CodeLimitExceeded
		}
		writeError(w, newError(code, err.Error(), false))
		return
	}
	if driver == ltv.DriverHorizon && s.maxHorizon > 0 && to > float64(s.maxHorizon) {
		writeError(w, newError(CodeLimitExceeded, fmt.Sprintf("horizon sweep exceeds the limit of %d periods", s.maxHorizon), false))
		return
	}
	in, err := s.validate(r)
	if err != nil {
		writeError(w, err)
		return
	}
	_, span := observability.StartSpan(r.Context(), "ltv.sweep",
		attribute.String("ltv.driver", string(driver)),
		attribute.Int("ltv.points", len(values)))
	points, err := ltv.Sweep(in, driver, values, nil)
	span.End()
	if err != nil {
		writeError(w, newError(CodeValidation, err.Error(), false))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"driver": driver,
		"inputs": in,
		"points": points,
	})
}

// render runs fn inside a report.render span and counts the outcome.
func (s *Server) render(ctx context.Context, format string, fn func() error) error {
	_, span := observability.StartSpan(ctx, "report.render", attribute.String("report.format", format))
	defer span.End()
	err := fn()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
	}
	s.metrics.ObserveRender(format, err)
	return err
}
