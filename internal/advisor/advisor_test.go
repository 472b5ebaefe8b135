package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/cohort-ltv/internal/ltv"
	"github.com/joelkehle/cohort-ltv/internal/report"
)

type scriptedCaller struct {
	replies []string
	errs    []error
	calls   int
	prompts []string
}

func (s *scriptedCaller) Generate(_ context.Context, _, prompt string) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return reply, err
}

func newTestAdvisor(c Caller) (*Advisor, *[]time.Duration) {
	var waits []time.Duration
	a := New(c, nil)
	a.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return a, &waits
}

func sampleDocument() report.Document {
	in := ltv.ModelInputs{CohortSize: 100, AOV: 80, OrdersPerPeriod: 1, GrossMarginPct: 65, ChurnPct: 8, HorizonPeriods: 24, CAC: 500, PeriodUnit: ltv.UnitMonth}
	return report.BuildDocument(in, ltv.Project(in))
}

func TestCommentaryReturnsCleanText(t *testing.T) {
	c := &scriptedCaller{replies: []string{"## Take\nChurn drives most of the value."}}
	a, _ := newTestAdvisor(c)
	got, err := a.Commentary(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "Churn drives most of the value.", got)
	require.Len(t, c.prompts, 1)
	assert.Contains(t, c.prompts[0], "LTV per customer (gross margin): $562.13")
	assert.Contains(t, c.prompts[0], "CAC: $500.00")
	assert.Contains(t, c.prompts[0], "Churn % per period")
}

func TestCommentaryRetriesTransientFailures(t *testing.T) {
	c := &scriptedCaller{
		errs:    []error{errors.New("status code: 503 server error"), errors.New("429 too many requests")},
		replies: []string{"", "", "Looks healthy."},
	}
	a, waits := newTestAdvisor(c)
	got, err := a.Commentary(context.Background(), sampleDocument())
	require.NoError(t, err)
	assert.Equal(t, "Looks healthy.", got)
	assert.Equal(t, 3, c.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
}

func TestCommentaryDoesNotRetryClientErrors(t *testing.T) {
	c := &scriptedCaller{errs: []error{errors.New("status code: 401 unauthorized")}}
	a, waits := newTestAdvisor(c)
	_, err := a.Commentary(context.Background(), sampleDocument())
	require.Error(t, err)
	assert.Equal(t, 1, c.calls)
	assert.Empty(t, *waits)
}

func TestCommentaryRetriesEmptyReplies(t *testing.T) {
	c := &scriptedCaller{replies: []string{"  ", "```\n\n```", "  "}}
	a, _ := newTestAdvisor(c)
	_, err := a.Commentary(context.Background(), sampleDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
	assert.Equal(t, 3, c.calls)
}

func TestAnnotateLeavesDocumentOnFailure(t *testing.T) {
	c := &scriptedCaller{errs: []error{errors.New("status code: 400 bad request")}}
	a, _ := newTestAdvisor(c)
	doc := sampleDocument()
	before := doc.ReportMarkdown
	assert.False(t, a.Annotate(context.Background(), &doc))
	assert.Equal(t, before, doc.ReportMarkdown)
	assert.Empty(t, doc.Commentary)
}

func TestAnnotateAttachesCommentary(t *testing.T) {
	a, _ := newTestAdvisor(&scriptedCaller{replies: []string{"Payback lands late in the horizon."}})
	doc := sampleDocument()
	assert.True(t, a.Annotate(context.Background(), &doc))
	assert.Equal(t, "Payback lands late in the horizon.", doc.Commentary)
	assert.True(t, strings.Contains(doc.ReportMarkdown, "## Analyst Commentary"))
}

func TestNilAdvisorIsDisabled(t *testing.T) {
	var a *Advisor
	assert.False(t, a.Enabled())
	_, err := a.Commentary(context.Background(), sampleDocument())
	assert.ErrorIs(t, err, ErrDisabled)
	doc := sampleDocument()
	assert.False(t, a.Annotate(context.Background(), &doc))
}

func TestNewFromKey(t *testing.T) {
	_, err := NewFromKey("", false, nil)
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = NewFromKey("sk-test", true, nil)
	assert.ErrorIs(t, err, ErrDisabled)
	a, err := NewFromKey("sk-test", false, nil)
	require.NoError(t, err)
	assert.True(t, a.Enabled())
}

func TestClassifyTransportError(t *testing.T) {
	assert.Equal(t, failureTimeout, classifyTransportError(context.DeadlineExceeded))
	assert.Equal(t, failureRateLimit, classifyTransportError(errors.New("got 429")))
	assert.Equal(t, failureClient, classifyTransportError(errors.New("status code: 404 not found")))
	assert.Equal(t, failureServer, classifyTransportError(errors.New("failed after 5 retries while waiting 4 seconds")))
	assert.Equal(t, failureClient, classifyTransportError(&anthropic.Error{StatusCode: 401}))
	assert.Equal(t, failureServer, classifyTransportError(&anthropic.Error{StatusCode: 529}))
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, time.Second, backoffDelay(1))
	assert.Equal(t, 2*time.Second, backoffDelay(2))
}

type fakeMessager struct {
	params anthropic.MessageNewParams
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	return &anthropic.Message{Content: []anthropic.ContentBlockUnion{
		{Type: "text", Text: "first "},
		{Type: "thinking"},
		{Type: "text", Text: "second"},
	}}, nil
}

func TestAnthropicCallerJoinsTextBlocks(t *testing.T) {
	f := &fakeMessager{}
	got, err := NewAnthropicCallerWith(f).Generate(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "first second", got)
	require.Len(t, f.params.System, 1)
	assert.Equal(t, "sys", f.params.System[0].Text)
	assert.Equal(t, int64(1024), f.params.MaxTokens)
}
