package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/Rohitw3code/ticket-triage-agent/internal/models"
)

// scriptedModel returns canned responses (or errors) in order, repeating the
// last entry once the script runs out.
type scriptedModel struct {
	script []scriptStep
	calls  int
}

type scriptStep struct {
	resp *llms.ContentResponse
	err  error
}

func (m *scriptedModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	step := m.script[len(m.script)-1]
	if m.calls < len(m.script) {
		step = m.script[m.calls]
	}
	m.calls++
	return step.resp, step.err
}

func (m *scriptedModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}
}

func toolCallResponse(arguments string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID:   "call-1",
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      "classify_ticket",
					Arguments: arguments,
				},
			}},
		}},
	}
}

func newTestGateway(model llms.Model) *Gateway {
	return NewGatewayFromParts(model, nil, testPolicy(), 0.5, testLogger())
}

func ticketState(matches ...models.KBMatch) models.TicketState {
	return models.TicketState{
		ThreadID:    "t-1",
		Description: "Getting error 500 on mobile checkout",
		KBMatches:   matches,
	}
}

func TestClassifyParsesToolCall(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{
		resp: toolCallResponse(`{
			"summary": "Checkout returns error 500 on mobile, matching known issue ISSUE-101.",
			"category": "Bug",
			"severity": "High",
			"issue_type": "known_issue",
			"next_action": "Escalate to payments team; link to ISSUE-101"
		}`),
	}}}
	g := newTestGateway(model)

	match := models.KBMatch{EntryID: "ISSUE-101", Title: "Checkout error 500 on mobile", Similarity: 0.83}
	c, err := g.Classify(context.Background(), ticketState(match))
	require.NoError(t, err)

	assert.Equal(t, models.CategoryBug, c.Category)
	assert.Equal(t, models.SeverityHigh, c.Severity)
	assert.Equal(t, models.IssueTypeKnown, c.IssueType)
	assert.Contains(t, c.NextAction, "Escalate")
	require.Len(t, c.RelatedIssues, 1)
	assert.Equal(t, "ISSUE-101", c.RelatedIssues[0].EntryID)
}

func TestClassifyParsesPlainJSONContent(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{
		resp: textResponse("Here is the classification:\n" +
			`{"summary": "s", "category": "Login", "severity": "Low", "issue_type": "new_issue", "next_action": "Ask customer for logs/screenshots"}`),
	}}}
	g := newTestGateway(model)

	c, err := g.Classify(context.Background(), ticketState())
	require.NoError(t, err)
	assert.Equal(t, models.CategoryLogin, c.Category)
	assert.Equal(t, models.IssueTypeNew, c.IssueType)
}

func TestClassifyFallbackWhenRetriesExhausted(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{err: errors.New("rate limit exceeded")}}}
	g := newTestGateway(model)

	match := models.KBMatch{EntryID: "ISSUE-101", Similarity: 0.83}
	c, err := g.Classify(context.Background(), ticketState(match))
	require.NoError(t, err, "exhausted retries must yield a fallback, not an error")

	assert.Equal(t, "Manual review required", c.NextAction)
	assert.Equal(t, models.SeverityMedium, c.Severity)
	assert.Equal(t, models.IssueTypeKnown, c.IssueType, "top match at or above threshold is a known issue")
	assert.Equal(t, 4, model.calls, "all attempts must be spent before falling back")
}

func TestClassifyFallbackIssueTypeBelowThreshold(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{err: errors.New("timeout")}}}
	g := newTestGateway(model)

	match := models.KBMatch{EntryID: "ISSUE-104", Similarity: 0.2}
	c, err := g.Classify(context.Background(), ticketState(match))
	require.NoError(t, err)
	assert.Equal(t, models.IssueTypeNew, c.IssueType)
}

func TestClassifySurfacesPermanentError(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{err: errors.New("invalid api key")}}}
	g := newTestGateway(model)

	_, err := g.Classify(context.Background(), ticketState())
	require.Error(t, err)
	assert.Equal(t, 1, model.calls)
}

func TestClassifyRejectsIncompleteResponse(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{
		resp: toolCallResponse(`{"summary": "s", "category": "Bug"}`),
	}}}
	g := newTestGateway(model)

	_, err := g.Classify(context.Background(), ticketState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields")
}

func TestAnalyzeInsufficientDescription(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{
		resp: textResponse(`{"sufficient": false, "clarifying_question": "Which device and browser are you using?"}`),
	}}}
	g := newTestGateway(model)

	analysis, err := g.Analyze(context.Background(), models.TicketState{Description: "it doesn't work"})
	require.NoError(t, err)
	assert.False(t, analysis.Sufficient)
	assert.NotEmpty(t, analysis.ClarifyingQuestion)
}

func TestAnalyzeInsufficientWithoutQuestionGetsDefault(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{
		resp: textResponse(`{"sufficient": false, "clarifying_question": ""}`),
	}}}
	g := newTestGateway(model)

	analysis, err := g.Analyze(context.Background(), models.TicketState{Description: "broken"})
	require.NoError(t, err)
	assert.False(t, analysis.Sufficient)
	assert.NotEmpty(t, analysis.ClarifyingQuestion, "an interrupt without a question is useless")
}

func TestAnalyzeSufficientDescription(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{
		resp: textResponse(`{"sufficient": true}`),
	}}}
	g := newTestGateway(model)

	analysis, err := g.Analyze(context.Background(), ticketState())
	require.NoError(t, err)
	assert.True(t, analysis.Sufficient)
}

func TestAnalyzeUnparseableProceedsToClassification(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{
		resp: textResponse("I think you should ask the customer more questions."),
	}}}
	g := newTestGateway(model)

	analysis, err := g.Analyze(context.Background(), ticketState())
	require.NoError(t, err)
	assert.True(t, analysis.Sufficient)
}

func TestAnalyzeFallbackWhenRetriesExhausted(t *testing.T) {
	model := &scriptedModel{script: []scriptStep{{err: errors.New("connection refused")}}}
	g := newTestGateway(model)

	analysis, err := g.Analyze(context.Background(), ticketState())
	require.NoError(t, err)
	assert.True(t, analysis.Sufficient, "a broken gateway must not strand the session in SUSPENDED")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`},
		{"prose wrapped", "Sure: {\"a\": 1} hope that helps", `{"a": 1}`},
		{"code fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"nested", `{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"no object", "no json here", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}
