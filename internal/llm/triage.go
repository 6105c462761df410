package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/Rohitw3code/ticket-triage-agent/internal/models"
)

// classifyTool is the function schema the model is forced to call when
// classifying a ticket.
var classifyTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        "classify_ticket",
		Description: "Extract and classify ticket information including summary, category, severity, issue type, and next action",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{
					"type":        "string",
					"description": "1-2 line overall summary combining the user's issue with relevant known issues found",
				},
				"category": map[string]any{
					"type":        "string",
					"enum":        []string{"Billing", "Login", "Performance", "Bug", "Question/How-To"},
					"description": "Ticket category",
				},
				"severity": map[string]any{
					"type":        "string",
					"enum":        []string{"Low", "Medium", "High", "Critical"},
					"description": "Issue severity level",
				},
				"issue_type": map[string]any{
					"type":        "string",
					"enum":        []string{"known_issue", "new_issue"},
					"description": "Whether this matches a known issue or is new",
				},
				"next_action": map[string]any{
					"type":        "string",
					"description": "Suggested next step for handling this ticket",
				},
			},
			"required": []string{"summary", "category", "severity", "issue_type", "next_action"},
		},
	},
}

// Analyze judges whether a ticket description carries enough signal to
// classify. If the gateway exhausts its retries the ticket is treated as
// sufficient: classification has its own fallback, while suspending on a
// broken service would strand the session.
func (g *Gateway) Analyze(ctx context.Context, state models.TicketState) (models.Analysis, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, analysisPrompt(state.KBMatches)),
		llms.TextParts(llms.ChatMessageTypeHuman, state.Description),
	}

	choice, err := g.generate(ctx, messages, llms.WithTemperature(0.0))
	if err != nil {
		if isTransient(err) {
			g.logger.Warn("analysis retries exhausted, proceeding to classification", "error", err)
			return models.Analysis{Sufficient: true}, nil
		}
		return models.Analysis{}, err
	}

	var analysis models.Analysis
	if err := json.Unmarshal([]byte(extractJSON(choice.Content)), &analysis); err != nil {
		g.logger.Warn("unparseable analysis response, proceeding to classification", "content", truncate(choice.Content, 200))
		return models.Analysis{Sufficient: true}, nil
	}

	// A clarification request without a question is useless to the caller.
	if !analysis.Sufficient && strings.TrimSpace(analysis.ClarifyingQuestion) == "" {
		analysis.ClarifyingQuestion = "Could you describe what you were doing, what you expected to happen, and what happened instead?"
	}
	return analysis, nil
}

// Classify produces the terminal classification for a ticket. If the gateway
// exhausts its retries it returns the deterministic manual-review fallback
// instead of failing the workflow.
func (g *Gateway) Classify(ctx context.Context, state models.TicketState) (models.Classification, error) {
	userPrompt := state.Description
	if state.AdditionalDetails != "" {
		userPrompt += "\n\nAdditional details from the requester:\n" + state.AdditionalDetails
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, triagePrompt(state.KBMatches)),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	choice, err := g.generate(ctx, messages,
		llms.WithTemperature(0.3),
		llms.WithTools([]llms.Tool{classifyTool}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: "classify_ticket"},
		}),
	)
	if err != nil {
		if isTransient(err) {
			g.logger.Warn("classification retries exhausted, returning fallback", "error", err)
			return g.FallbackClassification(state.KBMatches), nil
		}
		return models.Classification{}, err
	}

	classification, err := parseClassification(choice)
	if err != nil {
		return models.Classification{}, err
	}
	classification.RelatedIssues = state.KBMatches
	return classification, nil
}

// FallbackClassification is the deterministic result returned when the
// reasoning service is unreachable. Severity stays at a conservative default
// and the next action routes the ticket to a human.
func (g *Gateway) FallbackClassification(matches []models.KBMatch) models.Classification {
	issueType := models.IssueTypeNew
	category := models.CategoryQuestion
	if len(matches) > 0 && matches[0].Similarity >= g.threshold {
		issueType = models.IssueTypeKnown
	}
	return models.Classification{
		Summary:       "Automatic classification unavailable; ticket needs human triage.",
		Category:      category,
		Severity:      models.SeverityMedium,
		IssueType:     issueType,
		NextAction:    "Manual review required",
		RelatedIssues: matches,
	}
}

// parseClassification reads the classify_ticket tool call, falling back to
// parsing plain JSON content when the model answered without a tool call.
func parseClassification(choice *llms.ContentChoice) (models.Classification, error) {
	payload := ""
	if len(choice.ToolCalls) > 0 && choice.ToolCalls[0].FunctionCall != nil {
		payload = choice.ToolCalls[0].FunctionCall.Arguments
	} else {
		payload = extractJSON(choice.Content)
	}
	if payload == "" {
		return models.Classification{}, fmt.Errorf("parse classification: empty response")
	}

	var c models.Classification
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return models.Classification{}, fmt.Errorf("parse classification: %w", err)
	}
	if c.Summary == "" || c.Category == "" || c.Severity == "" || c.IssueType == "" || c.NextAction == "" {
		return models.Classification{}, fmt.Errorf("parse classification: missing required fields")
	}
	return c, nil
}

// extractJSON pulls the outermost JSON object out of a model response that
// may wrap it in prose or a code fence.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
