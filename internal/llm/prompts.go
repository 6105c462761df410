package llm

import (
	"fmt"
	"strings"

	"github.com/Rohitw3code/ticket-triage-agent/internal/models"
)

// kbContext renders knowledge-base matches for inclusion in a prompt.
func kbContext(matches []models.KBMatch) string {
	if len(matches) == 0 {
		return "No matching known issues found in the knowledge base."
	}

	var b strings.Builder
	b.WriteString("Related known issues found:\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "- ID: %s | %s | Similarity: %.2f\n", m.EntryID, m.Title, m.Similarity)
		if m.RecommendedAction != "" {
			fmt.Fprintf(&b, "  Recommended action: %s\n", m.RecommendedAction)
		}
	}
	return strings.TrimSpace(b.String())
}

func analysisPrompt(matches []models.KBMatch) string {
	return fmt.Sprintf(`You are a support ticket triage assistant deciding whether a ticket can be classified yet.

%s

Judge whether the ticket description carries enough concrete signal (what the user did, what failed, where) to classify it. Vague one-liners like "it doesn't work" are not sufficient.

Respond with only a JSON object:
{"sufficient": true|false, "clarifying_question": "one specific question to ask the requester, empty if sufficient"}`, kbContext(matches))
}

func triagePrompt(matches []models.KBMatch) string {
	return fmt.Sprintf(`You are a support ticket triage assistant. Your job is to analyze support tickets and provide structured classification.

%s

Your task is to:

1. Summary: Generate a concise 1-2 line summary that captures the core issue and relates it to any similar known issues found.

2. Category: Classify the ticket into one of:
   - Billing: payment issues, invoices, subscriptions
   - Login: authentication, password, 2FA problems
   - Performance: slow loading, timeouts, database issues
   - Bug: application errors, crashes, unexpected behavior
   - Question/How-To: user asking how to do something

3. Severity: Critical (service down, many users), High (major functionality broken), Medium (workarounds exist), Low (minor or cosmetic).

4. Issue Type: known_issue if a KB match has similarity score of 0.5 or higher, otherwise new_issue.

5. Next Action:
   - Known issues with a KB article: "Attach KB article [ID] and respond to user"
   - Known issues needing escalation: "Escalate to [team] team; link to [ID]"
   - New issues: "Escalate to [team] team" or "Ask customer for logs/screenshots"

Use the classify_ticket function to provide your structured analysis.`, kbContext(matches))
}
