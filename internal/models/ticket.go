// Package models defines the core domain types for ticket triage:
// ticket state, knowledge-base entries, and classification results.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the ticket category taxonomy.
type Category string

const (
	CategoryBilling     Category = "Billing"
	CategoryLogin       Category = "Login"
	CategoryPerformance Category = "Performance"
	CategoryBug         Category = "Bug"
	CategoryQuestion    Category = "Question/How-To"
)

// Severity is the ticket severity level.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// IssueType reports whether a ticket matches a known issue.
type IssueType string

const (
	IssueTypeKnown IssueType = "known_issue"
	IssueTypeNew   IssueType = "new_issue"
)

// Sentinel errors for request validation.
var (
	ErrEmptyDescription   = errors.New("description cannot be empty")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrEmptyDetails       = errors.New("additional_details cannot be empty")
)

// KBEntry is one knowledge-base article. Immutable after load and shared
// read-only across all in-flight requests.
type KBEntry struct {
	ID                string    `json:"id" yaml:"id"`
	Title             string    `json:"title" yaml:"title"`
	Category          Category  `json:"category" yaml:"category"`
	Symptoms          []string  `json:"symptoms,omitempty" yaml:"symptoms,omitempty"`
	RecommendedAction string    `json:"recommended_action" yaml:"recommended_action"`
	Embedding         []float32 `json:"-" yaml:"-"`
}

// SearchText builds the text that is embedded for similarity matching.
func (e KBEntry) SearchText() string {
	if len(e.Symptoms) == 0 {
		return e.Title
	}
	return e.Title + " " + strings.Join(e.Symptoms, " ")
}

// KBMatch is one scored knowledge-base hit.
type KBMatch struct {
	EntryID           string  `json:"id"`
	Title             string  `json:"title"`
	Similarity        float64 `json:"similarity_score"`
	RecommendedAction string  `json:"recommended_action,omitempty"`
}

// Classification is the terminal triage result. Set exactly once, when the
// workflow reaches its final state.
type Classification struct {
	Summary       string    `json:"summary"`
	Category      Category  `json:"category"`
	Severity      Severity  `json:"severity"`
	IssueType     IssueType `json:"issue_type"`
	NextAction    string    `json:"next_action"`
	RelatedIssues []KBMatch `json:"related_issues,omitempty"`
}

// Analysis is the sufficiency judgment made before classification. When the
// description is too vague to classify, Sufficient is false and
// ClarifyingQuestion carries the question to send back to the requester.
type Analysis struct {
	Sufficient         bool   `json:"sufficient"`
	ClarifyingQuestion string `json:"clarifying_question,omitempty"`
}

// TicketState is the mutable record a workflow run operates on. It is owned
// by exactly one in-flight request until the run ends or suspends; across a
// suspend/resume boundary it travels through the checkpoint store.
type TicketState struct {
	ThreadID           string          `json:"thread_id"`
	Description        string          `json:"description"`
	KBMatches          []KBMatch       `json:"kb_matches,omitempty"`
	NeedsClarification bool            `json:"needs_clarification"`
	ClarifyingQuestion string          `json:"clarifying_question,omitempty"`
	AdditionalDetails  string          `json:"additional_details,omitempty"`
	Classification     *Classification `json:"classification,omitempty"`
}

// ValidateDescription rejects empty and over-length ticket descriptions
// before a workflow run is started.
func ValidateDescription(description string, maxLen int) error {
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	if maxLen > 0 && len(description) > maxLen {
		return fmt.Errorf("%w: %d chars (max %d)", ErrDescriptionTooLong, len(description), maxLen)
	}
	return nil
}
