// Package engine implements the triage workflow: a finite-state graph over a
// ticket state record with checkpointed suspension and streamed progress
// events.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rohitw3code/ticket-triage-agent/internal/metrics"
	"github.com/Rohitw3code/ticket-triage-agent/internal/models"
)

// State is the workflow position. The set is closed; transitions happen only
// through the step function.
type State int

const (
	StateInit State = iota
	StateSearchingKB
	StateAnalyzing
	StateSuspended
	StateClassifying
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSearchingKB:
		return "SEARCHING_KB"
	case StateAnalyzing:
		return "ANALYZING"
	case StateSuspended:
		return "SUSPENDED"
	case StateClassifying:
		return "CLASSIFYING"
	case StateDone:
		return "DONE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Node names carried on node_start/node_complete events.
const (
	nodeSearchKB = "search_kb"
	nodeAnalyze  = "analyze"
	nodeClassify = "classify"
)

// ErrSessionBusy indicates a resume raced another run of the same session.
var ErrSessionBusy = errors.New("session is already being processed")

// Searcher is the slice of the similarity index the engine needs.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.KBMatch, error)
	IsKnownIssue(m models.KBMatch) bool
}

// Reasoner is the slice of the reasoning gateway the engine needs. Both
// methods absorb transient failures internally and return either a final
// result (possibly a fallback) or a permanent error.
type Reasoner interface {
	Analyze(ctx context.Context, state models.TicketState) (models.Analysis, error)
	Classify(ctx context.Context, state models.TicketState) (models.Classification, error)
}

// Checkpoints persists suspended state between a run and its resume.
type Checkpoints interface {
	Save(threadID string, state models.TicketState)
	Load(threadID string) (models.TicketState, error)
	Delete(threadID string)
}

// Engine drives tickets through the triage graph:
//
//	INIT -> SEARCHING_KB -> ANALYZING -> {SUSPENDED | CLASSIFYING} -> DONE
//
// Each request runs as one goroutine writing to its own bounded event
// channel; the only shared mutable state is the checkpoint store.
type Engine struct {
	kb          Searcher
	reasoner    Reasoner
	checkpoints Checkpoints
	logger      *slog.Logger
	collector   *metrics.Collector

	maxDescriptionLength int

	// inflight serializes runs per thread ID so concurrent resumes of the
	// same session cannot race.
	inflight sync.Map
}

// New creates a workflow engine. The checkpoint store is passed by
// reference and may be shared with other engines.
func New(kb Searcher, reasoner Reasoner, checkpoints Checkpoints, maxDescriptionLength int, logger *slog.Logger, collector *metrics.Collector) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		kb:                   kb,
		reasoner:             reasoner,
		checkpoints:          checkpoints,
		logger:               logger,
		collector:            collector,
		maxDescriptionLength: maxDescriptionLength,
	}
}

// Triage starts a new workflow run for a ticket description. The returned
// channel carries events in transition order and is closed when the run
// reaches DONE or SUSPENDED. Validation failures are returned before any
// state is entered and no events are emitted.
func (e *Engine) Triage(ctx context.Context, description string) (<-chan StreamEvent, error) {
	if err := models.ValidateDescription(description, e.maxDescriptionLength); err != nil {
		return nil, err
	}

	threadID := uuid.NewString()
	if _, busy := e.inflight.LoadOrStore(threadID, struct{}{}); busy {
		return nil, ErrSessionBusy
	}

	state := models.TicketState{
		ThreadID:    threadID,
		Description: description,
	}

	ch := make(chan StreamEvent, eventBuffer)
	go e.run(ctx, StateInit, state, ch)
	return ch, nil
}

// Resume continues a suspended workflow. The stored state is loaded, the
// requester's additional details are merged in, and execution continues from
// CLASSIFYING. Returns checkpoint.ErrSessionNotFound (unwrapped from the
// store) for unknown or completed thread IDs, without mutating any state.
func (e *Engine) Resume(ctx context.Context, threadID, additionalDetails string) (<-chan StreamEvent, error) {
	if strings.TrimSpace(additionalDetails) == "" {
		return nil, models.ErrEmptyDetails
	}

	state, err := e.checkpoints.Load(threadID)
	if err != nil {
		return nil, err
	}

	if _, busy := e.inflight.LoadOrStore(threadID, struct{}{}); busy {
		return nil, ErrSessionBusy
	}

	state.AdditionalDetails = additionalDetails
	state.NeedsClarification = false
	state.ClarifyingQuestion = ""

	ch := make(chan StreamEvent, eventBuffer)
	go e.run(ctx, StateClassifying, state, ch)
	return ch, nil
}

// run drives the state machine until a terminal or suspended state, then
// closes the event channel.
func (e *Engine) run(ctx context.Context, st State, ticket models.TicketState, ch chan StreamEvent) {
	defer close(ch)
	defer e.inflight.Delete(ticket.ThreadID)

	start := time.Now()
	em := &emitter{ctx: ctx, ch: ch}

	if st == StateClassifying {
		em.emit(StreamEvent{Type: EventStatus, Message: "Resuming triage", ThreadID: ticket.ThreadID})
	}

	for st != StateDone && st != StateSuspended {
		next, err := e.step(ctx, st, &ticket, em)
		if err != nil {
			e.logger.Error("workflow aborted", "thread_id", ticket.ThreadID, "state", st.String(), "error", err)
			if e.collector != nil {
				e.collector.RecordFailure(metrics.OpWorkflow)
			}
			em.emit(StreamEvent{Type: EventError, Message: err.Error(), ThreadID: ticket.ThreadID})
			return
		}
		e.logger.Debug("workflow transition", "thread_id", ticket.ThreadID, "from", st.String(), "to", next.String())
		st = next
	}

	if e.collector != nil {
		e.collector.RecordTiming(metrics.OpWorkflow, time.Since(start))
	}
}

// step executes the current state and returns the next one. All ticket
// mutation happens here.
func (e *Engine) step(ctx context.Context, st State, ticket *models.TicketState, em *emitter) (State, error) {
	switch st {
	case StateInit:
		em.emit(StreamEvent{Type: EventStatus, Message: "Starting triage", ThreadID: ticket.ThreadID})
		return StateSearchingKB, nil

	case StateSearchingKB:
		em.emit(StreamEvent{Type: EventNodeStart, Node: nodeSearchKB, ThreadID: ticket.ThreadID})
		matches, err := e.kb.Search(ctx, ticket.Description)
		if err != nil {
			return st, err
		}
		ticket.KBMatches = matches
		em.emit(StreamEvent{Type: EventNodeComplete, Node: nodeSearchKB, ThreadID: ticket.ThreadID})
		em.emit(StreamEvent{Type: EventKBSearchComplete, ThreadID: ticket.ThreadID, Data: e.searchSummary(matches)})
		return StateAnalyzing, nil

	case StateAnalyzing:
		em.emit(StreamEvent{Type: EventNodeStart, Node: nodeAnalyze, ThreadID: ticket.ThreadID})
		analysis, err := e.reasoner.Analyze(ctx, *ticket)
		if err != nil {
			return st, err
		}
		em.emit(StreamEvent{Type: EventNodeComplete, Node: nodeAnalyze, ThreadID: ticket.ThreadID})

		if !analysis.Sufficient {
			ticket.NeedsClarification = true
			ticket.ClarifyingQuestion = analysis.ClarifyingQuestion
			e.checkpoints.Save(ticket.ThreadID, *ticket)
			e.logger.Info("workflow suspended", "thread_id", ticket.ThreadID)
			em.emit(StreamEvent{
				Type:     EventInterrupt,
				ThreadID: ticket.ThreadID,
				Question: analysis.ClarifyingQuestion,
			})
			return StateSuspended, nil
		}
		return StateClassifying, nil

	case StateClassifying:
		em.emit(StreamEvent{Type: EventNodeStart, Node: nodeClassify, ThreadID: ticket.ThreadID})
		classification, err := e.reasoner.Classify(ctx, *ticket)
		if err != nil {
			return st, err
		}
		ticket.Classification = &classification
		e.checkpoints.Delete(ticket.ThreadID)
		em.emit(StreamEvent{Type: EventNodeComplete, Node: nodeClassify, ThreadID: ticket.ThreadID})
		em.emit(StreamEvent{Type: EventClassificationComplete, ThreadID: ticket.ThreadID, Data: classification})
		em.emit(StreamEvent{Type: EventStatus, Message: "Triage complete", ThreadID: ticket.ThreadID})
		return StateDone, nil

	default:
		return st, fmt.Errorf("no step defined for state %s", st)
	}
}

// searchSummary renders matches as the textual payload of the
// kb_search_complete event.
func (e *Engine) searchSummary(matches []models.KBMatch) string {
	if len(matches) == 0 {
		return "No matching known issues found in the knowledge base."
	}

	var b strings.Builder
	b.WriteString("Found related known issues:\n")
	for _, m := range matches {
		label := "new"
		if e.kb.IsKnownIssue(m) {
			label = "known issue"
		}
		fmt.Fprintf(&b, "- ID: %s | %s | Similarity: %.2f (%s)\n", m.EntryID, m.Title, m.Similarity, label)
		if m.RecommendedAction != "" {
			fmt.Fprintf(&b, "  Recommended action: %s\n", m.RecommendedAction)
		}
	}
	return strings.TrimSpace(b.String())
}
