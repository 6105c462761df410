package engine

import "context"

// EventType tags a stream event. Consumers must render unknown tags
// generically so new event types stay forward-compatible.
type EventType string

const (
	EventStatus                 EventType = "status"
	EventNodeStart              EventType = "node_start"
	EventNodeComplete           EventType = "node_complete"
	EventKBSearchComplete       EventType = "kb_search_complete"
	EventClassificationComplete EventType = "classification_complete"
	EventToolCall               EventType = "tool_call"
	EventMessage                EventType = "message"
	EventInterrupt              EventType = "interrupt"
	EventError                  EventType = "error"
)

// StreamEvent is one progress record on a triage stream. Field presence is
// tag-dependent; zero fields are omitted on the wire.
type StreamEvent struct {
	Type     EventType `json:"type"`
	ThreadID string    `json:"thread_id,omitempty"`
	Node     string    `json:"node,omitempty"`
	Message  string    `json:"message,omitempty"`
	Question string    `json:"question,omitempty"`
	Data     any       `json:"data,omitempty"`
}

// eventBuffer bounds the per-request event channel. A slow consumer blocks
// the workflow instead of growing an unbounded queue.
const eventBuffer = 8

// emitter pushes events onto one request's channel in transition order.
// Once the request context is done events are dropped; the step in flight
// still runs to completion so checkpoint state stays consistent.
type emitter struct {
	ctx context.Context
	ch  chan<- StreamEvent
}

func (e *emitter) emit(ev StreamEvent) {
	select {
	case e.ch <- ev:
	case <-e.ctx.Done():
	}
}
