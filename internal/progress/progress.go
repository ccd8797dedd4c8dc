// Package progress defines the event stream shared by history streaming and
// GitHub enrichment.
package progress

import (
	"context"
	"sync"
)

type Status string

const (
	StatusStart   Status = "start"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusInfo    Status = "info"
)

const (
	// StepComplete names the event that closes a successful sequence.
	StepComplete = "complete"
	// StepError names the event that closes a failed sequence.
	StepError = "error"
)

type Event struct {
	Step    string         `json:"step"`
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Terminal reports whether ev closes its sequence.
func (ev Event) Terminal() bool {
	return ev.Step == StepComplete || (ev.Step == StepError && ev.Status == StatusError)
}

// Reporter receives events in the order a single operation produces them.
type Reporter interface {
	Report(ctx context.Context, ev Event)
}

// Func adapts a plain callback to Reporter.
type Func func(Event)

func (f Func) Report(_ context.Context, ev Event) {
	f(ev)
}

// Discard drops every event.
var Discard Reporter = Func(func(Event) {})

// Stream is a Reporter backed by an unbuffered channel. Report blocks until
// the consumer receives the event, so a producer never runs ahead of its
// transport by more than one event.
type Stream struct {
	events chan Event
	once   sync.Once
}

func NewStream() *Stream {
	return &Stream{events: make(chan Event)}
}

func (s *Stream) Events() <-chan Event {
	return s.events
}

// Report delivers ev or drops it once ctx is done. A consumer that goes away
// must cancel ctx so the producer is released.
func (s *Stream) Report(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}

// Close closes Events. Only the producer may call it, after its last Report.
func (s *Stream) Close() {
	s.once.Do(func() { close(s.events) })
}
