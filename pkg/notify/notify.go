// Package notify carries terminal motion events from the body worker to
// whoever is listening: the log, the master process, Redis subscribers and
// websocket clients.
//
// Sinks are called synchronously on the worker goroutine, so every sink must
// return quickly. Sinks that do I/O queue internally and drop on overflow.
package notify

import (
	"log/slog"
	"time"

	"github.com/teslashibe/go-sapien/internal/log"
)

// Event is one of the fixed notification tokens.
type Event string

const (
	TurnEnded       Event = "turn_ended"
	TurnBlocked     Event = "turn_blocked"
	TurnError       Event = "turn_error"
	TurnStopped     Event = "turn_stopped"
	TurnSensorError Event = "turn_sensor_error"
	WalkingEnded    Event = "walking_ended"
	WalkingBlocked  Event = "walking_blocked"
	WalkingStopped  Event = "walking_stopped"
)

// Events lists every token in a stable order.
func Events() []Event {
	return []Event{
		TurnEnded, TurnBlocked, TurnError, TurnStopped, TurnSensorError,
		WalkingEnded, WalkingBlocked, WalkingStopped,
	}
}

// Valid reports whether e is one of the known tokens.
func (e Event) Valid() bool {
	for _, k := range Events() {
		if e == k {
			return true
		}
	}
	return false
}

// Notice is one emitted event plus the command that produced it.
type Notice struct {
	Event     Event     `json:"event"`
	Action    string    `json:"action,omitempty"`
	CommandID string    `json:"command_id,omitempty"`
	At        time.Time `json:"at"`
}

// Sink receives notices. Notify must not block.
type Sink interface {
	Notify(n Notice)
}

// Func adapts a function to Sink.
type Func func(n Notice)

// Notify implements Sink.
func (f Func) Notify(n Notice) { f(n) }

// Multi fans a notice out to every sink in order. Nil entries are skipped.
type Multi []Sink

// Notify implements Sink.
func (m Multi) Notify(n Notice) {
	for _, s := range m {
		if s != nil {
			s.Notify(n)
		}
	}
}

// Discard drops every notice.
var Discard Sink = Func(func(Notice) {})

// LogSink writes each notice as a structured log line.
type LogSink struct {
	Logger *slog.Logger
}

// Notify implements Sink.
func (s LogSink) Notify(n Notice) {
	l := s.Logger
	if l == nil {
		l = log.Component("notify")
	}
	l.Info("notification", "event", string(n.Event), "action", n.Action, "command_id", n.CommandID)
}
