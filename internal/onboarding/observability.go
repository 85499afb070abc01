package onboarding

import (
	"fmt"
	"sort"
	"time"

	"github.com/go-logr/logr"
)

// Observer defines the interface for structured observability during onboarding.
type Observer interface {
	Printf(format string, v ...interface{})

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress through the pipeline
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured onboarding event.
type Event struct {
	Type      EventType
	Phase     string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType represents the type of onboarding event.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunHalted    EventType = "run.halted"

	EventPhaseStarted   EventType = "phase.started"
	EventPhaseCompleted EventType = "phase.completed"
	EventPhaseFailed    EventType = "phase.failed"
	EventPhaseSkipped   EventType = "phase.skipped"
	EventPhaseRetrying  EventType = "phase.retrying"

	EventRollbackStarted   EventType = "rollback.started"
	EventRollbackCompleted EventType = "rollback.completed"
	EventRollbackFailed    EventType = "rollback.failed"
	EventRollbackSkipped   EventType = "rollback.skipped"

	EventStateDeleted EventType = "state.deleted"

	// EventProgress indicates progress through the pipeline.
	EventProgress EventType = "progress"
)

// IsError reports whether the event describes a failure.
func (t EventType) IsError() bool {
	switch t {
	case EventPhaseFailed, EventRollbackFailed, EventRunHalted:
		return true
	}
	return false
}

// LogObserver implements Observer on top of a logr.Logger.
type LogObserver struct {
	log    logr.Logger
	fields map[string]string
}

// NewLogObserver creates an observer that writes events to log.
func NewLogObserver(log logr.Logger) *LogObserver {
	return &LogObserver{log: log, fields: map[string]string{}}
}

// Printf implements Observer.
func (o *LogObserver) Printf(format string, v ...interface{}) {
	o.log.Info(fmt.Sprintf(format, v...), o.keysAndValues(nil)...)
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	kv := []interface{}{"event", string(event.Type)}
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	kv = append(kv, o.keysAndValues(event.Fields)...)

	if event.Type.IsError() {
		o.log.Error(nil, event.Message, kv...)
		return
	}
	o.log.Info(event.Message, kv...)
}

// Progress implements Observer.
func (o *LogObserver) Progress(phase string, current, total int) {
	o.log.V(1).Info("progress", append([]interface{}{"phase", phase, "current", current, "total", total}, o.keysAndValues(nil)...)...)
}

// WithFields implements Observer.
func (o *LogObserver) WithFields(fields map[string]string) Observer {
	return &LogObserver{log: o.log, fields: mergeFields(o.fields, fields)}
}

// keysAndValues flattens context and event fields in a stable order.
func (o *LogObserver) keysAndValues(extra map[string]string) []interface{} {
	merged := mergeFields(o.fields, extra)
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, merged[k])
	}
	return kv
}

func mergeFields(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) Printf(string, ...interface{}) {}
func (NopObserver) Event(Event) {}
func (NopObserver) Progress(string, int, int) {}
func (n NopObserver) WithFields(map[string]string) Observer { return n }

func emit(o Observer, t EventType, phase, msg string, fields map[string]string) {
	o.Event(Event{Type: t, Phase: phase, Message: msg, Timestamp: time.Now(), Fields: fields})
}
