package runner

import (
	"context"
)

type RunEventType int

const (
	EventTypeUnspecified RunEventType = iota
	EventTypeLog
	EventTypeProgress
	EventTypeComplete
	EventTypeError
)

func (t RunEventType) String() string {
	switch t {
	case EventTypeLog:
		return "log"
	case EventTypeProgress:
		return "progress"
	case EventTypeComplete:
		return "complete"
	case EventTypeError:
		return "error"
	default:
		return "unspecified"
	}
}

// Terminal reports whether t ends a run.
func (t RunEventType) Terminal() bool {
	return t == EventTypeComplete || t == EventTypeError
}

// RunEvent is one message from a background worker to its controller.
type RunEvent struct {
	Type     RunEventType
	Message  string
	Progress int32 // 0-100
	Worker   string
	// Result is set on EventTypeComplete, Err on EventTypeError.
	Result any
	Err    error
}

// RunEventEmitter allows workers to emit events during execution.
type RunEventEmitter interface {
	Emit(event RunEvent)
	EmitLog(message string)
	EmitProgress(percent int32, message string)
}

type emitterKey struct{}

// WithEmitter attaches an emitter to the context.
func WithEmitter(ctx context.Context, emitter RunEventEmitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, emitter)
}

// EmitterFrom retrieves the emitter from context, or returns a no-op emitter.
func EmitterFrom(ctx context.Context) RunEventEmitter {
	if e, ok := ctx.Value(emitterKey{}).(RunEventEmitter); ok {
		return e
	}
	return noopEmitter{}
}

type noopEmitter struct{}

func (noopEmitter) Emit(RunEvent)              {}
func (noopEmitter) EmitLog(string)             {}
func (noopEmitter) EmitProgress(int32, string) {}

// ChannelEmitter sends events to a channel. Sends block, so events are never
// dropped; the receiver must drain the channel until it is closed.
type ChannelEmitter struct {
	Ch     chan<- RunEvent
	Worker string
}

func (e *ChannelEmitter) Emit(event RunEvent) {
	event.Worker = e.Worker
	e.Ch <- event
}

func (e *ChannelEmitter) EmitLog(message string) {
	e.Emit(RunEvent{Type: EventTypeLog, Message: message})
}

func (e *ChannelEmitter) EmitProgress(percent int32, message string) {
	e.Emit(RunEvent{Type: EventTypeProgress, Progress: percent, Message: message})
}
