package runner

import (
	"context"
	"fmt"
	"runtime/debug"
)

// WorkFunc is the body of a background run. Progress goes through
// EmitterFrom(ctx); the return value becomes the terminal event.
type WorkFunc func(ctx context.Context) (any, error)

// PanicError reports a worker that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string { return fmt.Sprintf("worker panicked: %v", e.Value) }

// Start runs fn on its own goroutine and returns the channel it reports on.
// The channel carries the worker's progress events in order, then exactly
// one EventTypeComplete or EventTypeError, and is then closed. A panic in fn
// is delivered as EventTypeError carrying a *PanicError.
func Start(ctx context.Context, worker string, buffer int, fn WorkFunc) <-chan RunEvent {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan RunEvent, buffer)
	em := &ChannelEmitter{Ch: ch, Worker: worker}
	go func() {
		defer close(ch)
		res, err := call(WithEmitter(ctx, em), fn)
		if err != nil {
			em.Emit(RunEvent{Type: EventTypeError, Message: err.Error(), Err: err})
			return
		}
		em.Emit(RunEvent{Type: EventTypeComplete, Result: res})
	}()
	return ch
}

func call(ctx context.Context, fn WorkFunc) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx)
}
