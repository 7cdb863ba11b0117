package learning

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// finishedRuns bounds how many final snapshots are kept for lookup.
const finishedRuns = 32

type State string

const (
	StateIdle     State = "idle"
	StateLearning State = "learning"
	StateComplete State = "complete"
	StateError    State = "error"
)

// Status is a snapshot of the learning state machine.
type Status struct {
	State       State     `json:"status"`
	Message     string    `json:"message,omitempty"`
	Progress    int32     `json:"progress"`
	RunID       string    `json:"runId,omitempty"`
	ProjectPath string    `json:"projectPath,omitempty"`
	StartedAt   time.Time `json:"startedAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StatusHolder owns one Status. Reads are lock-free; writes are serialized
// and wake every watcher.
type StatusHolder struct {
	cur atomic.Pointer[Status]

	mu      sync.Mutex
	changed chan struct{}
	now     func() time.Time

	done *lru.Cache[string, Status]
}

func NewStatusHolder() *StatusHolder {
	done, _ := lru.New[string, Status](finishedRuns)
	h := &StatusHolder{changed: make(chan struct{}), now: time.Now, done: done}
	h.cur.Store(&Status{State: StateIdle, UpdatedAt: h.now()})
	return h
}

// Get returns the current status.
func (h *StatusHolder) Get() Status {
	return *h.cur.Load()
}

// begin moves to learning for a new run unless one is already in flight.
func (h *StatusHolder) begin(runID, projectPath, message string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cur.Load().State == StateLearning {
		return false
	}
	h.storeLocked(Status{State: StateLearning, Message: message, RunID: runID, ProjectPath: projectPath, StartedAt: h.now()})
	return true
}

// advance records progress for runID. Progress never decreases within a run
// and updates for any other run are ignored.
func (h *StatusHolder) advance(runID string, progress int32, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := *h.cur.Load()
	if st.RunID != runID || st.State != StateLearning {
		return
	}
	if progress > st.Progress {
		st.Progress = min(progress, 99)
	}
	if message != "" {
		st.Message = message
	}
	h.storeLocked(st)
}

// finish ends runID in state, which must be complete or error.
func (h *StatusHolder) finish(runID string, state State, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := *h.cur.Load()
	if st.RunID != runID || st.State != StateLearning {
		return
	}
	st.State = state
	st.Message = message
	if state == StateComplete {
		st.Progress = 100
	}
	h.storeLocked(st)
	h.done.Add(runID, *h.cur.Load())
}

// Finished returns the final snapshot of a recently ended run.
func (h *StatusHolder) Finished(runID string) (Status, bool) {
	return h.done.Get(runID)
}

func (h *StatusHolder) storeLocked(st Status) {
	st.UpdatedAt = h.now()
	h.cur.Store(&st)
	close(h.changed)
	h.changed = make(chan struct{})
}

func (h *StatusHolder) changedCh() (Status, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.cur.Load(), h.changed
}

// Watch streams the current status and then every change until ctx is done.
// A slow reader skips intermediate snapshots and always sees the latest.
func (h *StatusHolder) Watch(ctx context.Context) <-chan Status {
	out := make(chan Status, 1)
	go func() {
		defer close(out)
		for {
			st, changed := h.changedCh()
			pushLatest(out, st)
			select {
			case <-ctx.Done():
				return
			case <-changed:
			}
		}
	}()
	return out
}

// pushLatest replaces any unread snapshot in out with st.
func pushLatest(out chan Status, st Status) {
	for {
		select {
		case out <- st:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
