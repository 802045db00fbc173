// Package progress tracks per-session upload progress and fans events
// out to subscribers.
//
// Delivery is best effort: sends never block workers, so a slow
// subscriber drops interim events. The channel close is the reliable
// terminal signal; subscribers that attach late or miss events must
// tolerate gaps. Percentages are monotonically non-decreasing within
// a session.
package progress

import (
	"sync"
	"time"
)

// Step identifies one of the four user-visible workflow phases.
type Step string

const (
	StepDuplicateCheck Step = "duplicate_checking"
	StepProcessing     Step = "processing"
	StepMockupTrigger  Step = "mockup_trigger"
	StepFinalizing     Step = "finalizing"
)

// Event is one progress update for a session.
type Event struct {
	SessionID                 string  `json:"sessionId"`
	Step                      Step    `json:"step"`
	Message                   string  `json:"message"`
	PercentComplete           float64 `json:"percentComplete"`
	ElapsedSeconds            float64 `json:"elapsedSeconds"`
	EstimatedRemainingSeconds float64 `json:"estimatedRemainingSeconds"`
	Final                     bool    `json:"final"`
}

// subscriberBuffer is the per-subscriber channel capacity. Events past
// a full buffer are dropped.
const subscriberBuffer = 16

// Reporter tracks sessions and their subscribers. Safe for concurrent
// use; one Reporter serves all sessions in the process.
type Reporter struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	startedAt   time.Time
	total       int
	completed   int
	lastPercent float64
	nextSubID   int
	subs        map[int]chan Event
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{sessions: make(map[string]*sessionState)}
}

// StartSession registers a session with its total unit count (one unit
// per manifest file). Calling it again for the same ID resets the
// session's progress.
func (r *Reporter) StartSession(sessionID string, totalUnits int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sessionID]; ok {
		existing.startedAt = time.Now()
		existing.total = totalUnits
		existing.completed = 0
		existing.lastPercent = 0
		return
	}
	r.sessions[sessionID] = &sessionState{
		startedAt: time.Now(),
		total:     totalUnits,
		subs:      make(map[int]chan Event),
	}
}

// Advance records units of completed work and publishes an event for
// the step. Unknown sessions are ignored.
func (r *Reporter) Advance(sessionID string, step Step, units int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	st.completed += units
	r.publishLocked(sessionID, st, step, message, false)
}

// Emit publishes an event for the step without changing the completed
// count, for phase transitions that are not per-file work.
func (r *Reporter) Emit(sessionID string, step Step, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	r.publishLocked(sessionID, st, step, message, false)
}

// Finish publishes the final event, closes all subscriber channels,
// and forgets the session. It is always called exactly once per run,
// including fallback and failure paths.
func (r *Reporter) Finish(sessionID string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sessions[sessionID]
	if !ok {
		return
	}
	r.publishLocked(sessionID, st, StepFinalizing, message, true)
	for _, ch := range st.subs {
		close(ch)
	}
	delete(r.sessions, sessionID)
}

// Subscribe returns a channel of events for the session and a cancel
// function. For unknown or already finished sessions the channel is
// returned closed.
func (r *Reporter) Subscribe(sessionID string) (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.sessions[sessionID]
	if !ok {
		ch := make(chan Event)
		close(ch)
		return ch, func() {}
	}

	id := st.nextSubID
	st.nextSubID++
	ch := make(chan Event, subscriberBuffer)
	st.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if st, ok := r.sessions[sessionID]; ok {
			if ch, ok := st.subs[id]; ok {
				delete(st.subs, id)
				close(ch)
			}
		}
	}
	return ch, cancel
}

// publishLocked computes the event for the session's current state and
// sends it to every subscriber without blocking. Callers hold r.mu.
func (r *Reporter) publishLocked(sessionID string, st *sessionState, step Step, message string, final bool) {
	percent := st.lastPercent
	if st.total > 0 {
		p := float64(st.completed) / float64(st.total) * 100
		if p > percent {
			percent = p
		}
	}
	if percent > 100 {
		percent = 100
	}
	st.lastPercent = percent

	elapsed := time.Since(st.startedAt).Seconds()
	var remaining float64
	if st.completed > 0 && st.completed < st.total {
		remaining = elapsed / float64(st.completed) * float64(st.total-st.completed)
	}

	ev := Event{
		SessionID:                 sessionID,
		Step:                      step,
		Message:                   message,
		PercentComplete:           percent,
		ElapsedSeconds:            elapsed,
		EstimatedRemainingSeconds: remaining,
		Final:                     final,
	}

	for _, ch := range st.subs {
		select {
		case ch <- ev:
		default:
			// Slow consumer: drop rather than stall workers.
		}
	}
}
