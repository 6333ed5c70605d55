package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// EventSink receives session lifecycle and event appends, write-through.
// Sink failures are reported to the operator log but never interrupt the
// in-memory event sequence, which stays authoritative for the process
// lifetime.
type EventSink interface {
	Begin(ctx context.Context, sessionID string, startedAt time.Time) error
	Record(ctx context.Context, ev domain.Event) error
	End(ctx context.Context, sessionID string) error
}

// Recorder is the append-only event log for one recording session. A single
// session is current at a time; starting a new one discards the previous
// in-memory buffer (sinks may already hold a durable copy). Appends outside
// an active session are dropped, not queued.
//
// Appends are synchronous and cheap: the buffered event's position is fixed
// under the recorder mutex, so callers holding their own lock across Log get
// a log order that matches their mutation order. Sink writes ride a single
// writer goroutine fed in append order, keeping slow storage off the
// mutation path.
type Recorder struct {
	ttl    time.Duration
	clock  func() time.Time
	rnd    *rand.Rand
	sinks  []EventSink
	sinkCh chan sinkOp

	mu        sync.Mutex
	sessionID string
	active    bool
	startedAt time.Time
	events    []domain.Event
	lastTS    int64
	expiry    *time.Timer
}

// sinkOp is one unit of work for the sink writer goroutine. Exactly one of
// begin/end is set, or neither for a plain event append.
type sinkOp struct {
	begin     bool
	end       bool
	sessionID string
	startedAt time.Time
	ev        domain.Event
	done      chan struct{}
}

// NewRecorder builds a recorder whose sessions auto-expire after ttl.
func NewRecorder(ttl time.Duration, sinks ...EventSink) *Recorder {
	return NewRecorderWithClock(ttl, time.Now, sinks...)
}

// NewRecorderWithClock is test-only for deterministic timestamps.
func NewRecorderWithClock(ttl time.Duration, now func() time.Time, sinks ...EventSink) *Recorder {
	r := &Recorder{
		ttl:   ttl,
		clock: now,
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sinks: sinks,
	}
	if len(sinks) > 0 {
		r.sinkCh = make(chan sinkOp, 1024)
		go r.runSinks()
	}
	return r
}

// StartSession discards any buffered events, mints a fresh session id, arms
// the auto-expiry timer, and records the session-start event. A still-active
// previous session has its sinks closed first so nothing leaks.
func (r *Recorder) StartSession() string {
	r.mu.Lock()
	now := r.clock()
	if r.active {
		r.enqueueLocked(sinkOp{end: true, sessionID: r.sessionID})
	}
	r.sessionID = fmt.Sprintf("%d-%04x", now.UnixMilli(), r.rnd.Intn(0x10000))
	r.active = true
	r.startedAt = now
	r.events = nil
	r.lastTS = 0
	if r.expiry != nil {
		r.expiry.Stop()
	}
	id := r.sessionID
	if r.ttl > 0 {
		r.expiry = time.AfterFunc(r.ttl, func() { r.expire(id) })
	}
	r.enqueueLocked(sinkOp{begin: true, sessionID: id, startedAt: now})
	r.appendLocked(domain.EventSessionStart, map[string]any{"sessionId": id})
	r.mu.Unlock()
	return id
}

// Log appends a timestamped event to the current session and queues it for
// every sink. It is a no-op when no session is active.
func (r *Recorder) Log(kind domain.EventKind, payload map[string]any) {
	r.mu.Lock()
	r.appendLocked(kind, payload)
	r.mu.Unlock()
}

// appendLocked timestamps and buffers one event and hands it to the sink
// writer. Buffer position and sink queue position are assigned under the
// same mutex hold, so the two orders always agree.
func (r *Recorder) appendLocked(kind domain.EventKind, payload map[string]any) {
	if !r.active {
		return
	}
	ts := r.clock().UnixMilli()
	// Appends are serialized, but a coarse clock can still repeat; clamp so
	// timestamps never decrease within a session.
	if ts < r.lastTS {
		ts = r.lastTS
	}
	r.lastTS = ts
	ev := domain.Event{
		SessionID: r.sessionID,
		Kind:      kind,
		Timestamp: ts,
		Payload:   payload,
	}
	r.events = append(r.events, ev)
	r.enqueueLocked(sinkOp{ev: ev})
}

// EndSession appends the session-end event, harvests the buffer, and resets
// to a fresh unstarted session, all in one critical section so no concurrent
// append can land after the end marker. It returns once every sink has
// drained the session's queued writes.
func (r *Recorder) EndSession() ([]domain.Event, error) {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil, domain.ErrNoActiveSession
	}
	elapsed := r.clock().Sub(r.startedAt)
	r.appendLocked(domain.EventSessionEnd, map[string]any{
		"durationSeconds": int(elapsed / time.Second),
	})
	id := r.sessionID
	events := r.events
	var flushed chan struct{}
	if r.sinkCh != nil {
		flushed = make(chan struct{})
		r.enqueueLocked(sinkOp{end: true, sessionID: id, done: flushed})
	}
	if r.expiry != nil {
		r.expiry.Stop()
		r.expiry = nil
	}
	r.active = false
	r.events = nil
	r.lastTS = 0
	r.sessionID = fmt.Sprintf("%d-%04x", r.clock().UnixMilli(), r.rnd.Intn(0x10000))
	r.mu.Unlock()

	if flushed != nil {
		<-flushed
	}
	return events, nil
}

// expire force-ends the session if it is still the one the expiry timer was
// armed for.
func (r *Recorder) expire(sessionID string) {
	r.mu.Lock()
	stale := !r.active || r.sessionID != sessionID
	r.mu.Unlock()
	if stale {
		return
	}
	log.Printf("session %s reached its auto-expiry ceiling, force-ending", sessionID)
	if _, err := r.EndSession(); err != nil {
		log.Printf("auto-expiry end failed for session %s: %v", sessionID, err)
	}
}

// enqueueLocked hands one op to the sink writer. The queue is generous;
// should it ever fill against stalled storage, the append path blocks rather
// than reorder or drop.
func (r *Recorder) enqueueLocked(op sinkOp) {
	if r.sinkCh == nil {
		if op.done != nil {
			close(op.done)
		}
		return
	}
	r.sinkCh <- op
}

// runSinks is the single sink writer; processing queue order preserves
// append order across all sinks.
func (r *Recorder) runSinks() {
	ctx := context.Background()
	for op := range r.sinkCh {
		switch {
		case op.begin:
			for _, sink := range r.sinks {
				if err := sink.Begin(ctx, op.sessionID, op.startedAt); err != nil {
					log.Printf("event sink begin failed for session %s: %v", op.sessionID, err)
				}
			}
		case op.end:
			for _, sink := range r.sinks {
				if err := sink.End(ctx, op.sessionID); err != nil {
					log.Printf("event sink end failed for session %s: %v", op.sessionID, err)
				}
			}
		default:
			for _, sink := range r.sinks {
				if err := sink.Record(ctx, op.ev); err != nil {
					log.Printf("event sink append failed for session %s: %v", op.ev.SessionID, err)
				}
			}
		}
		if op.done != nil {
			close(op.done)
		}
	}
}

// Events returns a copy of the current session's buffered events.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// SessionID returns the current session id; it is only meaningful while a
// session is active.
func (r *Recorder) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// Info reports the session status surface used by the admin panel.
func (r *Recorder) Info() domain.SessionInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := domain.SessionInfo{
		SessionID:   r.sessionID,
		IsActive:    r.active,
		TotalEvents: len(r.events),
	}
	if r.active {
		info.StartTime = r.startedAt.UnixMilli()
		if r.ttl > 0 {
			remaining := r.ttl - r.clock().Sub(r.startedAt)
			if remaining < 0 {
				remaining = 0
			}
			info.RemainingMS = remaining.Milliseconds()
		}
	}
	return info
}
