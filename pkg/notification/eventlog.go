package notification

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/raulk/clock"
	"golang.org/x/exp/slices"
)

const defaultSubscriberBuffer = 64

// EventLog is an append-only, in-process log of registry notifications.
// Appends never fail. Subscribers receive events best effort and can catch up
// with List using the sequence number of the last event they handled.
type EventLog struct {
	events      []Event
	nextSeq     uint64
	capacity    int
	subscribers map[uint64]chan Event
	nextSubID   uint64
	clock       clock.Clock
	mu          sync.RWMutex
}

// EventLogOption configures an EventLog
type EventLogOption func(*EventLog)

// WithClock sets the clock used to stamp events
func WithClock(clk clock.Clock) EventLogOption {
	return func(l *EventLog) {
		l.clock = clk
	}
}

// WithCapacity bounds the number of retained events. Zero keeps everything.
func WithCapacity(capacity int) EventLogOption {
	return func(l *EventLog) {
		l.capacity = capacity
	}
}

// NewEventLog creates an empty event log
func NewEventLog(opts ...EventLogOption) *EventLog {
	l := &EventLog{
		nextSeq:     1,
		subscribers: make(map[uint64]chan Event),
		clock:       clock.New(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append stamps the event with an id, sequence number and time, stores it and
// fans it out to subscribers. The stamped event is returned.
func (l *EventLog) Append(ctx context.Context, event Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	event.ID = uuid.New()
	event.Seq = l.nextSeq
	event.EmittedAt = l.clock.Now().UTC()
	l.nextSeq++

	l.events = append(l.events, event)
	if l.capacity > 0 && len(l.events) > l.capacity {
		l.events = slices.Clone(l.events[len(l.events)-l.capacity:])
	}

	for id, ch := range l.subscribers {
		select {
		case ch <- event:
		default:
			slog.Warn("Event subscriber is full, dropping live delivery", "subscriber", id, "seq", event.Seq)
		}
	}

	slog.Debug("Event appended", "event", event)
	return event
}

// List returns up to limit retained events with a sequence number greater than after.
// A limit of zero or less returns all of them.
func (l *EventLog) List(after uint64, limit int) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start, _ := slices.BinarySearchFunc(l.events, after+1, func(e Event, seq uint64) int {
		switch {
		case e.Seq < seq:
			return -1
		case e.Seq > seq:
			return 1
		default:
			return 0
		}
	})

	remaining := l.events[start:]
	if limit > 0 && len(remaining) > limit {
		remaining = remaining[:limit]
	}
	return slices.Clone(remaining)
}

// LastSeq returns the sequence number of the newest event, or zero when empty
func (l *EventLog) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextSeq - 1
}

// Subscribe registers a live subscriber. The returned cancel function
// unregisters it and closes the channel.
func (l *EventLog) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSubID
	l.nextSubID++
	ch := make(chan Event, buffer)
	l.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}
