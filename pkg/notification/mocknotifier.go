package notification

import (
	"context"
	"sync"
)

type MockNotifier struct {
	SentEvents []Event
	Err        error
	mu         sync.Mutex
}

func (m *MockNotifier) Notify(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.SentEvents = append(m.SentEvents, event)
	return nil
}

func (m *MockNotifier) Sent() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.SentEvents))
	copy(out, m.SentEvents)
	return out
}
