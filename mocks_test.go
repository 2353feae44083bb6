package guard_test

import (
	"context"
	"sync"

	"github.com/goliatone/go-guard"
)

type mockIdentity struct {
	id   string
	role string
}

func (m mockIdentity) ID() string       { return m.id }
func (m mockIdentity) Username() string { return "user-" + m.id }
func (m mockIdentity) Email() string    { return m.id + "@example.com" }
func (m mockIdentity) Role() string     { return m.role }

type probeResult struct {
	ok  bool
	err error
}

// MockProvider lets tests decide when the probe resolves and when
// notifications fire.
type MockProvider struct {
	mu           sync.Mutex
	results      chan probeResult
	handlers     map[int]guard.AuthStateHandler
	next         int
	probeCalls   int
	unsubscribed int
	onSubscribe  []guard.Identity
	probePanic   any
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		results:  make(chan probeResult, 1),
		handlers: map[int]guard.AuthStateHandler{},
	}
}

func (m *MockProvider) IsAuthenticated(ctx context.Context) (bool, error) {
	m.mu.Lock()
	m.probeCalls++
	p := m.probePanic
	m.mu.Unlock()

	if p != nil {
		panic(p)
	}

	select {
	case r := <-m.results:
		return r.ok, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (m *MockProvider) OnAuthStateChanged(handler guard.AuthStateHandler) guard.Unsubscribe {
	m.mu.Lock()
	id := m.next
	m.next++
	m.handlers[id] = handler
	initial := m.onSubscribe
	m.mu.Unlock()

	for _, identity := range initial {
		handler(identity)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.handlers, id)
			m.unsubscribed++
		})
	}
}

func (m *MockProvider) Resolve(ok bool, err error) {
	m.results <- probeResult{ok: ok, err: err}
}

func (m *MockProvider) Emit(identity guard.Identity) {
	m.mu.Lock()
	handlers := make([]guard.AuthStateHandler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(identity)
	}
}

func (m *MockProvider) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

func (m *MockProvider) Unsubscribed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unsubscribed
}

func (m *MockProvider) ProbeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probeCalls
}

// EventRecorder is a thread safe EventSink
type EventRecorder struct {
	mu     sync.Mutex
	events []guard.Event
}

func (r *EventRecorder) Record(_ context.Context, event guard.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *EventRecorder) Count(eventType guard.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func (r *EventRecorder) Last(eventType guard.EventType) (guard.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			return r.events[i], true
		}
	}
	return guard.Event{}, false
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
