package mocks

import "sync"

// MockMessageQueue is an in-process broker. Publish records the payload and
// hands it synchronously to every handler subscribed to the subject.
type MockMessageQueue struct {
	mu        sync.Mutex
	published map[string][][]byte
	handlers  map[string][]func([]byte) error

	// PublishErr, when set, is returned by Publish and nothing is recorded.
	PublishErr error
	closed     bool
}

func NewMockMessageQueue() *MockMessageQueue {
	return &MockMessageQueue{
		published: make(map[string][][]byte),
		handlers:  make(map[string][]func([]byte) error),
	}
}

func (m *MockMessageQueue) Publish(subject string, data []byte) error {
	m.mu.Lock()
	if m.PublishErr != nil {
		m.mu.Unlock()
		return m.PublishErr
	}
	m.published[subject] = append(m.published[subject], append([]byte(nil), data...))
	subs := append([]func([]byte) error(nil), m.handlers[subject]...)
	m.mu.Unlock()

	for _, h := range subs {
		if err := h(data); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockMessageQueue) Subscribe(subject string, handler func([]byte) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[subject] = append(m.handlers[subject], handler)
	return nil
}

func (m *MockMessageQueue) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *MockMessageQueue) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetPublishedMessages returns a copy of what was published on subject.
func (m *MockMessageQueue) GetPublishedMessages(subject string) [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.published[subject]...)
}
