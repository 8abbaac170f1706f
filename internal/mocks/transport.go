package mocks

import "sync"

// MockTransport records every outbound media stream message
type MockTransport struct {
	mu          sync.Mutex
	Events      []string
	Media       [][]byte
	Marks       []string
	BufferedLen int
	closed      bool
	// OnMark, when set, is called after a mark is sent. Tests use it to echo
	// marks back like the provider does once playback finishes.
	OnMark        func(name string)
	SendMediaFunc func(payload []byte) error
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) SendMedia(payload []byte) error {
	if m.SendMediaFunc != nil {
		if err := m.SendMediaFunc(payload); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, "media")
	m.Media = append(m.Media, payload)
	return nil
}

func (m *MockTransport) SendMark(name string) error {
	m.mu.Lock()
	m.Events = append(m.Events, "mark")
	m.Marks = append(m.Marks, name)
	onMark := m.OnMark
	m.mu.Unlock()
	if onMark != nil {
		go onMark(name)
	}
	return nil
}

func (m *MockTransport) SendClear() error {
	m.record("clear")
	return nil
}

func (m *MockTransport) SendStop() error {
	m.record("stop")
	return nil
}

func (m *MockTransport) Buffered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.BufferedLen
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockTransport) record(event string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// Count returns how many times event was sent
func (m *MockTransport) Count(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Events {
		if e == event {
			n++
		}
	}
	return n
}

func (m *MockTransport) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockTransport) MediaCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Media)
}
