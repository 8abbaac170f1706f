package mocks

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/ports"
)

// MockRecognitionStream is a recognition stream driven by the test through Emit
type MockRecognitionStream struct {
	mu        sync.Mutex
	ch        chan string
	closed    bool
	Frames    [][]byte
	connected atomic.Bool
}

func NewMockRecognitionStream() *MockRecognitionStream {
	s := &MockRecognitionStream{ch: make(chan string, 32)}
	s.connected.Store(true)
	return s
}

// Emit delivers a final transcript as the recognizer would
func (s *MockRecognitionStream) Emit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.ch <- text
	}
}

func (s *MockRecognitionStream) Transcripts() <-chan string { return s.ch }

func (s *MockRecognitionStream) SendAudio(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Frames = append(s.Frames, frame)
	return nil
}

func (s *MockRecognitionStream) Connected() bool { return s.connected.Load() }

func (s *MockRecognitionStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.connected.Store(false)
		close(s.ch)
	}
	return nil
}

func (s *MockRecognitionStream) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Frames)
}

func (s *MockRecognitionStream) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockRecognizer hands out a single prepared stream
type MockRecognizer struct {
	Stream   *MockRecognitionStream
	OpenFunc func(ctx context.Context) (ports.RecognitionStream, error)
}

func (m *MockRecognizer) Open(ctx context.Context) (ports.RecognitionStream, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx)
	}
	return m.Stream, nil
}

// MockReplyGenerator is a mock implementation of ReplyGenerator
type MockReplyGenerator struct {
	mu       sync.Mutex
	Requests []ports.ReplyRequest
	AskFunc  func(ctx context.Context, req ports.ReplyRequest) (string, error)
}

func (m *MockReplyGenerator) Ask(ctx context.Context, req ports.ReplyRequest) (string, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.AskFunc != nil {
		return m.AskFunc(ctx, req)
	}
	return "", nil
}

func (m *MockReplyGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockSynthesizer returns one μ-law byte per character unless SynthesizeFunc is set
type MockSynthesizer struct {
	mu             sync.Mutex
	Texts          []string
	SynthesizeFunc func(ctx context.Context, text string) ([]byte, error)
	HealthFunc     func(ctx context.Context) error
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	m.Texts = append(m.Texts, text)
	m.mu.Unlock()
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text)
	}
	out := make([]byte, len(text))
	for i := range out {
		out[i] = 0xFF
	}
	return out, nil
}

func (m *MockSynthesizer) HealthCheck(ctx context.Context) error {
	if m.HealthFunc != nil {
		return m.HealthFunc(ctx)
	}
	return nil
}

func (m *MockSynthesizer) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Texts...)
}

// MockCallController records hangups and placed calls
type MockCallController struct {
	mu            sync.Mutex
	Hangups       []string
	Placed        []domain.OutboundCall
	HangupFunc    func(ctx context.Context, callSid string) error
	PlaceCallFunc func(ctx context.Context, call domain.OutboundCall) (string, error)
}

func (m *MockCallController) Hangup(ctx context.Context, callSid string) error {
	m.mu.Lock()
	m.Hangups = append(m.Hangups, callSid)
	m.mu.Unlock()
	if m.HangupFunc != nil {
		return m.HangupFunc(ctx, callSid)
	}
	return nil
}

func (m *MockCallController) PlaceCall(ctx context.Context, call domain.OutboundCall) (string, error) {
	m.mu.Lock()
	m.Placed = append(m.Placed, call)
	m.mu.Unlock()
	if m.PlaceCallFunc != nil {
		return m.PlaceCallFunc(ctx, call)
	}
	return "CA-mock", nil
}

func (m *MockCallController) HangupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Hangups)
}

// MockCallOutcomeRepository keeps outcomes in memory
type MockCallOutcomeRepository struct {
	mu       sync.Mutex
	Outcomes []domain.CallOutcome
	SaveFunc func(ctx context.Context, outcome *domain.CallOutcome) error
}

func NewMockCallOutcomeRepository() *MockCallOutcomeRepository {
	return &MockCallOutcomeRepository{}
}

func (m *MockCallOutcomeRepository) Save(ctx context.Context, outcome *domain.CallOutcome) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, outcome)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outcomes = append(m.Outcomes, *outcome)
	return nil
}

func (m *MockCallOutcomeRepository) FindByCallSid(ctx context.Context, callSid string) (*domain.CallOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Outcomes {
		if m.Outcomes[i].CallSid == callSid {
			o := m.Outcomes[i]
			return &o, nil
		}
	}
	return nil, nil
}

func (m *MockCallOutcomeRepository) FindRecent(ctx context.Context, limit int) ([]domain.CallOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.CallOutcome(nil), m.Outcomes...)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MockCallOutcomeRepository) All() []domain.CallOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CallOutcome(nil), m.Outcomes...)
}
