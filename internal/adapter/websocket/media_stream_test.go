package websocket

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/mocks"
	"github.com/seu-repo/voxa-cobranza/internal/service/call"
	"github.com/seu-repo/voxa-cobranza/internal/service/playback"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

type fakeConn struct {
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	out       [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 32), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case m, ok := <-c.in:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, m, nil
	case <-c.closed:
		return 0, nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) written() []outboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]outboundMessage, 0, len(c.out))
	for _, raw := range c.out {
		var m outboundMessage
		json.Unmarshal(raw, &m)
		msgs = append(msgs, m)
	}
	return msgs
}

type harness struct {
	orch     *call.Orchestrator
	ctrl     *mocks.MockCallController
	outcomes *mocks.MockCallOutcomeRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop()
	h := &harness{
		ctrl:     &mocks.MockCallController{},
		outcomes: mocks.NewMockCallOutcomeRepository(),
	}
	orch, err := call.NewOrchestrator(config.CallConfig{
		SilenceTimeout:        10 * time.Second,
		InteractionCap:        10,
		InterruptionThreshold: 1,
		ConfirmationThreshold: 2,
		GreetingDelay:         time.Hour,
		ClosingWait:           10 * time.Millisecond,
		MinTranscriptLength:   2,
		HistoryTurns:          10,
		CompanyName:           "La Ofrenda",
		Timezone:              "UTC",
	}, call.Dependencies{
		Recognizer:  &mocks.MockRecognizer{Stream: mocks.NewMockRecognitionStream()},
		Generator:   &mocks.MockReplyGenerator{},
		Synthesizer: &mocks.MockSynthesizer{},
		Controller:  h.ctrl,
		Outcomes:    h.outcomes,
	}, playback.NewPlayer(config.PlaybackConfig{FrameSize: 160, HighWaterBytes: 64 * 1024}, log),
		call.NewRegistry(mocks.NewMockCache(), time.Minute, log), log)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	h.orch = orch
	return h
}

func startMessage(streamSid string) []byte {
	return []byte(`{"event":"start","start":{"streamSid":"` + streamSid + `","callSid":"CA1","customParameters":{"customerName":"Ana","debtAmount":"50000"}}}`)
}

func mediaMessage(frame []byte) []byte {
	return []byte(`{"event":"media","media":{"payload":"` + base64.StdEncoding.EncodeToString(frame) + `"}}`)
}

func runServe(h *MediaStreamHandler, conn *fakeConn) chan struct{} {
	done := make(chan struct{})
	go func() {
		h.serve(conn, func(string) string { return "" })
		close(done)
	}()
	return done
}

func waitClosed(t *testing.T, done chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("handler did not return")
	}
}

func TestMediaStreamStopEndsWithoutHangup(t *testing.T) {
	h := newHarness(t)
	conn := newFakeConn()
	done := runServe(NewMediaStreamHandler(h.orch, 16, zap.NewNop()), conn)

	conn.in <- []byte(`{"event":"connected","protocol":"Call"}`)
	conn.in <- mediaMessage([]byte{0xFF})
	conn.in <- startMessage("MZ1")
	conn.in <- mediaMessage(make([]byte, 160))
	conn.in <- []byte(`{bad json`)
	conn.in <- []byte(`{"event":"media","media":{"payload":"!!!"}}`)
	conn.in <- []byte(`{"event":"mark","mark":{"name":"utt-1"}}`)
	conn.in <- []byte(`{"event":"stop","streamSid":"MZ1"}`)
	waitClosed(t, done)

	if n := h.ctrl.HangupCount(); n != 0 {
		t.Errorf("expected no hangup on provider stop, got %d", n)
	}
	outcomes := h.outcomes.All()
	if len(outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(outcomes))
	}
	if o := outcomes[0]; o.Reason != domain.ReasonStreamStopped || o.CustomerName != "Ana" || o.DebtAmount != "50000" {
		t.Errorf("unexpected outcome %+v", o)
	}
	if h.orch.Registry().Len() != 0 {
		t.Error("expected session to be released")
	}
}

func TestMediaStreamDisconnectHangsUp(t *testing.T) {
	h := newHarness(t)
	conn := newFakeConn()
	done := runServe(NewMediaStreamHandler(h.orch, 16, zap.NewNop()), conn)

	conn.in <- startMessage("MZ2")
	close(conn.in)
	waitClosed(t, done)

	if n := h.ctrl.HangupCount(); n != 1 {
		t.Errorf("expected one hangup after socket drop, got %d", n)
	}
	if o := h.outcomes.All(); len(o) != 1 || o[0].Reason != domain.ReasonTransportClosed {
		t.Errorf("unexpected outcomes %+v", o)
	}
}

func TestMediaStreamRejectsDuplicateStream(t *testing.T) {
	h := newHarness(t)
	handler := NewMediaStreamHandler(h.orch, 16, zap.NewNop())

	first := newFakeConn()
	firstDone := runServe(handler, first)
	first.in <- startMessage("MZ3")
	for h.orch.Registry().Len() == 0 {
		time.Sleep(time.Millisecond)
	}

	second := newFakeConn()
	secondDone := runServe(handler, second)
	second.in <- startMessage("MZ3")
	waitClosed(t, secondDone)

	close(first.in)
	waitClosed(t, firstDone)
	if n := len(h.outcomes.All()); n != 1 {
		t.Errorf("expected only the first stream to produce an outcome, got %d", n)
	}
}

func TestConnTransportSerializesOutbound(t *testing.T) {
	conn := newFakeConn()
	tr := newConnTransport(conn, "MZ9", 8, zap.NewNop())

	if err := tr.SendMedia([]byte{1, 2, 3}); err != nil {
		t.Fatalf("SendMedia: %v", err)
	}
	tr.SendMark("utt-1")
	tr.SendClear()
	tr.SendStop()
	tr.Close()

	msgs := conn.written()
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages flushed before close, got %d", len(msgs))
	}
	want := []string{EventMedia, EventMark, EventClear, EventStop}
	for i, m := range msgs {
		if m.Event != want[i] || m.StreamSid != "MZ9" {
			t.Errorf("message %d: got %+v", i, m)
		}
	}
	if msgs[0].Media.Track != "inbound" || msgs[0].Media.Payload != base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) {
		t.Errorf("unexpected media payload %+v", msgs[0].Media)
	}
	if msgs[1].Mark.Name != "utt-1" {
		t.Errorf("unexpected mark %+v", msgs[1].Mark)
	}
	if tr.Buffered() != 0 {
		t.Errorf("expected empty buffer after flush, got %d", tr.Buffered())
	}
	if err := tr.SendMedia([]byte{1}); !errors.Is(err, ErrTransportClosed) {
		t.Errorf("expected ErrTransportClosed, got %v", err)
	}
}

func TestParseInbound(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"start", `{"event":"start","start":{"streamSid":"MZ1","callSid":"CA1"}}`, false},
		{"media", `{"event":"media","media":{"payload":"/w=="}}`, false},
		{"stop", `{"event":"stop"}`, false},
		{"unknown event", `{"event":"dtmf"}`, false},
		{"not json", `hello`, true},
		{"no event", `{"media":{"payload":"/w=="}}`, true},
		{"start without sid", `{"event":"start","start":{}}`, true},
		{"media without payload", `{"event":"media","media":{}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInbound([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseInbound() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("expected ErrMalformedMessage, got %v", err)
			}
		})
	}
}

func TestClientContextFallsBackToQuery(t *testing.T) {
	query := map[string]string{"name": "Luis", "debt": "1200"}
	got := clientContext(nil, func(k string) string { return query[k] })
	if got.Name != "Luis" || got.DebtAmount != "1200" {
		t.Errorf("unexpected client context %+v", got)
	}

	got = clientContext(map[string]string{"customerName": "Ana"}, func(k string) string { return query[k] })
	if got.Name != "Ana" || got.DebtAmount != "1200" {
		t.Errorf("expected custom parameters to win, got %+v", got)
	}
}
