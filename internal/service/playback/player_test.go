package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

type recordingSink struct {
	mu       sync.Mutex
	frames   [][]byte
	marks    []string
	buffered int
	sendErr  error
	onSend   func(n int)
}

func (s *recordingSink) SendMedia(payload []byte) error {
	s.mu.Lock()
	if s.sendErr != nil {
		s.mu.Unlock()
		return s.sendErr
	}
	s.frames = append(s.frames, append([]byte(nil), payload...))
	n := len(s.frames)
	s.mu.Unlock()
	if s.onSend != nil {
		s.onSend(n)
	}
	return nil
}

func (s *recordingSink) SendMark(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = append(s.marks, name)
	return nil
}

func (s *recordingSink) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffered
}

func newTestPlayer() (*Player, *[]time.Duration) {
	p := NewPlayer(config.PlaybackConfig{
		FrameSize:      160,
		HighWaterBytes: 64 * 1024,
		ShortPause:     6 * time.Millisecond,
		LongPause:      20 * time.Millisecond,
	}, zap.NewNop())
	var pauses []time.Duration
	p.sleep = func(d time.Duration) { pauses = append(pauses, d) }
	return p, &pauses
}

func TestPlayFramesInOrder(t *testing.T) {
	p, pauses := newTestPlayer()
	sink := &recordingSink{}
	state := &State{}

	audio := make([]byte, 500)
	for i := range audio {
		audio[i] = byte(i)
	}

	res, err := p.Play(context.Background(), audio, sink, state, "utt-1")
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !res.Completed || res.Cancelled || res.FramesSent != 4 {
		t.Errorf("unexpected result %+v", res)
	}
	sizes := []int{160, 160, 160, 20}
	for i, f := range sink.frames {
		if len(f) != sizes[i] {
			t.Errorf("frame %d: expected %d bytes, got %d", i, sizes[i], len(f))
		}
		if f[0] != byte(i*160) {
			t.Errorf("frame %d out of order", i)
		}
	}
	if len(sink.marks) != 1 || sink.marks[0] != "utt-1" {
		t.Errorf("expected end mark, got %v", sink.marks)
	}
	for _, d := range *pauses {
		if d != 6*time.Millisecond {
			t.Errorf("expected short pauses below the high water mark, got %v", d)
		}
	}
	if state.Speaking() {
		t.Error("expected speaking flag to be cleared")
	}
}

func TestPlayBackpressure(t *testing.T) {
	p, pauses := newTestPlayer()
	sink := &recordingSink{buffered: 70 * 1024}

	if _, err := p.Play(context.Background(), make([]byte, 320), sink, &State{}, ""); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if len(*pauses) != 2 {
		t.Fatalf("expected 2 pauses, got %d", len(*pauses))
	}
	for _, d := range *pauses {
		if d != 20*time.Millisecond {
			t.Errorf("expected long pause above the high water mark, got %v", d)
		}
	}
	if len(sink.marks) != 0 {
		t.Errorf("expected no mark, got %v", sink.marks)
	}
}

func TestPlayCancelStopsWithinOneFrame(t *testing.T) {
	p, _ := newTestPlayer()
	state := &State{}
	sink := &recordingSink{}
	sink.onSend = func(n int) {
		if n == 3 {
			state.RequestCancel()
		}
	}

	res, err := p.Play(context.Background(), make([]byte, 160*50), sink, state, "utt")
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !res.Cancelled || res.Completed {
		t.Errorf("expected cancelled result, got %+v", res)
	}
	if len(sink.frames) != 3 {
		t.Errorf("expected 3 frames before cancellation took effect, got %d", len(sink.frames))
	}
	if len(sink.marks) != 0 {
		t.Error("expected no end mark for a cancelled utterance")
	}
	if state.Speaking() {
		t.Error("expected speaking flag to be cleared after cancel")
	}
}

func TestPlayContextCancelled(t *testing.T) {
	p, _ := newTestPlayer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Play(ctx, make([]byte, 1600), &recordingSink{}, &State{}, "")
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if !res.Cancelled || res.FramesSent != 0 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestPlayRejectsConcurrentInvocation(t *testing.T) {
	p, _ := newTestPlayer()
	state := &State{}
	state.speaking.Store(true)

	if _, err := p.Play(context.Background(), make([]byte, 160), &recordingSink{}, state, ""); !errors.Is(err, ErrAlreadyPlaying) {
		t.Errorf("expected ErrAlreadyPlaying, got %v", err)
	}
	if !state.Speaking() {
		t.Error("a rejected call must not clear the active speaker")
	}
}

func TestPlaySendFailure(t *testing.T) {
	p, _ := newTestPlayer()
	state := &State{}
	sink := &recordingSink{sendErr: errors.New("socket closed")}

	if _, err := p.Play(context.Background(), make([]byte, 320), sink, state, ""); err == nil {
		t.Fatal("expected send error")
	}
	if state.Speaking() {
		t.Error("expected speaking flag to be cleared after a failure")
	}
}

func TestPlayHonoursEarlyCancel(t *testing.T) {
	p, _ := newTestPlayer()
	state := &State{}
	state.RequestCancel()
	sink := &recordingSink{}
	res, err := p.Play(context.Background(), make([]byte, 320), sink, state, "m1")
	if err != nil || !res.Cancelled || res.FramesSent != 0 {
		t.Errorf("expected a cancel requested before Play to stop it, got %+v / %v", res, err)
	}

	state.Reset()
	res, err = p.Play(context.Background(), make([]byte, 320), sink, state, "m2")
	if err != nil || !res.Completed || res.FramesSent != 2 {
		t.Errorf("expected Reset to let the next utterance play, got %+v / %v", res, err)
	}
}
