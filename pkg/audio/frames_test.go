package audio

import (
	"bytes"
	"testing"
)

func TestSplitFrames(t *testing.T) {
	buf := make([]byte, 1000)
	for i := range buf {
		buf[i] = byte(i)
	}

	frames := SplitFrames(buf, 160)
	if len(frames) != 7 {
		t.Fatalf("expected 7 frames, got %d", len(frames))
	}
	for i, f := range frames[:6] {
		if len(f) != 160 {
			t.Errorf("frame %d: expected 160 bytes, got %d", i, len(f))
		}
	}
	if len(frames[6]) != 40 {
		t.Errorf("expected last frame of 40 bytes, got %d", len(frames[6]))
	}
	if !bytes.Equal(bytes.Join(frames, nil), buf) {
		t.Error("frames do not reassemble to the input")
	}
}

func TestSplitFramesEdgeCases(t *testing.T) {
	if got := SplitFrames(nil, 160); len(got) != 0 {
		t.Errorf("expected no frames, got %d", len(got))
	}
	if got := SplitFrames(make([]byte, 320), 160); len(got) != 2 {
		t.Errorf("expected 2 exact frames, got %d", len(got))
	}
	if got := SplitFrames([]byte{1, 2, 3}, 0); len(got) != 1 || len(got[0]) != 3 {
		t.Errorf("expected the whole buffer as one frame, got %v", got)
	}
}
