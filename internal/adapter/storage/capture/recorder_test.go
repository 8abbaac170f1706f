package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/pkg/audio"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

func TestRecorderRewritesHeader(t *testing.T) {
	tests := []struct {
		name     string
		channels int
	}{
		{"mono", 1},
		{"stereo", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "call.wav")
			rec, err := Open(path, tt.channels, zap.NewNop())
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}

			frame := make([]byte, 160)
			for i := range frame {
				frame[i] = audio.EncodeMulawSample(int16(i * 50))
			}
			for i := 0; i < 3; i++ {
				if err := rec.Write(frame); err != nil {
					t.Fatalf("Write failed: %v", err)
				}
			}
			if err := rec.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if err := rec.Write(frame); !errors.Is(err, os.ErrClosed) {
				t.Errorf("write after close: %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read capture: %v", err)
			}
			format, pcm, err := audio.ParseWAV(data)
			if err != nil {
				t.Fatalf("ParseWAV failed: %v", err)
			}
			if format.Channels != tt.channels || format.SampleRate != 8000 || format.BitsPerSample != 16 {
				t.Errorf("unexpected format %+v", format)
			}
			if want := 3 * 160 * 2 * tt.channels; len(pcm) != want {
				t.Errorf("data length = %d, want %d", len(pcm), want)
			}
		})
	}
}

func TestNewFactory(t *testing.T) {
	factory, err := NewFactory(config.CaptureConfig{Enabled: false}, zap.NewNop())
	if err != nil || factory != nil {
		t.Fatalf("disabled capture should return nil factory, got %v", err)
	}

	if _, err := NewFactory(config.CaptureConfig{Enabled: true, Dir: t.TempDir(), Channels: 3}, zap.NewNop()); !errors.Is(err, audio.ErrUnsupportedChannels) {
		t.Errorf("expected ErrUnsupportedChannels, got %v", err)
	}

	dir := t.TempDir()
	factory, err = NewFactory(config.CaptureConfig{Enabled: true, Dir: dir, Channels: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewFactory failed: %v", err)
	}
	rec, err := factory("MZ/../evil")
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected one capture file in dir, got %d", len(entries))
	}
}
