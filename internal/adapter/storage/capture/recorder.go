package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/service/call"
	"github.com/seu-repo/voxa-cobranza/pkg/audio"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

const (
	sampleRate    = 8000
	bitsPerSample = 16
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// WAVRecorder writes the inbound audio of one stream as 16-bit PCM WAV. The
// header is written with a zero length up front and rewritten on Close.
type WAVRecorder struct {
	mu       sync.Mutex
	file     *os.File
	channels int
	written  int
	closed   bool
	log      *zap.Logger
}

// NewFactory returns a call.RecorderFactory writing into cfg.Dir, or nil when
// capture is disabled.
func NewFactory(cfg config.CaptureConfig, log *zap.Logger) (call.RecorderFactory, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if err := audio.ValidateChannels(cfg.Channels); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture: create dir: %w", err)
	}

	return func(streamSid string) (call.Recorder, error) {
		name := fmt.Sprintf("%s_%s.wav", unsafeName.ReplaceAllString(streamSid, "_"), time.Now().UTC().Format("20060102T150405"))
		rec, err := Open(filepath.Join(cfg.Dir, name), cfg.Channels, log)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}, nil
}

// Open creates path and reserves the header.
func Open(path string, channels int, log *zap.Logger) (*WAVRecorder, error) {
	if err := audio.ValidateChannels(channels); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("capture: create file: %w", err)
	}
	if _, err := f.Write(audio.BuildWAVHeader(0, sampleRate, channels, bitsPerSample)); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("capture: write header: %w", err)
	}

	log.Debug("Capture started", zap.String("path", path), zap.Int("channels", channels))
	return &WAVRecorder{file: f, channels: channels, log: log}, nil
}

// Write decodes a μ-law frame and appends it. With two channels each sample
// is duplicated on both.
func (r *WAVRecorder) Write(frame []byte) error {
	samples := audio.DecodeMulaw(frame)
	if r.channels == 2 {
		stereo := make([]int16, 0, len(samples)*2)
		for _, s := range samples {
			stereo = append(stereo, s, s)
		}
		samples = stereo
	}
	pcm := audio.SamplesToPCM16LE(samples)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return os.ErrClosed
	}
	n, err := r.file.Write(pcm)
	r.written += n
	if err != nil {
		return fmt.Errorf("capture: write: %w", err)
	}
	return nil
}

// Close rewrites the header with the final data length.
func (r *WAVRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	_, headerErr := r.file.WriteAt(audio.BuildWAVHeader(r.written, sampleRate, r.channels, bitsPerSample), 0)
	closeErr := r.file.Close()
	if headerErr != nil {
		return fmt.Errorf("capture: rewrite header: %w", headerErr)
	}
	if closeErr != nil {
		return fmt.Errorf("capture: close: %w", closeErr)
	}

	r.log.Debug("Capture finished", zap.String("path", r.file.Name()), zap.Int("bytes", r.written))
	return nil
}
