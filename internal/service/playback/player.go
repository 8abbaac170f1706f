// Package playback streams synthesized μ-law audio to the media socket in
// protocol-sized frames, pacing against the socket's buffered bytes.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/observability/telemetry"
	"github.com/seu-repo/voxa-cobranza/pkg/audio"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

var ErrAlreadyPlaying = errors.New("playback: an utterance is already playing")

type Sink interface {
	SendMedia(payload []byte) error
	SendMark(name string) error
	Buffered() int
}

// State carries the speaking and cancel flags of one session.
type State struct {
	speaking atomic.Bool
	cancel   atomic.Bool
}

func (s *State) Speaking() bool        { return s.speaking.Load() }
func (s *State) RequestCancel()        { s.cancel.Store(true) }
func (s *State) CancelRequested() bool { return s.cancel.Load() }

// Reset clears a cancel request left over from an earlier utterance. Play
// itself honours a cancel that arrived before it started.
func (s *State) Reset() { s.cancel.Store(false) }

type Result struct {
	FramesSent int
	Completed  bool
	Cancelled  bool
}

type Player struct {
	frameSize      int
	highWaterBytes int
	shortPause     time.Duration
	longPause      time.Duration
	sleep          func(time.Duration)
	log            *zap.Logger
}

func NewPlayer(cfg config.PlaybackConfig, log *zap.Logger) *Player {
	return &Player{
		frameSize:      cfg.FrameSize,
		highWaterBytes: cfg.HighWaterBytes,
		shortPause:     cfg.ShortPause,
		longPause:      cfg.LongPause,
		sleep:          time.Sleep,
		log:            log,
	}
}

// Play sends audio frame by frame. Cancellation is polled before every frame,
// so at most the frame already handed to the sink goes out after a cancel.
// When mark is not empty it is sent after the last frame of a completed utterance.
func (p *Player) Play(ctx context.Context, pcm []byte, sink Sink, state *State, mark string) (Result, error) {
	if !state.speaking.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyPlaying
	}
	defer state.speaking.Store(false)

	var res Result
	for _, frame := range audio.SplitFrames(pcm, p.frameSize) {
		if state.CancelRequested() || ctx.Err() != nil {
			res.Cancelled = true
			telemetry.FramesSent.Add(float64(res.FramesSent))
			return res, nil
		}

		if err := sink.SendMedia(frame); err != nil {
			telemetry.FramesSent.Add(float64(res.FramesSent))
			p.log.Warn("Failed to send audio frame",
				zap.Int("frames_sent", res.FramesSent),
				zap.Error(err),
			)
			return res, fmt.Errorf("playback: send frame: %w", err)
		}
		res.FramesSent++

		if sink.Buffered() > p.highWaterBytes {
			p.sleep(p.longPause)
		} else {
			p.sleep(p.shortPause)
		}
	}
	telemetry.FramesSent.Add(float64(res.FramesSent))

	if mark != "" {
		if err := sink.SendMark(mark); err != nil {
			return res, fmt.Errorf("playback: send mark: %w", err)
		}
	}
	res.Completed = true
	return res, nil
}
