package call

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/observability/telemetry"
	"github.com/seu-repo/voxa-cobranza/internal/ports"
	"github.com/seu-repo/voxa-cobranza/internal/service/conversation"
	"github.com/seu-repo/voxa-cobranza/internal/service/playback"
	"github.com/seu-repo/voxa-cobranza/internal/service/transcript"
	"github.com/seu-repo/voxa-cobranza/internal/service/watchdog"
)

const teardownTimeout = 5 * time.Second

var errEmptyReply = errors.New("call: empty reply")

type utterance int

const (
	utteranceTurn utterance = iota
	// utteranceOpening is dropped once anything else was spoken.
	utteranceOpening
	// utteranceClosing still plays after closing was set.
	utteranceClosing
)

// Session is the state of one call. Mutable conversation state sits behind mu;
// utterances are serialized by speakMu; closing and terminated are the
// one-way guards for the shutdown paths.
type Session struct {
	o         *Orchestrator
	streamSid string
	callSid   string
	client    domain.ClientContext
	startedAt time.Time
	transport ports.MediaTransport
	log       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	watchdog *watchdog.Watchdog
	queue    *transcript.Queue
	playback playback.State
	speakMu  sync.Mutex

	mu                 sync.Mutex
	machine            *conversation.Machine
	history            []domain.Turn
	interactionCount   int
	interruptions      int
	totalInterruptions int
	agreedDate         string
	stream             ports.RecognitionStream
	recorder           Recorder
	greetingTimer      *time.Timer
	greeted            bool // set by the first utterance of any kind
	lastMarkSent       string
	lastMarkEchoed     string
	markEchoed         chan struct{}

	closing    atomic.Bool
	terminated atomic.Bool
	reason     domain.TerminationReason
	done       chan struct{}
}

func newSession(o *Orchestrator, params StartParams, transport ports.MediaTransport) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		o:          o,
		streamSid:  params.StreamSid,
		callSid:    params.CallSid,
		client:     params.Client,
		startedAt:  time.Now(),
		transport:  transport,
		ctx:        ctx,
		cancel:     cancel,
		machine:    conversation.NewMachine(o.cfg.ConfirmationThreshold),
		markEchoed: make(chan struct{}, 1),
		done:       make(chan struct{}),
		log: o.log.With(
			zap.String("stream_sid", params.StreamSid),
			zap.String("call_sid", params.CallSid),
		),
	}
	s.watchdog = watchdog.New(o.cfg.SilenceTimeout, s.onSilence)
	s.queue = transcript.New(ctx, s.processTurn, o.cfg.MinTranscriptLength, s.log)
	return s
}

func (s *Session) StreamSid() string { return s.streamSid }
func (s *Session) CallSid() string   { return s.callSid }

// Done is closed once the termination sequence has completed.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Terminated() bool { return s.terminated.Load() }

func (s *Session) Snapshot() domain.ActiveCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ActiveCall{
		StreamSid:        s.streamSid,
		CallSid:          s.callSid,
		CustomerName:     s.client.Name,
		Phase:            s.machine.Phase(),
		InteractionCount: s.interactionCount,
		StartedAt:        s.startedAt,
	}
}

// HandleMedia takes one inbound μ-law frame from the transport read loop.
func (s *Session) HandleMedia(frame []byte) {
	if s.terminated.Load() || len(frame) == 0 {
		return
	}
	s.watchdog.Arm()

	s.mu.Lock()
	stream, recorder := s.stream, s.recorder
	s.mu.Unlock()

	if stream != nil && stream.Connected() {
		if err := stream.SendAudio(frame); err != nil {
			s.log.Debug("Failed to forward audio to recognizer", zap.Error(err))
		}
	}
	if recorder != nil {
		if err := recorder.Write(frame); err != nil {
			s.log.Warn("Capture write failed, disabling capture", zap.Error(err))
			s.mu.Lock()
			s.recorder = nil
			s.mu.Unlock()
			recorder.Close()
		}
	}
}

// HandleMark records a mark echoed back by the provider once the audio before
// it finished playing.
func (s *Session) HandleMark(name string) {
	s.mu.Lock()
	s.lastMarkEchoed = name
	s.mu.Unlock()
	select {
	case s.markEchoed <- struct{}{}:
	default:
	}
}

// HandleStop runs when the provider ends the stream. The call leg is already
// gone, so no hangup is issued.
func (s *Session) HandleStop() {
	s.terminate(domain.ReasonStreamStopped)
}

// HandleTransportClosed runs when the socket drops. Without a stop event the
// call may still be up, so the termination sequence hangs up.
func (s *Session) HandleTransportClosed() {
	s.terminate(domain.ReasonTransportClosed)
}

func (s *Session) connectRecognizer() {
	defer s.recoverPanic("recognizer")

	start := time.Now()
	stream, err := s.o.deps.Recognizer.Open(s.ctx)
	telemetry.CollaboratorLatency.WithLabelValues("stt").Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.CollaboratorErrorsTotal.WithLabelValues("stt").Inc()
		s.log.Error("Failed to open recognition stream", zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.terminated.Load() {
		s.mu.Unlock()
		stream.Close()
		return
	}
	s.stream = stream
	s.mu.Unlock()

	s.log.Info("Recognition stream connected")
	for text := range stream.Transcripts() {
		s.onTranscript(text)
	}
	if !s.terminated.Load() {
		s.log.Warn("Recognition stream ended before the call")
	}
}

func (s *Session) onTranscript(text string) {
	if s.closing.Load() {
		return
	}
	s.watchdog.Arm()

	if s.playback.Speaking() {
		s.mu.Lock()
		s.interruptions++
		s.totalInterruptions++
		hit := s.interruptions >= s.o.cfg.InterruptionThreshold
		s.mu.Unlock()

		if hit && !s.playback.CancelRequested() {
			s.log.Info("Barge-in detected, cancelling current utterance", zap.String("text", text))
			telemetry.BargeInsTotal.Inc()
			s.playback.RequestCancel()
			if err := s.transport.SendClear(); err != nil {
				s.log.Warn("Failed to send clear", zap.Error(err))
			}
		}
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < s.o.cfg.MinTranscriptLength {
		return
	}
	s.queue.Enqueue(text)
}

// processTurn handles one dequeued transcript. It runs on the queue's drain
// loop, so turns never overlap.
func (s *Session) processTurn(ctx context.Context, item domain.TranscriptItem) {
	defer s.recoverPanic("turn")
	if s.closing.Load() {
		return
	}

	s.mu.Lock()
	s.interactionCount++
	count := s.interactionCount
	agreed := s.agreedDate
	history := s.recentHistory()
	s.mu.Unlock()

	s.log.Info("Processing transcript", zap.Int("interaction", count), zap.String("text", item.Text))

	if count >= s.o.cfg.InteractionCap {
		telemetry.TurnsTotal.WithLabelValues("interaction_cap").Inc()
		s.forceClose(domain.ReasonInteractionCap, s.o.messages.TurnCapClosing())
		return
	}
	if agreed != "" {
		s.terminate(domain.ReasonAgreement)
		return
	}

	ctx, span := telemetry.Tracer().Start(ctx, "call.turn")
	span.SetAttributes(attribute.String("call.sid", s.callSid), attribute.Int("call.interaction", count))
	defer span.End()

	start := time.Now()
	reply, err := s.o.deps.Generator.Ask(ctx, ports.ReplyRequest{
		Client:     s.client,
		Transcript: item.Text,
		History:    history,
	})
	telemetry.CollaboratorLatency.WithLabelValues("llm").Observe(time.Since(start).Seconds())
	if s.closing.Load() {
		return
	}
	if err != nil || strings.TrimSpace(reply) == "" {
		if err == nil {
			err = errEmptyReply
		}
		telemetry.CollaboratorErrorsTotal.WithLabelValues("llm").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("Reply generation failed, asking caller to repeat", zap.Error(err))
		s.speak(ctx, s.o.messages.Repeat(), utteranceTurn)
		return
	}

	decision := s.o.evaluator.Evaluate(item.Text, reply)

	s.mu.Lock()
	step := s.machine.Apply(decision)
	s.history = append(s.history,
		domain.Turn{Role: domain.RoleCustomer, Text: item.Text},
		domain.Turn{Role: domain.RoleAgent, Text: reply},
	)
	if step.AgreedDate != "" && s.agreedDate == "" {
		s.agreedDate = step.AgreedDate
	}
	phase := s.machine.Phase()
	s.mu.Unlock()

	telemetry.TurnsTotal.WithLabelValues(step.Action.String()).Inc()
	span.SetAttributes(attribute.String("call.action", step.Action.String()), attribute.String("call.phase", string(phase)))
	s.log.Info("Turn evaluated",
		zap.String("reply", reply),
		zap.String("action", step.Action.String()),
		zap.String("phase", string(phase)),
		zap.String("date", decision.ExtractedDate),
	)
	s.o.registry.mirror(s.Snapshot())

	switch step.Action {
	case conversation.ActionCloseWithReply:
		if !s.closing.CompareAndSwap(false, true) {
			return
		}
		s.speak(ctx, reply, utteranceClosing)
		s.terminate(domain.ReasonAgreement)
	case conversation.ActionCloseWithConfirmation:
		if !s.closing.CompareAndSwap(false, true) {
			return
		}
		s.speak(ctx, s.o.messages.Confirmation(step.AgreedDate), utteranceClosing)
		s.terminate(domain.ReasonUserConfirmed)
	case conversation.ActionContinue:
		s.speak(ctx, reply, utteranceTurn)
	}
}

// recentHistory must be called with mu held.
func (s *Session) recentHistory() []domain.Turn {
	h := s.history
	if n := s.o.cfg.HistoryTurns * 2; n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	return append([]domain.Turn(nil), h...)
}

func (s *Session) scheduleGreeting(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.greetingTimer = time.AfterFunc(delay, s.greet)
}

func (s *Session) greet() {
	defer s.recoverPanic("greeting")
	if s.closing.Load() {
		return
	}

	text := s.o.messages.Greeting(s.client)
	spoken := s.speak(s.ctx, text, utteranceOpening)

	s.mu.Lock()
	s.machine.Greeted()
	if spoken {
		s.history = append(s.history, domain.Turn{Role: domain.RoleAgent, Text: text})
	}
	s.mu.Unlock()
}

// speak synthesizes and plays one utterance and reports whether it was
// attempted. Failures are logged; a failed synthesis of a turn reply is
// answered with the fallback. Once closing is set only utteranceClosing plays.
func (s *Session) speak(ctx context.Context, text string, kind utterance) bool {
	s.speakMu.Lock()
	defer s.speakMu.Unlock()

	if s.terminated.Load() || s.superseded(kind) {
		return false
	}
	s.mu.Lock()
	if kind == utteranceOpening && s.greeted {
		s.mu.Unlock()
		return false
	}
	s.greeted = true
	s.mu.Unlock()
	s.playback.Reset()

	start := time.Now()
	audio, err := s.o.deps.Synthesizer.Synthesize(ctx, conversation.SpellNumbers(text))
	telemetry.CollaboratorLatency.WithLabelValues("tts").Observe(time.Since(start).Seconds())
	if err != nil {
		telemetry.CollaboratorErrorsTotal.WithLabelValues("tts").Inc()
		s.log.Warn("Speech synthesis failed", zap.Error(err))
		if kind != utteranceTurn || text == s.o.messages.Repeat() || s.closing.Load() {
			return true
		}
		fallback := s.o.messages.Repeat()
		if audio, err = s.o.deps.Synthesizer.Synthesize(ctx, fallback); err != nil {
			s.log.Warn("Fallback synthesis failed", zap.Error(err))
			return true
		}
	}
	if s.terminated.Load() || s.superseded(kind) {
		s.log.Debug("Dropping utterance synthesized before close", zap.String("text", text))
		return true
	}

	mark := "utt-" + uuid.NewString()
	s.mu.Lock()
	s.interruptions = 0
	s.lastMarkSent = mark
	s.mu.Unlock()

	res, err := s.o.player.Play(ctx, audio, s.transport, &s.playback, mark)
	if err != nil {
		s.log.Warn("Playback failed", zap.Error(err))
		return true
	}
	if res.Cancelled {
		s.log.Info("Utterance cut short", zap.Int("frames_sent", res.FramesSent))
	}
	return true
}

func (s *Session) superseded(kind utterance) bool {
	return kind != utteranceClosing && s.closing.Load()
}

// forceClose runs the cap and silence closing path: one winner plays the
// closing utterance and terminates without an agreed date.
func (s *Session) forceClose(reason domain.TerminationReason, text string) {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	s.log.Info("Forcing call to close", zap.String("reason", string(reason)))

	s.mu.Lock()
	s.machine.ForceClose()
	s.mu.Unlock()

	s.playback.RequestCancel()
	s.speak(s.ctx, text, utteranceClosing)
	s.terminate(reason)
}

func (s *Session) onSilence() {
	defer s.recoverPanic("watchdog")
	s.log.Warn("Silence timeout")

	s.mu.Lock()
	agreed := s.agreedDate
	s.mu.Unlock()

	if agreed != "" {
		s.terminate(domain.ReasonAgreement)
		return
	}
	s.forceClose(domain.ReasonSilence, s.o.messages.SilenceClosing())
}

// terminate runs the teardown sequence once, whichever trigger gets here first.
func (s *Session) terminate(reason domain.TerminationReason) {
	if !s.terminated.CompareAndSwap(false, true) {
		return
	}
	s.closing.Store(true)
	s.watchdog.Stop()

	s.mu.Lock()
	s.reason = reason
	if s.greetingTimer != nil {
		s.greetingTimer.Stop()
	}
	mark := s.lastMarkSent
	s.mu.Unlock()

	s.log.Info("Terminating call", zap.String("reason", string(reason)))

	transportUp := reason != domain.ReasonStreamStopped && reason != domain.ReasonTransportClosed
	if transportUp {
		s.waitForMark(mark, s.o.cfg.ClosingWait)
		if err := s.transport.SendStop(); err != nil {
			s.log.Warn("Failed to send stop", zap.Error(err))
		}
	}

	if reason != domain.ReasonStreamStopped && s.callSid != "" {
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		start := time.Now()
		err := s.o.deps.Controller.Hangup(ctx, s.callSid)
		cancel()
		telemetry.CollaboratorLatency.WithLabelValues("telephony").Observe(time.Since(start).Seconds())
		if err != nil {
			telemetry.CollaboratorErrorsTotal.WithLabelValues("telephony").Inc()
			s.log.Error("Hangup failed", zap.Error(err))
		}
	}

	s.queue.Close()
	s.mu.Lock()
	s.machine.Terminate()
	stream, recorder := s.stream, s.recorder
	s.stream, s.recorder = nil, nil
	s.mu.Unlock()

	if stream != nil {
		if err := stream.Close(); err != nil {
			s.log.Debug("Failed to close recognition stream", zap.Error(err))
		}
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			s.log.Warn("Failed to finalize capture", zap.Error(err))
		}
	}
	s.cancel()
	if err := s.transport.Close(); err != nil {
		s.log.Debug("Failed to close transport", zap.Error(err))
	}

	outcome := s.outcome()
	s.persist(outcome)
	s.o.publish(domain.CallEvent{
		Type:       domain.EventCallEnded,
		CallSid:    s.callSid,
		StreamSid:  s.streamSid,
		Reason:     reason,
		AgreedDate: outcome.AgreedDate,
		Timestamp:  outcome.EndedAt,
	})
	s.o.registry.remove(s)
	telemetry.CallsEndedTotal.WithLabelValues(string(reason), fmt.Sprint(outcome.Agreed())).Inc()

	s.log.Info("Call terminated",
		zap.String("agreed_date", outcome.AgreedDate),
		zap.Int("interactions", outcome.InteractionCount),
		zap.Duration("duration", outcome.EndedAt.Sub(outcome.StartedAt)),
	)
	close(s.done)
}

// waitForMark blocks until the provider echoes mark or the timeout elapses.
func (s *Session) waitForMark(mark string, timeout time.Duration) {
	if mark == "" || timeout <= 0 {
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		s.mu.Lock()
		echoed := s.lastMarkEchoed == mark
		s.mu.Unlock()
		if echoed {
			return
		}
		select {
		case <-s.markEchoed:
		case <-timer.C:
			s.log.Debug("Closing utterance mark not echoed in time", zap.String("mark", mark))
			return
		}
	}
}

func (s *Session) outcome() *domain.CallOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	agreed := s.agreedDate
	if agreed == "" {
		agreed = domain.DateNotConfirmed
	}
	return &domain.CallOutcome{
		ID:                uuid.NewString(),
		CallSid:           s.callSid,
		StreamSid:         s.streamSid,
		CustomerName:      s.client.Name,
		DebtAmount:        s.client.DebtAmount,
		AgreedDate:        agreed,
		Reason:            s.reason,
		FinalPhase:        s.machine.Phase(),
		InteractionCount:  s.interactionCount,
		InterruptionCount: s.totalInterruptions,
		StartedAt:         s.startedAt,
		EndedAt:           time.Now(),
	}
}

func (s *Session) persist(outcome *domain.CallOutcome) {
	if s.o.deps.Outcomes == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()
	start := time.Now()
	if err := s.o.deps.Outcomes.Save(ctx, outcome); err != nil {
		s.log.Error("Failed to persist call outcome", zap.Error(err))
	}
	telemetry.DatabaseLatency.Observe(time.Since(start).Seconds())
}

func (s *Session) openRecorder() {
	if s.o.deps.Recorders == nil {
		return
	}
	rec, err := s.o.deps.Recorders(s.streamSid)
	if err != nil {
		s.log.Warn("Failed to open capture file", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.recorder = rec
	s.mu.Unlock()
}

// recoverPanic confines a panic to this call: it is logged and the call is torn down.
func (s *Session) recoverPanic(where string) {
	if r := recover(); r != nil {
		s.log.Error("Recovered panic in call session",
			zap.String("where", where),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
		go s.terminate(domain.ReasonInternalError)
	}
}
