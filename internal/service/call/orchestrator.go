// Package call runs one collections conversation per media stream: it wires
// recognition, generation, synthesis and playback together and guarantees that
// each call is torn down exactly once.
package call

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/adapter/queue"
	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/ports"
	"github.com/seu-repo/voxa-cobranza/internal/service/conversation"
	"github.com/seu-repo/voxa-cobranza/internal/service/playback"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

var (
	ErrSessionExists    = errors.New("call: session already exists for stream")
	ErrMissingStreamSid = errors.New("call: start without stream sid")
)

// Recorder receives every inbound μ-law frame of a call.
type Recorder interface {
	Write(frame []byte) error
	Close() error
}

// RecorderFactory opens a recorder for a stream. A nil factory disables capture.
type RecorderFactory func(streamSid string) (Recorder, error)

type Dependencies struct {
	Recognizer  ports.SpeechRecognizer
	Generator   ports.ReplyGenerator
	Synthesizer ports.SpeechSynthesizer
	Controller  ports.CallController
	// Optional collaborators
	Outcomes  ports.CallOutcomeRepository
	Events    queue.MessageQueue
	Recorders RecorderFactory
}

type StartParams struct {
	StreamSid string
	CallSid   string
	Client    domain.ClientContext
}

type Orchestrator struct {
	cfg       config.CallConfig
	deps      Dependencies
	player    *playback.Player
	evaluator *conversation.Evaluator
	messages  conversation.Messages
	registry  *Registry
	log       *zap.Logger
}

func NewOrchestrator(cfg config.CallConfig, deps Dependencies, player *playback.Player, registry *Registry, log *zap.Logger) (*Orchestrator, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("call: load timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	return &Orchestrator{
		cfg:       cfg,
		deps:      deps,
		player:    player,
		evaluator: conversation.NewEvaluator(conversation.NewDateExtractor(loc)),
		messages:  conversation.Messages{CompanyName: cfg.CompanyName},
		registry:  registry,
		log:       log,
	}, nil
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Start allocates and registers a session for a new media stream. It returns
// without waiting on any collaborator; recognition is connected and the
// greeting scheduled in the background.
func (o *Orchestrator) Start(params StartParams, transport ports.MediaTransport) (*Session, error) {
	if params.StreamSid == "" {
		return nil, ErrMissingStreamSid
	}

	s := newSession(o, params, transport)
	if err := o.registry.add(s); err != nil {
		return nil, err
	}

	s.log.Info("Call session started",
		zap.String("customer_name", params.Client.Name),
		zap.String("debt_amount", params.Client.DebtAmount),
	)

	s.watchdog.Arm()
	s.openRecorder()
	go s.connectRecognizer()
	s.scheduleGreeting(o.cfg.GreetingDelay)

	o.publish(domain.CallEvent{
		Type:      domain.EventCallStarted,
		CallSid:   params.CallSid,
		StreamSid: params.StreamSid,
		Timestamp: time.Now(),
	})
	return s, nil
}

// PlaceCall dials a debtor through the call controller.
func (o *Orchestrator) PlaceCall(ctx context.Context, call domain.OutboundCall) (string, error) {
	if call.To == "" {
		return "", errors.New("call: destination number is required")
	}
	sid, err := o.deps.Controller.PlaceCall(ctx, call)
	if err != nil {
		return "", fmt.Errorf("call: place call: %w", err)
	}
	o.log.Info("Outbound call placed", zap.String("call_sid", sid), zap.String("to", call.To))
	return sid, nil
}

// RecordStatus publishes a provider status callback.
func (o *Orchestrator) RecordStatus(callSid, status string) {
	o.log.Info("Call status update", zap.String("call_sid", callSid), zap.String("status", status))
	o.publish(domain.CallEvent{
		Type:      domain.EventCallStatus,
		CallSid:   callSid,
		Status:    status,
		Timestamp: time.Now(),
	})
}

func (o *Orchestrator) publish(event domain.CallEvent) {
	if o.deps.Events == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		o.log.Error("Failed to encode call event", zap.Error(err))
		return
	}
	if err := o.deps.Events.Publish(event.Type, data); err != nil {
		o.log.Warn("Failed to publish call event", zap.String("type", event.Type), zap.Error(err))
	}
}
