package ports

import (
	"context"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

// SpeechRecognizer opens one streaming recognition session per call.
type SpeechRecognizer interface {
	Open(ctx context.Context) (RecognitionStream, error)
}

// RecognitionStream delivers finalized utterances. Interim hypotheses never
// reach Transcripts. The channel is closed when the stream ends.
type RecognitionStream interface {
	Transcripts() <-chan string
	SendAudio(frame []byte) error
	Connected() bool
	Close() error
}

type ReplyRequest struct {
	Client     domain.ClientContext
	Transcript string
	History    []domain.Turn
}

// ReplyGenerator produces the agent's next utterance.
type ReplyGenerator interface {
	Ask(ctx context.Context, req ReplyRequest) (string, error)
}

// SpeechSynthesizer renders text to 8 kHz μ-law audio ready for the media stream.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	HealthCheck(ctx context.Context) error
}

// CallController controls the telephony leg.
type CallController interface {
	Hangup(ctx context.Context, callSid string) error
	PlaceCall(ctx context.Context, call domain.OutboundCall) (string, error)
}

// MediaTransport is the outbound side of a media stream connection.
type MediaTransport interface {
	SendMedia(payload []byte) error
	SendMark(name string) error
	SendClear() error
	SendStop() error
	// Buffered is the number of bytes accepted but not yet written to the socket.
	Buffered() int
	Close() error
}
