// Package deepgram streams call audio to Deepgram's live transcription API and
// hands back finalized utterances.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/ports"
	"github.com/seu-repo/voxa-cobranza/pkg/audio"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

type Recognizer struct {
	cfg    config.DeepgramConfig
	dialer *websocket.Dialer
	log    *zap.Logger
}

func NewRecognizer(cfg config.DeepgramConfig, log *zap.Logger) *Recognizer {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 5 * time.Second
	}
	return &Recognizer{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		log:    log,
	}
}

func (r *Recognizer) listenURL() (string, error) {
	u, err := url.Parse(r.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("deepgram: invalid url: %w", err)
	}
	q := u.Query()
	q.Set("encoding", "mulaw")
	q.Set("sample_rate", strconv.Itoa(audio.MulawSampleRate))
	q.Set("channels", "1")
	q.Set("language", r.cfg.Language)
	q.Set("model", r.cfg.Model)
	q.Set("interim_results", "true")
	q.Set("smart_format", "true")
	if r.cfg.UtteranceEndMs > 0 {
		q.Set("utterance_end_ms", strconv.Itoa(r.cfg.UtteranceEndMs))
	}
	if r.cfg.Endpointing > 0 {
		q.Set("endpointing", strconv.Itoa(r.cfg.Endpointing))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open dials a new live transcription socket.
func (r *Recognizer) Open(ctx context.Context) (ports.RecognitionStream, error) {
	if r.cfg.APIKey == "" {
		return nil, fmt.Errorf("deepgram: api key not configured")
	}
	target, err := r.listenURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := r.dialer.DialContext(ctx, target, http.Header{"Authorization": {"Token " + r.cfg.APIKey}})
	if err != nil {
		return nil, fmt.Errorf("deepgram: failed to open socket: %w", err)
	}

	s := &Stream{
		conn:        conn,
		transcripts: make(chan string, 16),
		done:        make(chan struct{}),
		readerDone:  make(chan struct{}),
		keepAlive:   r.cfg.KeepAlive,
		log:         r.log,
	}
	s.connected.Store(true)
	s.touch()

	go s.readLoop()
	go s.keepAliveLoop()
	return s, nil
}

// Stream is one live transcription session.
type Stream struct {
	conn   *websocket.Conn
	connMu sync.Mutex

	transcripts chan string
	done        chan struct{}
	readerDone  chan struct{}
	closeOnce   sync.Once
	connected   atomic.Bool
	lastWrite   atomic.Int64
	keepAlive   time.Duration

	// accessed only from readLoop
	accumulated   []string
	unendedSpeech bool

	log *zap.Logger
}

func (s *Stream) Transcripts() <-chan string { return s.transcripts }

func (s *Stream) Connected() bool { return s.connected.Load() }

func (s *Stream) SendAudio(frame []byte) error {
	if !s.connected.Load() {
		return fmt.Errorf("deepgram: stream not connected")
	}
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.touch()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("deepgram: failed to write audio: %w", err)
	}
	return nil
}

// Close asks Deepgram to flush, closes the socket and waits for the reader.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.connected.Load() {
			if err := s.writeControl(string(api.TypeCloseStreamResponse)); err != nil {
				s.log.Debug("Failed to send CloseStream", zap.Error(err))
			}
		}
		s.connected.Store(false)
		s.conn.Close()
	})
	<-s.readerDone
	return nil
}

func (s *Stream) touch() {
	s.lastWrite.Store(time.Now().UnixNano())
}

func (s *Stream) writeControl(kind string) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: kind})
}

func (s *Stream) keepAliveLoop() {
	ticker := time.NewTicker(s.keepAlive / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			idle := time.Since(time.Unix(0, s.lastWrite.Load()))
			if idle < s.keepAlive {
				continue
			}
			if err := s.writeControl("KeepAlive"); err != nil {
				s.log.Debug("Failed to send KeepAlive", zap.Error(err))
				continue
			}
			s.touch()
		case <-s.done:
			return
		case <-s.readerDone:
			return
		}
	}
}

func (s *Stream) readLoop() {
	defer close(s.readerDone)
	defer close(s.transcripts)
	defer s.connected.Store(false)

	for {
		msgType, msg, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					s.log.Warn("Deepgram socket closed", zap.Error(err))
				}
			}
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}
		if text, ok := s.process(msg); ok {
			select {
			case s.transcripts <- text:
			case <-s.done:
				return
			}
		}
	}
}

// process handles one server message and returns a finished utterance, if any.
func (s *Stream) process(msg []byte) (string, bool) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		s.log.Warn("Failed to decode deepgram message", zap.Error(err))
		return "", false
	}

	switch api.TypeResponse(head.Type) {
	case api.TypeMessageResponse:
		var resp api.MessageResponse
		if err := json.Unmarshal(msg, &resp); err != nil {
			s.log.Warn("Failed to decode deepgram transcript", zap.Error(err))
			return "", false
		}
		if !resp.IsFinal {
			return "", false
		}
		if len(resp.Channel.Alternatives) > 0 {
			if t := strings.TrimSpace(resp.Channel.Alternatives[0].Transcript); t != "" {
				s.accumulated = append(s.accumulated, t)
				s.unendedSpeech = true
			}
		}
		if resp.SpeechFinal {
			return s.flush()
		}
	case api.TypeUtteranceEndResponse:
		if s.unendedSpeech {
			return s.flush()
		}
	case api.TypeResponse("Error"):
		s.log.Warn("Deepgram error", zap.ByteString("message", msg))
	}
	return "", false
}

func (s *Stream) flush() (string, bool) {
	text := strings.TrimSpace(strings.Join(s.accumulated, " "))
	s.accumulated = s.accumulated[:0]
	s.unendedSpeech = false
	return text, text != ""
}
