package main

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/pkg/audio"
)

const (
	frameBytes    = 160 // 20 ms of 8 kHz μ-law
	frameInterval = 20 * time.Millisecond
)

// SimulatorConfig holds the simulator configuration
type SimulatorConfig struct {
	ServerURL    string
	CustomerName string
	DebtAmount   string
	// MarkDelay is how long the fake phone takes to "play" a bot utterance
	// before echoing its mark.
	MarkDelay time.Duration
}

// Simulator plays the Twilio side of a media stream: it sends the connected and
// start events, streams caller audio and echoes the bot's marks.
type Simulator struct {
	config    *SimulatorConfig
	conn      *websocket.Conn
	log       *zap.Logger
	streamSid string
	callSid   string

	writeMu sync.Mutex
	seq     atomic.Int64

	receivedAudio atomic.Int64
	closed        chan struct{}
	closeOnce     sync.Once
	wg            sync.WaitGroup
}

// NewSimulator creates a new media stream simulator
func NewSimulator(config *SimulatorConfig, log *zap.Logger) *Simulator {
	return &Simulator{
		config:    config,
		log:       log,
		streamSid: "MZ" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		callSid:   "CA" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		closed:    make(chan struct{}),
	}
}

// Connect dials the bot and starts the stream.
func (s *Simulator) Connect() error {
	u, err := url.Parse(s.config.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	s.conn = conn
	s.log.Info("Connected to media stream endpoint",
		zap.String("url", u.String()),
		zap.String("stream_sid", s.streamSid),
	)

	s.wg.Add(1)
	go s.readMessages()

	if err := s.send(map[string]interface{}{"event": "connected", "protocol": "Call", "version": "1.0.0"}); err != nil {
		return err
	}
	return s.send(map[string]interface{}{
		"event":          "start",
		"sequenceNumber": s.nextSeq(),
		"streamSid":      s.streamSid,
		"start": map[string]interface{}{
			"streamSid":   s.streamSid,
			"callSid":     s.callSid,
			"tracks":      []string{"inbound"},
			"mediaFormat": map[string]interface{}{"encoding": "audio/x-mulaw", "sampleRate": 8000, "channels": 1},
			"customParameters": map[string]string{
				"customerName": s.config.CustomerName,
				"debtAmount":   s.config.DebtAmount,
			},
		},
	})
}

// Done is closed once the bot closes the stream.
func (s *Simulator) Done() <-chan struct{} { return s.closed }

// Stop sends a stop event and closes the socket.
func (s *Simulator) Stop() {
	select {
	case <-s.closed:
	default:
		_ = s.send(map[string]interface{}{"event": "stop", "streamSid": s.streamSid, "stop": map[string]string{"callSid": s.callSid}})
	}
	if s.conn != nil {
		s.conn.Close()
	}
	s.wg.Wait()
}

// PlayWAV streams a WAV file as caller audio in real time.
func (s *Simulator) PlayWAV(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	format, pcm, err := audio.ParseWAV(data)
	if err != nil {
		return err
	}
	if format.BitsPerSample != 16 {
		return fmt.Errorf("only 16-bit PCM is supported, got %d bits", format.BitsPerSample)
	}

	samples := audio.PCM16LEToSamples(pcm)
	if format.Channels == 2 {
		mono := make([]int16, len(samples)/2)
		for i := range mono {
			mono[i] = int16((int32(samples[2*i]) + int32(samples[2*i+1])) / 2)
		}
		samples = mono
	}
	samples = audio.Resample(samples, format.SampleRate, 8000)
	return s.streamFrames(audio.SplitFrames(audio.EncodeMulaw(samples), frameBytes))
}

// Silence streams μ-law silence for d.
func (s *Simulator) Silence(d time.Duration) error {
	frame := make([]byte, frameBytes)
	for i := range frame {
		frame[i] = audio.MulawSilence
	}
	n := int(d / frameInterval)
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = frame
	}
	return s.streamFrames(frames)
}

func (s *Simulator) streamFrames(frames [][]byte) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for _, frame := range frames {
		select {
		case <-s.closed:
			return fmt.Errorf("stream closed by server")
		case <-ticker.C:
		}
		err := s.send(map[string]interface{}{
			"event":          "media",
			"sequenceNumber": s.nextSeq(),
			"streamSid":      s.streamSid,
			"media": map[string]string{
				"track":   "inbound",
				"payload": base64.StdEncoding.EncodeToString(frame),
			},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// readMessages consumes bot output: media is counted, marks are echoed after
// MarkDelay, clear and stop are logged.
func (s *Simulator) readMessages() {
	defer s.wg.Done()
	defer s.closeOnce.Do(func() { close(s.closed) })

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Info("Media stream closed", zap.Error(err))
			return
		}

		var msg struct {
			Event string `json:"event"`
			Media struct {
				Payload string `json:"payload"`
			} `json:"media"`
			Mark struct {
				Name string `json:"name"`
			} `json:"mark"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn("Invalid message from bot", zap.Error(err))
			continue
		}

		switch msg.Event {
		case "media":
			if raw, err := base64.StdEncoding.DecodeString(msg.Media.Payload); err == nil {
				s.receivedAudio.Add(int64(len(raw)))
			}
		case "mark":
			name := msg.Mark.Name
			s.log.Info("Bot utterance finished", zap.String("mark", name), zap.Int64("audio_bytes", s.receivedAudio.Load()))
			time.AfterFunc(s.config.MarkDelay, func() {
				_ = s.send(map[string]interface{}{"event": "mark", "streamSid": s.streamSid, "mark": map[string]string{"name": name}})
			})
		case "clear":
			s.log.Info("Bot cleared playback (barge-in)")
		case "stop":
			s.log.Info("Bot ended the call")
		default:
			s.log.Debug("Unhandled bot event", zap.String("event", msg.Event))
		}
	}
}

func (s *Simulator) send(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Simulator) nextSeq() string {
	return strconv.FormatInt(s.seq.Add(1), 10)
}

// RunInteractive reads commands from stdin until quit or server close.
func (s *Simulator) RunInteractive() {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			fmt.Print("> ")
			continue
		}

		var err error
		switch parts[0] {
		case "play":
			if len(parts) < 2 {
				err = fmt.Errorf("usage: play <file.wav>")
				break
			}
			err = s.PlayWAV(parts[1])
		case "silence":
			secs := 1.0
			if len(parts) > 1 {
				secs, err = strconv.ParseFloat(parts[1], 64)
			}
			if err == nil {
				err = s.Silence(time.Duration(secs * float64(time.Second)))
			}
		case "stats":
			fmt.Printf("stream=%s call=%s bot_audio_bytes=%d\n", s.streamSid, s.callSid, s.receivedAudio.Load())
		case "hangup", "quit":
			s.Stop()
			return
		default:
			err = fmt.Errorf("unknown command %q", parts[0])
		}

		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
		select {
		case <-s.closed:
			fmt.Println("call ended by server")
			return
		default:
		}
		fmt.Print("> ")
	}
}
