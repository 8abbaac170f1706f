package websocket

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Eventos do Media Streams
const (
	EventConnected = "connected"
	EventStart     = "start"
	EventMedia     = "media"
	EventMark      = "mark"
	EventStop      = "stop"
	EventClear     = "clear"
)

var ErrMalformedMessage = errors.New("websocket: malformed media stream message")

type InboundMessage struct {
	Event     string          `json:"event"`
	StreamSid string          `json:"streamSid,omitempty"`
	Start     *StartPayload   `json:"start,omitempty"`
	Media     *MediaPayload   `json:"media,omitempty"`
	Mark      *MarkPayload    `json:"mark,omitempty"`
	Stop      json.RawMessage `json:"stop,omitempty"`
}

type StartPayload struct {
	StreamSid        string            `json:"streamSid"`
	CallSid          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

type MediaPayload struct {
	Payload string `json:"payload"`
	Track   string `json:"track,omitempty"`
}

type MarkPayload struct {
	Name string `json:"name"`
}

type outboundMessage struct {
	Event     string        `json:"event"`
	StreamSid string        `json:"streamSid"`
	Media     *MediaPayload `json:"media,omitempty"`
	Mark      *MarkPayload  `json:"mark,omitempty"`
}

// ParseInbound decodifica um frame de texto. Mensagens sem evento, start sem
// streamSid ou media sem payload são rejeitados.
func ParseInbound(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch msg.Event {
	case "":
		return nil, fmt.Errorf("%w: missing event", ErrMalformedMessage)
	case EventStart:
		if msg.Start == nil || msg.Start.StreamSid == "" {
			return nil, fmt.Errorf("%w: start without streamSid", ErrMalformedMessage)
		}
	case EventMedia:
		if msg.Media == nil || msg.Media.Payload == "" {
			return nil, fmt.Errorf("%w: media without payload", ErrMalformedMessage)
		}
	case EventMark:
		if msg.Mark == nil {
			return nil, fmt.Errorf("%w: mark without name", ErrMalformedMessage)
		}
	}
	return &msg, nil
}

// Audio decodifica o payload base64 de uma mensagem media.
func (m *InboundMessage) Audio() ([]byte, error) {
	if m.Media == nil {
		return nil, ErrMalformedMessage
	}
	frame, err := base64.StdEncoding.DecodeString(m.Media.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return frame, nil
}

func encodeMedia(streamSid string, frame []byte) ([]byte, error) {
	return json.Marshal(outboundMessage{
		Event:     EventMedia,
		StreamSid: streamSid,
		Media: &MediaPayload{
			Payload: base64.StdEncoding.EncodeToString(frame),
			Track:   "inbound",
		},
	})
}

func encodeMark(streamSid, name string) ([]byte, error) {
	return json.Marshal(outboundMessage{Event: EventMark, StreamSid: streamSid, Mark: &MarkPayload{Name: name}})
}

func encodeControl(event, streamSid string) ([]byte, error) {
	return json.Marshal(outboundMessage{Event: event, StreamSid: streamSid})
}
