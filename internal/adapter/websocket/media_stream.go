package websocket

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/observability/telemetry"
	"github.com/seu-repo/voxa-cobranza/internal/ports"
	"github.com/seu-repo/voxa-cobranza/internal/service/call"
)

var ErrTransportClosed = errors.New("websocket: transport closed")

// wsConn é a parte da conexão websocket usada pelo handler.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type SessionStarter interface {
	Start(params call.StartParams, transport ports.MediaTransport) (*call.Session, error)
}

type MediaStreamHandler struct {
	sessions  SessionStarter
	sendQueue int
	logger    *zap.Logger
}

func NewMediaStreamHandler(sessions SessionStarter, sendQueue int, logger *zap.Logger) *MediaStreamHandler {
	if sendQueue <= 0 {
		sendQueue = 512
	}
	return &MediaStreamHandler{
		sessions:  sessions,
		sendQueue: sendQueue,
		logger:    logger,
	}
}

// Handle gerencia o stream de mídia bidirecional de uma chamada
func (h *MediaStreamHandler) Handle(c *websocket.Conn) {
	h.serve(c, func(key string) string { return c.Query(key) })
}

func (h *MediaStreamHandler) serve(conn wsConn, query func(string) string) {
	var (
		session   *call.Session
		transport *connTransport
		stopped   bool
	)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if session == nil {
				h.logger.Debug("Conexão encerrada antes do start", zap.Error(err))
			}
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}

		msg, err := ParseInbound(data)
		if err != nil {
			telemetry.MalformedMessagesTotal.Inc()
			h.logger.Warn("Mensagem descartada", zap.Error(err))
			continue
		}

		switch msg.Event {
		case EventConnected:
		case EventStart:
			if session != nil {
				h.logger.Warn("Start duplicado ignorado", zap.String("stream_sid", msg.Start.StreamSid))
				continue
			}
			transport = newConnTransport(conn, msg.Start.StreamSid, h.sendQueue, h.logger)
			session, err = h.sessions.Start(call.StartParams{
				StreamSid: msg.Start.StreamSid,
				CallSid:   msg.Start.CallSid,
				Client:    clientContext(msg.Start.CustomParameters, query),
			}, transport)
			if err != nil {
				h.logger.Error("Falha ao iniciar sessão", zap.String("stream_sid", msg.Start.StreamSid), zap.Error(err))
				transport.Close()
				return
			}
		case EventMedia:
			if session == nil {
				continue
			}
			frame, err := msg.Audio()
			if err != nil {
				telemetry.MalformedMessagesTotal.Inc()
				h.logger.Warn("Payload de mídia inválido", zap.Error(err))
				continue
			}
			session.HandleMedia(frame)
		case EventMark:
			if session != nil {
				session.HandleMark(msg.Mark.Name)
			}
		case EventStop:
			stopped = true
		default:
			h.logger.Debug("Evento ignorado", zap.String("event", msg.Event))
		}
		if stopped {
			break
		}
	}

	if session == nil {
		conn.Close()
		return
	}
	if stopped {
		session.HandleStop()
	} else {
		session.HandleTransportClosed()
	}
	<-session.Done()
}

func clientContext(params map[string]string, query func(string) string) domain.ClientContext {
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v := strings.TrimSpace(params[k]); v != "" {
				return v
			}
		}
		if query == nil {
			return ""
		}
		for _, k := range keys {
			if v := strings.TrimSpace(query(k)); v != "" {
				return v
			}
		}
		return ""
	}
	return domain.ClientContext{
		Name:       pick("customerName", "name"),
		DebtAmount: pick("debtAmount", "debt"),
	}
}

type outbound struct {
	data  []byte
	audio int
}

// connTransport serializa toda mensagem de saída em uma única goroutine de
// escrita. Buffered informa os bytes de áudio enfileirados e ainda não escritos.
type connTransport struct {
	conn      wsConn
	streamSid string
	send      chan outbound
	buffered  atomic.Int64
	done      chan struct{}
	written   chan struct{}
	closeOnce sync.Once
	logger    *zap.Logger
}

func newConnTransport(conn wsConn, streamSid string, queue int, logger *zap.Logger) *connTransport {
	t := &connTransport{
		conn:      conn,
		streamSid: streamSid,
		send:      make(chan outbound, queue),
		done:      make(chan struct{}),
		written:   make(chan struct{}),
		logger:    logger.With(zap.String("stream_sid", streamSid)),
	}
	go t.writePump()
	return t
}

func (t *connTransport) SendMedia(frame []byte) error {
	data, err := encodeMedia(t.streamSid, frame)
	if err != nil {
		return err
	}
	return t.enqueue(outbound{data: data, audio: len(frame)})
}

func (t *connTransport) SendMark(name string) error {
	data, err := encodeMark(t.streamSid, name)
	if err != nil {
		return err
	}
	return t.enqueue(outbound{data: data})
}

func (t *connTransport) SendClear() error {
	return t.control(EventClear)
}

func (t *connTransport) SendStop() error {
	return t.control(EventStop)
}

func (t *connTransport) Buffered() int {
	return int(t.buffered.Load())
}

// Close envia o que já está na fila e fecha a conexão.
func (t *connTransport) Close() error {
	t.shutdown()
	<-t.written
	return nil
}

func (t *connTransport) control(event string) error {
	data, err := encodeControl(event, t.streamSid)
	if err != nil {
		return err
	}
	return t.enqueue(outbound{data: data})
}

func (t *connTransport) enqueue(m outbound) error {
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}
	t.buffered.Add(int64(m.audio))
	select {
	case t.send <- m:
		return nil
	case <-t.done:
		t.buffered.Add(-int64(m.audio))
		return ErrTransportClosed
	}
}

func (t *connTransport) shutdown() {
	t.closeOnce.Do(func() { close(t.done) })
}

func (t *connTransport) writePump() {
	defer close(t.written)
	defer t.conn.Close()

	for {
		select {
		case m := <-t.send:
			if !t.write(m) {
				return
			}
		case <-t.done:
			for {
				select {
				case m := <-t.send:
					if !t.write(m) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (t *connTransport) write(m outbound) bool {
	err := t.conn.WriteMessage(websocket.TextMessage, m.data)
	t.buffered.Add(-int64(m.audio))
	if err != nil {
		t.logger.Warn("Erro ao enviar mensagem", zap.Error(err))
		t.shutdown()
		return false
	}
	return true
}

// SetupMediaRoutes configura a rota de WebSocket do Media Streams
func SetupMediaRoutes(app *fiber.App, handler *MediaStreamHandler) {
	app.Use("/media-stream", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/media-stream", websocket.New(handler.Handle))
}
