package handlers

import (
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL        string           `xml:"url,attr"`
	Parameters []twimlParameter `xml:"Parameter"`
}

type twimlParameter struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// TwiMLHandler answers Twilio's voice webhook with a <Connect><Stream> document
// that opens the media websocket and forwards the customer context.
type TwiMLHandler struct {
	publicURL string
	log       *zap.Logger
}

// NewTwiMLHandler creates the handler. When publicURL is empty the request
// host is used.
func NewTwiMLHandler(publicURL string, log *zap.Logger) *TwiMLHandler {
	return &TwiMLHandler{
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

func (h *TwiMLHandler) Serve(c *fiber.Ctx) error {
	var params []twimlParameter
	for _, name := range []string{"customerName", "debtAmount"} {
		if v := strings.TrimSpace(c.Query(name, c.FormValue(name))); v != "" {
			params = append(params, twimlParameter{Name: name, Value: v})
		}
	}

	doc := twimlResponse{
		Connect: twimlConnect{
			Stream: twimlStream{URL: h.streamURL(c), Parameters: params},
		},
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render twiml")
	}

	h.log.Debug("TwiML served", zap.String("call_sid", c.FormValue("CallSid")), zap.Int("parameters", len(params)))
	c.Set(fiber.HeaderContentType, "application/xml")
	return c.Send(append([]byte(xml.Header), body...))
}

func (h *TwiMLHandler) streamURL(c *fiber.Ctx) string {
	host := c.Hostname()
	if h.publicURL != "" {
		if u, err := url.Parse(h.publicURL); err == nil && u.Host != "" {
			host = u.Host
		}
	}
	return "wss://" + host + "/media-stream"
}
