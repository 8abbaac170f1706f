package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
)

// CallService is implemented by *call.Orchestrator.
type CallService interface {
	PlaceCall(ctx context.Context, call domain.OutboundCall) (string, error)
	RecordStatus(callSid, status string)
}

// ActiveCalls is implemented by *call.Registry.
type ActiveCalls interface {
	Snapshot() []domain.ActiveCall
}

type CallHandler struct {
	service CallService
	active  ActiveCalls
	log     *zap.Logger
}

func NewCallHandler(service CallService, active ActiveCalls, log *zap.Logger) *CallHandler {
	return &CallHandler{
		service: service,
		active:  active,
		log:     log,
	}
}

type PlaceCallRequest struct {
	To           string `json:"to"`
	CustomerName string `json:"customer_name"`
	DebtAmount   string `json:"debt_amount"`
}

// Place dials a debtor. POST /api/v1/calls
func (h *CallHandler) Place(c *fiber.Ctx) error {
	var req PlaceCallRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	req.To = strings.TrimSpace(req.To)
	if req.To == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to is required"})
	}

	sid, err := h.service.PlaceCall(c.UserContext(), domain.OutboundCall{
		To:         req.To,
		Name:       strings.TrimSpace(req.CustomerName),
		DebtAmount: strings.TrimSpace(req.DebtAmount),
	})
	if err != nil {
		h.log.Warn("Outbound call failed", zap.String("to", req.To), zap.Any("requested_by", c.Locals("subject")), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to place call"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"call_sid": sid})
}

// Active lists live sessions. GET /api/v1/calls/active
func (h *CallHandler) Active(c *fiber.Ctx) error {
	calls := h.active.Snapshot()
	return c.JSON(fiber.Map{
		"count": len(calls),
		"calls": calls,
	})
}

// Status receives Twilio status callbacks. POST /voice/status
func (h *CallHandler) Status(c *fiber.Ctx) error {
	callSid := c.FormValue("CallSid")
	status := c.FormValue("CallStatus")
	if callSid == "" || status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "CallSid and CallStatus are required"})
	}
	h.service.RecordStatus(callSid, status)
	return c.SendStatus(fiber.StatusNoContent)
}
