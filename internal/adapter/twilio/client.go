package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

// CallResponse represents Twilio API response
type CallResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	Code         int    `json:"code,omitempty"`
	ErrorMessage string `json:"message,omitempty"`
}

// Client controls call legs through the Twilio REST API
type Client struct {
	accountSID string
	authToken  string
	fromPhone  string
	baseURL    string
	publicURL  string
	client     *circuitbreaker.HTTPClient
	log        *zap.Logger
}

// NewClient creates a Twilio call client. publicURL is where Twilio reaches
// this service for TwiML and status callbacks.
func NewClient(cfg config.TwilioConfig, publicURL string, client *circuitbreaker.HTTPClient, log *zap.Logger) (*Client, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("twilio: accountSID and authToken are required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.twilio.com/2010-04-01"
	}

	return &Client{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		fromPhone:  cfg.PhoneNumber,
		baseURL:    fmt.Sprintf("%s/Accounts/%s", strings.TrimRight(base, "/"), cfg.AccountSID),
		publicURL:  strings.TrimRight(publicURL, "/"),
		client:     client,
		log:        log,
	}, nil
}

// Hangup completes an in-progress call
func (c *Client) Hangup(ctx context.Context, callSid string) error {
	data := url.Values{}
	data.Set("Status", "completed")

	result, err := c.post(ctx, fmt.Sprintf("%s/Calls/%s.json", c.baseURL, url.PathEscape(callSid)), data)
	if err != nil {
		return fmt.Errorf("twilio: hangup %s: %w", callSid, err)
	}
	c.log.Info("Call completed", zap.String("call_sid", callSid), zap.String("status", result.Status))
	return nil
}

// PlaceCall dials the customer; the answered call fetches TwiML carrying the
// customer context.
func (c *Client) PlaceCall(ctx context.Context, call domain.OutboundCall) (string, error) {
	if c.fromPhone == "" {
		return "", fmt.Errorf("twilio: caller phone number not configured")
	}

	data := url.Values{}
	data.Set("To", call.To)
	data.Set("From", c.fromPhone)
	data.Set("Url", c.TwimlURL(call))
	data.Set("Method", http.MethodGet)
	data.Set("StatusCallback", c.publicURL+"/voice/status")
	data.Set("StatusCallbackMethod", http.MethodPost)
	for _, event := range []string{"initiated", "ringing", "answered", "completed"} {
		data.Add("StatusCallbackEvent", event)
	}

	result, err := c.post(ctx, c.baseURL+"/Calls.json", data)
	if err != nil {
		return "", fmt.Errorf("twilio: place call: %w", err)
	}
	return result.SID, nil
}

// TwimlURL is the TwiML address for an outbound call.
func (c *Client) TwimlURL(call domain.OutboundCall) string {
	params := url.Values{}
	if call.Name != "" {
		params.Set("customerName", call.Name)
	}
	if call.DebtAmount != "" {
		params.Set("debtAmount", call.DebtAmount)
	}
	u := c.publicURL + "/twiml"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) post(ctx context.Context, reqURL string, data url.Values) (*CallResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var result CallResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("twilio error: %s (code: %d)", result.ErrorMessage, result.Code)
	}
	return &result, nil
}
