package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxa-cobranza/internal/ports"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

const defaultSystemPrompt = `Eres un agente de cobranzas amable y eficiente de %s. Sigue las reglas de negocio:
- Tu objetivo es obtener una fecha concreta de pago de la cuota pendiente.
- Responde en español, con frases cortas y sin listas.
- Escribe los números y las fechas en palabras.
- Si el cliente pone una objeción, escúchala y vuelve a pedir una fecha.
- Cuando el cliente acepte una fecha, cierra diciendo "queda confirmado" seguido de la fecha.`

// Client generates the agent replies through the chat completions API
type Client struct {
	cfg        config.OpenAIConfig
	company    string
	httpClient *circuitbreaker.HTTPClient
	log        *zap.Logger
}

// NewClient creates a new OpenAI API client
func NewClient(cfg config.OpenAIConfig, company string, httpClient *circuitbreaker.HTTPClient, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	return &Client{
		cfg:        cfg,
		company:    company,
		httpClient: httpClient,
		log:        log,
	}
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *Client) systemPrompt(req ports.ReplyRequest) string {
	prompt := c.cfg.SystemPrompt
	if prompt == "" {
		prompt = fmt.Sprintf(defaultSystemPrompt, c.company)
	}

	var b strings.Builder
	b.WriteString(prompt)
	if name := strings.TrimSpace(req.Client.Name); name != "" {
		fmt.Fprintf(&b, "\nNombre del cliente: %s.", name)
	}
	if amount := strings.TrimSpace(req.Client.DebtAmount); amount != "" {
		fmt.Fprintf(&b, "\nMonto de la deuda: %s pesos.", amount)
	}
	return b.String()
}

func (c *Client) buildMessages(req ports.ReplyRequest) []Message {
	messages := make([]Message, 0, len(req.History)+2)
	messages = append(messages, Message{Role: "system", Content: c.systemPrompt(req)})
	for _, turn := range req.History {
		messages = append(messages, Message{Role: string(turn.Role), Content: turn.Text})
	}
	return append(messages, Message{Role: "user", Content: req.Transcript})
}

// Ask sends the conversation so far and returns the next agent utterance
func (c *Client) Ask(ctx context.Context, req ports.ReplyRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("openai: API key not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    c.buildMessages(req),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("openai: API error status %d: %s", resp.StatusCode, body)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}

	c.log.Debug("Chat completion",
		zap.Int("history", len(req.History)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
