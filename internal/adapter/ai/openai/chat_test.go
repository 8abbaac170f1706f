package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxa-cobranza/internal/ports"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

func newTestClient(url string) *Client {
	return NewClient(config.OpenAIConfig{
		APIKey:      "sk-test",
		BaseURL:     url,
		Model:       "gpt-4o-mini",
		Temperature: 0.2,
		MaxTokens:   300,
	}, "La Ofrenda", circuitbreaker.NewHTTPClient(time.Second, nil, zap.NewNop()), zap.NewNop())
}

func TestAskSendsHistoryAndClientContext(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  ¿Qué día le queda mejor?  "}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	reply, err := newTestClient(srv.URL).Ask(context.Background(), ports.ReplyRequest{
		Client:     domain.ClientContext{Name: "Ana", DebtAmount: "150000"},
		Transcript: "no tengo plata ahora",
		History: []domain.Turn{
			{Role: domain.RoleAgent, Text: "Hola Ana"},
		},
	})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if reply != "¿Qué día le queda mejor?" {
		t.Errorf("unexpected reply %q", reply)
	}

	if got.Model != "gpt-4o-mini" || got.Temperature != 0.2 || got.MaxTokens != 300 {
		t.Errorf("unexpected request parameters %+v", got)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("expected system, history and user messages, got %d", len(got.Messages))
	}
	system := got.Messages[0]
	if system.Role != "system" || !strings.Contains(system.Content, "La Ofrenda") || !strings.Contains(system.Content, "Ana") || !strings.Contains(system.Content, "150000") {
		t.Errorf("unexpected system prompt %q", system.Content)
	}
	if got.Messages[1].Role != "assistant" || got.Messages[2].Role != "user" || got.Messages[2].Content != "no tengo plata ahora" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestAskErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("Authorization"), "empty") {
			w.Write([]byte(`{"choices":[]}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	if _, err := client.Ask(context.Background(), ports.ReplyRequest{Transcript: "hola"}); err == nil {
		t.Error("expected an error for a 429 response")
	}

	client.cfg.APIKey = "empty"
	if _, err := client.Ask(context.Background(), ports.ReplyRequest{Transcript: "hola"}); err == nil {
		t.Error("expected an error without choices")
	}

	client.cfg.APIKey = ""
	if _, err := client.Ask(context.Background(), ports.ReplyRequest{Transcript: "hola"}); err == nil {
		t.Error("expected an error without api key")
	}
}
