package twilio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(config.TwilioConfig{
		AccountSID:  "AC123",
		AuthToken:   "secret",
		PhoneNumber: "+15550001111",
		BaseURL:     srv.URL,
	}, "https://voxa.example.com/", circuitbreaker.NewHTTPClient(time.Second, nil, zap.NewNop()), zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestHangup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "secret" {
			t.Errorf("missing basic auth")
		}
		if r.URL.Path != "/Accounts/AC123/Calls/CA42.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		if r.PostForm.Get("Status") != "completed" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		w.Write([]byte(`{"sid":"CA42","status":"completed"}`))
	}))
	defer srv.Close()

	if err := newTestClient(t, srv).Hangup(context.Background(), "CA42"); err != nil {
		t.Fatalf("Hangup failed: %v", err)
	}
}

func TestHangupError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":20404,"message":"The requested resource was not found"}`))
	}))
	defer srv.Close()

	if err := newTestClient(t, srv).Hangup(context.Background(), "CA404"); err == nil {
		t.Error("expected an error for an unknown call")
	}
}

func TestPlaceCall(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC123/Calls.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		r.ParseForm()
		form = r.PostForm
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"CA777","status":"queued"}`))
	}))
	defer srv.Close()

	sid, err := newTestClient(t, srv).PlaceCall(context.Background(), domain.OutboundCall{
		To:         "+573001112233",
		Name:       "Ana María",
		DebtAmount: "150000",
	})
	if err != nil {
		t.Fatalf("PlaceCall failed: %v", err)
	}
	if sid != "CA777" {
		t.Errorf("unexpected sid %q", sid)
	}
	if form.Get("To") != "+573001112233" || form.Get("From") != "+15550001111" {
		t.Errorf("unexpected numbers %v", form)
	}
	if form.Get("Url") != "https://voxa.example.com/twiml?customerName=Ana+Mar%C3%ADa&debtAmount=150000" {
		t.Errorf("unexpected twiml url %q", form.Get("Url"))
	}
	if form.Get("StatusCallback") != "https://voxa.example.com/voice/status" || len(form["StatusCallbackEvent"]) != 4 {
		t.Errorf("unexpected status callback %v", form)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(config.TwilioConfig{}, "", nil, zap.NewNop()); err == nil {
		t.Error("expected an error without credentials")
	}
}
