// Package coqui renders agent replies with a Coqui TTS server and converts the
// result to the 8 kHz μ-law audio the media stream carries.
package coqui

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxa-cobranza/pkg/audio"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

const maxResponseBytes = 32 << 20

type Client struct {
	cfg        config.CoquiConfig
	httpClient *circuitbreaker.HTTPClient
	log        *zap.Logger
}

func NewClient(cfg config.CoquiConfig, httpClient *circuitbreaker.HTTPClient, log *zap.Logger) *Client {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 500
	}
	if cfg.Language == "" {
		cfg.Language = "es"
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		log:        log,
	}
}

// Synthesize returns μ-law audio for text. Long texts are rendered in chunks
// and concatenated.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	clean := CleanText(text)
	if clean == "" {
		return nil, fmt.Errorf("coqui: nothing to synthesize")
	}

	var out []byte
	for _, chunk := range SplitText(clean, c.cfg.MaxChars) {
		wav, err := c.render(ctx, chunk)
		if err != nil {
			return nil, err
		}
		encoded, err := toMulaw(wav)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded...)
	}
	return out, nil
}

func (c *Client) render(ctx context.Context, text string) ([]byte, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("model_name", c.cfg.ModelName)
	form.Set("language_id", c.cfg.Language)
	if c.cfg.Speaker != "" {
		form.Set("speaker_id", c.cfg.Speaker)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/tts"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("coqui: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: API error status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("coqui: read response: %w", err)
	}

	c.log.Debug("Coqui synthesis",
		zap.Int("chars", len(text)),
		zap.Int("wav_bytes", len(data)),
		zap.Duration("took", time.Since(start)),
	)
	return data, nil
}

// toMulaw converts a PCM16 WAV to 8 kHz mono μ-law.
func toMulaw(wav []byte) ([]byte, error) {
	format, pcm, err := audio.ParseWAV(wav)
	if err != nil {
		return nil, fmt.Errorf("coqui: %w", err)
	}
	if format.AudioFormat != 1 || format.BitsPerSample != 16 {
		return nil, fmt.Errorf("coqui: %w: format %d with %d bits", audio.ErrInvalidWAV, format.AudioFormat, format.BitsPerSample)
	}
	if err := audio.ValidateChannels(format.Channels); err != nil {
		return nil, fmt.Errorf("coqui: %w", err)
	}

	samples := audio.PCM16LEToSamples(pcm)
	if format.Channels == 2 {
		samples = downmix(samples)
	}
	return audio.EncodeMulaw(audio.Resample(samples, format.SampleRate, audio.MulawSampleRate)), nil
}

func downmix(stereo []int16) []int16 {
	mono := make([]int16, len(stereo)/2)
	for i := range mono {
		mono[i] = int16((int32(stereo[2*i]) + int32(stereo[2*i+1])) / 2)
	}
	return mono
}

// HealthCheck probes the server health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/api/health"), nil)
	if err != nil {
		return fmt.Errorf("coqui: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("coqui: health check: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coqui: health check status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.URL, "/") + path
}
