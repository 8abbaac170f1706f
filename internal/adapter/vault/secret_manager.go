package vault

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"

	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

type SecretManager struct {
	client *api.Client
	log    *zap.Logger
}

func NewSecretManager(address, token string, log *zap.Logger) (*SecretManager, error) {
	cfg := api.DefaultConfig()
	cfg.Address = address

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault: create client: %w", err)
	}

	client.SetToken(token)

	return &SecretManager{client: client, log: log}, nil
}

// ReadSecrets reads a KV v2 secret and returns its string fields.
func (sm *SecretManager) ReadSecrets(ctx context.Context, path string) (map[string]string, error) {
	secret, err := sm.client.Logical().ReadWithContext(ctx, kvDataPath(path))
	if err != nil {
		return nil, fmt.Errorf("vault: read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault: secret %s not found", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("vault: secret %s has no kv data", path)
	}

	out := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}

// Apply overlays the collaborator credentials found in Vault onto cfg.
func (sm *SecretManager) Apply(ctx context.Context, cfg *config.Config) error {
	secrets, err := sm.ReadSecrets(ctx, cfg.Vault.SecretPath)
	if err != nil {
		return err
	}

	targets := map[string]*string{
		"deepgram_api_key":   &cfg.Deepgram.APIKey,
		"openai_api_key":     &cfg.OpenAI.APIKey,
		"twilio_account_sid": &cfg.Twilio.AccountSID,
		"twilio_auth_token":  &cfg.Twilio.AuthToken,
		"database_url":       &cfg.Database.URL,
		"redis_url":          &cfg.Redis.URL,
		"jwt_secret":         &cfg.JWT.Secret,
	}

	applied := 0
	for key, dst := range targets {
		if v := secrets[key]; v != "" {
			*dst = v
			applied++
		}
	}
	sm.log.Info("Secrets loaded from Vault", zap.String("path", cfg.Vault.SecretPath), zap.Int("applied", applied))
	return nil
}

// kvDataPath turns "secret/voxa" into the KV v2 read path "secret/data/voxa".
func kvDataPath(path string) string {
	path = strings.Trim(path, "/")
	mount, rest, found := strings.Cut(path, "/")
	if !found || strings.HasPrefix(rest, "data/") {
		return path
	}
	return mount + "/data/" + rest
}
