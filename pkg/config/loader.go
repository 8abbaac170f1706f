package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/seu-repo/voxa-cobranza/pkg/audio"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// Allow the collaborator-native env var names used by the telephony deploys
	viper.BindEnv("http.port", "PORT", "HTTP_PORT", "APP_HTTP_PORT")
	viper.BindEnv("app.public_url", "APP_URL", "APP_PUBLIC_URL")
	viper.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	viper.BindEnv("nats.url", "NATS_URL", "APP_NATS_URL")
	viper.BindEnv("rabbitmq.url", "RABBITMQ_URL", "APP_RABBITMQ_URL")
	viper.BindEnv("jwt.secret", "JWT_SECRET", "APP_JWT_SECRET")
	viper.BindEnv("vault.address", "VAULT_ADDR", "APP_VAULT_ADDRESS")
	viper.BindEnv("vault.token", "VAULT_TOKEN", "APP_VAULT_TOKEN")
	viper.BindEnv("deepgram.api_key", "DEEPGRAM_API_KEY", "APP_DEEPGRAM_API_KEY")
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY", "APP_OPENAI_API_KEY")
	viper.BindEnv("coqui.url", "COQUI_SERVER_URL", "APP_COQUI_URL")
	viper.BindEnv("twilio.account_sid", "TWILIO_ACCOUNT_SID", "APP_TWILIO_ACCOUNT_SID")
	viper.BindEnv("twilio.auth_token", "TWILIO_AUTH_TOKEN", "APP_TWILIO_AUTH_TOKEN")
	viper.BindEnv("twilio.phone_number", "TWILIO_PHONE_NUMBER", "APP_TWILIO_PHONE_NUMBER")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "voxa-cobranza")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("http.read_timeout", 30*time.Second)
	viper.SetDefault("http.write_timeout", 30*time.Second)
	viper.SetDefault("http.idle_timeout", 120*time.Second)

	viper.SetDefault("database.max_open_conns", 10)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Hour)
	viper.SetDefault("database.auto_migrate", true)
	viper.SetDefault("database.slow_query", "200ms")
	viper.SetDefault("redis.key_prefix", "voxa:")
	viper.SetDefault("redis.active_ttl", 30*time.Minute)
	viper.SetDefault("nats.max_reconnects", 10)
	viper.SetDefault("nats.reconnect_wait", 2*time.Second)
	viper.SetDefault("rabbitmq.exchange", "call_events")
	viper.SetDefault("events.broker", "nats")
	viper.SetDefault("jwt.issuer", "voxa-cobranza")
	viper.SetDefault("vault.secret_path", "secret/voxa-cobranza")

	viper.SetDefault("call.silence_timeout", 15*time.Second)
	viper.SetDefault("call.interaction_cap", 10)
	viper.SetDefault("call.interruption_threshold", 1)
	viper.SetDefault("call.confirmation_threshold", 2)
	viper.SetDefault("call.greeting_delay", time.Second)
	viper.SetDefault("call.closing_wait", 8*time.Second)
	viper.SetDefault("call.min_transcript_length", 2)
	viper.SetDefault("call.history_turns", 10)
	viper.SetDefault("call.company_name", "La Ofrenda")
	viper.SetDefault("call.timezone", "America/Bogota")

	viper.SetDefault("playback.frame_size", 160)
	viper.SetDefault("playback.high_water_bytes", 64*1024)
	viper.SetDefault("playback.short_pause", 6*time.Millisecond)
	viper.SetDefault("playback.long_pause", 20*time.Millisecond)
	viper.SetDefault("playback.send_queue", 512)

	viper.SetDefault("capture.enabled", false)
	viper.SetDefault("capture.dir", "./recordings")
	viper.SetDefault("capture.channels", 1)

	viper.SetDefault("deepgram.url", "wss://api.deepgram.com/v1/listen")
	viper.SetDefault("deepgram.model", "nova-2-phonecall")
	viper.SetDefault("deepgram.language", "es")
	viper.SetDefault("deepgram.endpointing", 300)
	viper.SetDefault("deepgram.utterance_end_ms", 1000)
	viper.SetDefault("deepgram.keep_alive", 5*time.Second)

	viper.SetDefault("openai.base_url", "https://api.openai.com")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.temperature", 0.2)
	viper.SetDefault("openai.max_tokens", 300)
	viper.SetDefault("openai.timeout", 15*time.Second)

	viper.SetDefault("coqui.url", "http://localhost:5002")
	viper.SetDefault("coqui.model_name", "tts_models/es/css10/vits")
	viper.SetDefault("coqui.language", "es")
	viper.SetDefault("coqui.max_chars", 500)
	viper.SetDefault("coqui.timeout", 20*time.Second)

	viper.SetDefault("twilio.base_url", "https://api.twilio.com/2010-04-01")
	viper.SetDefault("twilio.timeout", 10*time.Second)

	viper.SetDefault("opentelemetry.service_name", "voxa-cobranza")
	viper.SetDefault("opentelemetry.sample_ratio", 1.0)
	viper.SetDefault("opentelemetry.jaeger.endpoint", "http://jaeger:14268/api/traces")
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60*time.Second)
	viper.SetDefault("circuit_breaker.timeout", 30*time.Second)
	viper.SetDefault("circuit_breaker.failure_threshold", 5)
}

// Validate rejects settings the media path cannot run with. It runs once at
// startup so nothing on the per-frame path needs to re-check.
func (c *Config) Validate() error {
	var errs []error

	if c.Capture.Enabled {
		if err := audio.ValidateChannels(c.Capture.Channels); err != nil {
			errs = append(errs, fmt.Errorf("capture.channels: %w", err))
		}
	}
	if c.Playback.FrameSize <= 0 {
		errs = append(errs, errors.New("playback.frame_size must be positive"))
	}
	if c.Call.SilenceTimeout <= 0 {
		errs = append(errs, errors.New("call.silence_timeout must be positive"))
	}
	if c.Call.InteractionCap <= 0 {
		errs = append(errs, errors.New("call.interaction_cap must be positive"))
	}
	if c.Call.InterruptionThreshold <= 0 {
		errs = append(errs, errors.New("call.interruption_threshold must be positive"))
	}
	if c.Call.ConfirmationThreshold <= 0 {
		errs = append(errs, errors.New("call.confirmation_threshold must be positive"))
	}
	switch c.Events.Broker {
	case "nats", "rabbitmq", "none", "":
	default:
		errs = append(errs, fmt.Errorf("events.broker: unknown broker %q", c.Events.Broker))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
