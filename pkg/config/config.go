package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	NATS           NATSConfig           `mapstructure:"nats"`
	RabbitMQ       RabbitMQConfig       `mapstructure:"rabbitmq"`
	Events         EventsConfig         `mapstructure:"events"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	Vault          VaultConfig          `mapstructure:"vault"`
	Call           CallConfig           `mapstructure:"call"`
	Playback       PlaybackConfig       `mapstructure:"playback"`
	Capture        CaptureConfig        `mapstructure:"capture"`
	Deepgram       DeepgramConfig       `mapstructure:"deepgram"`
	OpenAI         OpenAIConfig         `mapstructure:"openai"`
	Coqui          CoquiConfig          `mapstructure:"coqui"`
	Twilio         TwilioConfig         `mapstructure:"twilio"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// PublicURL is the externally reachable base URL, used for TwiML stream
	// and status callback addresses.
	PublicURL string `mapstructure:"public_url"`
}

type HTTPConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
	// KeyPrefix namespaces every key so several deployments can share one Redis.
	KeyPrefix string        `mapstructure:"key_prefix"`
	ActiveTTL time.Duration `mapstructure:"active_ttl"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type RabbitMQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// EventsConfig selects the broker for call lifecycle events: "nats", "rabbitmq" or "none".
type EventsConfig struct {
	Broker string `mapstructure:"broker"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type VaultConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	SecretPath string `mapstructure:"secret_path"`
}

// CallConfig drives the per-call conversation policy.
type CallConfig struct {
	SilenceTimeout        time.Duration `mapstructure:"silence_timeout"`
	InteractionCap        int           `mapstructure:"interaction_cap"`
	InterruptionThreshold int           `mapstructure:"interruption_threshold"`
	ConfirmationThreshold int           `mapstructure:"confirmation_threshold"`
	GreetingDelay         time.Duration `mapstructure:"greeting_delay"`
	ClosingWait           time.Duration `mapstructure:"closing_wait"`
	MinTranscriptLength   int           `mapstructure:"min_transcript_length"`
	HistoryTurns          int           `mapstructure:"history_turns"`
	CompanyName           string        `mapstructure:"company_name"`
	Timezone              string        `mapstructure:"timezone"`
}

type PlaybackConfig struct {
	FrameSize      int           `mapstructure:"frame_size"`
	HighWaterBytes int           `mapstructure:"high_water_bytes"`
	ShortPause     time.Duration `mapstructure:"short_pause"`
	LongPause      time.Duration `mapstructure:"long_pause"`
	SendQueue      int           `mapstructure:"send_queue"`
}

type CaptureConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Dir      string `mapstructure:"dir"`
	Channels int    `mapstructure:"channels"`
}

type DeepgramConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	URL            string        `mapstructure:"url"`
	Model          string        `mapstructure:"model"`
	Language       string        `mapstructure:"language"`
	Endpointing    int           `mapstructure:"endpointing"`
	UtteranceEndMs int           `mapstructure:"utterance_end_ms"`
	KeepAlive      time.Duration `mapstructure:"keep_alive"`
}

type OpenAIConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	SystemPrompt string        `mapstructure:"system_prompt"`
}

type CoquiConfig struct {
	URL       string        `mapstructure:"url"`
	ModelName string        `mapstructure:"model_name"`
	Language  string        `mapstructure:"language"`
	Speaker   string        `mapstructure:"speaker"`
	MaxChars  int           `mapstructure:"max_chars"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type TwilioConfig struct {
	AccountSID  string        `mapstructure:"account_sid"`
	AuthToken   string        `mapstructure:"auth_token"`
	PhoneNumber string        `mapstructure:"phone_number"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type OpenTelemetryConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	Jaeger      JaegerConfig `mapstructure:"jaeger"`
	ServiceName string       `mapstructure:"service_name"`
	// SampleRatio is the fraction of calls traced; 1 traces every turn.
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type JaegerConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type CORSConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}
