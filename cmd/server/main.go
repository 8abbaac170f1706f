package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seu-repo/voxa-cobranza/internal/adapter/ai/openai"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/cache"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/queue"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/storage/capture"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/storage/postgres"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/stt/deepgram"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/tts/coqui"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/twilio"
	"github.com/seu-repo/voxa-cobranza/internal/adapter/vault"
	wsAdapter "github.com/seu-repo/voxa-cobranza/internal/adapter/websocket"
	"github.com/seu-repo/voxa-cobranza/internal/domain"
	"github.com/seu-repo/voxa-cobranza/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/voxa-cobranza/internal/observability/telemetry"
	"github.com/seu-repo/voxa-cobranza/internal/ports"
	"github.com/seu-repo/voxa-cobranza/internal/service/auth"
	"github.com/seu-repo/voxa-cobranza/internal/service/call"
	"github.com/seu-repo/voxa-cobranza/internal/service/health"
	"github.com/seu-repo/voxa-cobranza/internal/service/playback"
	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

const serviceVersion = "v1.0.0"

var issueToken = flag.String("issue-token", "", "Print a one-day operator API token for the given subject and exit")

func main() {
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// 3. Overlay secrets from Vault
	if cfg.Vault.Enabled {
		sm, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Vault client", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := sm.Apply(ctx, cfg); err != nil {
			logger.Fatal("Failed to load secrets from Vault", zap.Error(err))
		}
		cancel()
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// 4. Initialize Redis Cache (falls back to memory)
	callCache := cache.New(cfg.Redis, logger)
	defer callCache.Close()

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, callCache, logger)
	if err != nil {
		logger.Fatal("Failed to initialize JWT service", zap.Error(err))
	}
	if *issueToken != "" {
		token, err := jwtService.GenerateToken(*issueToken, "operator", 24*time.Hour)
		if err != nil {
			logger.Fatal("Failed to issue token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	logger.Info("Starting voice collections agent",
		zap.String("service", cfg.App.Name),
		zap.String("version", serviceVersion),
		zap.String("environment", cfg.App.Environment),
	)

	// 5. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(cfg.OpenTelemetry, serviceVersion, cfg.App.Environment)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 6. Initialize PostgreSQL (optional)
	var outcomes ports.CallOutcomeRepository
	var dbPing func(ctx context.Context) error
	if cfg.Database.URL != "" {
		db, err := postgres.NewConnection(cfg.Database, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer postgres.Close(db)

		if cfg.Database.AutoMigrate {
			if err := postgres.RunMigrations(db); err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
		}
		outcomes = postgres.NewCallOutcomeRepository(db, logger)
		dbPing = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	} else {
		logger.Warn("DATABASE_URL not set, call outcomes will only be logged")
	}

	// 7. Initialize Message Queue
	messageQueue, err := queue.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to message broker", zap.Error(err))
	}
	if messageQueue != nil {
		defer messageQueue.Close()
		startEventWorkers(messageQueue, logger)
	}

	// 8. Collaborators, each behind its own breaker
	breakers := circuitbreaker.NewManager(cfg.CircuitBreaker, logger)

	recognizer := deepgram.NewRecognizer(cfg.Deepgram, logger)
	generator := openai.NewClient(cfg.OpenAI, cfg.Call.CompanyName,
		circuitbreaker.NewHTTPClient(cfg.OpenAI.Timeout, breakers.Get("openai"), logger), logger)
	synthesizer := coqui.NewClient(cfg.Coqui,
		circuitbreaker.NewHTTPClient(cfg.Coqui.Timeout, breakers.Get("coqui"), logger), logger)
	controller, err := twilio.NewClient(cfg.Twilio, cfg.App.PublicURL,
		circuitbreaker.NewHTTPClient(cfg.Twilio.Timeout, breakers.Get("twilio"), logger), logger)
	if err != nil {
		logger.Fatal("Failed to initialize Twilio client", zap.Error(err))
	}

	recorders, err := capture.NewFactory(cfg.Capture, logger)
	if err != nil {
		logger.Fatal("Failed to initialize audio capture", zap.Error(err))
	}

	// 9. Call orchestration
	registry := call.NewRegistry(callCache, cfg.Redis.ActiveTTL, logger)
	defer registry.Close()
	orchestrator, err := call.NewOrchestrator(cfg.Call, call.Dependencies{
		Recognizer:  recognizer,
		Generator:   generator,
		Synthesizer: synthesizer,
		Controller:  controller,
		Outcomes:    outcomes,
		Events:      messageQueue,
		Recorders:   recorders,
	}, playback.NewPlayer(cfg.Playback, logger), registry, logger)
	if err != nil {
		logger.Fatal("Failed to initialize call orchestrator", zap.Error(err))
	}

	healthService := health.NewService(&health.Config{
		Version:     serviceVersion,
		Breakers:    breakers,
		ActiveCalls: registry.Len,
	}, logger)
	healthService.RegisterPing("cache", true, func(ctx context.Context) error { return callCache.Ping() })
	healthService.RegisterPing("coqui", false, synthesizer.HealthCheck)
	if dbPing != nil {
		healthService.RegisterPing("database", true, dbPing)
	}

	// 10. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ServerHeader:          cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.NewCORS(cfg.CORS))

	healthHandler := health.NewFiberHandler(healthService)
	healthHandler.RegisterRoutes(app)
	handlers.Routes{
		TwiML:   handlers.NewTwiMLHandler(cfg.App.PublicURL, logger),
		Calls:   handlers.NewCallHandler(orchestrator, registry, logger),
		Auth:    middleware.AuthRequired(jwtService),
		Breaker: middleware.CircuitBreaker(breakers.Get("api")),
		Ready:   healthHandler.RequireReady(),
	}.Register(app)

	wsAdapter.SetupMediaRoutes(app, wsAdapter.NewMediaStreamHandler(orchestrator, cfg.Playback.SendQueue, logger))

	// 11. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 12. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...", zap.Int("active_calls", registry.Len()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	if cfg.Level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
	}
	return zcfg.Build()
}

// startEventWorkers logs call lifecycle events. Downstream consumers (CRM
// sync, reporting) subscribe to the same subjects.
func startEventWorkers(mq queue.MessageQueue, logger *zap.Logger) {
	logger.Info("Starting event workers")

	err := mq.Subscribe(domain.EventCallEnded, func(msg []byte) error {
		var event domain.CallEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			return err
		}
		logger.Info("Call ended",
			zap.String("call_sid", event.CallSid),
			zap.String("reason", string(event.Reason)),
			zap.String("agreed_date", event.AgreedDate),
		)
		return nil
	})
	if err != nil {
		logger.Warn("Failed to subscribe to call events", zap.Error(err))
	}
}
