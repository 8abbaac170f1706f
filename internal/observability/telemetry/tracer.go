package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/seu-repo/voxa-cobranza/pkg/config"
)

const instrumentationName = "github.com/seu-repo/voxa-cobranza"

// InitTracer exporta os spans call.turn para o Jaeger e instala o provider
// global. Quem chama é responsável pelo Shutdown.
func InitTracer(cfg config.OpenTelemetryConfig, version, environment string) (*sdktrace.TracerProvider, error) {
	if cfg.Jaeger.Endpoint == "" {
		return nil, fmt.Errorf("telemetry: jaeger endpoint is empty")
	}
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Jaeger.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("telemetry: jaeger exporter: %w", err)
	}

	return newProvider(exporter, cfg, version, environment), nil
}

func newProvider(exporter sdktrace.SpanExporter, cfg config.OpenTelemetryConfig, version, environment string) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(version),
			semconv.DeploymentEnvironmentKey.String(environment),
		)),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)
	otel.SetTracerProvider(tp)
	return tp
}

// sampler respeita a decisão do pai, então todo span de um turno amostrado é exportado.
func sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Tracer retorna o tracer do processo. Antes de InitTracer é o tracer no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
