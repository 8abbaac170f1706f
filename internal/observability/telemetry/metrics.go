package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Métricas de negócio
	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voxa_active_calls",
		Help: "Número de chamadas com stream de mídia ativo",
	})

	CallsEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxa_calls_ended_total",
		Help: "Total de chamadas encerradas por motivo",
	}, []string{"reason", "agreed"})

	TurnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxa_turns_total",
		Help: "Total de turnos processados por ação",
	}, []string{"action"})

	BargeInsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxa_barge_ins_total",
		Help: "Total de interrupções do agente pelo cliente",
	})

	// Métricas de mídia
	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxa_media_frames_sent_total",
		Help: "Total de frames de áudio enviados ao stream",
	})

	MalformedMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxa_media_malformed_messages_total",
		Help: "Mensagens do stream descartadas por formato inválido",
	})

	// Métricas de colaboradores externos
	CollaboratorLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voxa_collaborator_latency_seconds",
		Help:    "Latência das chamadas a STT, LLM, TTS e telefonia",
		Buckets: prometheus.DefBuckets,
	}, []string{"collaborator"})

	CollaboratorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxa_collaborator_errors_total",
		Help: "Total de falhas em colaboradores externos",
	}, []string{"collaborator"})

	DatabaseLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voxa_database_latency_seconds",
		Help:    "Latência de queries no banco",
		Buckets: prometheus.DefBuckets,
	})
)
