package infra

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"serp-rank/rank/domain"
)

// PromRecorder implementa domain.Recorder com métricas Prometheus.
type PromRecorder struct {
	ErrorsTotal        *prometheus.CounterVec
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	ThrottledTotal     *prometheus.CounterVec

	factory promauto.Factory
}

// NewPromRecorder registra as métricas em reg (nil = registry global).
func NewPromRecorder(reg prometheus.Registerer) *PromRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &PromRecorder{
		factory: f,
		ErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serprank",
				Name:      "errors_total",
				Help:      "Falhas capturadas pelo coordenador, por categoria",
			},
			[]string{"category"},
		),
		EvaluationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serprank",
				Name:      "evaluations_total",
				Help:      "Avaliações de palavra-chave concluídas",
			},
			[]string{"found", "match_type"},
		),
		EvaluationDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "serprank",
				Name:      "evaluation_duration_seconds",
				Help:      "Duração de uma avaliação completa (extração + casamento + histórico)",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		ThrottledTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "serprank",
				Name:      "throttled_total",
				Help:      "Mensagens recusadas na admissão, por motivo e ação",
			},
			[]string{"reason", "action"},
		),
	}
}

// TrackInFlight expõe serprank_evaluations_in_flight lendo fn a cada coleta.
func (r *PromRecorder) TrackInFlight(fn func() int) {
	r.factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "serprank",
			Name:      "evaluations_in_flight",
			Help:      "Avaliações ocupando vaga agora",
		},
		func() float64 { return float64(fn()) },
	)
}

func (r *PromRecorder) ErrorRecorded(c domain.Category) {
	r.ErrorsTotal.WithLabelValues(string(c)).Inc()
}

func (r *PromRecorder) EvaluationDone(found bool, mt domain.MatchType, took time.Duration) {
	r.EvaluationsTotal.WithLabelValues(strconv.FormatBool(found), string(mt)).Inc()
	r.EvaluationDuration.Observe(took.Seconds())
}

func (r *PromRecorder) Throttled(reason domain.RejectReason, action string) {
	if action == "" {
		action = "unknown"
	}
	r.ThrottledTotal.WithLabelValues(string(reason), action).Inc()
}
