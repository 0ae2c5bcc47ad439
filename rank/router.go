package rank

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"serp-rank/rank/domain"
)

const defaultMaxBodyBytes = 4 << 20

type RouterOptions struct {
	Dispatcher *Dispatcher
	Admission  AdmissionOptions
	// Gatherer nil = sem /metrics.
	Gatherer     prometheus.Gatherer
	MaxBodyBytes int64
	Logger       *zap.Logger
}

// NewRouter monta POST /v1/message, GET /healthz e GET /metrics.
func NewRouter(opts RouterOptions) chi.Router {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = &Dispatcher{Logger: opts.Logger}
	}
	if opts.Admission.Logger == nil {
		opts.Admission.Logger = opts.Logger
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(opts.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthHandler(opts.Dispatcher))
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/v1/message", messageHandler(opts.Dispatcher, newGate(opts.Admission), opts.MaxBodyBytes))
	return r
}

// messageHandler decodifica antes de admitir: a admissão depende da ação e da
// keyword.
func messageHandler(d *Dispatcher, g *gate, maxBody int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg Message
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&msg); err != nil {
			writeError(w, http.StatusOK, "invalid message: "+err.Error())
			return
		}
		release, ok := g.admit(w, r, msg)
		if !ok {
			return
		}
		defer release()
		writeJSON(w, http.StatusOK, d.Handle(r.Context(), msg))
	}
}

func healthHandler(d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Errors == nil {
			writeJSON(w, http.StatusOK, domain.SystemHealth{Status: domain.HealthExcellent})
			return
		}
		writeJSON(w, http.StatusOK, d.Errors.GetSystemHealth())
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
