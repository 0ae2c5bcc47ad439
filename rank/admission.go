package rank

import (
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"serp-rank/rank/application"
	"serp-rank/rank/domain"
	"serp-rank/rank/infra"
)

// KeyFunc identifica o cliente de uma requisição.
type KeyFunc func(r *http.Request) string

// AdmissionOptions configura quem entra em /v1/message. O zero value admite
// tudo.
type AdmissionOptions struct {
	// Clients limita todas as mensagens por cliente.
	Clients domain.LimiterStore
	// Keywords limita reavaliações da mesma keyword pelo mesmo cliente.
	Keywords domain.LimiterStore
	// Slots tem precedência sobre MaxConcurrent.
	Slots          domain.SlotPool
	MaxConcurrent  int
	AcquireTimeout time.Duration
	RetryAfter     time.Duration

	KeyFn               KeyFunc
	KeyHeader           string
	TrustXForwardedFor  bool
	AddRateLimitHeaders bool

	Recorder domain.Recorder
	Clock    domain.Clock
	Logger   *zap.Logger
}

type rateInfo interface {
	RPS() float64
	Burst() int
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				ip, _, _ := strings.Cut(xff, ",")
				if ip = strings.TrimSpace(ip); ip != "" {
					return ip
				}
			}
		}

		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

// gate aplica application.Admission a uma mensagem já decodificada.
type gate struct {
	svc     application.Admission
	keyFn   KeyFunc
	headers bool
	logger  *zap.Logger
}

func newGate(opts AdmissionOptions) *gate {
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	slots := opts.Slots
	if slots == nil && opts.MaxConcurrent > 0 {
		slots = infra.NewEvaluationSlots(opts.MaxConcurrent)
	}
	return &gate{
		svc: application.Admission{
			Clients:        opts.Clients,
			Keywords:       opts.Keywords,
			Pool:           slots,
			AcquireTimeout: opts.AcquireTimeout,
			RetryAfter:     opts.RetryAfter,
			Clock:          opts.Clock,
			Recorder:       opts.Recorder,
		},
		keyFn:   opts.KeyFn,
		headers: opts.AddRateLimitHeaders,
		logger:  opts.Logger,
	}
}

// admit devolve o release da mensagem, ou ok=false com a recusa já escrita.
func (g *gate) admit(w http.ResponseWriter, r *http.Request, msg Message) (func(), bool) {
	client := g.keyFn(r)
	if g.headers {
		w.Header().Set("X-RateLimit-Key", client)
		if ri, ok := g.svc.Clients.(rateInfo); ok {
			w.Header().Set("X-RateLimit-RPS", formatFloat(ri.RPS()))
			w.Header().Set("X-RateLimit-Burst", formatInt(ri.Burst()))
		}
	}

	release, dec := g.svc.Admit(r.Context(), application.Ticket{
		Client:    client,
		Action:    msg.Action,
		Keyword:   msg.Keyword,
		Evaluates: msg.Evaluates(),
	})
	if dec.Allowed {
		return release, true
	}

	g.logger.Debug("message rejected",
		zap.String("client", client),
		zap.String("action", msg.Action),
		zap.String("reason", string(dec.Reason)),
	)
	w.Header().Set("Retry-After", formatInt(int(math.Ceil(dec.RetryAfter.Seconds()))))
	switch dec.Reason {
	case domain.RejectBusy:
		writeError(w, http.StatusServiceUnavailable, "too many concurrent evaluations")
	case domain.RejectKeywordRate:
		writeError(w, http.StatusTooManyRequests, "keyword evaluated too recently")
	default:
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	}
	return nil, false
}
