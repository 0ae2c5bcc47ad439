package application

import (
	"context"
	"strings"
	"time"

	"serp-rank/rank/domain"
)

// DefaultRetryAfter é o Retry-After mínimo sugerido numa recusa.
const DefaultRetryAfter = time.Second

// Ticket descreve a mensagem que pede admissão.
type Ticket struct {
	Client  string
	Action  string
	Keyword string
	// Evaluates marca mensagens que extraem e casam uma página inteira.
	Evaluates bool
}

// Admission decide se uma mensagem roda agora. Toda mensagem consome o balde
// do cliente. Avaliações consomem também o balde cliente+keyword e ocupam uma
// vaga do Pool enquanto rodam. Leituras baratas nunca esperam vaga.
//
// Campos nil desligam a etapa correspondente. Não sabe nada de HTTP.
type Admission struct {
	Clients  domain.LimiterStore
	Keywords domain.LimiterStore
	Pool     domain.SlotPool
	// AcquireTimeout <= 0 espera a vaga até ctx encerrar.
	AcquireTimeout time.Duration
	RetryAfter     time.Duration
	Clock          domain.Clock
	Recorder       domain.Recorder
}

// Admit devolve a decisão e, quando admitida, o release da vaga (nunca nil).
func (a Admission) Admit(ctx context.Context, t Ticket) (func(), domain.Decision) {
	now := a.now()

	if a.Clients != nil {
		if ok, wait := a.Clients.Get(domain.ClientKey(t.Client)).Take(now); !ok {
			return nil, a.reject(t, domain.RejectClientRate, wait)
		}
	}
	if !t.Evaluates {
		return func() {}, domain.Decision{Allowed: true}
	}

	if a.Keywords != nil && strings.TrimSpace(t.Keyword) != "" {
		if ok, wait := a.Keywords.Get(domain.KeywordKey(t.Client, t.Keyword)).Take(now); !ok {
			return nil, a.reject(t, domain.RejectKeywordRate, wait)
		}
	}

	if a.Pool == nil {
		return func() {}, domain.Decision{Allowed: true}
	}
	acqCtx := ctx
	if a.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, a.AcquireTimeout)
		defer cancel()
	}
	release, ok := a.Pool.Acquire(acqCtx)
	if !ok {
		return nil, a.reject(t, domain.RejectBusy, 0)
	}
	return release, domain.Decision{Allowed: true}
}

func (a Admission) reject(t Ticket, reason domain.RejectReason, wait time.Duration) domain.Decision {
	if a.Recorder != nil {
		a.Recorder.Throttled(reason, t.Action)
	}
	floor := a.RetryAfter
	if floor <= 0 {
		floor = DefaultRetryAfter
	}
	return domain.Decision{Allowed: false, Reason: reason, RetryAfter: max(wait, floor)}
}

func (a Admission) now() time.Time {
	if a.Clock == nil {
		return systemClock{}.Now()
	}
	return a.Clock.Now()
}
