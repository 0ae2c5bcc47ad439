package domain

import (
	"strings"
	"time"
)

// Key identifica um balde de tokens: o cliente da interface de mensagens
// (IP, API key) ou o par cliente+keyword.
type Key string

func ClientKey(client string) Key { return Key(client) }

// KeywordKey agrupa reavaliações da mesma keyword pelo mesmo cliente. A
// keyword é normalizada como no casamento (minúsculas, espaços colapsados).
func KeywordKey(client, keyword string) Key {
	kw := strings.Join(strings.Fields(strings.ToLower(keyword)), " ")
	return Key(client + "|kw:" + kw)
}

// Limiter consome um token em now. Sem token disponível devolve ok=false e
// quanto falta para o próximo (0 = nunca, burst zerado).
type Limiter interface {
	Take(now time.Time) (ok bool, wait time.Duration)
}

// LimiterStore obtém o limiter de uma Key, criando sob demanda.
type LimiterStore interface {
	Get(Key) Limiter
}

// RejectReason diz por que uma mensagem não foi admitida.
type RejectReason string

const (
	RejectClientRate  RejectReason = "client_rate"
	RejectKeywordRate RejectReason = "keyword_rate"
	RejectBusy        RejectReason = "concurrency"
)

type Decision struct {
	Allowed bool
	Reason  RejectReason
	// RetryAfter é devolvido em Retry-After quando bloquear.
	RetryAfter time.Duration
}
