package domain

import (
	"context"
	"time"
)

// Extractor produz os resultados da "página atual" ou falha.
// Quem decide quais nós contam como resultado é a implementação.
type Extractor interface {
	Extract(ctx context.Context) ([]ResultRecord, error)
}

// KV é o backend de persistência do histórico e do log de erros.
//
// Get devolve ok=false quando a chave não existe. Ambas as operações podem
// falhar; quem usa trata como best-effort.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// Clock existe para que testes controlem o tempo.
type Clock interface {
	Now() time.Time
}

// Sleeper suspende até d passar ou ctx encerrar.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Recorder recebe eventos para métricas. Implementações não devem bloquear.
type Recorder interface {
	ErrorRecorded(category Category)
	EvaluationDone(found bool, matchType MatchType, took time.Duration)
	// Throttled conta mensagens recusadas na admissão.
	Throttled(reason RejectReason, action string)
}

// Chaves fixas usadas no backend KV.
const (
	KeySearchHistory   = "searchHistory"
	KeyHistorySettings = "historySettings"
	KeyErrorLog        = "errorLog"
)
