package infra

import (
	"context"
	"sync"
	"sync/atomic"
)

// EvaluationSlots limita quantas avaliações (extração + casamento) rodam ao
// mesmo tempo. Implementa domain.SlotPool.
type EvaluationSlots struct {
	sem      chan struct{}
	inFlight atomic.Int64
}

// NewEvaluationSlots cria n vagas (mínimo 1).
func NewEvaluationSlots(n int) *EvaluationSlots {
	return &EvaluationSlots{sem: make(chan struct{}, max(n, 1))}
}

// Acquire espera uma vaga até ctx encerrar. Chamar o release mais de uma vez
// não devolve vagas a mais.
func (p *EvaluationSlots) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, false
	}
	p.inFlight.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.inFlight.Add(-1)
			<-p.sem
		})
	}, true
}

func (p *EvaluationSlots) Max() int { return cap(p.sem) }

// InFlight devolve quantas avaliações ocupam vaga agora.
func (p *EvaluationSlots) InFlight() int { return int(p.inFlight.Load()) }
