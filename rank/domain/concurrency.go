package domain

import "context"

// SlotPool limita quantas avaliações rodam ao mesmo tempo.
//
// Acquire bloqueia até conseguir uma vaga ou ctx encerrar. O release devolvido
// deve ser chamado exatamente uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
