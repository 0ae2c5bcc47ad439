package application

import (
	"context"
	"time"

	"serp-rank/rank/domain"
)

// SystemClock é o relógio de parede.
func SystemClock() domain.Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// timerSleeper espera com timer + select para respeitar o cancelamento de ctx.
type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// monotonicMillis garante timestamps não decrescentes na ordem de inserção,
// mesmo se o relógio de parede voltar.
func monotonicMillis(now time.Time, last int64) int64 {
	return max(now.UnixMilli(), last)
}
