package infra

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"serp-rank/rank/domain"
)

// TokenBuckets implementa domain.LimiterStore com um token bucket
// (x/time/rate) por Key. Baldes sem uso por idleTTL são esquecidos no Sweep.
type TokenBuckets struct {
	mu      sync.Mutex
	buckets map[domain.Key]*bucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Take reserva um token em now e desfaz a reserva se ela exigir espera.
func (b *bucket) Take(now time.Time) (bool, time.Duration) {
	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return false, wait
	}
	return true, 0
}

type BucketOption func(*TokenBuckets)

// WithIdleTTL define após quanto tempo sem uso um balde pode ser descartado
// (padrão 15min).
func WithIdleTTL(d time.Duration) BucketOption {
	return func(s *TokenBuckets) { s.idleTTL = d }
}

func WithBucketClock(c domain.Clock) BucketOption {
	return func(s *TokenBuckets) { s.now = c.Now }
}

// NewTokenBuckets cria baldes que reabastecem rps tokens por segundo até burst.
func NewTokenBuckets(rps float64, burst int, opts ...BucketOption) *TokenBuckets {
	s := &TokenBuckets{
		buckets: make(map[domain.Key]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenBuckets) RPS() float64 { return float64(s.limit) }
func (s *TokenBuckets) Burst() int   { return s.burst }

func (s *TokenBuckets) Get(key domain.Key) domain.Limiter {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(s.limit, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

// Len devolve quantos baldes estão ativos.
func (s *TokenBuckets) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// Sweep descarta os baldes ociosos e devolve quantos saíram.
func (s *TokenBuckets) Sweep() int {
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, k)
			n++
		}
	}
	return n
}

// StartJanitor roda Sweep a cada every até ctx encerrar. every <= 0 não faz nada.
func (s *TokenBuckets) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep()
			}
		}
	}()
}
