package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"serp-rank/rank/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSleeper avança o relógio simulado em vez de dormir.
type fakeSleeper struct {
	clock *fakeClock
	slept []time.Duration
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.slept = append(s.slept, d)
	s.clock.Advance(d)
	return nil
}

type seqIDs struct{ n int }

func (s *seqIDs) next() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type fakeKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	setErr error
	getErr error
	sets   int
}

func newFakeKV() *fakeKV { return &fakeKV{data: make(map[string][]byte)} }

func (kv *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.getErr != nil {
		return nil, false, kv.getErr
	}
	v, ok := kv.data[key]
	return v, ok, nil
}

func (kv *fakeKV) Set(_ context.Context, key string, value []byte) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.setErr != nil {
		return kv.setErr
	}
	kv.sets++
	kv.data[key] = append([]byte(nil), value...)
	return nil
}

type fakeRecorder struct {
	mu          sync.Mutex
	errors      map[domain.Category]int
	evaluations int
	found       int
	throttled   map[domain.RejectReason][]string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		errors:    make(map[domain.Category]int),
		throttled: make(map[domain.RejectReason][]string),
	}
}

func (r *fakeRecorder) Throttled(reason domain.RejectReason, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.throttled[reason] = append(r.throttled[reason], action)
}

func (r *fakeRecorder) ErrorRecorded(c domain.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[c]++
}

func (r *fakeRecorder) EvaluationDone(found bool, _ domain.MatchType, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluations++
	if found {
		r.found++
	}
}

var errNetwork = errors.New("Network request failed")
