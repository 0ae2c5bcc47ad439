package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"serp-rank/rank/domain"
)

func newTestCoordinator(opts ...CoordinatorOption) (*Coordinator, *fakeClock, *fakeSleeper) {
	clock := newFakeClock()
	sleeper := &fakeSleeper{clock: clock}
	ids := &seqIDs{}
	base := []CoordinatorOption{WithClock(clock), WithSleeper(sleeper), WithIDGenerator(ids.next)}
	return NewCoordinator(append(base, opts...)...), clock, sleeper
}

func TestCoordinator_CategorizeError(t *testing.T) {
	c, _, _ := newTestCoordinator()

	assert.Equal(t, domain.CategoryNetwork, c.CategorizeError(errors.New("Network request failed"), nil))
	assert.Equal(t, domain.CategoryTimeout, c.CategorizeError(errors.New("Operation timeout exceeded"), nil))
}

func TestCoordinator_ErrorLogIsCapped(t *testing.T) {
	c, clock, _ := newTestCoordinator()

	for i := 0; i < 250; i++ {
		c.HandleError(context.Background(), fmt.Errorf("failure %d", i), "op", nil)
		clock.Advance(time.Millisecond)
	}

	errs := c.Errors()
	require.Len(t, errs, ErrorLogCap)
	assert.Equal(t, "failure 150", errs[0].Message)
	assert.Equal(t, "failure 249", errs[len(errs)-1].Message)
}

func TestCoordinator_TimestampsNeverDecrease(t *testing.T) {
	c, clock, _ := newTestCoordinator()

	c.HandleError(context.Background(), errNetwork, "op", nil)
	clock.Advance(-time.Minute)
	c.HandleError(context.Background(), errNetwork, "op", nil)

	errs := c.Errors()
	require.Len(t, errs, 2)
	assert.LessOrEqual(t, errs[0].Timestamp, errs[1].Timestamp)
}

func TestCoordinator_GetRecentErrorsWindowIsInclusive(t *testing.T) {
	c, clock, _ := newTestCoordinator()
	ctx := context.Background()

	c.HandleError(ctx, errors.New("a"), "op", nil)
	clock.Advance(2 * time.Minute)
	c.HandleError(ctx, errors.New("b"), "op", nil)
	clock.Advance(8 * time.Minute)
	c.HandleError(ctx, errors.New("c"), "op", nil)

	got := c.GetRecentErrors(5 * time.Minute)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Message)

	got = c.GetRecentErrors(8 * time.Minute)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Message)

	assert.Len(t, c.GetRecentErrors(time.Hour), 3)
}

func TestExecuteWithRetry_SucceedsOnThirdAttemptWithBackoff(t *testing.T) {
	c, clock, sleeper := newTestCoordinator()

	var calls []time.Time
	v, err := ExecuteWithRetry(context.Background(), c, "extract", nil, 3, func(context.Context) (string, error) {
		calls = append(calls, clock.Now())
		if len(calls) < 3 {
			return "", errNetwork
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	require.Len(t, calls, 3)
	assert.GreaterOrEqual(t, calls[1].Sub(calls[0]), 2*time.Second)
	assert.GreaterOrEqual(t, calls[2].Sub(calls[1]), 4*time.Second)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.slept)

	errs := c.Errors()
	require.Len(t, errs, 2)
	assert.Equal(t, 1, errs[0].Context["attempt"])
	assert.Equal(t, 2, errs[1].Context["attempt"])
}

func TestExecuteWithRetry_PropagatesLastFailure(t *testing.T) {
	c, _, _ := newTestCoordinator()

	calls := 0
	_, err := ExecuteWithRetry(context.Background(), c, "extract", nil, 0, func(context.Context) (int, error) {
		calls++
		return 0, fmt.Errorf("attempt %d failed", calls)
	})

	require.Error(t, err)
	assert.Equal(t, "attempt 3 failed", err.Error())
	assert.Equal(t, DefaultMaxRetries, calls)
}

func TestExecuteWithRetry_CancelDuringBackoffAbandonsRetries(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := ExecuteWithRetry(ctx, c, "extract", nil, 5, func(context.Context) (int, error) {
		calls++
		cancel()
		return 0, errNetwork
	})

	assert.ErrorIs(t, err, errNetwork)
	assert.Equal(t, 1, calls)
	require.Len(t, c.Errors(), 1)
}

func TestExecuteWithRetry_RealSleeperRespectsBaseDelay(t *testing.T) {
	c := NewCoordinator(WithBaseDelay(time.Millisecond))

	calls := 0
	start := time.Now()
	_, err := ExecuteWithRetry(context.Background(), c, "op", nil, 3, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errNetwork
		}
		return 1, nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 6*time.Millisecond)
}

func TestSafeExecute_ConvertsFailure(t *testing.T) {
	rec := newFakeRecorder()
	c, _, _ := newTestCoordinator(WithRecorder(rec))

	v, f := SafeExecute(context.Background(), c, "extractResults", map[string]any{"keyword": "k"}, func(context.Context) ([]int, error) {
		return nil, errNetwork
	})

	assert.Nil(t, v)
	require.NotNil(t, f)
	assert.False(t, f.Success)
	assert.True(t, f.CanRetry)
	assert.Equal(t, "Network request failed", f.Message)
	assert.Equal(t, domain.CategoryNetwork, f.ErrorCategory)
	assert.Equal(t, "id-1", f.ErrorID)
	assert.Equal(t, 1, rec.errors[domain.CategoryNetwork])

	errs := c.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, "extractResults", errs[0].Operation)
	assert.Equal(t, "k", errs[0].Context["keyword"])
}

func TestSafeExecute_ReturnsValueOnSuccess(t *testing.T) {
	c, _, _ := newTestCoordinator()

	v, f := SafeExecute(context.Background(), c, "op", nil, func(context.Context) (string, error) {
		return "value", nil
	})

	assert.Nil(t, f)
	assert.Equal(t, "value", v)
	assert.Empty(t, c.Errors())
}

func TestSafeExecute_RecoversPanic(t *testing.T) {
	c, _, _ := newTestCoordinator()

	_, f := SafeExecute(context.Background(), c, "op", nil, func(context.Context) (int, error) {
		panic("boom")
	})

	require.NotNil(t, f)
	assert.Equal(t, "panic: boom", f.Message)
	assert.Equal(t, domain.CategoryUnknown, f.ErrorCategory)
}

func TestCoordinator_LogsCaughtFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c, _, _ := newTestCoordinator(WithLogger(zap.New(core)))

	c.HandleError(context.Background(), errNetwork, "extractResults", nil)

	entries := logs.FilterMessage("operation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "network", entries[0].ContextMap()["category"])
}

func TestCoordinator_SystemHealthThresholds(t *testing.T) {
	cases := []struct {
		errors int
		want   domain.HealthStatus
	}{
		{0, domain.HealthExcellent},
		{2, domain.HealthExcellent},
		{3, domain.HealthGood},
		{11, domain.HealthFair},
		{26, domain.HealthPoor},
	}
	for _, tc := range cases {
		t.Run(string(tc.want), func(t *testing.T) {
			c, _, _ := newTestCoordinator()
			for i := 0; i < tc.errors; i++ {
				c.HandleError(context.Background(), errNetwork, "op", nil)
			}

			h := c.GetSystemHealth()
			assert.Equal(t, tc.want, h.Status)
			assert.InDelta(t, float64(tc.errors)/5, h.ErrorRate, 1e-9)
			if tc.errors == 0 {
				assert.Nil(t, h.LastError)
			} else {
				assert.NotNil(t, h.LastError)
			}
		})
	}
}

func TestCoordinator_HealthIgnoresOldErrors(t *testing.T) {
	c, clock, _ := newTestCoordinator()
	for i := 0; i < 30; i++ {
		c.HandleError(context.Background(), errNetwork, "op", nil)
	}
	clock.Advance(6 * time.Minute)

	h := c.GetSystemHealth()
	assert.Equal(t, domain.HealthExcellent, h.Status)
	assert.Zero(t, h.ErrorRate)
}

func TestCoordinator_ErrorReport(t *testing.T) {
	c, clock, _ := newTestCoordinator()
	ctx := context.Background()

	c.HandleError(ctx, errors.New("old parse failure"), "op", nil)
	c.HandleError(ctx, errors.New("old json failure"), "op", nil)
	clock.Advance(2 * time.Hour)
	for i := 0; i < 15; i++ {
		c.HandleError(ctx, fmt.Errorf("Network request failed %d", i), "op", nil)
		clock.Advance(time.Second)
	}

	r := c.GetErrorReport()
	assert.Equal(t, 17, r.Summary.TotalErrors)
	assert.Equal(t, 15, r.Summary.RecentErrors)
	assert.Equal(t, 15, r.Summary.ErrorsByCategory[domain.CategoryNetwork])
	assert.Equal(t, 2, r.Summary.ErrorsByCategory[domain.CategoryParsing])
	require.Len(t, r.RecentErrors, 10)
	assert.Equal(t, "Network request failed 5", r.RecentErrors[0].Message)
	assert.Equal(t, "Network request failed 14", r.RecentErrors[9].Message)
	assert.NotEmpty(t, r.SystemHealth.Status)
}

func TestCoordinator_MirrorsAndReloadsErrorLog(t *testing.T) {
	kv := newFakeKV()
	c, _, _ := newTestCoordinator(WithErrorMirror(kv))
	ctx := context.Background()

	c.HandleError(ctx, errNetwork, "op", nil)
	c.HandleError(ctx, errors.New("Operation timeout exceeded"), "op", nil)

	var stored []domain.ErrorRecord
	require.NoError(t, json.Unmarshal(kv.data[domain.KeyErrorLog], &stored))
	require.Len(t, stored, 2)

	restored, _, _ := newTestCoordinator(WithErrorMirror(kv))
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, c.Errors(), restored.Errors())

	require.NoError(t, restored.ClearErrors(ctx))
	assert.Empty(t, restored.Errors())
}

func TestCoordinator_MirrorFailureIsNotFatal(t *testing.T) {
	kv := newFakeKV()
	kv.setErr = errors.New("redis down")
	c, _, _ := newTestCoordinator(WithErrorMirror(kv))

	rec := c.HandleError(context.Background(), errNetwork, "op", nil)

	assert.Equal(t, domain.CategoryNetwork, rec.Category)
	assert.Len(t, c.Errors(), 1)
}

func TestExecuteWithRetry_BackoffIsCapped(t *testing.T) {
	c, _, sleeper := newTestCoordinator()

	_, err := ExecuteWithRetry(context.Background(), c, "extract", nil, 40, func(context.Context) (int, error) {
		return 0, errNetwork
	})

	require.Error(t, err)
	require.Len(t, sleeper.slept, 39)
	for i, d := range sleeper.slept {
		assert.Positive(t, d, "delay %d", i)
		assert.LessOrEqual(t, d, MaxBackoff, "delay %d", i)
	}
	assert.Equal(t, MaxBackoff, sleeper.slept[len(sleeper.slept)-1])
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(time.Second, 0))
	assert.Equal(t, 4*time.Second, backoff(time.Second, 2))
	assert.Equal(t, MaxBackoff, backoff(time.Second, 63))
	assert.Equal(t, MaxBackoff, backoff(time.Hour, 1))
	assert.Zero(t, backoff(0, 5))
}

func TestCoordinator_ReturnedRecordsDoNotAliasLog(t *testing.T) {
	c, _, _ := newTestCoordinator()
	ctx := context.Background()

	rec := c.HandleError(ctx, errNetwork, "op", map[string]any{"k": "v"})
	rec.Context["k"] = "changed"

	c.Errors()[0].Context["k"] = "mutated"
	c.GetRecentErrors(time.Hour)[0].Context["k"] = "mutated"
	c.GetErrorReport().RecentErrors[0].Context["k"] = "mutated"
	c.GetSystemHealth().LastError.Context["k"] = "mutated"

	assert.Equal(t, "v", c.Errors()[0].Context["k"])
	assert.Equal(t, "v", c.GetSystemHealth().LastError.Context["k"])
}
