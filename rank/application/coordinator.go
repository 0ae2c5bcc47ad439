package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"serp-rank/rank/domain"
	"serp-rank/rank/ring"
)

const (
	// ErrorLogCap é o máximo de ErrorRecords retidos; o mais antigo sai primeiro.
	ErrorLogCap = 100

	DefaultMaxRetries = 3

	// MaxBackoff limita a espera entre tentativas.
	MaxBackoff = 5 * time.Minute

	healthWindow  = 5 * time.Minute
	reportWindow  = time.Hour
	reportRecentN = 10
)

// Guard é o contrato de execução protegida que o Orchestrator consome.
type Guard interface {
	Run(ctx context.Context, operation string, meta map[string]any, fn func(context.Context) error) *domain.Failure
}

// Coordinator captura, classifica e registra falhas, aplica retry com backoff
// exponencial e deriva a saúde do sistema a partir do log de erros.
type Coordinator struct {
	mu     sync.Mutex
	log    *ring.Log[domain.ErrorRecord]
	lastTS int64
	seq    uint64

	categorizer Categorizer
	clock       domain.Clock
	sleeper     domain.Sleeper
	logger      *zap.Logger
	recorder    domain.Recorder
	mirror      *snapshotWriter
	baseDelay   time.Duration
	newID       func() string
}

type CoordinatorOption func(*Coordinator)

func WithCategorizer(c Categorizer) CoordinatorOption {
	return func(co *Coordinator) { co.categorizer = c }
}

func WithClock(c domain.Clock) CoordinatorOption {
	return func(co *Coordinator) { co.clock = c }
}

func WithSleeper(s domain.Sleeper) CoordinatorOption {
	return func(co *Coordinator) { co.sleeper = s }
}

func WithLogger(l *zap.Logger) CoordinatorOption {
	return func(co *Coordinator) { co.logger = l }
}

func WithRecorder(r domain.Recorder) CoordinatorOption {
	return func(co *Coordinator) { co.recorder = r }
}

// WithErrorMirror espelha o log de erros na chave domain.KeyErrorLog.
func WithErrorMirror(kv domain.KV) CoordinatorOption {
	return func(co *Coordinator) { co.mirror = &snapshotWriter{kv: kv, key: domain.KeyErrorLog} }
}

// WithBaseDelay muda a unidade do backoff: a tentativa n+1 espera base*2^n.
func WithBaseDelay(d time.Duration) CoordinatorOption {
	return func(co *Coordinator) { co.baseDelay = d }
}

func WithIDGenerator(fn func() string) CoordinatorOption {
	return func(co *Coordinator) { co.newID = fn }
}

func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		log:         ring.New[domain.ErrorRecord](ErrorLogCap),
		categorizer: StructuredCategorizer{Fallback: KeywordCategorizer{}},
		clock:       systemClock{},
		sleeper:     timerSleeper{},
		logger:      zap.NewNop(),
		baseDelay:   time.Second,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// CategorizeError aplica o Categorizer configurado.
func (c *Coordinator) CategorizeError(err error, meta map[string]any) domain.Category {
	return c.categorizer.Categorize(err, meta)
}

// HandleError cria, registra e devolve o ErrorRecord de err.
func (c *Coordinator) HandleError(ctx context.Context, err error, operation string, meta map[string]any) domain.ErrorRecord {
	category := c.CategorizeError(err, meta)
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}

	c.mu.Lock()
	c.lastTS = monotonicMillis(c.clock.Now(), c.lastTS)
	rec := domain.ErrorRecord{
		ID:        c.newID(),
		Operation: operation,
		Message:   msg,
		Timestamp: c.lastTS,
		Category:  category,
		Context:   copyMeta(meta),
	}
	c.log.Push(rec)
	c.seq++
	seq, snapshot := c.seq, c.log.Oldest()
	c.mu.Unlock()

	c.logger.Warn("operation failed",
		zap.String("operation", operation),
		zap.String("category", string(category)),
		zap.String("error_id", rec.ID),
		zap.String("error", msg),
	)
	if c.recorder != nil {
		c.recorder.ErrorRecorded(category)
	}
	if err := c.mirror.writeSnapshot(ctx, seq, snapshot); err != nil {
		c.logger.Warn("error log mirror failed", zap.Error(err))
	}
	return rec.Clone()
}

// Run executa fn e converte qualquer falha (inclusive panic) em domain.Failure.
// Devolve nil em caso de sucesso.
func (c *Coordinator) Run(ctx context.Context, operation string, meta map[string]any, fn func(context.Context) error) (failure *domain.Failure) {
	defer func() {
		if r := recover(); r != nil {
			failure = c.fail(ctx, fmt.Errorf("panic: %v", r), operation, meta)
		}
	}()
	if err := fn(ctx); err != nil {
		return c.fail(ctx, err, operation, meta)
	}
	return nil
}

func (c *Coordinator) fail(ctx context.Context, err error, operation string, meta map[string]any) *domain.Failure {
	rec := c.HandleError(ctx, err, operation, meta)
	return &domain.Failure{
		Success:       false,
		Message:       rec.Message,
		ErrorCategory: rec.Category,
		ErrorID:       rec.ID,
		CanRetry:      true,
	}
}

// SafeExecute roda fn sob g e devolve o valor ou a falha estruturada; o erro
// bruto nunca chega a quem chamou.
func SafeExecute[T any](ctx context.Context, g Guard, operation string, meta map[string]any, fn func(context.Context) (T, error)) (T, *domain.Failure) {
	var out T
	f := g.Run(ctx, operation, meta, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if f != nil {
		var zero T
		return zero, f
	}
	return out, nil
}

// ExecuteWithRetry tenta fn até maxRetries vezes (<= 0 usa DefaultMaxRetries).
// Antes da tentativa n+1 espera baseDelay*2^n; a primeira não espera. Cada
// falha é registrada. Se ctx encerrar durante a espera, as tentativas
// restantes são abandonadas e o erro da última tentativa é devolvido. Erros
// marcados com Permanent encerram as tentativas na hora.
func ExecuteWithRetry[T any](ctx context.Context, c *Coordinator, operation string, meta map[string]any, maxRetries int, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			delay := backoff(c.baseDelay, attempt-1)
			if err := c.sleeper.Sleep(ctx, delay); err != nil {
				return zero, lastErr
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		attemptMeta := copyMeta(meta)
		if attemptMeta == nil {
			attemptMeta = make(map[string]any, 2)
		}
		attemptMeta["attempt"] = attempt
		attemptMeta["maxRetries"] = maxRetries
		c.HandleError(ctx, err, operation, attemptMeta)

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
	}
	return zero, lastErr
}

// backoff devolve base*2^n sem passar de MaxBackoff.
func backoff(base time.Duration, n int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for ; n > 0 && d < MaxBackoff; n-- {
		d *= 2
	}
	return min(d, MaxBackoff)
}

// Permanent marca err como não recuperável: ExecuteWithRetry registra a falha
// e devolve o erro original sem novas tentativas.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// GetRecentErrors devolve, do mais antigo ao mais novo, os erros com
// now - timestamp <= window.
func (c *Coordinator) GetRecentErrors(window time.Duration) []domain.ErrorRecord {
	now := c.clock.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recentLocked(now, window)
}

func (c *Coordinator) recentLocked(now int64, window time.Duration) []domain.ErrorRecord {
	cutoff := now - window.Milliseconds()
	var out []domain.ErrorRecord
	for i := 0; i < c.log.Len(); i++ {
		if rec := c.log.At(i); rec.Timestamp >= cutoff {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Errors devolve o log completo, do mais antigo ao mais novo.
func (c *Coordinator) Errors() []domain.ErrorRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.log.Oldest()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

func (c *Coordinator) GetSystemHealth() domain.SystemHealth {
	now := c.clock.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.healthLocked(now)
}

func (c *Coordinator) healthLocked(now int64) domain.SystemHealth {
	recent := c.recentLocked(now, healthWindow)
	rate := float64(len(recent)) / healthWindow.Minutes()

	h := domain.SystemHealth{Status: healthStatus(rate), ErrorRate: rate}
	if last, ok := c.log.Last(); ok {
		last = last.Clone()
		h.LastError = &last
	}
	return h
}

func healthStatus(errorsPerMinute float64) domain.HealthStatus {
	switch {
	case errorsPerMinute > 5:
		return domain.HealthPoor
	case errorsPerMinute > 2:
		return domain.HealthFair
	case errorsPerMinute > 0.5:
		return domain.HealthGood
	default:
		return domain.HealthExcellent
	}
}

func (c *Coordinator) GetErrorReport() domain.ErrorReport {
	now := c.clock.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()

	byCategory := make(map[domain.Category]int)
	for i := 0; i < c.log.Len(); i++ {
		byCategory[c.log.At(i).Category]++
	}

	lastHour := c.recentLocked(now, reportWindow)
	recent := lastHour
	if len(recent) > reportRecentN {
		recent = recent[len(recent)-reportRecentN:]
	}
	if recent == nil {
		recent = []domain.ErrorRecord{}
	}

	return domain.ErrorReport{
		Summary: domain.ErrorSummary{
			TotalErrors:      c.log.Len(),
			RecentErrors:     len(lastHour),
			ErrorsByCategory: byCategory,
		},
		RecentErrors: recent,
		SystemHealth: c.healthLocked(now),
	}
}

// ClearErrors esvazia o log de erros.
func (c *Coordinator) ClearErrors(ctx context.Context) error {
	c.mu.Lock()
	c.log.Reset()
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	return c.mirror.writeSnapshot(ctx, seq, []domain.ErrorRecord{})
}

// Load restaura o log espelhado, se houver.
func (c *Coordinator) Load(ctx context.Context) error {
	var recs []domain.ErrorRecord
	ok, err := c.mirror.readSnapshot(ctx, &recs)
	if err != nil {
		return fmt.Errorf("load error log: %w", err)
	}
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Reset()
	for _, rec := range recs {
		c.log.Push(rec)
		c.lastTS = max(c.lastTS, rec.Timestamp)
	}
	return nil
}

func copyMeta(meta map[string]any) map[string]any {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
