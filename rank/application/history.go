package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"serp-rank/rank/domain"
	"serp-rank/rank/ring"
)

const (
	DefaultHistoryCap = 50
	DefaultQueryLimit = 20
)

// ResultSaver é o contrato de persistência que o Orchestrator consome.
type ResultSaver interface {
	SaveResult(ctx context.Context, keyword string, results []domain.ResultRecord, verdict domain.MatchVerdict, metadata map[string]any) error
}

// HistoryStore é o log limitado (mais novo primeiro) das avaliações passadas.
//
// O log em memória é a fonte da verdade; o backend KV recebe snapshots
// best-effort a cada escrita e é lido só em Load.
type HistoryStore struct {
	mu       sync.Mutex
	log      *ring.Log[domain.HistoryEntry]
	settings domain.Settings
	seq      uint64
	lastTS   int64

	entries     *snapshotWriter
	settingsOut *snapshotWriter
	clock       domain.Clock
	logger      *zap.Logger
	newID       func() string
}

type HistoryOption func(*HistoryStore)

// WithHistoryCap define o máximo de entradas (padrão DefaultHistoryCap).
func WithHistoryCap(n int) HistoryOption {
	return func(h *HistoryStore) {
		if n > 0 {
			h.log.Resize(n)
		}
	}
}

// WithHistoryKV persiste histórico e settings nas chaves fixas do domínio.
func WithHistoryKV(kv domain.KV) HistoryOption {
	return func(h *HistoryStore) {
		h.entries = &snapshotWriter{kv: kv, key: domain.KeySearchHistory}
		h.settingsOut = &snapshotWriter{kv: kv, key: domain.KeyHistorySettings}
	}
}

func WithHistorySettings(s domain.Settings) HistoryOption {
	return func(h *HistoryStore) { h.settings = s }
}

func WithHistoryClock(c domain.Clock) HistoryOption {
	return func(h *HistoryStore) { h.clock = c }
}

func WithHistoryLogger(l *zap.Logger) HistoryOption {
	return func(h *HistoryStore) { h.logger = l }
}

func WithHistoryIDGenerator(fn func() string) HistoryOption {
	return func(h *HistoryStore) { h.newID = fn }
}

func NewHistoryStore(opts ...HistoryOption) *HistoryStore {
	h := &HistoryStore{
		log:      ring.New[domain.HistoryEntry](DefaultHistoryCap),
		settings: domain.DefaultSettings(),
		clock:    systemClock{},
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// Cap devolve o limite de entradas.
func (h *HistoryStore) Cap() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log.Cap()
}

// Load restaura histórico e settings do backend. Chaves ausentes não são erro.
func (h *HistoryStore) Load(ctx context.Context) error {
	var entries []domain.HistoryEntry
	okEntries, err := h.entries.readSnapshot(ctx, &entries)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	var settings domain.Settings
	okSettings, err := h.settingsOut.readSnapshot(ctx, &settings)
	if err != nil {
		return fmt.Errorf("load history settings: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if okEntries {
		h.log.Reset()
		// o snapshot é mais novo primeiro; o ring recebe do mais antigo ao mais novo
		for i := len(entries) - 1; i >= 0; i-- {
			h.log.Push(entries[i])
			h.lastTS = max(h.lastTS, entries[i].Timestamp)
		}
	}
	if okSettings {
		h.settings = settings
	}
	return nil
}

// SaveResult registra o veredito como entrada mais nova e descarta o excedente
// mais antigo. Não faz nada se a coleta estiver desligada. O erro devolvido é
// sempre de persistência; a entrada já está no log em memória.
func (h *HistoryStore) SaveResult(ctx context.Context, keyword string, results []domain.ResultRecord, verdict domain.MatchVerdict, metadata map[string]any) error {
	h.mu.Lock()
	if !h.settings.Enabled || !h.settings.AutoSave {
		h.mu.Unlock()
		return nil
	}

	now := h.clock.Now()
	h.lastTS = monotonicMillis(now, h.lastTS)
	entry := domain.HistoryEntry{
		ID:         h.newID(),
		Keyword:    keyword,
		Timestamp:  h.lastTS,
		SearchDate: time.UnixMilli(h.lastTS).UTC().Format(time.RFC3339Nano),
		Results: domain.HistoryResults{
			Found:        verdict.Found,
			Position:     copyPosition(verdict.Position),
			MatchType:    verdict.MatchType,
			Confidence:   verdict.Confidence,
			TotalResults: len(results),
		},
		Metadata: copyMeta(metadata),
	}
	h.log.Push(entry)
	h.seq++
	seq, snapshot := h.seq, h.log.Newest()
	h.mu.Unlock()

	if err := h.entries.writeSnapshot(ctx, seq, snapshot); err != nil {
		h.logger.Warn("history persistence failed", zap.String("keyword", keyword), zap.Error(err))
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// Query filtra (keyword sem diferenciar maiúsculas, foundOnly) e limita o log.
func (h *HistoryStore) Query(q domain.HistoryQuery) domain.HistoryPage {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	needle := strings.ToLower(strings.TrimSpace(q.Keyword))

	h.mu.Lock()
	all := h.log.Newest()
	h.mu.Unlock()

	filtered := make([]domain.HistoryEntry, 0, len(all))
	for _, e := range all {
		if needle != "" && !strings.Contains(strings.ToLower(e.Keyword), needle) {
			continue
		}
		if q.FoundOnly && !e.Results.Found {
			continue
		}
		filtered = append(filtered, e)
	}

	page := filtered
	if len(page) > limit {
		page = page[:limit]
	}
	for i := range page {
		page[i] = page[i].Clone()
	}
	return domain.HistoryPage{History: page, Total: len(all), Filtered: len(filtered)}
}

// GetStats calcula as estatísticas sob demanda sobre o log atual.
func (h *HistoryStore) GetStats() domain.HistoryStats {
	h.mu.Lock()
	all := h.log.Newest()
	h.mu.Unlock()

	stats := domain.HistoryStats{
		TotalSearches: len(all),
		TopKeywords:   make(map[string]int),
	}
	positionSum := 0
	for _, e := range all {
		stats.TopKeywords[strings.ToLower(e.Keyword)]++

		if !e.Results.Found || e.Results.Position == nil {
			stats.PositionDistribution.NotFound++
			continue
		}
		stats.SuccessfulSearches++
		pos := *e.Results.Position
		positionSum += pos
		switch {
		case pos <= 3:
			stats.PositionDistribution.TopThree++
		case pos <= 10:
			stats.PositionDistribution.FirstPage++
		}
	}
	if stats.SuccessfulSearches > 0 {
		stats.AveragePosition = float64(positionSum) / float64(stats.SuccessfulSearches)
	}
	return stats
}

func (h *HistoryStore) Settings() domain.Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings
}

// UpdateSettings aplica os campos informados e persiste best-effort.
func (h *HistoryStore) UpdateSettings(ctx context.Context, u domain.SettingsUpdate) (domain.Settings, error) {
	h.mu.Lock()
	if u.Enabled != nil {
		h.settings.Enabled = *u.Enabled
	}
	if u.AutoSave != nil {
		h.settings.AutoSave = *u.AutoSave
	}
	h.seq++
	seq, s := h.seq, h.settings
	h.mu.Unlock()

	if err := h.settingsOut.writeSnapshot(ctx, seq, s); err != nil {
		h.logger.Warn("history settings persistence failed", zap.Error(err))
		return s, fmt.Errorf("persist history settings: %w", err)
	}
	return s, nil
}

// Clear esvazia o histórico.
func (h *HistoryStore) Clear(ctx context.Context) error {
	h.mu.Lock()
	h.log.Reset()
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	if err := h.entries.writeSnapshot(ctx, seq, []domain.HistoryEntry{}); err != nil {
		h.logger.Warn("history clear persistence failed", zap.Error(err))
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

func copyPosition(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
