package rank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"serp-rank/rank/application"
	"serp-rank/rank/domain"
	"serp-rank/rank/infra"
)

// Ações reconhecidas pela interface de mensagens.
const (
	ActionFindKeywordRank  = "findKeywordRank"
	ActionScrapeResults    = "scrapeResults"
	ActionGetSearchHistory = "getSearchHistory"
	ActionGetSystemReport  = "getSystemReport"
	ActionGetStats         = "getStats"
	ActionGetErrorReport   = "getErrorReport"
	ActionClearHistory     = "clearHistory"
	ActionUpdateSettings   = "updateSettings"
)

// Message é a requisição: {"action": "...", ...campos da ação}.
type Message struct {
	Action  string `json:"action"`
	Keyword string `json:"keyword,omitempty"`
	// HTML, quando presente, é a página avaliada nesta mensagem.
	HTML     string              `json:"html,omitempty"`
	Options  *domain.HistoryQuery `json:"options,omitempty"`
	Enabled  *bool               `json:"enabled,omitempty"`
	AutoSave *bool               `json:"autoSave,omitempty"`
}

// Evaluates diz se a ação extrai e casa uma página inteira.
func (m Message) Evaluates() bool {
	return m.Action == ActionFindKeywordRank || m.Action == ActionScrapeResults
}

type ScrapeResponse struct {
	Success bool                  `json:"success"`
	Results []domain.ResultRecord `json:"results"`
	Total   int                   `json:"total"`
}

type HistoryResponse struct {
	Success bool `json:"success"`
	domain.HistoryPage
}

type StatsResponse struct {
	Success bool `json:"success"`
	domain.HistoryStats
}

type ErrorReportResponse struct {
	Success bool `json:"success"`
	domain.ErrorReport
}

type SettingsResponse struct {
	Success  bool            `json:"success"`
	Settings domain.Settings `json:"settings"`
}

type AckResponse struct {
	Success bool `json:"success"`
}

// Módulos do relatório de sistema.
const (
	ModuleReady       = "ready"
	ModuleUnavailable = "unavailable"
	ModuleDisabled    = "disabled"
)

type SystemReport struct {
	Success   bool                `json:"success"`
	Timestamp int64               `json:"timestamp"`
	Modules   map[string]string   `json:"modules"`
	Health    domain.SystemHealth `json:"health"`
	History   domain.Settings     `json:"historySettings"`
}

// Dispatcher traduz mensagens em chamadas aos casos de uso.
// Nenhuma falha sai como erro Go: tudo vira {success:false, error}.
type Dispatcher struct {
	Orchestrator *application.Orchestrator
	History      *application.HistoryStore
	Errors       *application.Coordinator
	// Selectors usados quando a mensagem traz o próprio HTML.
	Selectors infra.Selectors
	Clock     domain.Clock
	Logger    *zap.Logger
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Handle despacha msg. O valor devolvido é sempre serializável em JSON.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) (resp any) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logger().Error("message handler panicked",
				zap.String("action", msg.Action),
				zap.Any("panic", rec),
			)
			resp = ErrorResponse{Error: fmt.Sprintf("panic: %v", rec)}
		}
	}()

	switch msg.Action {
	case ActionFindKeywordRank:
		ev, f := d.orchestrator(msg).Evaluate(ctx, msg.Keyword)
		if f != nil {
			return f
		}
		return ev

	case ActionScrapeResults:
		results, f := d.orchestrator(msg).Scrape(ctx)
		if f != nil {
			return f
		}
		if results == nil {
			results = []domain.ResultRecord{}
		}
		return ScrapeResponse{Success: true, Results: results, Total: len(results)}

	case ActionGetSearchHistory:
		if d.History == nil {
			return ErrorResponse{Error: "history is not configured"}
		}
		var q domain.HistoryQuery
		if msg.Options != nil {
			q = *msg.Options
		}
		return HistoryResponse{Success: true, HistoryPage: d.History.Query(q)}

	case ActionGetStats:
		if d.History == nil {
			return ErrorResponse{Error: "history is not configured"}
		}
		return StatsResponse{Success: true, HistoryStats: d.History.GetStats()}

	case ActionGetErrorReport:
		if d.Errors == nil {
			return ErrorResponse{Error: "error handler is not configured"}
		}
		return ErrorReportResponse{Success: true, ErrorReport: d.Errors.GetErrorReport()}

	case ActionClearHistory:
		if d.History == nil {
			return ErrorResponse{Error: "history is not configured"}
		}
		if err := d.History.Clear(ctx); err != nil {
			return ErrorResponse{Error: err.Error()}
		}
		return AckResponse{Success: true}

	case ActionUpdateSettings:
		if d.History == nil {
			return ErrorResponse{Error: "history is not configured"}
		}
		s, err := d.History.UpdateSettings(ctx, domain.SettingsUpdate{Enabled: msg.Enabled, AutoSave: msg.AutoSave})
		if err != nil {
			return ErrorResponse{Error: err.Error()}
		}
		return SettingsResponse{Success: true, Settings: s}

	case ActionGetSystemReport:
		return d.systemReport()

	default:
		return ErrorResponse{Error: "Unknown action: " + msg.Action}
	}
}

// orchestrator troca o extrator quando a mensagem traz a página.
func (d *Dispatcher) orchestrator(msg Message) *application.Orchestrator {
	o := d.Orchestrator
	if o == nil {
		o = &application.Orchestrator{Logger: d.Logger}
	}
	if msg.HTML == "" {
		return o
	}
	return o.WithExtractor(infra.NewHTMLExtractor(infra.StringPage(msg.HTML), infra.WithSelectors(d.Selectors)))
}

func (d *Dispatcher) systemReport() SystemReport {
	clk := d.Clock
	if clk == nil {
		clk = application.SystemClock()
	}

	rep := SystemReport{
		Success:   true,
		Timestamp: clk.Now().UnixMilli(),
		Modules: map[string]string{
			"extractor":    ModuleUnavailable,
			"matcher":      ModuleReady,
			"history":      ModuleUnavailable,
			"errorHandler": ModuleUnavailable,
		},
	}
	if d.Orchestrator != nil && d.Orchestrator.Extractor != nil {
		rep.Modules["extractor"] = ModuleReady
	}
	if d.History != nil {
		rep.History = d.History.Settings()
		rep.Modules["history"] = ModuleReady
		if !rep.History.Enabled {
			rep.Modules["history"] = ModuleDisabled
		}
	}
	if d.Errors != nil {
		rep.Health = d.Errors.GetSystemHealth()
		rep.Modules["errorHandler"] = string(rep.Health.Status)
	}
	return rep
}
