package application

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"serp-rank/rank/domain"
)

// Orchestrator compõe extração -> casamento -> histórico, cada passo protegido
// pelo Guard. Os componentes são injetados; não há estado global.
type Orchestrator struct {
	Extractor domain.Extractor
	Matcher   KeywordMatcher
	History   ResultSaver
	Guard     Guard
	Recorder  domain.Recorder
	Logger    *zap.Logger
}

// WithExtractor devolve uma cópia que extrai de ex e compartilha o resto.
func (o *Orchestrator) WithExtractor(ex domain.Extractor) *Orchestrator {
	cp := *o
	cp.Extractor = ex
	return &cp
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// sem Guard injetado cada chamada usa um Coordinator descartável
func (o *Orchestrator) guard() Guard {
	if o.Guard == nil {
		return NewCoordinator(WithLogger(o.logger()))
	}
	return o.Guard
}

// Scrape executa só a extração.
func (o *Orchestrator) Scrape(ctx context.Context) ([]domain.ResultRecord, *domain.Failure) {
	return SafeExecute(ctx, o.guard(), "extractResults", nil, o.extract)
}

func (o *Orchestrator) extract(ctx context.Context) ([]domain.ResultRecord, error) {
	if o.Extractor == nil {
		return nil, domain.WithCategory(domain.CategoryDOM, domain.ErrNoPage)
	}
	return o.Extractor.Extract(ctx)
}

// Evaluate avalia keyword contra a página atual.
//
// Falha de extração encerra a avaliação (sem retry nesta camada). Falha ao
// gravar o histórico é registrada e ignorada: o veredito é devolvido mesmo assim.
func (o *Orchestrator) Evaluate(ctx context.Context, keyword string) (domain.Evaluation, *domain.Failure) {
	start := time.Now()
	g := o.guard()
	keyword = strings.TrimSpace(keyword)
	meta := map[string]any{"keyword": keyword}

	if keyword == "" {
		f := g.Run(ctx, "validateKeyword", meta, func(context.Context) error {
			return domain.WithCategory(domain.CategoryValidation, domain.ErrEmptyKeyword)
		})
		return domain.Evaluation{}, f
	}

	results, f := SafeExecute(ctx, g, "extractResults", meta, o.extract)
	if f != nil {
		return domain.Evaluation{}, f
	}

	verdict, f := SafeExecute(ctx, g, "matchKeyword", meta, func(context.Context) (domain.MatchVerdict, error) {
		m := o.Matcher
		if m == nil {
			m = NewMatcher(MatcherConfig{})
		}
		return m.Match(keyword, results), nil
	})
	if f != nil {
		return domain.Evaluation{}, f
	}

	if o.History != nil {
		took := time.Since(start)
		// best-effort: o Guard já registra e loga a falha
		_ = g.Run(ctx, "saveHistory", meta, func(ctx context.Context) error {
			return o.History.SaveResult(ctx, keyword, results, verdict, map[string]any{
				"resultCount": len(results),
				"durationMs":  took.Milliseconds(),
			})
		})
	}

	took := time.Since(start)
	o.logger().Info("keyword evaluated",
		zap.String("keyword", keyword),
		zap.Bool("found", verdict.Found),
		zap.Int("position", verdict.PositionOr(0)),
		zap.Float64("confidence", verdict.Confidence),
		zap.String("match_type", string(verdict.MatchType)),
		zap.Int("total_results", len(results)),
		zap.Duration("took", took),
	)
	if o.Recorder != nil {
		o.Recorder.EvaluationDone(verdict.Found, verdict.MatchType, took)
	}

	return domain.Evaluation{
		Success:      true,
		Keyword:      keyword,
		Found:        verdict.Found,
		Position:     verdict.Position,
		Confidence:   verdict.Confidence,
		MatchType:    verdict.MatchType,
		MatchedWords: verdict.MatchedWords,
		TotalWords:   verdict.TotalWords,
		TotalResults: len(results),
	}, nil
}
