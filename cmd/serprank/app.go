package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"serp-rank/internal/config"
	"serp-rank/internal/logging"
	"serp-rank/rank"
	"serp-rank/rank/application"
	"serp-rank/rank/domain"
	"serp-rank/rank/infra"
)

// app reúne os componentes montados a partir da configuração.
type app struct {
	cfg        *config.Config
	log        *zap.Logger
	registry   *prometheus.Registry
	recorder   *infra.PromRecorder
	coord      *application.Coordinator
	history    *application.HistoryStore
	dispatcher *rank.Dispatcher

	closers []func() error
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, log, pagePath)
}

func newApp(ctx context.Context, cfg *config.Config, log *zap.Logger, page string) (*app, error) {
	a := &app{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	kv, err := a.openKV(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	rec := infra.NewPromRecorder(a.registry)
	a.recorder = rec
	coordOpts := []application.CoordinatorOption{
		application.WithLogger(log.Named("errors")),
		application.WithRecorder(rec),
		application.WithBaseDelay(cfg.Retry.BaseDelay),
	}
	if cfg.Storage.MirrorErrors {
		coordOpts = append(coordOpts, application.WithErrorMirror(kv))
	}
	a.coord = application.NewCoordinator(coordOpts...)
	if err := a.coord.Load(ctx); err != nil {
		log.Warn("error log restore failed", zap.Error(err))
	}

	a.history = application.NewHistoryStore(
		application.WithHistoryCap(cfg.History.MaxEntries),
		application.WithHistoryKV(kv),
		application.WithHistorySettings(domain.Settings{Enabled: cfg.History.Enabled, AutoSave: cfg.History.AutoSave}),
		application.WithHistoryLogger(log.Named("history")),
	)
	if err := a.history.Load(ctx); err != nil {
		log.Warn("history restore failed", zap.Error(err))
	}

	if page == "" {
		page = cfg.Extractor.Page
	}
	var ex domain.Extractor
	if page != "" {
		ex = application.RetryExtractor{
			Next:          infra.NewHTMLExtractor(infra.PageAt(page), infra.WithSelectors(cfg.Extractor.Selectors())),
			Coordinator:   a.coord,
			MaxRetries:    cfg.Retry.MaxRetries,
			TransientOnly: true,
		}
	}

	orch := &application.Orchestrator{
		Extractor: ex,
		Matcher: application.NewMatcher(application.MatcherConfig{
			MatchThreshold: cfg.Matcher.MatchThreshold,
			TokenThreshold: cfg.Matcher.TokenThreshold,
			FuzzyThreshold: cfg.Matcher.FuzzyThreshold,
			Selection:      application.Selection(cfg.Matcher.Selection),
		}),
		History:  a.history,
		Guard:    a.coord,
		Recorder: rec,
		Logger:   log.Named("orchestrator"),
	}
	a.dispatcher = &rank.Dispatcher{
		Orchestrator: orch,
		History:      a.history,
		Errors:       a.coord,
		Selectors:    cfg.Extractor.Selectors(),
		Logger:       log.Named("dispatcher"),
	}
	return a, nil
}

func (a *app) openKV(ctx context.Context) (domain.KV, error) {
	s := a.cfg.Storage
	switch s.Backend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     s.RedisAddr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		a.closers = append(a.closers, rdb.Close)

		kv := infra.NewRedisKV(rdb, infra.WithKVPrefix(s.RedisPrefix), infra.WithKVTTL(s.RedisTTL))
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := kv.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("redis ping error: %w", err)
		}
		return kv, nil

	case config.BackendSQLite:
		kv, err := infra.OpenSQLiteKV(ctx, s.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		return kv, nil

	default:
		return infra.NewMemoryKV(), nil
	}
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	if a.log != nil {
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}
