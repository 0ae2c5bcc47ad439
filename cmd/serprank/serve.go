package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"serp-rank/rank"
	"serp-rank/rank/infra"
)

// janitorEvery é o intervalo de limpeza dos baldes ociosos.
const janitorEvery = 2 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the message interface over HTTP",
	Long: `Serve POST /v1/message, GET /healthz and GET /metrics.

Examples:
  # Evaluate against a saved results page by default
  serprank serve --page ./serp.html

  # Persist history in SQLite
  SERPRANK_STORAGE_BACKEND=sqlite serprank serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	adm := rank.AdmissionOptions{
		AcquireTimeout:      cfg.Throttle.ConcurrencyTimeout,
		RetryAfter:          cfg.Throttle.RetryAfter,
		KeyHeader:           cfg.Throttle.KeyHeader,
		TrustXForwardedFor:  cfg.Throttle.TrustXFF,
		AddRateLimitHeaders: cfg.Throttle.AddHeaders,
		Recorder:            a.recorder,
		Logger:              a.log.Named("admission"),
	}
	if cfg.Throttle.Enabled {
		clients := infra.NewTokenBuckets(cfg.Throttle.RPS, cfg.Throttle.Burst)
		clients.StartJanitor(ctx, janitorEvery)
		adm.Clients = clients
		if cfg.Throttle.KeywordRPS > 0 {
			keywords := infra.NewTokenBuckets(cfg.Throttle.KeywordRPS, cfg.Throttle.KeywordBurst)
			keywords.StartJanitor(ctx, janitorEvery)
			adm.Keywords = keywords
		}
	}
	if cfg.Throttle.ConcurrencyMax > 0 {
		slots := infra.NewEvaluationSlots(cfg.Throttle.ConcurrencyMax)
		a.recorder.TrackInFlight(slots.InFlight)
		adm.Slots = slots
	}

	h := rank.NewRouter(rank.RouterOptions{
		Dispatcher:   a.dispatcher,
		Admission:    adm,
		Gatherer:     a.registry,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       a.log.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	a.log.Info("serprank listening",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("history_cap", a.history.Cap()),
		zap.String("page", cfg.Extractor.Page),
	)
	a.log.Info("throttle",
		zap.Bool("enabled", cfg.Throttle.Enabled),
		zap.Float64("rps", cfg.Throttle.RPS),
		zap.Int("burst", cfg.Throttle.Burst),
		zap.Float64("keyword_rps", cfg.Throttle.KeywordRPS),
		zap.Int("keyword_burst", cfg.Throttle.KeywordBurst),
		zap.String("key_header", cfg.Throttle.KeyHeader),
		zap.Bool("trust_xff", cfg.Throttle.TrustXFF),
		zap.Int("concurrency_max", cfg.Throttle.ConcurrencyMax),
		zap.Duration("concurrency_timeout", cfg.Throttle.ConcurrencyTimeout),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
