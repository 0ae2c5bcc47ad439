// Exemplo: embutindo a interface de mensagens num webserver próprio, sem o
// binário serprank, com extrator estático e histórico em memória.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"serp-rank/rank"
	"serp-rank/rank/application"
	"serp-rank/rank/domain"
	"serp-rank/rank/infra"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clients := infra.NewTokenBuckets(5, 10)
	clients.StartJanitor(ctx, time.Minute)

	coord := application.NewCoordinator(application.WithLogger(log))
	history := application.NewHistoryStore(application.WithHistoryKV(infra.NewMemoryKV()), application.WithHistoryLogger(log))
	d := &rank.Dispatcher{
		Orchestrator: &application.Orchestrator{
			Extractor: infra.StaticExtractor{Records: []domain.ResultRecord{
				{Title: "Go by Example", URL: "https://gobyexample.com", Description: "Hands-on introduction to Go"},
				{Title: "Effective Go", URL: "https://go.dev/doc/effective_go", Description: "Tips for writing clear, idiomatic Go code"},
			}},
			Matcher: application.NewMatcher(application.DefaultMatcherConfig()),
			History: history,
			Guard:   coord,
			Logger:  log,
		},
		History:   history,
		Errors:    coord,
		Selectors: infra.DefaultSelectors(),
		Logger:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/v1/", rank.NewRouter(rank.RouterOptions{
		Dispatcher: d,
		Admission: rank.AdmissionOptions{
			Clients:             clients,
			// a mesma keyword no máximo uma vez a cada 10s por cliente
			Keywords:            infra.NewTokenBuckets(0.1, 1),
			MaxConcurrent:       50,
			KeyHeader:           "X-Api-Key", // ou vazio para usar IP
			TrustXForwardedFor:  true,
			AddRateLimitHeaders: true,
		},
		Logger: log,
	}))

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("example server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
}
