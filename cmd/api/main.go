package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/caselight/retrieval/internal/adapters/http"
	"github.com/caselight/retrieval/internal/bootstrap"
	"github.com/caselight/retrieval/internal/config"
	"github.com/caselight/retrieval/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("retrieval-api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(app.Retriever, app.Descriptors, httpadapter.Limits{
		DefaultLimit:     cfg.DefaultLimit,
		MaxLimit:         cfg.MaxLimit,
		MaxContextWindow: cfg.MaxContextWindow,
	}, app.Metrics.Handler()).Handler()

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      app.Metrics.Middleware("retrieval-api", router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_error", "error", err)
	}
}
