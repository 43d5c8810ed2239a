package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sunto-go/internal/api"
	"sunto-go/internal/completion"
	"sunto-go/internal/config"
	"sunto-go/internal/logger"
	"sunto-go/internal/processor"
	"sunto-go/internal/transcription"
	"sunto-go/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
		File:        cfg.LogFile,
	})
	log = &logger.Logger{Entry: log.WithField("service", "sunto-go")}
	log.WithField("env", cfg.Environment).Info("starting service")

	// Missing keys are reported per request, not at startup.
	if cfg.AssemblyAI.APIKey == "" {
		log.Warn("transcription provider key not set")
	}
	if cfg.OpenAI.APIKey == "" {
		log.Warn("completion provider key not set")
	}

	stt := transcription.NewClient(transcription.ClientOptions{
		BaseURL:       cfg.AssemblyAI.BaseURL,
		APIKey:        cfg.AssemblyAI.APIKey,
		Retries:       cfg.ProviderRetries,
		Timeout:       cfg.HTTPTimeout,
		UploadTimeout: cfg.UploadTimeout,
		Logger:        log,
	})
	poller := transcription.NewPoller(cfg.Polling.Interval, cfg.Polling.MaxAttempts, log)
	pipeline := transcription.NewPipeline(stt, cfg.Limits, poller, log)

	llm := completion.NewClient(completion.Options{
		BaseURL: cfg.OpenAI.BaseURL,
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		Timeout: cfg.HTTPTimeout,
		Logger:  log,
	})

	handler := api.NewHandler(api.Deps{
		Ingester:  processor.New(pipeline, cfg.Limits, log),
		Completer: llm,
		Workflows: workflow.NewRunner(llm, log),
		Limits:    cfg.Limits,
		Logger:    log,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	// No write timeout: a media request may poll for up to
	// Interval*MaxAttempts before answering.
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}
