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

	"github.com/joho/godotenv"

	"voice-memos-go/internal/api"
	"voice-memos-go/internal/config"
	"voice-memos-go/internal/extractor"
	"voice-memos-go/internal/logger"
	"voice-memos-go/internal/pipeline"
	"voice-memos-go/internal/processor"
	"voice-memos-go/internal/store"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "voice-memos-go").Info("starting service")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if cfg.OpenAIAPIKey == "" && !(cfg.UseMockTranscribe && cfg.UseMockLLM) {
		log.Warn("OPENAI_API_KEY is empty; API calls will fail")
	}

	st, err := store.Open(cfg.RecordingsDir, log.Entry)
	if err != nil {
		log.WithError(err).Fatal("failed to open recordings store")
	}
	log.WithField("metadata", st.Path()).Info("recordings store ready")

	deps := pipeline.Wire(cfg, log.Entry)
	llm := extractor.New(extractor.Config{
		APIKey:   cfg.OpenAIAPIKey,
		BaseURL:  cfg.OpenAIBaseURL,
		Model:    cfg.LLMModel,
		MaxRetry: cfg.LLMMaxRetry,
	}, cfg.UseMockLLM, log.Entry)
	proc := processor.New(deps.Pipeline, extractor.NewTitler(llm), st, log.Entry)

	srv := api.New(st, proc, extractor.NewSummarizer(llm), api.Config{
		UploadsDir:  cfg.UploadsDir,
		FrontendDir: cfg.FrontendDir,
	}, log)

	addr := fmt.Sprintf(":%s", cfg.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		// No write timeout: a large upload is transcribed before the
		// response is written.
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("addr", addr).Info("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server terminated")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
