// Command voicediag runs the voice diagnostic service: audio upload
// and normalization, DSP feature extraction, quality scoring, frozen
// classification, session persistence, async narrative enrichment and
// per-user live push.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skillsenselab/voicediag/audio"
	"github.com/skillsenselab/voicediag/classifier"
	"github.com/skillsenselab/voicediag/config"
	"github.com/skillsenselab/voicediag/dsp"
	"github.com/skillsenselab/voicediag/enrich"
	"github.com/skillsenselab/voicediag/livechan"
	"github.com/skillsenselab/voicediag/llm"
	"github.com/skillsenselab/voicediag/logger"
	"github.com/skillsenselab/voicediag/observability"
	"github.com/skillsenselab/voicediag/quality"
	"github.com/skillsenselab/voicediag/server"
	"github.com/skillsenselab/voicediag/session"
	"github.com/skillsenselab/voicediag/storage"
	"github.com/skillsenselab/voicediag/version"
)

const serviceName = "voicediag"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := &config.Config{}
	if err := config.Load(serviceName, cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyDefaults()
	if cfg.Version == "" {
		cfg.Version = version.Get().Short()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	log := logger.New(&cfg.Logging, cfg.Name)
	logger.SetGlobalLogger(log)
	log.Info("starting service", logger.Fields(
		"version", cfg.Version,
		"environment", cfg.Environment,
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			SampleRate:     cfg.Tracing.SampleRate,
		})
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			tp.Shutdown(shutdownCtx) //nolint:errcheck
		}()
	}

	var metrics *observability.PipelineMetrics
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, observability.MeterConfig{
			ServiceName:    cfg.Name,
			ServiceVersion: cfg.Version,
			Environment:    cfg.Environment,
			Endpoint:       cfg.Metrics.Endpoint,
			Insecure:       cfg.Metrics.Insecure,
			Interval:       cfg.Metrics.Interval,
		})
		if err != nil {
			return fmt.Errorf("init meter: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			mp.Shutdown(shutdownCtx) //nolint:errcheck
		}()
		metrics, err = observability.NewPipelineMetrics(observability.Meter(cfg.Name))
		if err != nil {
			return fmt.Errorf("init pipeline metrics: %w", err)
		}
	}

	artifacts, err := storage.NewLocal(cfg.Storage.BasePath)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	store, err := session.NewStore(cfg.Database.Path, log)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}

	// The frozen model loads once at startup. A broken artifact is a
	// deployment error and stops the process here rather than failing
	// every classification later.
	model := classifier.NewHandle(cfg.Classifier.ArtifactPath, log)
	if err := model.Load(); err != nil {
		return fmt.Errorf("load classifier artifact: %w", err)
	}

	analyzer := dsp.NewAnalyzer(dsp.DefaultConfig(), log)
	scorer := quality.NewScorer(analyzer, log)
	normalizer := audio.NewNormalizer(audio.NormalizerOptions{
		Binary:      cfg.FFmpeg.Binary,
		Timeout:     cfg.FFmpeg.Timeout,
		GracePeriod: cfg.FFmpeg.GracePeriod,
		Logger:      log,
	})

	registry := livechan.NewRegistry(log)
	llmClient := llm.New(llm.Options{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	})
	enrichment := enrich.NewQueue(store, llmClient, registry, enrich.Options{
		QueueSize:      cfg.Enrichment.QueueSize,
		HistoryLimit:   cfg.Enrichment.HistoryLimit,
		MaxAttempts:    cfg.Enrichment.MaxAttempts,
		InitialBackoff: cfg.Enrichment.InitialBackoff,
		Metrics:        metrics,
		Logger:         log,
	})
	enrichment.Start()

	service := session.NewService(store, artifacts, normalizer, analyzer, scorer,
		model, enrichment, metrics, log)

	healthFn := func() *observability.ServiceHealth {
		sh := observability.NewServiceHealth(cfg.Name, cfg.Version)
		sh.AddComponent(store.CheckHealth(context.Background()))
		sh.AddComponent(model.CheckHealth())
		sh.AddComponent(normalizer.CheckHealth())
		return sh
	}

	srv := server.New(cfg.Server, log)
	engine := srv.GinEngine()
	engine.Use(
		server.RequestID(),
		server.Recovery(log),
		server.RequestLogger(log),
		server.CORS(cfg.Server.AllowedOrigins),
		server.BodySizeLimit(cfg.Server.MaxUploadBytes),
	)

	authMW := server.HeaderIdentity()
	if cfg.Auth.Enabled {
		authMW = server.JWTAuth(cfg.Auth.JWTSecret, nil)
	}

	handlers := server.NewHandlers(service, store, enrichment, registry, healthFn, log)
	handlers.Register(engine, authMW)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("server shutdown failed", logger.Fields(logger.FieldError, err.Error()))
	}
	enrichment.Stop(shutdownCtx)

	log.Info("service stopped")
	return nil
}
