package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cartvoice/backend/config"
	httpDelivery "github.com/cartvoice/backend/internal/delivery/http"
	"github.com/cartvoice/backend/internal/domain"
	"github.com/cartvoice/backend/internal/infrastructure/cache"
	"github.com/cartvoice/backend/internal/infrastructure/catalog"
	"github.com/cartvoice/backend/internal/infrastructure/groq"
	"github.com/cartvoice/backend/internal/infrastructure/liststore"
	"github.com/cartvoice/backend/internal/nlp"
	"github.com/cartvoice/backend/internal/recommend"
	"github.com/cartvoice/backend/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting cartvoice backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Reference catalog, immutable once loaded.
	cat, err := catalog.Load(cfg.Catalog.Path, logger)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	store, err := liststore.New(cfg.List.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open list store: %w", err)
	}
	defer store.Close()

	memCache := cache.NewMemory()
	defer memCache.Stop()

	// Groq is optional. Without a key the pipeline runs rules-only and
	// cold-start suggestion padding is disabled.
	var (
		fallback    domain.FallbackExtractor
		suggestions recommend.SuggestionSource
	)
	if cfg.Groq.APIKey != "" {
		client, err := groq.NewClient(groq.Config{
			APIKey:            cfg.Groq.APIKey,
			BaseURL:           cfg.Groq.BaseURL,
			Model:             cfg.Groq.Model,
			RequestsPerMinute: float64(cfg.Groq.RequestsPerMinute),
		}, logger)
		if err != nil {
			return fmt.Errorf("groq client: %w", err)
		}
		fallback = client
		suggestions = client
	} else {
		logger.Warn("groq api key not set, fallback extraction and cold-start suggestions disabled")
	}

	engine, err := recommend.NewEngine(
		cfg.Catalog.DataDir,
		cat,
		store,
		suggestions,
		memCache,
		recommend.EngineConfig{SuggestionsTTL: cfg.Cache.SuggestionsTTL},
		logger,
	)
	if err != nil {
		return fmt.Errorf("recommendation engine: %w", err)
	}

	pipeline := nlp.NewPipeline(
		nlp.NewNormalizer(logger),
		nlp.NewIntentClassifier(),
		nlp.NewEntityExtractor(cat, nlp.NewRuleTagger()),
		nlp.NewConfidenceScorer(cat),
		fallback,
		nlp.PipelineConfig{
			ConfidenceThreshold: cfg.NLP.ConfidenceThreshold,
			FallbackTimeout:     cfg.NLP.FallbackTimeout,
		},
		logger,
	)

	lists := usecase.NewListService(store, cat, usecase.ListServiceConfig{
		ListFuzzyThreshold: cfg.List.FuzzyThreshold,
	}, logger)
	storeSvc := usecase.NewStoreService(cat, engine, logger)
	resolver := usecase.NewCatalogResolver(cat, usecase.ResolverConfig{
		LooseCutoff:          cfg.Catalog.LooseCutoff,
		AutoCorrectThreshold: cfg.Catalog.AutoCorrectThreshold,
		MaxSuggestions:       cfg.Catalog.MaxSuggestions,
	}, logger)

	handler := httpDelivery.NewHandler(pipeline, lists, storeSvc, resolver, engine, cfg.List.DefaultUser, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// newLogger picks the zap preset for the environment. Production gets JSON
// output; everything else gets the human-readable development encoder.
func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
