package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/repolens-hq/repolens/internal/analysis"
	"github.com/repolens-hq/repolens/internal/api"
	"github.com/repolens-hq/repolens/internal/cache"
	"github.com/repolens-hq/repolens/internal/config"
	"github.com/repolens-hq/repolens/internal/parser"
	"github.com/repolens-hq/repolens/internal/repo"
)

// pipelineAnalyzer adapts the clone-and-analyze pipeline to the API.
type pipelineAnalyzer struct {
	pipeline *analysis.Pipeline
	defaults *config.Config
}

func (a *pipelineAnalyzer) Analyze(ctx context.Context, req api.AnalyzeRequest) (interface{}, error) {
	maxFiles := req.MaxFiles
	if maxFiles <= 0 {
		maxFiles = a.defaults.MaxFiles
	}
	return a.pipeline.Run(ctx, req.RepositoryURL, req.Branch, analysis.Options{
		MaxFiles:     maxFiles,
		Pattern:      req.Pattern,
		MaxDepth:     a.defaults.MaxDepth,
		UseCache:     req.UseCache,
		RefreshClone: req.RefreshClone,
	})
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	analysisCfg := config.DefaultAnalysisConfig()
	analysisCache := cache.New(cfg.CacheType, cfg.CacheMaxSize, cfg.CacheTTL)
	defer analysisCache.Close()
	factory := parser.NewFactory()
	analyzer := analysis.NewAnalyzer(
		factory,
		repo.FS{ExcludeDirs: analysisCfg.Exclude},
		analysisCache,
		analysisCfg,
	)
	pipeline := analysis.NewPipeline(repo.NewService(cfg.CloneDir, cfg.GitHubToken), analyzer)

	srv, err := api.NewServer(cfg, factory, &pipelineAnalyzer{pipeline: pipeline, defaults: cfg})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			log.Fatal().Err(err).Msg("could not gracefully shutdown the server")
		}
		close(done)
	}()

	log.Info().Int("port", cfg.Port).Msg("starting API server")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("could not listen on port")
	}

	<-done
	log.Info().Msg("server stopped")
}
