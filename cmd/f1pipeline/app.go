package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourusername/f1-winner/internal/database"
	"github.com/yourusername/f1-winner/internal/datasource"
	"github.com/yourusername/f1-winner/internal/features"
	"github.com/yourusername/f1-winner/internal/forecast"
	"github.com/yourusername/f1-winner/internal/ml"
	"github.com/yourusername/f1-winner/internal/models"
	"github.com/yourusername/f1-winner/internal/pipeline"
	"github.com/yourusername/f1-winner/internal/repository"
	"github.com/yourusername/f1-winner/internal/service"
	"github.com/yourusername/f1-winner/internal/training"
)

// app holds the wired components for one command invocation
type app struct {
	db         *database.DB
	repos      *repository.Repositories
	loader     *ml.Loader
	builder    *features.Builder
	assembler  *training.Assembler
	trainer    *ml.Trainer
	forecaster *forecast.Service
}

// openApp opens the store and wires every stage. The caller must call close.
func openApp(ctx context.Context) (*app, error) {
	a := &app{}
	if useMemory {
		a.repos = repository.NewMemoryRepositories(repository.NewMemoryStore())
		appLog.Warn("Using in-memory store, results are discarded on exit")
	} else {
		db, err := database.Initialize(ctx, cfg, appLog)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		repos, err := repository.NewRepositories(db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize repositories: %w", err)
		}
		a.db = db
		a.repos = repos
	}

	store, err := ml.NewFileArtifactStore(cfg.Training.ArtifactDir)
	if err != nil {
		a.close()
		return nil, err
	}
	a.loader = ml.NewLoader(store, cfg.Training.CacheTTL(), appLog)
	a.builder = features.NewBuilder(a.repos.SessionResult, a.repos.Feature, features.OptionsFromConfig(cfg.Features), appLog)
	a.assembler = training.NewAssembler(a.repos, appLog)
	a.trainer = ml.NewTrainer(a.repos, store, a.loader, ml.TrainOptionsFromConfig(cfg.Training), appLog)
	a.forecaster = forecast.NewService(a.repos, a.builder, a.loader, forecast.OptionsFromConfig(cfg.Forecast, cfg.Training), appLog)
	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// ingestion builds the ingestion service for the configured data source
func (a *app) ingestion() (*service.IngestionService, error) {
	httpClient := datasource.NewHTTPClientFromConfig(cfg.DataSource, appLog)
	source, err := datasource.NewDataSource(cfg.DataSource, httpClient, appLog)
	if err != nil {
		return nil, err
	}
	kinds := make([]models.SessionKind, 0, len(cfg.DataSource.Sessions))
	for _, s := range cfg.DataSource.Sessions {
		kind, ok := models.ParseSessionKind(s)
		if !ok {
			return nil, fmt.Errorf("unknown session kind %q", s)
		}
		kinds = append(kinds, kind)
	}
	return service.NewIngestionService(source, a.repos, kinds, appLog), nil
}

// runner wires the pipeline. Ingestion is left out when withIngest is false.
func (a *app) runner(withIngest bool) (*pipeline.Runner, error) {
	c := pipeline.Components{
		Builder:    a.builder,
		Assembler:  a.assembler,
		Trainer:    a.trainer,
		Forecaster: a.forecaster,
	}
	if withIngest {
		ing, err := a.ingestion()
		if err != nil {
			return nil, err
		}
		c.Ingester = ing
	}
	return pipeline.NewRunner(a.repos, c, appLog), nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
