// Package app assembles a core.Service from configuration. Both the HTTP
// server and the command line tool start here.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/JonMunkholm/tablegen/internal/artifact"
	"github.com/JonMunkholm/tablegen/internal/config"
	"github.com/JonMunkholm/tablegen/internal/core"
	"github.com/JonMunkholm/tablegen/internal/engine"
	"github.com/JonMunkholm/tablegen/internal/history"
	"github.com/JonMunkholm/tablegen/internal/logging"
)

// App is a configured service plus the resources it holds open.
type App struct {
	Service *core.Service
	closers []io.Closer
}

// New wires the artifact store, run history and engines selected by cfg.
// Engines that are not configured stay nil; their pipelines then fail with
// a configuration error instead of at startup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	logger := logging.FromContext(ctx)

	store, err := NewArtifactStore(cfg.Artifact)
	if err != nil {
		return nil, err
	}

	hist, err := a.openHistory(ctx, cfg.History)
	if err != nil {
		return nil, err
	}

	deps := core.Dependencies{
		Artifacts: store,
		History:   hist,
	}

	if args := cfg.Generator.GeneratorArgs(); args != nil {
		deps.Completer = &engine.Ollama{
			Command: args,
			Model:   cfg.Generator.Model,
			Timeout: cfg.Generator.Timeout,
		}
		logger.Info("text generator configured", "command", args[0], "model", cfg.Generator.Model)
	}

	if args := cfg.Synth.SynthArgs(); args != nil {
		p := &engine.Process{
			Command: args,
			WorkDir: cfg.Synth.WorkDir,
			Epochs:  cfg.Synth.Epochs,
		}
		deps.Single = engine.NewSingle(p)
		deps.Relational = engine.NewRelational(p)
		logger.Info("synthesizer configured", "command", args[0], "work_dir", cfg.Synth.WorkDir)
	} else {
		logger.Warn("SYNTH_COMMAND not set, synthesis disabled")
	}

	svc, err := core.NewService(ServiceConfig(cfg), deps)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

// ServiceConfig maps the environment configuration onto pipeline settings.
func ServiceConfig(cfg *config.Config) core.ServiceConfig {
	sc := core.DefaultServiceConfig()
	sc.DefaultRows = cfg.Synth.DefaultRows
	sc.MaxRows = cfg.Synth.MaxRows
	sc.MaxTextLen = cfg.Synth.MaxTextLen
	sc.MinTextLen = cfg.Synth.MinTextLen
	sc.MaxConcurrentRuns = cfg.Synth.MaxConcurrent
	sc.RunWait = cfg.Synth.MaxWaitTime
	if f, err := core.ParseFormat(cfg.Generator.Format, core.FormatXLSX); err == nil {
		sc.GeneratedFormat = f
	}
	return sc
}

// NewArtifactStore returns the disk or S3 store named by cfg.Backend.
func NewArtifactStore(cfg config.ArtifactConfig) (core.ArtifactStore, error) {
	switch cfg.Backend {
	case "", "disk":
		store, err := artifact.NewDiskStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := artifact.NewS3Store(artifact.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}

func (a *App) openHistory(ctx context.Context, cfg config.HistoryConfig) (core.HistoryStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return core.NewMemoryHistory(cfg.MemoryCapacity), nil
	case "sqlite":
		db, err := history.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		return db, nil
	case "postgres":
		db, err := history.OpenPostgres(ctx, history.PostgresConfig{
			URL:             cfg.DatabaseURL,
			MaxConns:        int32(cfg.MaxConns),
			MinConns:        int32(cfg.MinConns),
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
			ConnectRetries:  uint64(cfg.ConnectRetries),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db)
		return db, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}

// Close releases database connections.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
