package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/align"
	"github.com/civicsignal/civicsync/internal/artifact"
	"github.com/civicsignal/civicsync/internal/canonical"
	"github.com/civicsignal/civicsync/internal/connector"
	"github.com/civicsignal/civicsync/internal/fetcher"
	"github.com/civicsignal/civicsync/internal/ingest"
	"github.com/civicsignal/civicsync/internal/store"
	"github.com/civicsignal/civicsync/pkg/divisions"
	"github.com/civicsignal/civicsync/pkg/summarize"
)

// env holds the wired application for commands that run the engines.
type env struct {
	Store    *store.PostgresStore
	Registry *connector.Registry
	Ingest   *ingest.Engine
	Align    *align.Engine
	Reps     *align.RepresentativeService
}

func (e *env) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("closing store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (*store.PostgresStore, error) {
	st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent: cfg.Congress.UserAgent,
		Retry:     cfg.Ingest.RetryConfig(),
	})
	archive := artifact.New(cfg.Artifacts.Dir, st)
	deps := &connector.Deps{
		Fetcher: f,
		Archive: archive,
		Logger:  zap.L(),
	}

	registry := connector.NewRegistry(cfg)
	resolver := canonical.NewResolver(st, cfg.Canonical.SimilarityThreshold)

	var summarizer ingest.Summarizer
	if c := summarize.New(cfg.Summarize); c != nil {
		summarizer = c
	}

	var civic divisions.Client
	if cfg.Civic.Key != "" {
		opts := []divisions.Option{}
		if cfg.Civic.BaseURL != "" {
			opts = append(opts, divisions.WithBaseURL(cfg.Civic.BaseURL))
		}
		if cfg.Civic.CacheTTL > 0 {
			opts = append(opts, divisions.WithCacheTTL(cfg.Civic.CacheTTL))
		}
		civic = divisions.NewClient(cfg.Civic.Key, opts...)
	}
	reps := align.NewRepresentativeService(st, civic)

	return &env{
		Store:    st,
		Registry: registry,
		Ingest:   ingest.New(st, registry, deps, resolver, summarizer, cfg.Ingest),
		Align:    align.NewEngine(st, reps),
		Reps:     reps,
	}, nil
}
