// Package ingest runs connectors on their cadences and persists what they
// fetch: measures, vote events, official votes, and the run bookkeeping
// around them.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/civicsignal/civicsync/internal/canonical"
	"github.com/civicsignal/civicsync/internal/config"
	"github.com/civicsignal/civicsync/internal/connector"
	"github.com/civicsignal/civicsync/internal/model"
	"github.com/civicsignal/civicsync/internal/store"
	"github.com/civicsignal/civicsync/pkg/divisions"
	"github.com/civicsignal/civicsync/pkg/summarize"
)

// Store is the persistence surface the engine drives.
type Store interface {
	canonical.MeasureLister
	canonical.OfficialStore

	TryConnectorLock(ctx context.Context, connector string) (release func(), acquired bool, err error)
	StartRun(ctx context.Context, connector string) (*model.IngestionRun, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error
	LastSuccessfulRun(ctx context.Context, connector string) (*time.Time, error)
	SaveCursor(ctx context.Context, connector string, cursor []byte) error
	LoadCursor(ctx context.Context, connector string) ([]byte, error)

	GetMeasure(ctx context.Context, source model.SourceSystem, externalID string) (*model.Measure, error)
	UpsertMeasure(ctx context.Context, m *model.Measure) (store.UpsertOutcome, error)
	ReplaceMeasureSources(ctx context.Context, measureID string, sources []model.MeasureSource) error
	UpsertVoteEvent(ctx context.Context, ev *model.VoteEvent) (string, error)
	UpsertOfficialVote(ctx context.Context, v *model.OfficialVote) (bool, error)
	ListUserVotes(ctx context.Context, measureID string) ([]model.UserVote, error)
	EnqueueRecompute(ctx context.Context, measureID string) error
}

// Summarizer generates plain-language summaries. Nil results mean
// summarization is disabled or there was nothing to summarize.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (*summarize.Result, error)
}

// Engine schedules and executes connector runs.
type Engine struct {
	store      Store
	registry   *connector.Registry
	deps       *connector.Deps
	resolver   *canonical.Resolver
	summarizer Summarizer
	cfg        config.IngestConfig
	logger     *zap.Logger
}

// New creates an ingestion engine. summarizer may be nil.
func New(st Store, reg *connector.Registry, deps *connector.Deps, res *canonical.Resolver, sum Summarizer, cfg config.IngestConfig) *Engine {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.L()
		deps.Logger = logger
	}
	return &Engine{
		store:      st,
		registry:   reg,
		deps:       deps,
		resolver:   res,
		summarizer: sum,
		cfg:        cfg,
		logger:     logger,
	}
}

// RunDue executes every named connector whose cadence has elapsed, or all
// registered connectors when names is empty. force runs them regardless of
// cadence. Connectors run concurrently up to the configured limit; a
// connector whose lock is held elsewhere is skipped, not failed.
func (e *Engine) RunDue(ctx context.Context, names []string, force bool) ([]*model.IngestionRun, error) {
	conns, err := e.registry.Select(names)
	if err != nil {
		return nil, err
	}

	var (
		mu   sync.Mutex
		runs []*model.IngestionRun
	)
	var g errgroup.Group
	g.SetLimit(e.cfg.MaxConcurrent)

	for _, c := range conns {
		c := c
		g.Go(func() error {
			if !force {
				due, err := e.isDue(ctx, c)
				if err != nil {
					return err
				}
				if !due {
					e.logger.Debug("connector not due", zap.String("connector", c.Name()))
					return nil
				}
			}
			run, err := e.RunConnector(ctx, c)
			if run != nil {
				mu.Lock()
				runs = append(runs, run)
				mu.Unlock()
			}
			return err
		})
	}
	err = g.Wait()
	return runs, err
}

func (e *Engine) isDue(ctx context.Context, c connector.Connector) (bool, error) {
	last, err := e.store.LastSuccessfulRun(ctx, c.Name())
	if err != nil {
		return false, err
	}
	return last == nil || time.Since(*last) >= c.Interval(), nil
}

// RunConnector executes one full sweep of one connector under its advisory
// lock. Returns (nil, nil) when another run already holds the lock.
func (e *Engine) RunConnector(ctx context.Context, c connector.Connector) (*model.IngestionRun, error) {
	release, acquired, err := e.store.TryConnectorLock(ctx, c.Name())
	if err != nil {
		return nil, err
	}
	if !acquired {
		e.logger.Info("connector already running elsewhere, skipping",
			zap.String("connector", c.Name()))
		return nil, nil
	}
	defer release()

	run, err := e.store.StartRun(ctx, c.Name())
	if err != nil {
		return nil, err
	}
	e.logger.Info("connector run started",
		zap.String("connector", c.Name()),
		zap.String("run_id", run.ID),
	)

	stats, runErr := e.sweep(ctx, c)
	run.Stats = stats

	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
		if err := e.store.FinishRun(ctx, run.ID, model.RunStatusFailed, stats, run.Error); err != nil {
			e.logger.Error("recording failed run", zap.Error(err))
		}
		e.logger.Error("connector run failed",
			zap.String("connector", c.Name()),
			zap.String("run_id", run.ID),
			zap.Error(runErr),
		)
		return run, runErr
	}

	run.Status = model.RunStatusSucceeded
	if err := e.store.FinishRun(ctx, run.ID, model.RunStatusSucceeded, stats, ""); err != nil {
		return run, err
	}
	e.logger.Info("connector run succeeded",
		zap.String("connector", c.Name()),
		zap.Int("fetched", stats.Fetched),
		zap.Int("new", stats.NewMeasures),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped),
		zap.Int("vote_events", stats.VoteEvents),
	)
	return run, nil
}

// sweep pages through the connector until the cursor is exhausted. Every
// page is persisted and its cursor saved before the next fetch, so a killed
// run resumes where it stopped.
func (e *Engine) sweep(ctx context.Context, c connector.Connector) (model.RunStats, error) {
	var stats model.RunStats

	cursor, err := e.store.LoadCursor(ctx, c.Name())
	if err != nil {
		return stats, err
	}

	for {
		res, err := c.Fetch(ctx, e.deps, cursor)
		if err != nil {
			return stats, err
		}
		stats.Fetched += len(res.Candidates)
		stats.Skipped += res.Skipped
		stats.Attempts += res.Attempts
		stats.Artifacts += res.Artifacts

		for i := range res.Candidates {
			if err := e.persistCandidate(ctx, &res.Candidates[i], &stats); err != nil {
				return stats, err
			}
		}

		if res.NextCursor == nil {
			if err := e.store.SaveCursor(ctx, c.Name(), res.Checkpoint); err != nil {
				return stats, err
			}
			return stats, nil
		}
		if err := e.store.SaveCursor(ctx, c.Name(), res.NextCursor); err != nil {
			return stats, err
		}
		cursor = res.NextCursor
	}
}

// persistCandidate upserts one candidate measure and everything hanging off
// it. Changed official votes on a measure with user votes queue an alignment
// recompute.
func (e *Engine) persistCandidate(ctx context.Context, cand *model.Candidate, stats *model.RunStats) error {
	ownKey := canonical.OwnKey(cand.Jurisdiction, cand.ExternalID)
	key, err := e.resolver.ResolveMeasureKey(ctx, cand, ownKey)
	if err != nil {
		return err
	}

	m := &model.Measure{
		Source:       cand.Source,
		ExternalID:   cand.ExternalID,
		Title:        cand.Title,
		Level:        cand.Level,
		Jurisdiction: cand.Jurisdiction,
		Body:         cand.Body,
		Status:       cand.Status,
		IntroducedAt: cand.IntroducedAt,
		ScheduledFor: cand.ScheduledFor,
		TopicTags:    cand.TopicTags,
		CanonicalKey: key,
		SourceURL:    cand.SourceURL,
	}

	existing, err := e.store.GetMeasure(ctx, cand.Source, cand.ExternalID)
	if err != nil {
		return err
	}
	if existing != nil {
		// Enrichments survive re-ingestion; the source payload never
		// carries them.
		m.SummaryShort = existing.SummaryShort
		m.SummaryLong = existing.SummaryLong
		m.DivisionID = existing.DivisionID
	}
	if m.DivisionID == nil {
		if div := divisions.DivisionForJurisdiction(cand.Jurisdiction); div != "" {
			m.DivisionID = &div
		}
	}
	if m.SummaryShort == "" && e.summarizer != nil && cand.FullText != "" {
		if res, err := e.summarizer.Summarize(ctx, cand.Title, cand.FullText); err != nil {
			// Summaries are best-effort; the measure lands without one.
			e.logger.Warn("summarization failed",
				zap.String("external_id", cand.ExternalID), zap.Error(err))
		} else if res != nil {
			m.SummaryShort = res.Short
			m.SummaryLong = res.Long
			if len(m.TopicTags) == 0 {
				m.TopicTags = res.Topics
			}
		}
	}

	outcome, err := e.store.UpsertMeasure(ctx, m)
	if err != nil {
		return err
	}
	switch outcome {
	case store.OutcomeCreated:
		stats.NewMeasures++
	case store.OutcomeUpdated:
		stats.Updated++
	}

	if len(cand.SourceLinks) > 0 {
		if err := e.store.ReplaceMeasureSources(ctx, m.ID, cand.SourceLinks); err != nil {
			return err
		}
	}

	votesChanged := false
	for i := range cand.VoteEvents {
		changed, err := e.persistVoteEvent(ctx, m.ID, &cand.VoteEvents[i], stats)
		if err != nil {
			return err
		}
		votesChanged = votesChanged || changed
	}

	if votesChanged {
		userVotes, err := e.store.ListUserVotes(ctx, m.ID)
		if err != nil {
			return err
		}
		if len(userVotes) > 0 {
			if err := e.store.EnqueueRecompute(ctx, m.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) persistVoteEvent(ctx context.Context, measureID string, cev *model.CandidateVoteEvent, stats *model.RunStats) (bool, error) {
	ev := &model.VoteEvent{
		MeasureID: measureID,
		Body:      cev.Body,
		HeldAt:    cev.HeldAt,
		Result:    cev.Result,
	}
	if cev.ExternalID != "" {
		id := cev.ExternalID
		ev.ExternalID = &id
	}
	evID, err := e.store.UpsertVoteEvent(ctx, ev)
	if err != nil {
		return false, err
	}
	stats.VoteEvents++

	changed := false
	for i := range cev.Positions {
		pos := &cev.Positions[i]
		official, err := canonical.ResolveOfficial(ctx, e.store, pos)
		if err != nil {
			return changed, err
		}
		posChanged, err := e.store.UpsertOfficialVote(ctx, &model.OfficialVote{
			VoteEventID: evID,
			OfficialID:  official.ID,
			Position:    pos.Position,
		})
		if err != nil {
			return changed, err
		}
		if posChanged {
			stats.OfficialVotes++
			changed = true
		}
	}
	return changed, nil
}

// Run ticks forever, starting due connectors each interval, until the
// context is canceled.
func (e *Engine) Run(ctx context.Context) error {
	tick := e.cfg.TickInterval
	if tick <= 0 {
		tick = time.Minute
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		if _, err := e.RunDue(ctx, nil, false); err != nil {
			e.logger.Error("scheduled ingestion tick", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "ingest: scheduler stopped")
		case <-ticker.C:
		}
	}
}
