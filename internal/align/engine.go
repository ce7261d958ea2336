package align

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/civicsignal/civicsync/internal/model"
	"github.com/civicsignal/civicsync/internal/store"
)

// Store is the slice of the persistence layer the engine needs.
type Store interface {
	GetMeasureByID(ctx context.Context, id string) (*model.Measure, error)
	ListUserVotes(ctx context.Context, measureID string) ([]model.UserVote, error)
	ListOfficialVotes(ctx context.Context, measureID string) (map[string][]model.OfficialVote, error)
	GetOfficials(ctx context.Context, ids []string) ([]model.Official, error)
	ReplaceMatchResults(ctx context.Context, measureID string, results []model.MatchResult) error
	DequeueRecompute(ctx context.Context, limit int) ([]store.RecomputeTask, error)
	CompleteRecompute(ctx context.Context, taskID string) error
}

// Representatives scopes which officials count for a given user on a given
// measure. A nil resolver, or a nil scope for a user without a snapshot,
// falls back to every official with a recorded vote on the measure.
type Representatives interface {
	OfficialsFor(ctx context.Context, userID string, m *model.Measure) ([]string, error)
}

// Engine recomputes match results for measures.
type Engine struct {
	store Store
	reps  Representatives
}

// NewEngine creates an alignment engine. reps may be nil.
func NewEngine(s Store, reps Representatives) *Engine {
	return &Engine{store: s, reps: reps}
}

// Recompute rebuilds every match result for one measure from the current
// user and official votes. Prior rows are fully replaced; stale or corrected
// official votes leave no residue.
func (e *Engine) Recompute(ctx context.Context, measureID string) error {
	m, err := e.store.GetMeasureByID(ctx, measureID)
	if err != nil {
		return err
	}
	if m == nil {
		return eris.Errorf("align: measure not found: %s", measureID)
	}

	userVotes, err := e.store.ListUserVotes(ctx, measureID)
	if err != nil {
		return err
	}
	votesByOfficial, err := e.store.ListOfficialVotes(ctx, measureID)
	if err != nil {
		return err
	}

	officialIDs := make([]string, 0, len(votesByOfficial))
	for id := range votesByOfficial {
		officialIDs = append(officialIDs, id)
	}
	sort.Strings(officialIDs)
	officials, err := e.store.GetOfficials(ctx, officialIDs)
	if err != nil {
		return err
	}
	officialByID := make(map[string]*model.Official, len(officials))
	for i := range officials {
		officialByID[officials[i].ID] = &officials[i]
	}

	now := time.Now().UTC()
	results := make([]model.MatchResult, 0, len(userVotes))
	for _, uv := range userVotes {
		if uv.Value == model.UserVoteSkip {
			continue
		}

		scope := officialIDs
		if e.reps != nil {
			repScope, err := e.reps.OfficialsFor(ctx, uv.UserID, m)
			if err != nil {
				return err
			}
			// A nil scope means the user has no representative snapshot;
			// only then does every voting official count.
			if repScope != nil {
				scope = repScope
			}
		}

		comparisons := make([]model.OfficialComparison, 0, len(scope))
		for _, oid := range scope {
			votes, ok := votesByOfficial[oid]
			if !ok {
				continue
			}
			oc := model.OfficialComparison{
				OfficialID: oid,
				Position:   latestPosition(votes),
			}
			if o := officialByID[oid]; o != nil {
				oc.Name = o.Name
				oc.Office = o.Office
			}
			comparisons = append(comparisons, oc)
		}

		score, breakdown := Score(uv.Value, comparisons)
		results = append(results, model.MatchResult{
			UserID:     uv.UserID,
			MeasureID:  measureID,
			Score:      score,
			Breakdown:  breakdown,
			ComputedAt: now,
		})
	}

	if err := e.store.ReplaceMatchResults(ctx, measureID, results); err != nil {
		return err
	}
	zap.L().Info("recomputed match results",
		zap.String("measure_id", measureID),
		zap.Int("results", len(results)),
	)
	return nil
}

// DrainQueue claims and processes pending recompute tasks until the queue is
// empty, with up to maxConcurrent measures in flight. Recompute is concurrent
// across measures and serialized per measure by the store's advisory lock.
func (e *Engine) DrainQueue(ctx context.Context, maxConcurrent int) (int, error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	processed := 0
	for {
		tasks, err := e.store.DequeueRecompute(ctx, maxConcurrent)
		if err != nil {
			return processed, err
		}
		if len(tasks) == 0 {
			return processed, nil
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, task := range tasks {
			g.Go(func() error {
				if err := e.Recompute(gctx, task.MeasureID); err != nil {
					return eris.Wrapf(err, "align: recompute %s", task.MeasureID)
				}
				return e.store.CompleteRecompute(gctx, task.ID)
			})
		}
		if err := g.Wait(); err != nil {
			return processed, err
		}
		processed += len(tasks)
	}
}
