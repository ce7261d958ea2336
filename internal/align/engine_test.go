package align

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsignal/civicsync/internal/model"
	"github.com/civicsignal/civicsync/internal/store"
)

type fakeAlignStore struct {
	mu             sync.Mutex
	measures       map[string]*model.Measure
	userVotes      map[string][]model.UserVote
	officialVotes  map[string]map[string][]model.OfficialVote
	officials      map[string]model.Official
	userOfficials  map[string][]model.UserOfficial
	replaced       map[string][]model.MatchResult
	queue          []store.RecomputeTask
	completedTasks []string
}

func (f *fakeAlignStore) GetMeasureByID(_ context.Context, id string) (*model.Measure, error) {
	return f.measures[id], nil
}

func (f *fakeAlignStore) ListUserVotes(_ context.Context, measureID string) ([]model.UserVote, error) {
	return f.userVotes[measureID], nil
}

func (f *fakeAlignStore) ListOfficialVotes(_ context.Context, measureID string) (map[string][]model.OfficialVote, error) {
	return f.officialVotes[measureID], nil
}

func (f *fakeAlignStore) GetOfficials(_ context.Context, ids []string) ([]model.Official, error) {
	var out []model.Official
	for _, id := range ids {
		if o, ok := f.officials[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeAlignStore) ReplaceMatchResults(_ context.Context, measureID string, results []model.MatchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replaced == nil {
		f.replaced = map[string][]model.MatchResult{}
	}
	f.replaced[measureID] = results
	return nil
}

func (f *fakeAlignStore) DequeueRecompute(_ context.Context, limit int) ([]store.RecomputeTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, nil
	}
	n := min(limit, len(f.queue))
	tasks := f.queue[:n]
	f.queue = f.queue[n:]
	return tasks, nil
}

func (f *fakeAlignStore) ReplaceUserOfficials(_ context.Context, userID string, officials []model.UserOfficial) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.userOfficials == nil {
		f.userOfficials = map[string][]model.UserOfficial{}
	}
	f.userOfficials[userID] = officials
	return nil
}

func (f *fakeAlignStore) ListUserOfficials(_ context.Context, userID string) ([]model.UserOfficial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userOfficials[userID], nil
}

func (f *fakeAlignStore) FindOfficialsByName(_ context.Context, name string) ([]model.Official, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Official
	for _, o := range f.officials {
		if strings.EqualFold(o.Name, name) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeAlignStore) CompleteRecompute(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completedTasks = append(f.completedTasks, taskID)
	return nil
}

func newFixtureStore() *fakeAlignStore {
	return &fakeAlignStore{
		measures: map[string]*model.Measure{
			"m-1": {ID: "m-1", Title: "Clean Water Act", Jurisdiction: "us"},
		},
		userVotes: map[string][]model.UserVote{
			"m-1": {
				{UserID: "u-1", MeasureID: "m-1", Value: model.UserVoteYes},
				{UserID: "u-2", MeasureID: "m-1", Value: model.UserVoteSkip},
			},
		},
		officialVotes: map[string]map[string][]model.OfficialVote{
			"m-1": {
				"o-1": {{VoteEventID: "ve-1", OfficialID: "o-1", Position: model.PositionYea}},
				"o-2": {{VoteEventID: "ve-1", OfficialID: "o-2", Position: model.PositionNay}},
				"o-3": {{VoteEventID: "ve-1", OfficialID: "o-3", Position: model.PositionAbsent}},
			},
		},
		officials: map[string]model.Official{
			"o-1": {ID: "o-1", Name: "Smith, Jane"},
			"o-2": {ID: "o-2", Name: "Jones, Bob"},
			"o-3": {ID: "o-3", Name: "Lee, Kim"},
		},
	}
}

func TestRecomputeReplacesResults(t *testing.T) {
	fs := newFixtureStore()
	e := NewEngine(fs, nil)

	require.NoError(t, e.Recompute(context.Background(), "m-1"))

	results := fs.replaced["m-1"]
	require.Len(t, results, 1, "skip votes produce no result")
	r := results[0]
	assert.Equal(t, "u-1", r.UserID)
	require.NotNil(t, r.Score)
	assert.InDelta(t, 0.5, *r.Score, 0.0001)
	assert.Equal(t, 1, r.Breakdown.Matches)
	assert.Equal(t, 1, r.Breakdown.Mismatches)
	assert.Equal(t, 1, r.Breakdown.Excluded)
}

func TestRecomputeAfterCorrectionSupersedes(t *testing.T) {
	fs := newFixtureStore()
	e := NewEngine(fs, nil)
	require.NoError(t, e.Recompute(context.Background(), "m-1"))

	// Corrected feed: o-2 actually voted yea. Recompute fully replaces the
	// old result.
	fs.officialVotes["m-1"]["o-2"] = []model.OfficialVote{
		{VoteEventID: "ve-1", OfficialID: "o-2", Position: model.PositionYea},
	}
	require.NoError(t, e.Recompute(context.Background(), "m-1"))

	results := fs.replaced["m-1"]
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Score)
	assert.InDelta(t, 1.0, *results[0].Score, 0.0001)
}

type scopedReps struct{ ids []string }

func (s *scopedReps) OfficialsFor(_ context.Context, _ string, _ *model.Measure) ([]string, error) {
	return s.ids, nil
}

func TestRecomputeRespectsRepresentativeScope(t *testing.T) {
	fs := newFixtureStore()
	e := NewEngine(fs, &scopedReps{ids: []string{"o-1"}})

	require.NoError(t, e.Recompute(context.Background(), "m-1"))

	results := fs.replaced["m-1"]
	require.Len(t, results, 1)
	require.NotNil(t, results[0].Score)
	assert.InDelta(t, 1.0, *results[0].Score, 0.0001)
	assert.Len(t, results[0].Breakdown.Officials, 1)
}

func TestRecomputeUnknownMeasure(t *testing.T) {
	fs := newFixtureStore()
	e := NewEngine(fs, nil)
	err := e.Recompute(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "measure not found")
}

func TestDrainQueueProcessesAllTasks(t *testing.T) {
	fs := newFixtureStore()
	fs.measures["m-2"] = &model.Measure{ID: "m-2", Title: "Zoning Variance"}
	fs.queue = []store.RecomputeTask{
		{ID: "t-1", MeasureID: "m-1"},
		{ID: "t-2", MeasureID: "m-2"},
	}
	e := NewEngine(fs, nil)

	processed, err := e.DrainQueue(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.ElementsMatch(t, []string{"t-1", "t-2"}, fs.completedTasks)
}
