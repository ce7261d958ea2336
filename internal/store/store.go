// Package store persists canonical measures, votes, officials, and run
// bookkeeping in Postgres.
package store

import (
	"context"
	"time"

	"github.com/civicsignal/civicsync/internal/model"
)

// UpsertOutcome reports what a measure upsert did.
type UpsertOutcome int

const (
	OutcomeUnchanged UpsertOutcome = iota
	OutcomeCreated
	OutcomeUpdated
)

// RunFilter narrows ListRuns.
type RunFilter struct {
	Connector string
	Status    model.RunStatus
	Limit     int
	Offset    int
}

// RecomputeTask is one pending alignment recompute.
type RecomputeTask struct {
	ID         string
	MeasureID  string
	EnqueuedAt time.Time
}

// Store is the persistence boundary for the ingestion and alignment engines.
type Store interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error

	// Measures
	UpsertMeasure(ctx context.Context, m *model.Measure) (UpsertOutcome, error)
	GetMeasure(ctx context.Context, source model.SourceSystem, externalID string) (*model.Measure, error)
	GetMeasureByID(ctx context.Context, id string) (*model.Measure, error)
	ListMeasuresByJurisdiction(ctx context.Context, jurisdiction string) ([]model.Measure, error)
	CorrectMeasureStatus(ctx context.Context, measureID string, status model.MeasureStatus, sourceURL string) error
	ReplaceMeasureSources(ctx context.Context, measureID string, sources []model.MeasureSource) error
	AppendStatusEvent(ctx context.Context, ev *model.StatusEvent) error
	ListStatusEvents(ctx context.Context, measureID string) ([]model.StatusEvent, error)

	// Vote events and official votes
	UpsertVoteEvent(ctx context.Context, ev *model.VoteEvent) (string, error)
	UpsertOfficialVote(ctx context.Context, v *model.OfficialVote) (bool, error)
	ListOfficialVotes(ctx context.Context, measureID string) (map[string][]model.OfficialVote, error)

	// Officials
	FindOfficialByIdentifier(ctx context.Context, scheme model.IdentifierScheme, externalID string) (*model.Official, error)
	FindOfficialByNameChamber(ctx context.Context, lastName, chamber, districtLabel string) ([]model.Official, error)
	InsertOfficial(ctx context.Context, o *model.Official) error
	UpdateOfficialIdentifier(ctx context.Context, officialID string, scheme model.IdentifierScheme, externalID string) error
	GetOfficials(ctx context.Context, ids []string) ([]model.Official, error)

	// User representative snapshots
	ReplaceUserOfficials(ctx context.Context, userID string, officials []model.UserOfficial) error
	ListUserOfficials(ctx context.Context, userID string) ([]model.UserOfficial, error)
	FindOfficialsByName(ctx context.Context, name string) ([]model.Official, error)

	// User votes and match results
	UpsertUserVote(ctx context.Context, v *model.UserVote) (bool, error)
	ListUserVotes(ctx context.Context, measureID string) ([]model.UserVote, error)
	ReplaceMatchResults(ctx context.Context, measureID string, results []model.MatchResult) error
	GetMatchResult(ctx context.Context, userID, measureID string) (*model.MatchResult, error)

	// Ingestion runs
	StartRun(ctx context.Context, connector string) (*model.IngestionRun, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, stats model.RunStats, runErr string) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestionRun, error)
	LastSuccessfulRun(ctx context.Context, connector string) (*time.Time, error)

	// Raw artifacts
	InsertArtifact(ctx context.Context, a *model.RawArtifact) (string, bool, error)
	GetArtifactBySHA256(ctx context.Context, sha string) (*model.RawArtifact, error)

	// Connector cursors
	SaveCursor(ctx context.Context, connector string, cursor []byte) error
	LoadCursor(ctx context.Context, connector string) ([]byte, error)

	// Recompute queue
	EnqueueRecompute(ctx context.Context, measureID string) error
	DequeueRecompute(ctx context.Context, limit int) ([]RecomputeTask, error)
	CompleteRecompute(ctx context.Context, taskID string) error

	// Advisory locks. The returned release func must be called when the run
	// finishes; a nil release with acquired=false means another run holds it.
	TryConnectorLock(ctx context.Context, connector string) (release func(), acquired bool, err error)
}
