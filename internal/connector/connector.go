// Package connector defines the per-source ingestion connectors and the
// registry the scheduler runs them from.
package connector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/artifact"
	"github.com/civicsignal/civicsync/internal/fetcher"
	"github.com/civicsignal/civicsync/internal/model"
)

// Deps carries the shared collaborators a connector fetches with.
type Deps struct {
	Fetcher fetcher.Fetcher
	Archive *artifact.Archive
	Logger  *zap.Logger
}

// FetchResult is one page of work from a connector. NextCursor nil means the
// sweep is complete; otherwise the engine persists the page, saves the
// cursor, and calls Fetch again. A restarted run resumes from the saved
// cursor alone.
type FetchResult struct {
	Candidates []model.Candidate
	NextCursor []byte
	// Checkpoint is saved once the sweep finishes, replacing the in-progress
	// cursor. Nil resets the cursor so the next run starts a fresh sweep;
	// conditional-fetch connectors return their validator token here.
	Checkpoint []byte
	// Attempts counts fetch attempts made for this page, retries included.
	Attempts int
	// Skipped counts records dropped as permanently unparseable.
	Skipped int
	// Artifacts counts raw artifacts newly stored while building the page.
	Artifacts int
}

// Connector ingests one upstream source. Implementations must be restartable
// from a cursor and must treat single malformed records as skips, never as
// run failures.
type Connector interface {
	Name() string
	Source() model.SourceSystem
	Interval() time.Duration
	Fetch(ctx context.Context, deps *Deps, cursor []byte) (*FetchResult, error)
}
