package canonical

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/model"
)

// MeasureLister is the slice of the store the resolver reads from.
type MeasureLister interface {
	ListMeasuresByJurisdiction(ctx context.Context, jurisdiction string) ([]model.Measure, error)
}

// Resolver assigns canonical keys to candidate measures.
type Resolver struct {
	store     MeasureLister
	threshold float64
}

// NewResolver creates a Resolver with the given similarity threshold.
func NewResolver(store MeasureLister, threshold float64) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Resolver{store: store, threshold: threshold}
}

// ResolveMeasureKey decides the canonical key for a candidate. A candidate
// adopts the canonical key of an existing measure only when jurisdiction and
// deliberative body both match AND the normalized titles clear the similarity
// threshold; otherwise it keeps its own source-derived key. Matching against
// a different-source record only; same-source records are already unified by
// the (source, external_id) upsert.
func (r *Resolver) ResolveMeasureKey(ctx context.Context, c *model.Candidate, ownKey string) (string, error) {
	existing, err := r.store.ListMeasuresByJurisdiction(ctx, c.Jurisdiction)
	if err != nil {
		return "", err
	}

	best := ""
	bestScore := 0.0
	for i := range existing {
		m := &existing[i]
		if m.Source == c.Source || m.CanonicalKey == "" {
			continue
		}
		if m.Body != c.Body {
			continue
		}
		score := TitleSimilarity(m.Title, c.Title)
		if score > bestScore {
			bestScore = score
			best = m.CanonicalKey
		}
	}

	if best != "" && bestScore >= r.threshold {
		zap.L().Debug("canonical key adopted from cross-source match",
			zap.String("source", string(c.Source)),
			zap.String("external_id", c.ExternalID),
			zap.String("canonical_key", best),
			zap.Float64("similarity", bestScore),
		)
		return best, nil
	}
	return ownKey, nil
}
