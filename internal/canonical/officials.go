package canonical

import (
	"context"

	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/model"
)

// OfficialStore is the slice of the store official resolution needs.
type OfficialStore interface {
	FindOfficialByIdentifier(ctx context.Context, scheme model.IdentifierScheme, externalID string) (*model.Official, error)
	FindOfficialByNameChamber(ctx context.Context, lastName, chamber, districtLabel string) ([]model.Official, error)
	InsertOfficial(ctx context.Context, o *model.Official) error
	UpdateOfficialIdentifier(ctx context.Context, officialID string, scheme model.IdentifierScheme, externalID string) error
}

// ResolveOfficial maps a source-native vote record to an internal Official.
// Resolution order: the source's identifier scheme, then the deterministic
// name+chamber fallback. Exactly one fallback hit backfills the learned
// identifier onto that official; anything else creates a review-flagged
// shell. Two existing officials are never merged here.
func ResolveOfficial(ctx context.Context, store OfficialStore, cv *model.CandidateOfficialVote) (*model.Official, error) {
	if cv.ExternalID != "" {
		o, err := store.FindOfficialByIdentifier(ctx, cv.Scheme, cv.ExternalID)
		if err != nil {
			return nil, err
		}
		if o != nil {
			return o, nil
		}
	}

	shell := &model.Official{
		Name:          cv.Name,
		Party:         cv.Party,
		Chamber:       cv.Chamber,
		DistrictLabel: cv.State,
	}
	if cv.ExternalID != "" {
		shell.SetIdentifier(cv.Scheme, cv.ExternalID)
	}

	if cv.Name != "" {
		matches, err := store.FindOfficialByNameChamber(ctx, shell.LastName(), cv.Chamber, cv.State)
		if err != nil {
			return nil, err
		}
		if len(matches) == 1 {
			o := &matches[0]
			if cv.ExternalID != "" && o.Identifier(cv.Scheme) == "" {
				if err := store.UpdateOfficialIdentifier(ctx, o.ID, cv.Scheme, cv.ExternalID); err != nil {
					return nil, err
				}
				o.SetIdentifier(cv.Scheme, cv.ExternalID)
			}
			return o, nil
		}
		if len(matches) > 1 {
			zap.L().Warn("ambiguous official resolution, creating review shell",
				zap.String("name", cv.Name),
				zap.String("chamber", cv.Chamber),
				zap.Int("candidates", len(matches)),
			)
			shell.NeedsReview = true
		}
	}

	if shell.Name == "" && cv.ExternalID == "" {
		shell.NeedsReview = true
	}
	if err := store.InsertOfficial(ctx, shell); err != nil {
		return nil, err
	}
	return shell, nil
}
