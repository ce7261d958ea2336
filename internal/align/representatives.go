package align

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/model"
	"github.com/civicsignal/civicsync/pkg/divisions"
)

// SnapshotStore is the slice of the persistence layer representative
// snapshots need.
type SnapshotStore interface {
	ReplaceUserOfficials(ctx context.Context, userID string, officials []model.UserOfficial) error
	ListUserOfficials(ctx context.Context, userID string) ([]model.UserOfficial, error)
	FindOfficialsByName(ctx context.Context, name string) ([]model.Official, error)
}

// RepresentativeService maintains per-user representative snapshots from the
// division lookup and scopes alignment scoring to them.
type RepresentativeService struct {
	store SnapshotStore
	civic divisions.Client
}

// NewRepresentativeService creates the service. civic may be nil, which
// disables address refresh but keeps snapshot-based scoping working.
func NewRepresentativeService(store SnapshotStore, civic divisions.Client) *RepresentativeService {
	return &RepresentativeService{store: store, civic: civic}
}

// RefreshUser resolves the address to its divisions and elected officials,
// matches them to stored officials by name, and replaces the user's
// snapshot. Officials the store has never seen (school boards, special
// districts) are dropped; they carry no votes to align against. Returns the
// snapshot size.
func (s *RepresentativeService) RefreshUser(ctx context.Context, userID, address string) (int, error) {
	if s.civic == nil {
		return 0, eris.New("align: representative lookup is not configured")
	}
	res, err := s.civic.RepresentativesByAddress(ctx, address)
	if err != nil {
		return 0, eris.Wrap(err, "align: resolve representatives")
	}

	now := time.Now().UTC()
	seen := map[string]bool{}
	var snapshot []model.UserOfficial
	for _, o := range res.Officials {
		matches, err := s.store.FindOfficialsByName(ctx, o.Name)
		if err != nil {
			return 0, err
		}
		if len(matches) != 1 {
			zap.L().Debug("no unambiguous stored official for representative",
				zap.String("name", o.Name), zap.Int("matches", len(matches)))
			continue
		}
		if seen[matches[0].ID] {
			continue
		}
		seen[matches[0].ID] = true
		snapshot = append(snapshot, model.UserOfficial{
			UserID:     userID,
			OfficialID: matches[0].ID,
			DivisionID: o.DivisionID,
			Office:     o.Office,
			SnapshotAt: now,
		})
	}

	if err := s.store.ReplaceUserOfficials(ctx, userID, snapshot); err != nil {
		return 0, err
	}
	zap.L().Info("refreshed representative snapshot",
		zap.String("user_id", userID),
		zap.Int("officials", len(snapshot)),
		zap.Int("resolved", len(res.Officials)),
	)
	return len(snapshot), nil
}

// OfficialsFor implements Representatives: the user's snapshot, gated on the
// measure's division covering the user's address. A nil slice means the
// user has no snapshot; an empty one means the measure is outside their
// jurisdictions and no official should count.
func (s *RepresentativeService) OfficialsFor(ctx context.Context, userID string, m *model.Measure) ([]string, error) {
	rows, err := s.store.ListUserOfficials(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	divisionIDs := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.DivisionID != "" {
			divisionIDs = append(divisionIDs, r.DivisionID)
		}
	}
	switch {
	case m.DivisionID != nil && *m.DivisionID != "":
		if !coversDivision(divisionIDs, *m.DivisionID) {
			return []string{}, nil
		}
	case m.Jurisdiction != "":
		if !divisions.CoversJurisdiction(divisionIDs, m.Jurisdiction) &&
			!coversDivision(divisionIDs, divisions.DivisionForJurisdiction(m.Jurisdiction)) {
			return []string{}, nil
		}
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.OfficialID)
	}
	return ids, nil
}

// coversDivision reports whether any of the ids equals the division or sits
// below it. A user's congressional-district division covers the country
// division of a federal measure.
func coversDivision(divisionIDs []string, divisionID string) bool {
	if divisionID == "" {
		return false
	}
	for _, id := range divisionIDs {
		if id == divisionID || strings.HasPrefix(id, divisionID+"/") {
			return true
		}
	}
	return false
}
