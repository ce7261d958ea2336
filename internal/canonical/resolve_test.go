package canonical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsignal/civicsync/internal/model"
)

type fakeLister struct {
	measures []model.Measure
}

func (f *fakeLister) ListMeasuresByJurisdiction(_ context.Context, jurisdiction string) ([]model.Measure, error) {
	var out []model.Measure
	for _, m := range f.measures {
		if m.Jurisdiction == jurisdiction {
			out = append(out, m)
		}
	}
	return out, nil
}

func TestResolveMeasureKey_AdoptsCrossSourceMatch(t *testing.T) {
	lister := &fakeLister{measures: []model.Measure{
		{
			Source:       model.SourceCongress,
			Title:        "H.R. 1234 - Clean Water Act",
			Jurisdiction: "us",
			Body:         "us_house",
			CanonicalKey: "us:congress:119:hr:1234",
		},
	}}
	r := NewResolver(lister, 0.85)

	c := &model.Candidate{
		Source:       model.SourceOpenStates,
		ExternalID:   "ocd-bill/xyz",
		Title:        "Clean Water Act",
		Jurisdiction: "us",
		Body:         "us_house",
	}
	key, err := r.ResolveMeasureKey(context.Background(), c, "us:openstates:xyz")
	require.NoError(t, err)
	assert.Equal(t, "us:congress:119:hr:1234", key)
}

func TestResolveMeasureKey_BelowThresholdStaysDistinct(t *testing.T) {
	lister := &fakeLister{measures: []model.Measure{
		{
			Source:       model.SourceCongress,
			Title:        "National Defense Authorization Act",
			Jurisdiction: "us",
			Body:         "us_house",
			CanonicalKey: "us:congress:119:hr:9999",
		},
	}}
	r := NewResolver(lister, 0.85)

	c := &model.Candidate{
		Source:       model.SourceOpenStates,
		Title:        "Clean Water Act",
		Jurisdiction: "us",
		Body:         "us_house",
	}
	key, err := r.ResolveMeasureKey(context.Background(), c, "us:openstates:xyz")
	require.NoError(t, err)
	assert.Equal(t, "us:openstates:xyz", key)
}

func TestResolveMeasureKey_BodyMismatchNeverMerges(t *testing.T) {
	lister := &fakeLister{measures: []model.Measure{
		{
			Source:       model.SourceCongress,
			Title:        "Clean Water Act",
			Jurisdiction: "us",
			Body:         "us_senate",
			CanonicalKey: "us:congress:119:s:77",
		},
	}}
	r := NewResolver(lister, 0.85)

	c := &model.Candidate{
		Source:       model.SourceOpenStates,
		Title:        "Clean Water Act",
		Jurisdiction: "us",
		Body:         "us_house",
	}
	key, err := r.ResolveMeasureKey(context.Background(), c, "own-key")
	require.NoError(t, err)
	assert.Equal(t, "own-key", key)
}

func TestResolveMeasureKey_SameSourceIgnored(t *testing.T) {
	lister := &fakeLister{measures: []model.Measure{
		{
			Source:       model.SourceCongress,
			Title:        "Clean Water Act",
			Jurisdiction: "us",
			Body:         "us_house",
			CanonicalKey: "us:congress:119:hr:1234",
		},
	}}
	r := NewResolver(lister, 0.85)

	// Same source re-listing the same bill is handled by the natural-key
	// upsert, not by title matching.
	c := &model.Candidate{
		Source:       model.SourceCongress,
		Title:        "Clean Water Act",
		Jurisdiction: "us",
		Body:         "us_house",
	}
	key, err := r.ResolveMeasureKey(context.Background(), c, "us:congress:119:hr:1234")
	require.NoError(t, err)
	assert.Equal(t, "us:congress:119:hr:1234", key)
}

type fakeOfficialStore struct {
	byIdentifier map[string]*model.Official // scheme+":"+id
	byName       map[string][]model.Official
	inserted     []*model.Official
	backfilled   map[string]string
}

func (f *fakeOfficialStore) FindOfficialByIdentifier(_ context.Context, scheme model.IdentifierScheme, id string) (*model.Official, error) {
	return f.byIdentifier[string(scheme)+":"+id], nil
}

func (f *fakeOfficialStore) FindOfficialByNameChamber(_ context.Context, lastName, chamber, _ string) ([]model.Official, error) {
	return f.byName[lastName+"/"+chamber], nil
}

func (f *fakeOfficialStore) InsertOfficial(_ context.Context, o *model.Official) error {
	o.ID = "new-official"
	f.inserted = append(f.inserted, o)
	return nil
}

func (f *fakeOfficialStore) UpdateOfficialIdentifier(_ context.Context, officialID string, scheme model.IdentifierScheme, id string) error {
	if f.backfilled == nil {
		f.backfilled = map[string]string{}
	}
	f.backfilled[officialID] = string(scheme) + ":" + id
	return nil
}

func TestResolveOfficial_ByIdentifier(t *testing.T) {
	known := &model.Official{ID: "o-1", Name: "Smith, Jane", BioguideID: "S000148"}
	fs := &fakeOfficialStore{byIdentifier: map[string]*model.Official{"bioguide:S000148": known}}

	o, err := ResolveOfficial(context.Background(), fs, &model.CandidateOfficialVote{
		Scheme:     model.SchemeBioguide,
		ExternalID: "S000148",
		Name:       "Smith, Jane",
	})
	require.NoError(t, err)
	assert.Equal(t, "o-1", o.ID)
	assert.Empty(t, fs.inserted)
}

func TestResolveOfficial_NameFallbackBackfillsIdentifier(t *testing.T) {
	existing := model.Official{ID: "o-2", Name: "Kelly, Mark", Chamber: "us_senate", DistrictLabel: "AZ"}
	fs := &fakeOfficialStore{byName: map[string][]model.Official{"kelly/us_senate": {existing}}}

	o, err := ResolveOfficial(context.Background(), fs, &model.CandidateOfficialVote{
		Scheme:     model.SchemeLISMember,
		ExternalID: "S406",
		Name:       "Kelly, Mark",
		Chamber:    "us_senate",
		State:      "AZ",
	})
	require.NoError(t, err)
	assert.Equal(t, "o-2", o.ID)
	assert.Equal(t, "S406", o.LISMemberID)
	assert.Equal(t, "lis_member:S406", fs.backfilled["o-2"])
	assert.Empty(t, fs.inserted)
}

func TestResolveOfficial_AmbiguousCreatesReviewShell(t *testing.T) {
	twins := []model.Official{
		{ID: "o-3", Name: "Garcia, Maria", Chamber: "az_house"},
		{ID: "o-4", Name: "Garcia, Jose", Chamber: "az_house"},
	}
	fs := &fakeOfficialStore{byName: map[string][]model.Official{"garcia/az_house": twins}}

	o, err := ResolveOfficial(context.Background(), fs, &model.CandidateOfficialVote{
		Scheme:  model.SchemeOpenStates,
		Name:    "Garcia, Maria",
		Chamber: "az_house",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-official", o.ID)
	assert.True(t, o.NeedsReview)
	require.Len(t, fs.inserted, 1)
}

func TestResolveOfficial_UnknownCreatesShell(t *testing.T) {
	fs := &fakeOfficialStore{}

	o, err := ResolveOfficial(context.Background(), fs, &model.CandidateOfficialVote{
		Scheme:     model.SchemeLegistar,
		ExternalID: "472",
		Name:       "Rivera, Ana",
		Chamber:    "phx_council",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-official", o.ID)
	assert.False(t, o.NeedsReview)
	assert.Equal(t, "472", o.LegistarID)
	require.Len(t, fs.inserted, 1)
}
