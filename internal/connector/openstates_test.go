package connector

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsignal/civicsync/internal/config"
	"github.com/civicsignal/civicsync/internal/model"
)

func openstatesTestConfig() config.OpenStatesConfig {
	return config.OpenStatesConfig{
		Key:          "test-key",
		BaseURL:      "https://v3.openstates.example",
		Jurisdiction: "az",
		PageSize:     20,
	}
}

func TestOpenStatesFetchConvertsBills(t *testing.T) {
	sf := newStubFetcher()
	sf.on("/bills?jurisdiction=az", `{
		"results": [
			{
				"id": "ocd-bill/11111111-2222-3333-4444-555555555555",
				"identifier": "HB 2744",
				"title": "Groundwater Management; Rural Areas",
				"session": "2026",
				"subject": ["water", "agriculture"],
				"openstates_url": "https://openstates.org/az/bills/2026/HB2744/",
				"first_action_date": "2026-01-12",
				"latest_action_date": "2026-03-20",
				"latest_action_description": "House third reading: passed",
				"abstracts": [{"abstract": "Establishes rural groundwater management areas."}],
				"sources": [{"url": "https://apps.azleg.gov/BillStatus/BillOverview/81512", "note": ""}],
				"votes": [
					{
						"id": "ocd-vote/aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
						"motion_text": "Third Reading",
						"start_date": "2026-03-20",
						"result": "pass",
						"organization": {"name": "Arizona House", "classification": "lower"},
						"votes": [
							{"option": "yes", "voter_name": "Jane Quinonez", "voter": {"id": "ocd-person/1111", "name": "Jane Quiñonez", "party": "Democratic"}},
							{"option": "no", "voter_name": "Sam Ortiz", "voter": {"id": "ocd-person/2222", "name": "Sam Ortiz", "party": "Republican"}},
							{"option": "excused", "voter_name": "Pat Lee", "voter": {"id": "", "name": "", "party": ""}}
						]
					}
				]
			}
		],
		"pagination": {"page": 1, "max_page": 2}
	}`)

	o := NewOpenStates(openstatesTestConfig())
	res, err := o.Fetch(context.Background(), testDeps(sf), nil)
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	cand := res.Candidates[0]
	assert.Equal(t, model.SourceOpenStates, cand.Source)
	assert.Equal(t, "ocd-bill/11111111-2222-3333-4444-555555555555", cand.ExternalID)
	assert.Equal(t, model.LevelState, cand.Level)
	assert.Equal(t, "us/az", cand.Jurisdiction)
	assert.Equal(t, "az_house", cand.Body)
	assert.Equal(t, model.StatusPassed, cand.Status)
	assert.Equal(t, []string{"water", "agriculture"}, cand.TopicTags)
	assert.Equal(t, "Establishes rural groundwater management areas.", cand.FullText)
	require.NotNil(t, cand.IntroducedAt)

	// Primary link first, then the state legislature source.
	require.Len(t, cand.SourceLinks, 2)
	assert.True(t, cand.SourceLinks[0].IsPrimary)
	assert.Equal(t, "State legislature", cand.SourceLinks[1].Label)

	require.Len(t, cand.VoteEvents, 1)
	ev := cand.VoteEvents[0]
	assert.Equal(t, "ocd-vote/aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", ev.ExternalID)
	assert.Equal(t, "az_house", ev.Body)
	assert.Equal(t, model.ResultPassed, ev.Result)
	require.Len(t, ev.Positions, 3)
	assert.Equal(t, model.SchemeOpenStates, ev.Positions[0].Scheme)
	assert.Equal(t, "ocd-person/1111", ev.Positions[0].ExternalID)
	assert.Equal(t, "Jane Quiñonez", ev.Positions[0].Name)
	assert.Equal(t, model.PositionYea, ev.Positions[0].Position)
	assert.Equal(t, model.PositionNay, ev.Positions[1].Position)
	// Voter with no OCD id keeps the row-level display name.
	assert.Equal(t, "Pat Lee", ev.Positions[2].Name)
	assert.Equal(t, model.PositionAbstain, ev.Positions[2].Position)

	require.NotNil(t, res.NextCursor)
	var cur openstatesCursor
	require.NoError(t, json.Unmarshal(res.NextCursor, &cur))
	assert.Equal(t, 2, cur.Page)
}

func TestOpenStatesFetchLastPage(t *testing.T) {
	sf := newStubFetcher()
	sf.on("page=2", `{
		"results": [],
		"pagination": {"page": 2, "max_page": 2}
	}`)

	o := NewOpenStates(openstatesTestConfig())
	cursor, _ := json.Marshal(openstatesCursor{Page: 2})
	res, err := o.Fetch(context.Background(), testDeps(sf), cursor)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Nil(t, res.NextCursor)
}

func TestOpenStatesFetchSkipsBillWithoutID(t *testing.T) {
	sf := newStubFetcher()
	sf.on("/bills?", `{
		"results": [
			{"id": "", "identifier": "HB 1", "title": "broken"},
			{"id": "ocd-bill/9999", "identifier": "SB 1002", "title": "Valid", "latest_action_description": "introduced"}
		],
		"pagination": {"page": 1, "max_page": 1}
	}`)

	o := NewOpenStates(openstatesTestConfig())
	res, err := o.Fetch(context.Background(), testDeps(sf), nil)
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "ocd-bill/9999", res.Candidates[0].ExternalID)
	assert.Equal(t, "az_senate", res.Candidates[0].Body)
	assert.Equal(t, 1, res.Skipped)
}
