package align

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsignal/civicsync/internal/model"
)

func comparisons(positions ...model.VotePosition) []model.OfficialComparison {
	out := make([]model.OfficialComparison, len(positions))
	for i, p := range positions {
		out[i] = model.OfficialComparison{OfficialID: string(rune('a' + i)), Position: p}
	}
	return out
}

func TestScoreWorkedExample(t *testing.T) {
	// User voted yes; officials voted yea, nay, absent. The absent official
	// is excluded, leaving 1 match of 2 decisive positions.
	score, breakdown := Score(model.UserVoteYes,
		comparisons(model.PositionYea, model.PositionNay, model.PositionAbsent))

	require.NotNil(t, score)
	assert.InDelta(t, 0.5, *score, 0.0001)
	assert.Equal(t, 1, breakdown.Matches)
	assert.Equal(t, 1, breakdown.Mismatches)
	assert.Equal(t, 1, breakdown.Excluded)
	require.Len(t, breakdown.Officials, 3)

	require.NotNil(t, breakdown.Officials[0].Matched)
	assert.True(t, *breakdown.Officials[0].Matched)
	require.NotNil(t, breakdown.Officials[1].Matched)
	assert.False(t, *breakdown.Officials[1].Matched)
	assert.Nil(t, breakdown.Officials[2].Matched)
}

func TestScoreNilWhenNothingDecisive(t *testing.T) {
	score, breakdown := Score(model.UserVoteYes,
		comparisons(model.PositionAbsent, model.PositionAbstain, model.PositionNotVoting))

	assert.Nil(t, score)
	assert.Equal(t, 3, breakdown.Excluded)
	assert.Zero(t, breakdown.Matches)
	assert.Zero(t, breakdown.Mismatches)
}

func TestScoreNilWhenNoOfficials(t *testing.T) {
	score, _ := Score(model.UserVoteNo, nil)
	assert.Nil(t, score)
}

func TestScoreFullAgreement(t *testing.T) {
	score, _ := Score(model.UserVoteNo,
		comparisons(model.PositionNay, model.PositionNay))
	require.NotNil(t, score)
	assert.InDelta(t, 1.0, *score, 0.0001)
}

func TestScoreFullDisagreementIsZeroNotNil(t *testing.T) {
	score, _ := Score(model.UserVoteNo,
		comparisons(model.PositionYea, model.PositionYea))
	require.NotNil(t, score)
	assert.InDelta(t, 0.0, *score, 0.0001)
}

func TestLatestPositionWins(t *testing.T) {
	votes := []model.OfficialVote{
		{VoteEventID: "ve-1", OfficialID: "o-1", Position: model.PositionNay},
		{VoteEventID: "ve-2", OfficialID: "o-1", Position: model.PositionYea},
	}
	assert.Equal(t, model.PositionYea, latestPosition(votes))
	assert.Equal(t, model.PositionUnknown, latestPosition(nil))
}
