// Package align computes how a user's positions line up with the recorded
// votes of their officials.
package align

import (
	"github.com/civicsignal/civicsync/internal/model"
)

// Score compares one user's position on a measure against a set of official
// positions. Only decisive positions (yea/nay) count toward the denominator;
// abstain, absent, present, and not-voting entries are listed in the
// breakdown but excluded. When nothing decisive exists the score is nil,
// never zero, since a zero means full disagreement, which this is not.
func Score(userValue model.UserVoteValue, officials []model.OfficialComparison) (*float64, model.MatchBreakdown) {
	breakdown := model.MatchBreakdown{Officials: make([]model.OfficialComparison, 0, len(officials))}

	for _, oc := range officials {
		if !oc.Position.Decisive() {
			oc.Matched = nil
			breakdown.Excluded++
			breakdown.Officials = append(breakdown.Officials, oc)
			continue
		}
		matched := (oc.Position == model.PositionYea && userValue == model.UserVoteYes) ||
			(oc.Position == model.PositionNay && userValue == model.UserVoteNo)
		oc.Matched = &matched
		if matched {
			breakdown.Matches++
		} else {
			breakdown.Mismatches++
		}
		breakdown.Officials = append(breakdown.Officials, oc)
	}

	denom := breakdown.Matches + breakdown.Mismatches
	if denom == 0 {
		return nil, breakdown
	}
	score := float64(breakdown.Matches) / float64(denom)
	return &score, breakdown
}

// latestPosition picks an official's effective position on a measure from
// their chronologically ordered votes: the last recorded vote wins.
func latestPosition(votes []model.OfficialVote) model.VotePosition {
	if len(votes) == 0 {
		return model.PositionUnknown
	}
	return votes[len(votes)-1].Position
}
