package model

import "time"

// VoteResult is the aggregate outcome of a vote event.
type VoteResult string

const (
	ResultUnknown VoteResult = "unknown"
	ResultPassed  VoteResult = "passed"
	ResultFailed  VoteResult = "failed"
	ResultTabled  VoteResult = "tabled"
)

// VoteEvent is one roll call or decision instance tied to exactly one
// measure. ExternalID is nullable (not every source exposes one) but unique
// when present; (measure, body, held_at) is the secondary uniqueness key.
type VoteEvent struct {
	ID           string     `json:"id"`
	MeasureID    string     `json:"measure_id"`
	Body         string     `json:"body"`
	ExternalID   *string    `json:"external_id,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	HeldAt       *time.Time `json:"held_at,omitempty"`
	Result       VoteResult `json:"result"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// VotePosition is one official's recorded position in a vote event.
type VotePosition string

const (
	PositionYea       VotePosition = "yea"
	PositionNay       VotePosition = "nay"
	PositionAbstain   VotePosition = "abstain"
	PositionAbsent    VotePosition = "absent"
	PositionPresent   VotePosition = "present"
	PositionNotVoting VotePosition = "not_voting"
	PositionUnknown   VotePosition = "unknown"
)

// Decisive reports whether the position expresses an actual yes/no stance.
// Non-decisive positions are excluded from alignment denominators.
func (p VotePosition) Decisive() bool {
	return p == PositionYea || p == PositionNay
}

// ParsePosition maps the position vocabulary used across source systems
// (House/Senate XML, Open States) onto the canonical enum.
func ParsePosition(s string) VotePosition {
	switch normalizeToken(s) {
	case "yea", "aye", "yes", "y":
		return PositionYea
	case "nay", "no", "n":
		return PositionNay
	case "abstain", "excused":
		return PositionAbstain
	case "absent":
		return PositionAbsent
	case "present":
		return PositionPresent
	case "not voting", "not_voting", "novote":
		return PositionNotVoting
	default:
		return PositionUnknown
	}
}

// OfficialVote records how one official voted in one vote event. At most one
// position per official per event.
type OfficialVote struct {
	VoteEventID string       `json:"vote_event_id"`
	OfficialID  string       `json:"official_id"`
	Position    VotePosition `json:"position"`
}

// UserVoteValue is a user's recorded position on a measure.
type UserVoteValue string

const (
	UserVoteYes  UserVoteValue = "yes"
	UserVoteNo   UserVoteValue = "no"
	UserVoteSkip UserVoteValue = "skip"
)

// UserVote is one user's position on one measure. Later writes supersede
// earlier ones in place; (user, measure) holds at most one active row.
type UserVote struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	MeasureID string        `json:"measure_id"`
	Value     UserVoteValue `json:"value"`
	CreatedAt time.Time     `json:"created_at"`
}

// OfficialComparison is one official's entry in a match breakdown.
type OfficialComparison struct {
	OfficialID string       `json:"official_id"`
	Name       string       `json:"name"`
	Office     string       `json:"office,omitempty"`
	Position   VotePosition `json:"position"`
	Matched    *bool        `json:"matched,omitempty"` // nil when the position was non-decisive
}

// MatchBreakdown details how a match score was computed.
type MatchBreakdown struct {
	Matches    int                  `json:"matches"`
	Mismatches int                  `json:"mismatches"`
	Excluded   int                  `json:"excluded"`
	Officials  []OfficialComparison `json:"officials"`
}

// MatchResult is the derived alignment record for a (user, measure) pair.
// Score is nil, not zero, when no decisive official position exists to
// compare against. Always recomputable from user and official votes.
type MatchResult struct {
	UserID     string         `json:"user_id"`
	MeasureID  string         `json:"measure_id"`
	Score      *float64       `json:"score"`
	Breakdown  MatchBreakdown `json:"breakdown"`
	ComputedAt time.Time      `json:"computed_at"`
}
