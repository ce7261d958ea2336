package model

import "time"

// CandidateOfficialVote is one official's position inside a candidate vote
// event, keyed by whatever identifier scheme the source uses.
type CandidateOfficialVote struct {
	Scheme     IdentifierScheme `json:"scheme"`
	ExternalID string           `json:"external_id"`
	Name       string           `json:"name,omitempty"`
	Chamber    string           `json:"chamber,omitempty"`
	State      string           `json:"state,omitempty"` // Senate fallback key component
	Party      string           `json:"party,omitempty"`
	Position   VotePosition     `json:"position"`
}

// CandidateVoteEvent is a roll call attached to a candidate measure.
type CandidateVoteEvent struct {
	ExternalID string                  `json:"external_id,omitempty"`
	Body       string                  `json:"body"`
	HeldAt     *time.Time              `json:"held_at,omitempty"`
	Result     VoteResult              `json:"result"`
	Positions  []CandidateOfficialVote `json:"positions,omitempty"`
	SourceURL  string                  `json:"source_url,omitempty"`
}

// Candidate is the source-neutral intermediate record a connector emits for
// one legislative item: the minimal normalized fields the canonicalizer
// needs, plus a reference to the raw artifact the record was derived from.
type Candidate struct {
	Source       SourceSystem         `json:"source"`
	ExternalID   string               `json:"external_id"`
	Title        string               `json:"title"`
	Level        JurisdictionLevel    `json:"level"`
	Jurisdiction string               `json:"jurisdiction"` // e.g. "us", "us/az", "us/az/phoenix"
	Body         string               `json:"body,omitempty"`
	Status       MeasureStatus        `json:"status"`
	IntroducedAt *time.Time           `json:"introduced_at,omitempty"`
	ScheduledFor *time.Time           `json:"scheduled_for,omitempty"`
	TopicTags    []string             `json:"topic_tags,omitempty"`
	FullText     string               `json:"full_text,omitempty"` // feeds the summarizer when present
	SourceLinks  []MeasureSource      `json:"source_links,omitempty"`
	VoteEvents   []CandidateVoteEvent `json:"vote_events,omitempty"`
	ArtifactID   string               `json:"artifact_id,omitempty"`
	SourceURL    string               `json:"source_url,omitempty"`
}
