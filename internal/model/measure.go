package model

import "time"

// SourceSystem identifies the external system a record was ingested from.
type SourceSystem string

const (
	SourceCongress   SourceSystem = "congress"
	SourceOpenStates SourceSystem = "openstates"
	SourceLegistar   SourceSystem = "legistar"
)

// JurisdictionLevel is the level of government a measure belongs to.
type JurisdictionLevel string

const (
	LevelFederal JurisdictionLevel = "federal"
	LevelState   JurisdictionLevel = "state"
	LevelCounty  JurisdictionLevel = "county"
	LevelCity    JurisdictionLevel = "city"
)

// MeasureStatus is the lifecycle state of a measure. Transitions are
// monotonic by default: introduced -> in_committee|scheduled ->
// passed|failed|tabled|withdrawn. "unknown" is the initial default and a
// legal target from any state.
type MeasureStatus string

const (
	StatusUnknown     MeasureStatus = "unknown"
	StatusIntroduced  MeasureStatus = "introduced"
	StatusInCommittee MeasureStatus = "in_committee"
	StatusScheduled   MeasureStatus = "scheduled"
	StatusPassed      MeasureStatus = "passed"
	StatusFailed      MeasureStatus = "failed"
	StatusTabled      MeasureStatus = "tabled"
	StatusWithdrawn   MeasureStatus = "withdrawn"
)

// statusRank orders lifecycle states for the monotonic-progress guard.
// Terminal states share a rank; unknown ranks below everything so a source
// that loses track of a measure can never roll it back.
var statusRank = map[MeasureStatus]int{
	StatusUnknown:     0,
	StatusIntroduced:  1,
	StatusInCommittee: 2,
	StatusScheduled:   2,
	StatusPassed:      3,
	StatusFailed:      3,
	StatusTabled:      3,
	StatusWithdrawn:   3,
}

// Rank returns the ordering value used by the monotonic status guard.
func (s MeasureStatus) Rank() int { return statusRank[s] }

// CanAdvanceTo reports whether moving from s to next is a forward (or
// sideways) transition. Targeting unknown is always allowed.
func (s MeasureStatus) CanAdvanceTo(next MeasureStatus) bool {
	if next == StatusUnknown {
		return true
	}
	return next.Rank() >= s.Rank()
}

// ContentType classifies a fetched document or source link.
type ContentType string

const (
	ContentHTML ContentType = "html"
	ContentPDF  ContentType = "pdf"
	ContentAPI  ContentType = "api"
	ContentText ContentType = "text"
)

// Measure is a canonical legislative item: a bill, ordinance, resolution, or
// agenda item. (Source, ExternalID) is globally unique per source and
// immutable once created.
type Measure struct {
	ID           string            `json:"id"`
	Source       SourceSystem      `json:"source"`
	ExternalID   string            `json:"external_id"`
	Title        string            `json:"title"`
	Level        JurisdictionLevel `json:"level"`
	Jurisdiction string            `json:"jurisdiction"` // e.g. "us", "us/az", "us/az/phoenix"
	Body         string            `json:"body,omitempty"`
	DivisionID   *string           `json:"division_id,omitempty"`
	Status       MeasureStatus     `json:"status"`
	IntroducedAt *time.Time        `json:"introduced_at,omitempty"`
	ScheduledFor *time.Time        `json:"scheduled_for,omitempty"`
	TopicTags    []string          `json:"topic_tags"`
	SummaryShort string            `json:"summary_short,omitempty"`
	SummaryLong  string            `json:"summary_long,omitempty"`
	CanonicalKey string            `json:"canonical_key,omitempty"`
	SourceURL    string            `json:"source_url,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// MeasureSource is a link to an official page or document for a measure.
type MeasureSource struct {
	ID        string      `json:"id"`
	MeasureID string      `json:"measure_id"`
	Label     string      `json:"label"`
	URL       string      `json:"url"`
	CType     ContentType `json:"ctype"`
	IsPrimary bool        `json:"is_primary"`
}

// StatusEvent is one row of the append-only status history for a measure.
// History survives even when the measure's current status is later corrected.
type StatusEvent struct {
	ID          string        `json:"id"`
	MeasureID   string        `json:"measure_id"`
	Status      MeasureStatus `json:"status"`
	EffectiveAt time.Time     `json:"effective_at"`
	SourceURL   string        `json:"source_url,omitempty"`
	RawRef      string        `json:"raw_ref,omitempty"`
}

// RawArtifact is the immutable record of one fetched document, keyed by
// content hash. Retained for replay and reprocessing without re-fetching.
type RawArtifact struct {
	ID        string       `json:"id"`
	Connector string       `json:"connector"`
	MeasureID *string      `json:"measure_id,omitempty"`
	URL       string       `json:"url,omitempty"`
	CType     ContentType  `json:"ctype"`
	FetchedAt time.Time    `json:"fetched_at"`
	BlobRef   string       `json:"blob_ref"`
	SHA256    string       `json:"sha256"`
}
