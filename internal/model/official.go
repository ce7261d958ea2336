package model

import (
	"strings"
	"time"
)

// IdentifierScheme names one of the known source-native identifier schemes
// for officials. The two federal chambers use different schemes for the same
// physical person, so Official carries a typed slot per scheme rather than a
// single external id.
type IdentifierScheme string

const (
	SchemeBioguide   IdentifierScheme = "bioguide"   // House Clerk roll call XML
	SchemeLISMember  IdentifierScheme = "lis_member" // Senate LIS roll call XML
	SchemeOpenStates IdentifierScheme = "openstates" // Open States person OCD id
	SchemeLegistar   IdentifierScheme = "legistar"   // Legistar person id
)

// Official is a person holding office. Identity is multi-keyed: a stable
// internal id plus zero or more source-native identifiers. Two existing
// Officials are never merged automatically; ambiguous resolution creates a
// flagged shell instead (NeedsReview).
type Official struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Office        string    `json:"office,omitempty"`
	Party         string    `json:"party,omitempty"`
	Chamber       string    `json:"chamber,omitempty"` // e.g. "us_house", "us_senate", "az_house", "phx_council"
	DistrictLabel string    `json:"district_label,omitempty"`
	BioguideID    string    `json:"bioguide_id,omitempty"`
	LISMemberID   string    `json:"lis_member_id,omitempty"`
	OpenStatesID  string    `json:"openstates_id,omitempty"`
	LegistarID    string    `json:"legistar_id,omitempty"`
	NeedsReview   bool      `json:"needs_review"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Identifier returns the official's identifier under the given scheme, or ""
// if none is recorded.
func (o *Official) Identifier(scheme IdentifierScheme) string {
	switch scheme {
	case SchemeBioguide:
		return o.BioguideID
	case SchemeLISMember:
		return o.LISMemberID
	case SchemeOpenStates:
		return o.OpenStatesID
	case SchemeLegistar:
		return o.LegistarID
	default:
		return ""
	}
}

// SetIdentifier records an identifier under the given scheme.
func (o *Official) SetIdentifier(scheme IdentifierScheme, id string) {
	switch scheme {
	case SchemeBioguide:
		o.BioguideID = id
	case SchemeLISMember:
		o.LISMemberID = id
	case SchemeOpenStates:
		o.OpenStatesID = id
	case SchemeLegistar:
		o.LegistarID = id
	}
}

// LastName extracts the family name from either "Last, First" or
// "First Last" forms, lowercased. Used by the Senate name+state fallback.
func (o *Official) LastName() string {
	name := strings.TrimSpace(o.Name)
	if i := strings.IndexByte(name, ','); i >= 0 {
		return strings.ToLower(strings.TrimSpace(name[:i]))
	}
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return ""
	}
	return strings.ToLower(parts[len(parts)-1])
}

// UserOfficial is one row of a user's representative snapshot: an official
// currently elected from a division covering the user's address. The
// snapshot is replaced wholesale whenever the user's address is resolved
// again, so stale representatives never linger.
type UserOfficial struct {
	UserID     string    `json:"user_id"`
	OfficialID string    `json:"official_id"`
	DivisionID string    `json:"division_id,omitempty"`
	Office     string    `json:"office,omitempty"`
	SnapshotAt time.Time `json:"snapshot_at"`
}

// Division is a political division (country, state, county, city, district)
// identified by an OCD division id.
type Division struct {
	ID       string            `json:"id"`
	OCDID    string            `json:"ocd_id"`
	Name     string            `json:"name"`
	Level    JurisdictionLevel `json:"level"`
	ParentID *string           `json:"parent_id,omitempty"`
}

func normalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
