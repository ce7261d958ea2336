package connector

import (
	"encoding/xml"
	"io"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/civicsignal/civicsync/internal/model"
)

// houseRollCall mirrors the Clerk of the House EVS XML format
// (clerk.house.gov/evs/{year}/roll{NNN}.xml). Legislators carry bioguide ids
// in the name-id attribute.
type houseRollCall struct {
	XMLName  xml.Name `xml:"rollcall-vote"`
	Metadata struct {
		RollcallNum string `xml:"rollcall-num"`
		Question    string `xml:"vote-question"`
		Result      string `xml:"vote-result"`
		ActionDate  string `xml:"action-date"`
		ActionTime  struct {
			TimeETZ string `xml:"time-etz,attr"`
		} `xml:"action-time"`
	} `xml:"vote-metadata"`
	Votes []struct {
		Legislator struct {
			NameID string `xml:"name-id,attr"`
			Party  string `xml:"party,attr"`
			State  string `xml:"state,attr"`
			Name   string `xml:",chardata"`
		} `xml:"legislator"`
		Vote string `xml:"vote"`
	} `xml:"vote-data>recorded-vote"`
}

// senateRollCall mirrors the Senate LIS roll call XML
// (senate.gov/legislative/LIS/roll_call_votes/...). Members carry LIS member
// ids, with last name + state as the documented fallback identity.
type senateRollCall struct {
	XMLName    xml.Name `xml:"roll_call_vote"`
	Congress   string   `xml:"congress"`
	Session    string   `xml:"session"`
	VoteNumber string   `xml:"vote_number"`
	VoteDate   string   `xml:"vote_date"`
	Question   string   `xml:"vote_question_text"`
	Result     string   `xml:"vote_result"`
	Members    []struct {
		FullName    string `xml:"member_full"`
		LastName    string `xml:"last_name"`
		FirstName   string `xml:"first_name"`
		Party       string `xml:"party"`
		State       string `xml:"state"`
		VoteCast    string `xml:"vote_cast"`
		LISMemberID string `xml:"lis_member_id"`
	} `xml:"members>member"`
}

// parseHouseRollCall converts Clerk EVS XML into a candidate vote event.
func parseHouseRollCall(raw []byte) (*model.CandidateVoteEvent, error) {
	var rc houseRollCall
	if err := xml.Unmarshal(raw, &rc); err != nil {
		return nil, eris.Wrap(err, "parse house roll call xml")
	}
	if len(rc.Votes) == 0 {
		return nil, eris.New("house roll call has no recorded votes")
	}

	ev := &model.CandidateVoteEvent{
		ExternalID: "house-roll-" + rc.Metadata.RollcallNum,
		Body:       "us_house",
		Result:     resultFromText(rc.Metadata.Result),
		HeldAt:     parseHouseActionDate(rc.Metadata.ActionDate),
	}
	for _, v := range rc.Votes {
		if v.Legislator.NameID == "" {
			continue
		}
		ev.Positions = append(ev.Positions, model.CandidateOfficialVote{
			Scheme:     model.SchemeBioguide,
			ExternalID: v.Legislator.NameID,
			Name:       strings.TrimSpace(v.Legislator.Name),
			Chamber:    "us_house",
			State:      v.Legislator.State,
			Party:      v.Legislator.Party,
			Position:   model.ParsePosition(v.Vote),
		})
	}
	if len(ev.Positions) == 0 {
		return nil, eris.New("house roll call has no identifiable legislators")
	}
	return ev, nil
}

// parseSenateRollCall converts LIS XML into a candidate vote event. Members
// without a LIS id fall back to last name + state; official resolution
// backfills the id once learned.
func parseSenateRollCall(raw []byte) (*model.CandidateVoteEvent, error) {
	var rc senateRollCall
	if err := xml.Unmarshal(raw, &rc); err != nil {
		return nil, eris.Wrap(err, "parse senate roll call xml")
	}
	if len(rc.Members) == 0 {
		return nil, eris.New("senate roll call has no members")
	}

	ev := &model.CandidateVoteEvent{
		ExternalID: "senate-roll-" + rc.Congress + "-" + rc.Session + "-" + rc.VoteNumber,
		Body:       "us_senate",
		Result:     resultFromText(rc.Result),
		HeldAt:     parseSenateVoteDate(rc.VoteDate),
	}
	for _, m := range rc.Members {
		name := m.FullName
		if name == "" {
			name = strings.TrimSpace(m.LastName + ", " + m.FirstName)
		}
		ev.Positions = append(ev.Positions, model.CandidateOfficialVote{
			Scheme:     model.SchemeLISMember,
			ExternalID: m.LISMemberID,
			Name:       name,
			Chamber:    "us_senate",
			State:      m.State,
			Party:      m.Party,
			Position:   model.ParsePosition(m.VoteCast),
		})
	}
	return ev, nil
}

// parseHouseActionDate parses the Clerk's "4-May-2026" date form.
func parseHouseActionDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	if t, err := time.Parse("2-Jan-2006", s); err == nil {
		t = t.UTC()
		return &t
	}
	return nil
}

// parseSenateVoteDate parses the LIS "May 4, 2026, 05:30 PM" form, falling
// back to date-only.
func parseSenateVoteDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"January 2, 2006, 03:04 PM", "January 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
