package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/config"
	"github.com/civicsignal/civicsync/internal/model"
	"github.com/civicsignal/civicsync/internal/resilience"
)

// OpenStates ingests state bills from the Open States v3 API. Unlike the
// federal feed, vote detail arrives inline on the bill payload as OCD vote
// objects, so no secondary roll-call fetch is needed.
type OpenStates struct {
	cfg config.OpenStatesConfig
}

// NewOpenStates creates the state connector.
func NewOpenStates(cfg config.OpenStatesConfig) *OpenStates {
	return &OpenStates{cfg: cfg}
}

func (o *OpenStates) Name() string               { return "openstates" }
func (o *OpenStates) Source() model.SourceSystem { return model.SourceOpenStates }

func (o *OpenStates) Interval() time.Duration {
	if o.cfg.Interval > 0 {
		return o.cfg.Interval
	}
	return 2 * time.Hour
}

// openstatesCursor is the resumable position: the 1-based page number.
type openstatesCursor struct {
	Page int `json:"page"`
}

type openstatesBillList struct {
	Results    []openstatesBill `json:"results"`
	Pagination struct {
		Page    int `json:"page"`
		MaxPage int `json:"max_page"`
	} `json:"pagination"`
}

type openstatesBill struct {
	ID             string   `json:"id"`
	Identifier     string   `json:"identifier"`
	Title          string   `json:"title"`
	Session        string   `json:"session"`
	Subject        []string `json:"subject"`
	OpenstatesURL  string   `json:"openstates_url"`
	FirstActionAt  string   `json:"first_action_date"`
	LatestActionAt string   `json:"latest_action_date"`
	LatestAction   string   `json:"latest_action_description"`
	Abstracts      []struct {
		Abstract string `json:"abstract"`
	} `json:"abstracts"`
	Sources []struct {
		URL  string `json:"url"`
		Note string `json:"note"`
	} `json:"sources"`
	Votes []struct {
		ID           string `json:"id"`
		MotionText   string `json:"motion_text"`
		StartDate    string `json:"start_date"`
		Result       string `json:"result"`
		Organization struct {
			Name           string `json:"name"`
			Classification string `json:"classification"`
		} `json:"organization"`
		Votes []struct {
			Option    string `json:"option"`
			VoterName string `json:"voter_name"`
			Voter     struct {
				ID    string `json:"id"`
				Name  string `json:"name"`
				Party string `json:"party"`
			} `json:"voter"`
		} `json:"votes"`
	} `json:"votes"`
}

func (o *OpenStates) pageSize() int {
	if o.cfg.PageSize > 0 {
		return o.cfg.PageSize
	}
	return 20
}

// Fetch retrieves one page of bills for the configured jurisdiction, most
// recently updated first.
func (o *OpenStates) Fetch(ctx context.Context, deps *Deps, cursor []byte) (*FetchResult, error) {
	cur := openstatesCursor{Page: 1}
	if len(cursor) > 0 {
		if err := json.Unmarshal(cursor, &cur); err != nil {
			return nil, eris.Wrap(err, "openstates: decode cursor")
		}
	}

	listURL := fmt.Sprintf("%s/bills?jurisdiction=%s&sort=updated_desc&page=%d&per_page=%d&include=abstracts&include=sources&include=votes",
		o.cfg.BaseURL, url.QueryEscape(o.cfg.Jurisdiction), cur.Page, o.pageSize())

	headers := http.Header{}
	headers.Set("X-API-KEY", o.cfg.Key)

	result := &FetchResult{}
	var list openstatesBillList
	if err := deps.Fetcher.GetJSON(ctx, listURL, headers, &list); err != nil {
		return nil, eris.Wrap(err, "openstates: fetch bill list")
	}
	result.Attempts++

	for _, bill := range list.Results {
		cand, err := o.toCandidate(&bill)
		if err != nil {
			if resilience.IsRecordError(err) {
				deps.Logger.Warn("skipping unparseable bill", zap.Error(err))
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Candidates = append(result.Candidates, *cand)
	}

	if list.Pagination.Page < list.Pagination.MaxPage {
		nc, err := json.Marshal(openstatesCursor{Page: cur.Page + 1})
		if err != nil {
			return nil, eris.Wrap(err, "openstates: encode cursor")
		}
		result.NextCursor = nc
	}
	return result, nil
}

func (o *OpenStates) toCandidate(bill *openstatesBill) (*model.Candidate, error) {
	if bill.ID == "" {
		return nil, resilience.NewRecordError(o.Name(), bill.Identifier, eris.New("bill missing ocd id"))
	}

	jurisdiction := "us/" + strings.ToLower(o.cfg.Jurisdiction)
	cand := &model.Candidate{
		Source:       model.SourceOpenStates,
		ExternalID:   bill.ID,
		Title:        bill.Title,
		Level:        model.LevelState,
		Jurisdiction: jurisdiction,
		Status:       StatusFromAction(bill.LatestAction),
		TopicTags:    bill.Subject,
		SourceURL:    bill.OpenstatesURL,
	}
	if t := parseCongressDate(bill.FirstActionAt); t != nil {
		cand.IntroducedAt = t
	}
	if len(bill.Abstracts) > 0 {
		cand.FullText = bill.Abstracts[0].Abstract
	}

	// Chamber from the bill identifier prefix (HB/HCR vs SB/SCR).
	ident := strings.ToUpper(strings.TrimSpace(bill.Identifier))
	chamberPrefix := strings.ToLower(o.cfg.Jurisdiction)
	switch {
	case strings.HasPrefix(ident, "H"):
		cand.Body = chamberPrefix + "_house"
	case strings.HasPrefix(ident, "S"):
		cand.Body = chamberPrefix + "_senate"
	}

	if bill.OpenstatesURL != "" {
		cand.SourceLinks = append(cand.SourceLinks, model.MeasureSource{
			Label: "Open States", URL: bill.OpenstatesURL, CType: model.ContentHTML, IsPrimary: true,
		})
	}
	for _, src := range bill.Sources {
		label := src.Note
		if label == "" {
			label = "State legislature"
		}
		cand.SourceLinks = append(cand.SourceLinks, model.MeasureSource{
			Label: label, URL: src.URL, CType: model.ContentHTML,
		})
	}

	for _, v := range bill.Votes {
		body := cand.Body
		switch v.Organization.Classification {
		case "lower":
			body = chamberPrefix + "_house"
		case "upper":
			body = chamberPrefix + "_senate"
		}
		ev := model.CandidateVoteEvent{
			ExternalID: v.ID,
			Body:       body,
			Result:     resultFromText(v.Result),
			HeldAt:     parseCongressDate(v.StartDate),
		}
		for _, p := range v.Votes {
			name := p.Voter.Name
			if name == "" {
				name = p.VoterName
			}
			ev.Positions = append(ev.Positions, model.CandidateOfficialVote{
				Scheme:     model.SchemeOpenStates,
				ExternalID: p.Voter.ID,
				Name:       name,
				Chamber:    body,
				Party:      p.Voter.Party,
				Position:   model.ParsePosition(p.Option),
			})
		}
		cand.VoteEvents = append(cand.VoteEvents, ev)
	}

	return cand, nil
}
