package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/config"
	"github.com/civicsignal/civicsync/internal/model"
	"github.com/civicsignal/civicsync/internal/resilience"
)

// Congress ingests federal bills from the Congress.gov v3 API, with
// roll-call vote detail pulled from the House Clerk and Senate LIS XML feeds
// referenced by each bill's recorded actions.
type Congress struct {
	cfg config.CongressConfig
}

// NewCongress creates the federal connector.
func NewCongress(cfg config.CongressConfig) *Congress {
	return &Congress{cfg: cfg}
}

func (c *Congress) Name() string              { return "congress" }
func (c *Congress) Source() model.SourceSystem { return model.SourceCongress }

func (c *Congress) Interval() time.Duration {
	if c.cfg.Interval > 0 {
		return c.cfg.Interval
	}
	return time.Hour
}

// congressCursor is the resumable position inside a sweep: the list offset.
type congressCursor struct {
	Offset int `json:"offset"`
}

type congressBillList struct {
	Bills []congressBill `json:"bills"`
	Pagination struct {
		Count int    `json:"count"`
		Next  string `json:"next"`
	} `json:"pagination"`
}

type congressBill struct {
	Congress      int    `json:"congress"`
	Type          string `json:"type"`
	Number        string `json:"number"`
	Title         string `json:"title"`
	OriginChamber string `json:"originChamber"`
	UpdateDate    string `json:"updateDate"`
	URL           string `json:"url"`
	LatestAction  struct {
		ActionDate string `json:"actionDate"`
		Text       string `json:"text"`
	} `json:"latestAction"`
}

type congressActions struct {
	Actions []struct {
		ActionDate    string `json:"actionDate"`
		Text          string `json:"text"`
		RecordedVotes []struct {
			Chamber  string `json:"chamber"`
			RollNum  int    `json:"rollNumber"`
			Date     string `json:"date"`
			URL      string `json:"url"`
		} `json:"recordedVotes"`
	} `json:"actions"`
}

func (c *Congress) pageSize() int {
	if c.cfg.PageSize > 0 {
		return c.cfg.PageSize
	}
	return 250
}

// Fetch retrieves one page of the congress bill list and expands bills whose
// latest action indicates a floor outcome into full roll-call detail.
func (c *Congress) Fetch(ctx context.Context, deps *Deps, cursor []byte) (*FetchResult, error) {
	var cur congressCursor
	if len(cursor) > 0 {
		if err := json.Unmarshal(cursor, &cur); err != nil {
			return nil, eris.Wrap(err, "congress: decode cursor")
		}
	}

	listURL := fmt.Sprintf("%s/bill/%d?api_key=%s&format=json&limit=%d&offset=%d&sort=updateDate+desc",
		c.cfg.BaseURL, c.cfg.Congress, url.QueryEscape(c.cfg.Key), c.pageSize(), cur.Offset)

	result := &FetchResult{}
	var list congressBillList
	if err := deps.Fetcher.GetJSON(ctx, listURL, nil, &list); err != nil {
		return nil, eris.Wrap(err, "congress: fetch bill list")
	}
	result.Attempts++

	for _, bill := range list.Bills {
		cand, err := c.toCandidate(ctx, deps, result, &bill)
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

	next := cur.Offset + c.pageSize()
	if next < list.Pagination.Count && len(list.Bills) > 0 {
		nc, err := json.Marshal(congressCursor{Offset: next})
		if err != nil {
			return nil, eris.Wrap(err, "congress: encode cursor")
		}
		result.NextCursor = nc
	}
	return result, nil
}

func (c *Congress) toCandidate(ctx context.Context, deps *Deps, result *FetchResult, bill *congressBill) (*model.Candidate, error) {
	if bill.Number == "" || bill.Type == "" {
		return nil, resilience.NewRecordError(c.Name(), bill.URL, eris.New("bill missing type or number"))
	}
	billType := strings.ToLower(bill.Type)
	externalID := fmt.Sprintf("%s-%s-%d", billType, bill.Number, bill.Congress)

	status := StatusFromAction(bill.LatestAction.Text)
	body := "us_house"
	if strings.EqualFold(bill.OriginChamber, "senate") {
		body = "us_senate"
	}

	cand := &model.Candidate{
		Source:       model.SourceCongress,
		ExternalID:   externalID,
		Title:        bill.Title,
		Level:        model.LevelFederal,
		Jurisdiction: "us",
		Body:         body,
		Status:       status,
		SourceURL:    fmt.Sprintf("https://www.congress.gov/bill/%d/%s/%s", bill.Congress, billTypeSlug(billType), bill.Number),
		SourceLinks: []model.MeasureSource{
			{Label: "Congress.gov", URL: bill.URL, CType: model.ContentAPI, IsPrimary: true},
		},
	}
	if introduced := parseCongressDate(bill.LatestAction.ActionDate); introduced != nil && status == model.StatusIntroduced {
		cand.IntroducedAt = introduced
	}

	// Floor outcomes carry roll calls worth the extra detail fetch.
	if status == model.StatusPassed || status == model.StatusFailed {
		if err := c.attachRollCalls(ctx, deps, result, bill, cand); err != nil {
			// Roll-call detail is additive; a transient failure there fails
			// the run, a bad record just loses its votes.
			if resilience.IsRecordError(err) {
				deps.Logger.Warn("dropping unparseable roll call",
					zap.String("bill", externalID), zap.Error(err))
				result.Skipped++
			} else {
				return nil, err
			}
		}
	}
	return cand, nil
}

func (c *Congress) attachRollCalls(ctx context.Context, deps *Deps, result *FetchResult, bill *congressBill, cand *model.Candidate) error {
	actionsURL := fmt.Sprintf("%s/bill/%d/%s/%s/actions?api_key=%s&format=json&limit=250",
		c.cfg.BaseURL, bill.Congress, strings.ToLower(bill.Type), bill.Number, url.QueryEscape(c.cfg.Key))

	var actions congressActions
	if err := deps.Fetcher.GetJSON(ctx, actionsURL, nil, &actions); err != nil {
		return eris.Wrapf(err, "congress: fetch actions for %s", cand.ExternalID)
	}
	result.Attempts++

	for _, action := range actions.Actions {
		for _, rv := range action.RecordedVotes {
			ev, err := c.fetchRollCall(ctx, deps, result, rv.Chamber, rv.URL)
			if err != nil {
				return err
			}
			cand.VoteEvents = append(cand.VoteEvents, *ev)
		}
	}
	return nil
}

func (c *Congress) fetchRollCall(ctx context.Context, deps *Deps, result *FetchResult, chamber, voteURL string) (*model.CandidateVoteEvent, error) {
	body, err := deps.Fetcher.Get(ctx, voteURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "congress: fetch roll call %s", voteURL)
	}
	defer body.Close() //nolint:errcheck
	result.Attempts++

	raw, err := readAll(body)
	if err != nil {
		return nil, eris.Wrapf(err, "congress: read roll call %s", voteURL)
	}

	if deps.Archive != nil {
		if _, created, err := deps.Archive.Put(ctx, c.Name(), voteURL, model.ContentText, raw); err != nil {
			return nil, err
		} else if created {
			result.Artifacts++
		}
	}

	var ev *model.CandidateVoteEvent
	if strings.EqualFold(chamber, "senate") || strings.Contains(voteURL, "senate.gov") {
		ev, err = parseSenateRollCall(raw)
	} else {
		ev, err = parseHouseRollCall(raw)
	}
	if err != nil {
		return nil, resilience.NewRecordError(c.Name(), voteURL, err)
	}
	ev.SourceURL = voteURL
	return ev, nil
}

func billTypeSlug(billType string) string {
	switch billType {
	case "hr":
		return "house-bill"
	case "s":
		return "senate-bill"
	case "hjres":
		return "house-joint-resolution"
	case "sjres":
		return "senate-joint-resolution"
	case "hres":
		return "house-resolution"
	case "sres":
		return "senate-resolution"
	case "hconres":
		return "house-concurrent-resolution"
	case "sconres":
		return "senate-concurrent-resolution"
	default:
		return billType
	}
}

func parseCongressDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
