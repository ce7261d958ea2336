package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/config"
	"github.com/civicsignal/civicsync/internal/model"
	"github.com/civicsignal/civicsync/internal/resilience"
)

// Legistar scrapes a municipal Granicus Legistar portal: the upcoming-meetings
// calendar, each meeting's agenda, and the legislation items on it. There is
// no stable API on these portals, so the scraper leans on the calendar page's
// ETag to avoid re-walking agendas that have not changed.
type Legistar struct {
	portal   config.LegistarPortal
	interval time.Duration
}

// NewLegistar creates a scraper for one city portal.
func NewLegistar(portal config.LegistarPortal, interval time.Duration) *Legistar {
	return &Legistar{portal: portal, interval: interval}
}

func (l *Legistar) Name() string               { return "legistar-" + l.portal.Slug }
func (l *Legistar) Source() model.SourceSystem { return model.SourceLegistar }

func (l *Legistar) Interval() time.Duration {
	if l.interval > 0 {
		return l.interval
	}
	return 30 * time.Minute
}

// legistarCursor carries the calendar ETag between runs. The scrape itself
// is single-page, so the cursor never marks an in-progress position.
type legistarCursor struct {
	CalendarETag string `json:"calendar_etag"`
}

// Fetch walks the portal calendar and emits one candidate per agenda item.
func (l *Legistar) Fetch(ctx context.Context, deps *Deps, cursor []byte) (*FetchResult, error) {
	cur := legistarCursor{}
	if len(cursor) > 0 {
		if err := json.Unmarshal(cursor, &cur); err != nil {
			return nil, eris.Wrap(err, "legistar: decode cursor")
		}
	}

	if err := l.checkRobots(ctx, deps); err != nil {
		return nil, err
	}

	calURL := l.portal.BaseURL + "/Calendar.aspx"
	result := &FetchResult{}

	body, etag, changed, err := deps.Fetcher.GetIfModified(ctx, calURL, cur.CalendarETag)
	if err != nil {
		return nil, eris.Wrap(err, "legistar: fetch calendar")
	}
	result.Attempts++
	if !changed {
		deps.Logger.Debug("calendar unchanged", zap.String("portal", l.portal.Slug))
		result.Checkpoint = cursor
		return result, nil
	}
	defer body.Close() //nolint:errcheck
	raw, err := readAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "legistar: read calendar")
	}
	if deps.Archive != nil {
		if _, created, aerr := deps.Archive.Put(ctx, l.Name(), calURL, model.ContentHTML, raw); aerr != nil {
			deps.Logger.Warn("archiving calendar failed", zap.Error(aerr))
		} else if created {
			result.Artifacts++
		}
	}

	meetings, err := l.parseCalendar(raw)
	if err != nil {
		return nil, err
	}

	for _, m := range meetings {
		cands, err := l.fetchMeeting(ctx, deps, result, m)
		if err != nil {
			if resilience.IsRecordError(err) {
				deps.Logger.Warn("skipping unparseable meeting",
					zap.String("portal", l.portal.Slug), zap.Error(err))
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Candidates = append(result.Candidates, cands...)
	}

	nc, err := json.Marshal(legistarCursor{CalendarETag: etag})
	if err != nil {
		return nil, eris.Wrap(err, "legistar: encode cursor")
	}
	result.Checkpoint = nc
	return result, nil
}

// checkRobots refuses to scrape portals whose robots.txt disallows the
// calendar path for our agent.
func (l *Legistar) checkRobots(ctx context.Context, deps *Deps) error {
	robotsURL := l.portal.BaseURL + "/robots.txt"
	body, err := deps.Fetcher.Get(ctx, robotsURL, nil)
	if err != nil {
		// Unreachable robots.txt is treated as allow-all, matching crawler
		// convention for 404s. Transient failures still abort the run.
		if resilience.IsTransient(err) {
			return eris.Wrap(err, "legistar: fetch robots.txt")
		}
		return nil
	}
	defer body.Close() //nolint:errcheck
	raw, err := readAll(body)
	if err != nil {
		return eris.Wrap(err, "legistar: read robots.txt")
	}
	robots, err := robotstxt.FromBytes(raw)
	if err != nil {
		return nil
	}
	if !robots.TestAgent("/Calendar.aspx", "civicsync") {
		return eris.Errorf("legistar: robots.txt disallows crawling %s", l.portal.BaseURL)
	}
	return nil
}

// legistarMeeting is one calendar row.
type legistarMeeting struct {
	Body      string
	DetailURL string
	Date      *time.Time
}

// parseCalendar extracts meeting rows from the calendar grid. Legistar
// renders the grid as a table whose rows link to MeetingDetail.aspx.
func (l *Legistar) parseCalendar(raw []byte) ([]legistarMeeting, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, eris.Wrap(err, "legistar: parse calendar html")
	}

	var meetings []legistarMeeting
	doc.Find("table.rgMasterTable tbody tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find(`a[href*="MeetingDetail.aspx"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		m := legistarMeeting{
			Body:      strings.TrimSpace(row.Find("td").First().Text()),
			DetailURL: l.absURL(href),
		}
		row.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			if t := parseLegistarDate(strings.TrimSpace(cell.Text())); t != nil {
				m.Date = t
				return false
			}
			return true
		})
		meetings = append(meetings, m)
	})
	return meetings, nil
}

// fetchMeeting pulls one meeting detail page and converts its agenda items.
func (l *Legistar) fetchMeeting(ctx context.Context, deps *Deps, result *FetchResult, m legistarMeeting) ([]model.Candidate, error) {
	body, err := deps.Fetcher.Get(ctx, m.DetailURL, nil)
	if err != nil {
		if resilience.IsTransient(err) {
			return nil, eris.Wrap(err, "legistar: fetch meeting")
		}
		return nil, resilience.NewRecordError(l.Name(), m.DetailURL, err)
	}
	defer body.Close() //nolint:errcheck
	result.Attempts++
	raw, err := readAll(body)
	if err != nil {
		return nil, resilience.NewRecordError(l.Name(), m.DetailURL, err)
	}
	if deps.Archive != nil {
		if _, created, aerr := deps.Archive.Put(ctx, l.Name(), m.DetailURL, model.ContentHTML, raw); aerr != nil {
			deps.Logger.Warn("archiving meeting failed", zap.Error(aerr))
		} else if created {
			result.Artifacts++
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, resilience.NewRecordError(l.Name(), m.DetailURL, err)
	}

	type agendaItem struct {
		fileNum, title, action, detailURL string
	}
	var items []agendaItem
	doc.Find("table.rgMasterTable tbody tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find(`a[href*="LegislationDetail.aspx"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		fileNum := strings.TrimSpace(link.Text())
		if fileNum == "" {
			return
		}
		cells := row.Find("td")
		title := ""
		action := ""
		if cells.Length() >= 2 {
			title = strings.TrimSpace(cells.Eq(cells.Length() - 1).Text())
		}
		if cells.Length() >= 3 {
			action = strings.TrimSpace(cells.Eq(cells.Length() - 2).Text())
			if title == action {
				action = ""
			}
		}
		items = append(items, agendaItem{fileNum: fileNum, title: title, action: action, detailURL: l.absURL(href)})
	})
	if len(items) == 0 {
		deps.Logger.Debug("meeting has no legislation items",
			zap.String("portal", l.portal.Slug), zap.String("url", m.DetailURL))
	}

	var cands []model.Candidate
	for _, it := range items {
		cand := l.toCandidate(it.fileNum, it.title, it.action, it.detailURL, m)
		if err := l.enrichFromLegislation(ctx, deps, result, &cand, it.detailURL); err != nil {
			return nil, err
		}
		cands = append(cands, cand)
	}
	return cands, nil
}

// enrichFromLegislation walks one LegislationDetail page for the measure's
// full text and attached documents. Attachments are archived before any
// parsing; PDFs stay archived for later extraction while HTML and plain-text
// attachments contribute to the candidate's text directly. Enrichment is
// best effort: a permanently broken page leaves the candidate bare, only
// transient failures abort the run.
func (l *Legistar) enrichFromLegislation(ctx context.Context, deps *Deps, result *FetchResult, cand *model.Candidate, pageURL string) error {
	body, err := deps.Fetcher.Get(ctx, pageURL, nil)
	if err != nil {
		if resilience.IsTransient(err) {
			return eris.Wrap(err, "legistar: fetch legislation detail")
		}
		deps.Logger.Warn("skipping legislation detail",
			zap.String("portal", l.portal.Slug), zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	defer body.Close() //nolint:errcheck
	result.Attempts++
	raw, err := readAll(body)
	if err != nil {
		deps.Logger.Warn("reading legislation detail",
			zap.String("url", pageURL), zap.Error(err))
		return nil
	}
	if deps.Archive != nil {
		if _, created, aerr := deps.Archive.Put(ctx, l.Name(), pageURL, model.ContentHTML, raw); aerr != nil {
			deps.Logger.Warn("archiving legislation detail failed", zap.Error(aerr))
		} else if created {
			result.Artifacts++
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		deps.Logger.Warn("parsing legislation detail",
			zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	var textParts []string
	if text := strings.TrimSpace(doc.Find("#ctl00_ContentPlaceHolder1_lblText").Text()); text != "" {
		textParts = append(textParts, text)
	}

	type attachment struct {
		label, url string
	}
	var attachments []attachment
	doc.Find(`a[href*="View.ashx"]`).Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		label := strings.TrimSpace(link.Text())
		if label == "" {
			label = "Attachment"
		}
		attachments = append(attachments, attachment{label: label, url: l.absURL(href)})
	})

	for _, att := range attachments {
		araw, err := l.fetchAttachment(ctx, deps, att.url)
		if err != nil {
			if resilience.IsTransient(err) {
				return eris.Wrap(err, "legistar: fetch attachment")
			}
			deps.Logger.Warn("skipping attachment",
				zap.String("url", att.url), zap.Error(err))
			continue
		}
		result.Attempts++
		ctype := sniffContentType(araw)
		if deps.Archive != nil {
			if _, created, aerr := deps.Archive.Put(ctx, l.Name(), att.url, ctype, araw); aerr != nil {
				deps.Logger.Warn("archiving attachment failed", zap.Error(aerr))
			} else if created {
				result.Artifacts++
			}
		}
		cand.SourceLinks = append(cand.SourceLinks, model.MeasureSource{
			Label: att.label,
			URL:   att.url,
			CType: ctype,
		})
		switch ctype {
		case model.ContentHTML:
			if adoc, perr := goquery.NewDocumentFromReader(bytes.NewReader(araw)); perr == nil {
				if text := strings.TrimSpace(adoc.Text()); text != "" {
					textParts = append(textParts, text)
				}
			}
		case model.ContentText:
			if text := strings.TrimSpace(string(araw)); text != "" {
				textParts = append(textParts, text)
			}
		}
	}

	cand.FullText = strings.Join(textParts, "\n\n")
	return nil
}

func (l *Legistar) fetchAttachment(ctx context.Context, deps *Deps, rawURL string) ([]byte, error) {
	body, err := deps.Fetcher.Get(ctx, rawURL, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck
	return readAll(body)
}

// sniffContentType classifies an attachment by its leading bytes; View.ashx
// download URLs carry no extension.
func sniffContentType(raw []byte) model.ContentType {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	switch {
	case bytes.HasPrefix(trimmed, []byte("%PDF")):
		return model.ContentPDF
	case bytes.HasPrefix(trimmed, []byte("<")):
		return model.ContentHTML
	default:
		return model.ContentText
	}
}

func (l *Legistar) toCandidate(fileNum, title, action, detailURL string, m legistarMeeting) model.Candidate {
	externalID := l.portal.Slug + ":" + strings.ToLower(strings.ReplaceAll(fileNum, " ", "-"))
	status := StatusFromAction(action)
	if status == model.StatusUnknown {
		// Being on an agenda is itself a schedule signal.
		status = model.StatusScheduled
	}
	if title == "" {
		title = fileNum
	}

	cand := model.Candidate{
		Source:       model.SourceLegistar,
		ExternalID:   externalID,
		Title:        title,
		Level:        model.LevelCity,
		Jurisdiction: "us/az/" + l.portal.Slug,
		Body:         l.portal.Slug + "_council",
		Status:       status,
		ScheduledFor: m.Date,
		SourceURL:    detailURL,
		SourceLinks: []model.MeasureSource{
			{Label: l.portal.CityName + " Legistar", URL: detailURL, CType: model.ContentHTML, IsPrimary: true},
		},
	}

	// Council minutes record outcomes as action text, not per-member roll
	// calls. A decided action becomes a vote event with no positions.
	if res := resultFromText(action); res != model.ResultUnknown {
		cand.VoteEvents = append(cand.VoteEvents, model.CandidateVoteEvent{
			Body:      cand.Body,
			Result:    res,
			HeldAt:    m.Date,
			SourceURL: m.DetailURL,
		})
	}
	return cand
}

func (l *Legistar) absURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return l.portal.BaseURL + "/" + strings.TrimPrefix(href, "/")
}

// parseLegistarDate accepts the formats the calendar grid uses.
func parseLegistarDate(s string) *time.Time {
	for _, layout := range []string{"1/2/2006", "1/2/2006 3:04 PM", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
