package connector

import (
	"strings"

	"github.com/civicsignal/civicsync/internal/model"
)

// statusKeywords maps action-text fragments to lifecycle states, checked in
// order so terminal outcomes win over procedural phrases that may appear in
// the same sentence.
var statusKeywords = []struct {
	status   model.MeasureStatus
	keywords []string
}{
	{model.StatusWithdrawn, []string{"withdrawn"}},
	{model.StatusTabled, []string{"tabled", "laid on the table", "postponed indefinitely"}},
	{model.StatusFailed, []string{"failed", "rejected", "defeated", "vetoed", "did not pass"}},
	{model.StatusPassed, []string{"became public law", "signed by", "signed into law", "enacted", "passed", "agreed to", "adopted", "approved"}},
	{model.StatusScheduled, []string{"placed on", "calendar", "scheduled", "set for hearing"}},
	{model.StatusInCommittee, []string{"referred to", "committee", "reported by"}},
	{model.StatusIntroduced, []string{"introduced", "first reading", "read the first time"}},
}

// StatusFromAction derives a lifecycle state from a source's latest-action
// text. Unmatched text maps to unknown, which the store never lets erase a
// known state.
func StatusFromAction(action string) model.MeasureStatus {
	text := strings.ToLower(action)
	if text == "" {
		return model.StatusUnknown
	}
	for _, entry := range statusKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				return entry.status
			}
		}
	}
	return model.StatusUnknown
}

// resultFromText maps a source's vote-result text to the aggregate enum.
func resultFromText(s string) model.VoteResult {
	text := strings.ToLower(s)
	switch {
	case strings.Contains(text, "pass"), strings.Contains(text, "agreed"), strings.Contains(text, "adopt"), strings.Contains(text, "confirm"):
		return model.ResultPassed
	case strings.Contains(text, "fail"), strings.Contains(text, "reject"), strings.Contains(text, "defeat"):
		return model.ResultFailed
	case strings.Contains(text, "tabled"):
		return model.ResultTabled
	default:
		return model.ResultUnknown
	}
}
