package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicsignal/civicsync/internal/model"
)

func TestStatusFromAction(t *testing.T) {
	tests := []struct {
		action string
		want   model.MeasureStatus
	}{
		{"", model.StatusUnknown},
		{"Introduced in House", model.StatusIntroduced},
		{"Read the first time.", model.StatusIntroduced},
		{"Referred to the Committee on Ways and Means.", model.StatusInCommittee},
		{"Reported by the Committee on the Judiciary.", model.StatusInCommittee},
		{"Placed on the Union Calendar, Calendar No. 12.", model.StatusScheduled},
		{"On passage Passed by recorded vote: 220 - 212", model.StatusPassed},
		{"Became Public Law No: 119-21.", model.StatusPassed},
		{"Signed by President.", model.StatusPassed},
		{"Failed of passage in Senate", model.StatusFailed},
		{"Vetoed by President.", model.StatusFailed},
		{"Motion to table agreed to; bill laid on the table.", model.StatusTabled},
		{"Withdrawn by sponsor.", model.StatusWithdrawn},
		{"Pursuant to a previous order", model.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromAction(tt.action))
		})
	}
}

func TestResultFromText(t *testing.T) {
	assert.Equal(t, model.ResultPassed, resultFromText("Passed"))
	assert.Equal(t, model.ResultPassed, resultFromText("Agreed to"))
	assert.Equal(t, model.ResultPassed, resultFromText("Resolution Adopted"))
	assert.Equal(t, model.ResultPassed, resultFromText("pass"))
	assert.Equal(t, model.ResultFailed, resultFromText("Rejected"))
	assert.Equal(t, model.ResultFailed, resultFromText("fail"))
	assert.Equal(t, model.ResultTabled, resultFromText("Motion Tabled"))
	assert.Equal(t, model.ResultUnknown, resultFromText(""))
	assert.Equal(t, model.ResultUnknown, resultFromText("Pending"))
}
