package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Clean Water Act", "clean water act"},
		{"house prefix", "H.R. 1234 - Clean Water Act", "clean water act"},
		{"senate prefix", "S. 42: Trade Modernization Act", "trade modernization act"},
		{"state bill prefix", "HB 2744 - Water Rights Amendment", "water rights amendment"},
		{"ordinance prefix", "Ordinance 2026-14 - Zoning Variance", "zoning variance"},
		{"diacritics", "Café District Façade Improvement", "cafe district facade improvement"},
		{"punctuation and case", "An Act to Amend Title 28, U.S. Code!", "an act to amend title 28 u s code"},
		{"whitespace collapse", "  Budget \t Reconciliation \n Act ", "budget reconciliation act"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.in))
		})
	}
}

func TestTitleSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, TitleSimilarity("H.R. 1234 - Clean Water Act", "Clean Water Act"), 0.0001)
	assert.Greater(t, TitleSimilarity("Clean Water Act of 2026", "Clean Water Act"), 0.7)
	assert.Less(t, TitleSimilarity("Clean Water Act", "National Defense Authorization Act"), 0.5)
	assert.Equal(t, 0.0, TitleSimilarity("", "Clean Water Act"))
	assert.Equal(t, 0.0, TitleSimilarity("H.R. 1", ""))
}
