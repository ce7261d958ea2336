package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnKey(t *testing.T) {
	tests := []struct {
		jurisdiction string
		externalID   string
		want         string
	}{
		{"us", "hr-1234-119", "us:hr-1234-119"},
		{"us/az", "ocd-bill/1111", "us:az:ocd-bill/1111"},
		{"us/az/phoenix", "phoenix:res-22060", "us:az:phoenix:res-22060"},
		{"us/az/phoenix", "ord-g-7301", "us:az:phoenix:ord-g-7301"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OwnKey(tt.jurisdiction, tt.externalID))
	}
}
