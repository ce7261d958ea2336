package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"transient wrapper", NewTransientError(errors.New("rate limited"), 429), true},
		{"wrapped transient", fmt.Errorf("fetch: %w", NewTransientError(errors.New("503"), 503)), true},
		{"econnreset", syscall.ECONNRESET, true},
		{"econnrefused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"string heuristic", errors.New("read tcp: connection reset by peer"), true},
		{"io timeout string", errors.New("Get \"https://api.congress.gov\": i/o timeout"), true},
		{"record error never transient", NewRecordError("congress", "hr-1234", errors.New("bad date")), false},
		{"wrapped record error", fmt.Errorf("page 3: %w", NewRecordError("openstates", "", errors.New("missing id"))), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestRecordError(t *testing.T) {
	base := errors.New("unparseable held_at")
	err := NewRecordError("legistar", "agenda-991", base)

	assert.True(t, IsRecordError(err))
	assert.True(t, errors.Is(err, base))
	assert.Contains(t, err.Error(), "legistar")
	assert.Contains(t, err.Error(), "agenda-991")

	noID := NewRecordError("congress", "", base)
	assert.Contains(t, noID.Error(), "congress: record:")
}

func TestTransientErrorUnwrap(t *testing.T) {
	base := errors.New("upstream down")
	te := NewTransientError(base, 502)

	assert.True(t, errors.Is(te, base))
	assert.Equal(t, 502, te.StatusCode)
	assert.Equal(t, "upstream down", te.Error())
}
