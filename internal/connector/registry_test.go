package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicsignal/civicsync/internal/config"
)

func registryTestConfig() *config.Config {
	return &config.Config{
		Congress:   config.CongressConfig{BaseURL: "https://api.congress.example/v3", Congress: 119},
		OpenStates: config.OpenStatesConfig{BaseURL: "https://v3.openstates.example", Jurisdiction: "az"},
		Legistar: config.LegistarConfig{
			Interval: 30 * time.Minute,
			Portals: []config.LegistarPortal{
				{Slug: "phoenix", BaseURL: "https://phoenix.legistar.example", CityName: "Phoenix"},
				{Slug: "mesa", BaseURL: "https://mesa.legistar.example", CityName: "Mesa"},
			},
		},
	}
}

func TestNewRegistryRegistersConfiguredConnectors(t *testing.T) {
	r := NewRegistry(registryTestConfig())
	assert.Equal(t, []string{"congress", "openstates", "legistar-phoenix", "legistar-mesa"}, r.AllNames())
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry(registryTestConfig())

	c, err := r.Get("congress")
	require.NoError(t, err)
	assert.Equal(t, "congress", c.Name())

	_, err = r.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown connector "nope"`)
}

func TestRegistrySelect(t *testing.T) {
	r := NewRegistry(registryTestConfig())

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	some, err := r.Select([]string{"legistar-mesa", "congress"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "legistar-mesa", some[0].Name())
	assert.Equal(t, "congress", some[1].Name())

	_, err = r.Select([]string{"openstates", "nope"})
	assert.Error(t, err)
}
