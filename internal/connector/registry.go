package connector

import (
	"github.com/rotisserie/eris"

	"github.com/civicsignal/civicsync/internal/config"
)

// Registry maps connector names to their implementations.
type Registry struct {
	connectors map[string]Connector
	order      []string // insertion order for deterministic iteration
}

// NewRegistry creates a registry populated with every configured connector:
// the federal Congress.gov connector, the Open States state connector, and
// one Legistar connector per configured municipal portal.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		connectors: make(map[string]Connector),
	}

	r.Register(NewCongress(cfg.Congress))
	r.Register(NewOpenStates(cfg.OpenStates))
	for _, portal := range cfg.Legistar.Portals {
		r.Register(NewLegistar(portal, cfg.Legistar.Interval))
	}

	return r
}

// Register adds a connector to the registry.
func (r *Registry) Register(c Connector) {
	if r.connectors == nil {
		r.connectors = make(map[string]Connector)
	}
	name := c.Name()
	r.connectors[name] = c
	r.order = append(r.order, name)
}

// Get returns a connector by name.
func (r *Registry) Get(name string) (Connector, error) {
	c, ok := r.connectors[name]
	if !ok {
		return nil, eris.Errorf("connector: unknown connector %q", name)
	}
	return c, nil
}

// Select returns the named connectors, or all of them when names is empty.
func (r *Registry) Select(names []string) ([]Connector, error) {
	if len(names) == 0 {
		return r.All(), nil
	}
	result := make([]Connector, 0, len(names))
	for _, name := range names {
		c, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// All returns all connectors in registration order.
func (r *Registry) All() []Connector {
	result := make([]Connector, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.connectors[name])
	}
	return result
}

// AllNames returns all registered connector names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
