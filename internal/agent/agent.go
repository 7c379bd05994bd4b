// Package agent holds the static roster of monitored agents.
package agent

import "sort"

// Agent is the display metadata for one monitored agent. Instances are
// immutable for the lifetime of the process.
type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// DefaultRoster returns the built-in eight-agent roster used when the
// config file does not override it.
func DefaultRoster() []Agent {
	return []Agent{
		{ID: "agent1", Name: "T-101", Color: "#00ff00"},
		{ID: "agent2", Name: "T-VIPER", Color: "#00ff44"},
		{ID: "agent3", Name: "T-NGMI", Color: "#00dd66"},
		{ID: "agent4", Name: "T-ALPHA", Color: "#00cc88"},
		{ID: "agent5", Name: "T-TEASE", Color: "#00bbaa"},
		{ID: "agent6", Name: "T-ORACLE", Color: "#00aacc"},
		{ID: "agent7", Name: "T-PRIME", Color: "#0099ee"},
		{ID: "agent8", Name: "T-WOKE", Color: "#0088ff"},
	}
}

// Registry is a read-only id-to-agent mapping built once at startup.
type Registry struct {
	byID map[string]Agent
	ids  []string
}

// NewRegistry builds a registry from the given roster. Duplicate IDs
// keep the first occurrence.
func NewRegistry(agents []Agent) *Registry {
	r := &Registry{byID: make(map[string]Agent, len(agents))}
	for _, a := range agents {
		if _, ok := r.byID[a.ID]; ok {
			continue
		}
		r.byID[a.ID] = a
		r.ids = append(r.ids, a.ID)
	}
	sort.Strings(r.ids)
	return r
}

// Lookup returns the agent with the given id.
func (r *Registry) Lookup(id string) (Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// IDs returns all agent ids in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// All returns a copy of the id-to-agent mapping.
func (r *Registry) All() map[string]Agent {
	out := make(map[string]Agent, len(r.byID))
	for id, a := range r.byID {
		out[id] = a
	}
	return out
}
