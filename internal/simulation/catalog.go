// Package simulation provides the static catalog of interactive
// simulations the tutor can teach with, and deterministic URL
// construction for embedding them.
package simulation

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ashureev/simtutor/internal/domain"
)

//go:embed simulations.yaml
var catalogYAML []byte

// Parameter describes one adjustable simulation control.
type Parameter struct {
	Name   string `yaml:"name"`
	Label  string `yaml:"label"`
	Range  string `yaml:"range"`
	URLKey string `yaml:"url_key"`
	Effect string `yaml:"effect"`
}

// Simulation is one entry in the catalog: metadata, controls, and the
// predefined concepts used as a fallback teaching plan.
type Simulation struct {
	ID                string           `yaml:"id"`
	Title             string           `yaml:"title"`
	File              string           `yaml:"file"`
	Description       string           `yaml:"description"`
	CannotDemonstrate []string         `yaml:"cannot_demonstrate"`
	InitialParams     map[string]any   `yaml:"initial_params"`
	Parameters        []Parameter      `yaml:"parameters"`
	Concepts          []domain.Concept `yaml:"concepts"`
}

// Summary is the id/title projection used by list endpoints.
type Summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Catalog is the loaded registry of simulations, keyed by id and
// preserving declaration order.
type Catalog struct {
	sims  map[string]*Simulation
	order []string
}

type catalogFile struct {
	Simulations []*Simulation `yaml:"simulations"`
}

// LoadCatalog parses the embedded catalog. A malformed catalog is a
// build defect, reported as a fatal configuration error.
func LoadCatalog() (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		return nil, fmt.Errorf("parse simulation catalog: %w", err)
	}
	if len(file.Simulations) == 0 {
		return nil, fmt.Errorf("simulation catalog is empty")
	}

	c := &Catalog{sims: make(map[string]*Simulation, len(file.Simulations))}
	for _, sim := range file.Simulations {
		if sim.ID == "" {
			return nil, fmt.Errorf("simulation catalog entry without id")
		}
		if _, dup := c.sims[sim.ID]; dup {
			return nil, fmt.Errorf("duplicate simulation id %q", sim.ID)
		}
		c.sims[sim.ID] = sim
		c.order = append(c.order, sim.ID)
	}
	return c, nil
}

// Get returns the simulation for the given id.
func (c *Catalog) Get(id string) (*Simulation, bool) {
	sim, ok := c.sims[id]
	return sim, ok
}

// IDs returns all simulation ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

// List returns id/title summaries in catalog order.
func (c *Catalog) List() []Summary {
	out := make([]Summary, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, Summary{ID: id, Title: c.sims[id].Title})
	}
	return out
}

// ParamByName returns the parameter definition with the given name.
func (s *Simulation) ParamByName(name string) *Parameter {
	for i := range s.Parameters {
		if s.Parameters[i].Name == name {
			return &s.Parameters[i]
		}
	}
	return nil
}

// ParamRanges maps parameter names to their declared range strings,
// as consumed by the quiz rule evaluator.
func (s *Simulation) ParamRanges() map[string]string {
	out := make(map[string]string, len(s.Parameters))
	for _, p := range s.Parameters {
		out[p.Name] = p.Range
	}
	return out
}
