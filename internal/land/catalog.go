// Package land holds the static production profiles of land kinds. Land
// ownership and pricing live in an external service; the catalog only maps a
// kind to what it produces and how fast.
package land

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yieldland/production-core/internal/domain"
)

// Catalog maps land kinds to their production profiles.
type Catalog struct {
	profiles map[domain.LandKind]domain.LandProfile
}

type catalogFile struct {
	Version string               `yaml:"version"`
	Lands   []domain.LandProfile `yaml:"lands"`
}

// Load reads the catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read land catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse land catalog: %w", err)
	}

	profiles := make(map[domain.LandKind]domain.LandProfile, len(file.Lands))
	for _, p := range file.Lands {
		if !p.Kind.Valid() {
			return nil, fmt.Errorf("land catalog: unknown land kind %q", p.Kind)
		}
		if !p.Produces.Valid() {
			return nil, fmt.Errorf("land catalog: unknown resource %q for kind %q", p.Produces, p.Kind)
		}
		if _, dup := profiles[p.Kind]; dup {
			return nil, fmt.Errorf("land catalog: duplicate land kind %q", p.Kind)
		}
		if p.OutputMultiplier <= 0 || p.BaseGrainRate < 0 || p.TaxRate < 0 || p.TaxRate > 1 {
			return nil, fmt.Errorf("land catalog: invalid rates for kind %q", p.Kind)
		}
		profiles[p.Kind] = p
	}
	return &Catalog{profiles: profiles}, nil
}

// Default returns the built-in catalog used when no config file is provided.
func Default() *Catalog {
	profiles := map[domain.LandKind]domain.LandProfile{
		domain.LandMine:   {Kind: domain.LandMine, Produces: domain.ResourceIron, OutputMultiplier: 1.0, BaseGrainRate: 2.0, TaxRate: 0.1},
		domain.LandForest: {Kind: domain.LandForest, Produces: domain.ResourceWood, OutputMultiplier: 1.2, BaseGrainRate: 1.5, TaxRate: 0.1},
		domain.LandQuarry: {Kind: domain.LandQuarry, Produces: domain.ResourceStone, OutputMultiplier: 0.8, BaseGrainRate: 2.5, TaxRate: 0.1},
		domain.LandFarm:   {Kind: domain.LandFarm, Produces: domain.ResourceGrain, OutputMultiplier: 1.0, BaseGrainRate: 1.0, TaxRate: 0.05},
	}
	return &Catalog{profiles: profiles}
}

// LoadOrDefault loads the catalog from path, falling back to the built-in
// defaults when the file does not exist.
func LoadOrDefault(path string) (*Catalog, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Profile returns the production profile for a land kind.
func (c *Catalog) Profile(kind domain.LandKind) (domain.LandProfile, bool) {
	p, ok := c.profiles[kind]
	return p, ok
}

// Kinds returns every configured land kind.
func (c *Catalog) Kinds() []domain.LandKind {
	kinds := make([]domain.LandKind, 0, len(c.profiles))
	for k := range c.profiles {
		kinds = append(kinds, k)
	}
	return kinds
}
