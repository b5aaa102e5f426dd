package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/regions.yaml
var regionsYAML []byte

// Mapping lists the muscles and nerves associated with one body region.
type Mapping struct {
	Primary   []string `json:"primary" yaml:"primary"`
	Secondary []string `json:"secondary" yaml:"secondary"`
	Nerves    []string `json:"nerves" yaml:"nerves"`
}

func (m Mapping) clone() Mapping {
	return Mapping{
		Primary:   append([]string(nil), m.Primary...),
		Secondary: append([]string(nil), m.Secondary...),
		Nerves:    append([]string(nil), m.Nerves...),
	}
}

// RegionCatalog is the read-only table from region identifier to muscle/nerve mapping.
type RegionCatalog struct {
	regions map[string]Mapping
}

// ParseRegions builds a catalog from a YAML document keyed by region id.
func ParseRegions(data []byte) (*RegionCatalog, error) {
	regions := map[string]Mapping{}
	if err := yaml.Unmarshal(data, &regions); err != nil {
		return nil, fmt.Errorf("parse region catalog: %w", err)
	}
	return &RegionCatalog{regions: regions}, nil
}

var (
	defaultRegions     *RegionCatalog
	defaultRegionsOnce sync.Once
)

// DefaultRegions returns the catalog compiled into the binary.
// The embedded table is validated by tests, so a parse failure is a programming error.
func DefaultRegions() *RegionCatalog {
	defaultRegionsOnce.Do(func() {
		c, err := ParseRegions(regionsYAML)
		if err != nil {
			panic(err)
		}
		defaultRegions = c
	})
	return defaultRegions
}

// Lookup returns the mapping for regionID. Unknown regions are reported with ok == false.
func (c *RegionCatalog) Lookup(regionID string) (Mapping, bool) {
	m, ok := c.regions[regionID]
	if !ok {
		return Mapping{}, false
	}
	return m.clone(), true
}

// PrimaryMuscles returns the primary muscles of regionID, or nil when unknown.
func (c *RegionCatalog) PrimaryMuscles(regionID string) []string {
	m, ok := c.regions[regionID]
	if !ok {
		return nil
	}
	return append([]string(nil), m.Primary...)
}

// UnionMuscles merges primary and secondary muscles of every known region in regionIDs.
// Names are deduplicated and returned in first-seen order; unknown regions are skipped.
func (c *RegionCatalog) UnionMuscles(regionIDs []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(names []string) {
		for _, n := range names {
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	for _, id := range regionIDs {
		m, ok := c.regions[id]
		if !ok {
			continue
		}
		add(m.Primary)
		add(m.Secondary)
	}
	return out
}

// IDs returns every region identifier, sorted.
func (c *RegionCatalog) IDs() []string {
	ids := make([]string, 0, len(c.regions))
	for id := range c.regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of regions.
func (c *RegionCatalog) Len() int {
	return len(c.regions)
}
