package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/movement_tests.yaml
var movementTestsYAML []byte

// ExpectedFindings describes how to read a positive or negative outcome.
type ExpectedFindings struct {
	Positive string `json:"positive" yaml:"positive"`
	Negative string `json:"negative" yaml:"negative"`
}

// MovementTest is a catalog entry for a guided clinical maneuver.
type MovementTest struct {
	ID               string           `json:"id" yaml:"id"`
	Name             string           `json:"name" yaml:"name"`
	TargetArea       []string         `json:"targetArea" yaml:"targetArea"`
	TargetMuscles    []string         `json:"targetMuscles" yaml:"targetMuscles"`
	Instructions     []string         `json:"instructions" yaml:"instructions"`
	DemonstrationURL string           `json:"demonstrationUrl,omitempty" yaml:"demonstrationUrl,omitempty"`
	Duration         int              `json:"duration" yaml:"duration"`
	Repetitions      int              `json:"repetitions,omitempty" yaml:"repetitions,omitempty"`
	ExpectedFindings ExpectedFindings `json:"expectedFindings" yaml:"expectedFindings"`
}

func (t MovementTest) clone() MovementTest {
	out := t
	out.TargetArea = append([]string(nil), t.TargetArea...)
	out.TargetMuscles = append([]string(nil), t.TargetMuscles...)
	out.Instructions = append([]string(nil), t.Instructions...)
	return out
}

// MovementCatalog is the read-only, ordered registry of movement tests.
type MovementCatalog struct {
	tests []MovementTest
	byID  map[string]int
}

// ParseMovementTests builds a catalog from a YAML list. Test ids must be unique.
func ParseMovementTests(data []byte) (*MovementCatalog, error) {
	var tests []MovementTest
	if err := yaml.Unmarshal(data, &tests); err != nil {
		return nil, fmt.Errorf("parse movement test catalog: %w", err)
	}
	byID := make(map[string]int, len(tests))
	for i, t := range tests {
		if t.ID == "" {
			return nil, fmt.Errorf("movement test at index %d has no id", i)
		}
		if _, dup := byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate movement test id %q", t.ID)
		}
		byID[t.ID] = i
	}
	return &MovementCatalog{tests: tests, byID: byID}, nil
}

var (
	defaultMovementTests     *MovementCatalog
	defaultMovementTestsOnce sync.Once
)

// DefaultMovementTests returns the catalog compiled into the binary.
func DefaultMovementTests() *MovementCatalog {
	defaultMovementTestsOnce.Do(func() {
		c, err := ParseMovementTests(movementTestsYAML)
		if err != nil {
			panic(err)
		}
		defaultMovementTests = c
	})
	return defaultMovementTests
}

// TestsForRegions returns, in declaration order, every test whose target areas
// share at least one region with regionIDs.
func (c *MovementCatalog) TestsForRegions(regionIDs []string) []MovementTest {
	if len(regionIDs) == 0 {
		return []MovementTest{}
	}
	wanted := make(map[string]struct{}, len(regionIDs))
	for _, id := range regionIDs {
		wanted[id] = struct{}{}
	}

	out := []MovementTest{}
	for _, t := range c.tests {
		for _, area := range t.TargetArea {
			if _, ok := wanted[area]; ok {
				out = append(out, t.clone())
				break
			}
		}
	}
	return out
}

// ByID returns the test with the given id.
func (c *MovementCatalog) ByID(testID string) (MovementTest, bool) {
	i, ok := c.byID[testID]
	if !ok {
		return MovementTest{}, false
	}
	return c.tests[i].clone(), true
}

// All returns every test in declaration order.
func (c *MovementCatalog) All() []MovementTest {
	out := make([]MovementTest, len(c.tests))
	for i, t := range c.tests {
		out[i] = t.clone()
	}
	return out
}

// Regions returns every region targeted by at least one test, in first-seen order.
func (c *MovementCatalog) Regions() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range c.tests {
		for _, area := range t.TargetArea {
			if _, ok := seen[area]; ok {
				continue
			}
			seen[area] = struct{}{}
			out = append(out, area)
		}
	}
	return out
}

// Len returns the number of tests.
func (c *MovementCatalog) Len() int {
	return len(c.tests)
}
