// Package hierarchy classifies settlements into ordered size tiers by
// population.
package hierarchy

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/popframe/internal/model"
)

// Tier is one population interval (Lower, Upper] of the hierarchy.
// The top tier is open ended.
type Tier struct {
	Rank      model.Level
	Name      string
	Lower     int
	Upper     int
	Unbounded bool
}

// Contains reports whether population p falls in the tier.
func (t Tier) Contains(p int) bool {
	if p <= t.Lower {
		return false
	}
	return t.Unbounded || p <= t.Upper
}

// TierCount is the number of tiers every hierarchy must define.
const TierCount = 10

var defaultTiers = []Tier{
	{Rank: 1, Name: "Small rural settlement", Lower: 0, Upper: 200},
	{Rank: 2, Name: "Medium rural settlement", Lower: 200, Upper: 1000},
	{Rank: 3, Name: "Big rural settlement", Lower: 1000, Upper: 3000},
	{Rank: 4, Name: "Large rural settlement", Lower: 3000, Upper: 5000},
	{Rank: 5, Name: "Small town", Lower: 5000, Upper: 50000},
	{Rank: 6, Name: "Medium city", Lower: 50000, Upper: 100000},
	{Rank: 7, Name: "Big city", Lower: 100000, Upper: 250000},
	{Rank: 8, Name: "Large city", Lower: 250000, Upper: 1000000},
	{Rank: 9, Name: "Largest city", Lower: 1000000, Upper: 3000000},
	{Rank: 10, Name: "Super-large city", Lower: 3000000, Unbounded: true},
}

// Classifier maps populations to tiers. It is immutable and safe for
// concurrent use.
type Classifier struct {
	tiers []Tier
}

// Default returns the standard ten-tier hierarchy.
func Default() *Classifier {
	return &Classifier{tiers: append([]Tier(nil), defaultTiers...)}
}

// New builds a classifier from tiers ordered least dense first. The tiers
// must partition (0, inf): the first starts at 0, each starts where the
// previous ends, and only the last is unbounded.
func New(tiers []Tier) (*Classifier, error) {
	if len(tiers) != TierCount {
		return nil, eris.Wrapf(model.ErrInvalidInput, "hierarchy: want %d tiers, got %d", TierCount, len(tiers))
	}
	out := make([]Tier, len(tiers))
	prev := 0
	for i, t := range tiers {
		if t.Name == "" {
			return nil, eris.Wrapf(model.ErrInvalidInput, "hierarchy: tier %d has no name", i+1)
		}
		if t.Lower != prev {
			return nil, eris.Wrapf(model.ErrInvalidInput, "hierarchy: tier %q starts at %d, want %d", t.Name, t.Lower, prev)
		}
		last := i == len(tiers)-1
		if last != t.Unbounded {
			return nil, eris.Wrapf(model.ErrInvalidInput, "hierarchy: only the last tier may be unbounded (%q)", t.Name)
		}
		if !last && t.Upper <= t.Lower {
			return nil, eris.Wrapf(model.ErrInvalidInput, "hierarchy: tier %q is empty", t.Name)
		}
		t.Rank = model.Level(i + 1)
		out[i] = t
		prev = t.Upper
	}
	return &Classifier{tiers: out}, nil
}

type fileTier struct {
	Name  string `yaml:"name"`
	Upper *int   `yaml:"upper"`
}

type fileFormat struct {
	Levels []fileTier `yaml:"levels"`
}

// Parse reads a YAML hierarchy definition. Each entry names a tier and its
// inclusive upper bound; the last entry omits upper.
func Parse(data []byte) (*Classifier, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "hierarchy: parse yaml")
	}
	tiers := make([]Tier, len(f.Levels))
	lower := 0
	for i, ft := range f.Levels {
		tiers[i] = Tier{Name: ft.Name, Lower: lower}
		if ft.Upper == nil {
			tiers[i].Unbounded = true
			continue
		}
		tiers[i].Upper = *ft.Upper
		lower = *ft.Upper
	}
	return New(tiers)
}

// Load returns the default hierarchy when path is empty, otherwise the
// hierarchy defined in the YAML file at path.
func Load(path string) (*Classifier, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "hierarchy: read %s", path)
	}
	return Parse(data)
}

// Tiers returns the tiers, least dense first.
func (c *Classifier) Tiers() []Tier {
	return append([]Tier(nil), c.tiers...)
}

// Top returns the densest rank.
func (c *Classifier) Top() model.Level {
	return c.tiers[len(c.tiers)-1].Rank
}

// Name returns the tier name for a rank, or "" when out of range.
func (c *Classifier) Name(l model.Level) string {
	if l < 1 || int(l) > len(c.tiers) {
		return ""
	}
	return c.tiers[l-1].Name
}

// Classify returns the single tier containing population p.
func (c *Classifier) Classify(p int) (Tier, error) {
	if p <= 0 {
		return Tier{}, eris.Wrapf(model.ErrInvalidInput, "hierarchy: population %d must be > 0", p)
	}
	for _, t := range c.tiers {
		if t.Contains(p) {
			return t, nil
		}
	}
	return Tier{}, eris.Wrapf(model.ErrUnclassifiable, "hierarchy: population %d", p)
}

// Apply returns a copy of settlements with Level and LevelName set from
// each population. The input is not modified.
func (c *Classifier) Apply(settlements []model.Settlement) ([]model.Settlement, error) {
	out := model.CloneSettlements(settlements)
	for i := range out {
		t, err := c.Classify(out[i].Population)
		if err != nil {
			return nil, eris.Wrapf(err, "settlement %d (%s)", out[i].ID, out[i].Name)
		}
		out[i].Level = t.Rank
		out[i].LevelName = t.Name
	}
	return out, nil
}
