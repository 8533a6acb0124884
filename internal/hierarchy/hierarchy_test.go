package hierarchy

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/popframe/internal/model"
)

func TestClassify(t *testing.T) {
	c := Default()
	tests := []struct {
		name     string
		pop      int
		expected model.Level
	}{
		{"smallest", 1, 1},
		{"rural upper edge", 200, 1},
		{"medium rural lower edge", 201, 2},
		{"small town", 20000, 5},
		{"small town upper edge", 50000, 5},
		{"medium city", 50001, 6},
		{"big city edge", 250000, 7},
		{"large city", 400000, 8},
		{"largest city", 1800000, 9},
		{"largest city edge", 3000000, 9},
		{"super-large", 3000001, 10},
		{"max int", math.MaxInt, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier, err := c.Classify(tt.pop)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tier.Rank)
			assert.Equal(t, c.Name(tt.expected), tier.Name)
		})
	}
}

func TestClassify_InvalidPopulation(t *testing.T) {
	c := Default()
	for _, p := range []int{0, -1, math.MinInt} {
		_, err := c.Classify(p)
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrInvalidInput))
	}
}

func TestDefaultPartitionsPositiveIntegers(t *testing.T) {
	c := Default()
	tiers := c.Tiers()
	probes := []int{1}
	for _, tr := range tiers {
		if !tr.Unbounded {
			probes = append(probes, tr.Upper-1, tr.Upper, tr.Upper+1)
		}
	}
	for _, p := range probes {
		matches := 0
		for _, tr := range tiers {
			if tr.Contains(p) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "population %d", p)
	}
}

func TestTopAndName(t *testing.T) {
	c := Default()
	assert.Equal(t, model.Level(10), c.Top())
	assert.Equal(t, "Small town", c.Name(5))
	assert.Empty(t, c.Name(0))
	assert.Empty(t, c.Name(11))
}

func TestNew_Invalid(t *testing.T) {
	valid := Default().Tiers()

	gap := append([]Tier(nil), valid...)
	gap[3].Lower = 3500

	unboundedMiddle := append([]Tier(nil), valid...)
	unboundedMiddle[4].Unbounded = true

	closedTop := append([]Tier(nil), valid...)
	closedTop[9].Unbounded = false
	closedTop[9].Upper = 10000000

	tests := []struct {
		name  string
		tiers []Tier
		want  string
	}{
		{"too few", valid[:9], "want 10 tiers"},
		{"gap", gap, "starts at 3500"},
		{"unbounded middle", unboundedMiddle, "only the last tier"},
		{"closed top", closedTop, "only the last tier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.tiers)
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

const customYAML = `
levels:
  - name: Hamlet
    upper: 100
  - name: Village
    upper: 500
  - name: Large village
    upper: 2000
  - name: Rural centre
    upper: 5000
  - name: Town
    upper: 30000
  - name: Medium city
    upper: 100000
  - name: Big city
    upper: 250000
  - name: Large city
    upper: 1000000
  - name: Largest city
    upper: 3000000
  - name: Metropolis
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(customYAML))
	require.NoError(t, err)

	tier, err := c.Classify(40000)
	require.NoError(t, err)
	assert.Equal(t, "Medium city", tier.Name)
	assert.Equal(t, model.Level(6), tier.Rank)

	tier, err = c.Classify(5000000)
	require.NoError(t, err)
	assert.Equal(t, "Metropolis", tier.Name)
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Small rural settlement", c.Name(1))

	path := filepath.Join(t.TempDir(), "levels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(customYAML), 0o644))
	c, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Hamlet", c.Name(1))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	c := Default()
	in := []model.Settlement{
		{ID: 1, Name: "A", Population: 2000000},
		{ID: 2, Name: "B", Population: 150},
	}
	out, err := c.Apply(in)
	require.NoError(t, err)

	assert.Equal(t, model.Level(9), out[0].Level)
	assert.Equal(t, "Largest city", out[0].LevelName)
	assert.Equal(t, model.Level(1), out[1].Level)
	// Input untouched.
	assert.Equal(t, model.LevelUnset, in[0].Level)

	_, err = c.Apply([]model.Settlement{{ID: 3, Name: "Ghost", Population: 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settlement 3 (Ghost)")
}
