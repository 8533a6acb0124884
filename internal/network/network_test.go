package network

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/popframe/internal/model"
)

// symmetric builds a matrix from upper-triangle times keyed by id pair.
func symmetric(t *testing.T, ids []int64, times map[[2]int64]float64) *model.Matrix {
	t.Helper()
	idx := make(map[int64]int, len(ids))
	for i, id := range ids {
		idx[id] = i
	}
	values := make([][]float64, len(ids))
	for i := range values {
		values[i] = make([]float64, len(ids))
		for j := range values[i] {
			if i != j {
				values[i][j] = 1000
			}
		}
	}
	for k, v := range times {
		values[idx[k[0]]][idx[k[1]]] = v
		values[idx[k[1]]][idx[k[0]]] = v
	}
	m, err := model.NewMatrix(ids, values)
	require.NoError(t, err)
	return m
}

func settlement(id int64, level model.Level) model.Settlement {
	return model.Settlement{ID: id, Name: "s", Population: 1000, Level: level}
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

func TestBuild_NearestDenserLink(t *testing.T) {
	// 1,2 top tier; 3 mid tier; 4,5 low tier.
	s := []model.Settlement{
		settlement(1, 9), settlement(2, 9),
		settlement(3, 7),
		settlement(4, 5), settlement(5, 5),
	}
	m := symmetric(t, []int64{1, 2, 3, 4, 5}, map[[2]int64]float64{
		{1, 2}: 40,
		{1, 3}: 30, {2, 3}: 50,
		{4, 3}: 20, {4, 1}: 10, // 4 links straight to the top tier
		{5, 3}: 15, {5, 2}: 60,
	})

	g, err := Build(s, m)
	require.NoError(t, err)

	assert.True(t, g.HasEdge(4, 1))
	assert.False(t, g.HasEdge(4, 3))
	assert.True(t, g.HasEdge(5, 3))
	assert.True(t, g.HasEdge(3, 1))
	assert.True(t, g.HasEdge(1, 2))
	assert.Len(t, g.Edges(), 4)
	assert.True(t, g.Connected())
	assert.Empty(t, g.Isolated())

	for _, e := range g.Edges() {
		if e.From == 4 {
			assert.Equal(t, model.Level(5), e.Level)
			assert.InDelta(t, 10.0, e.Time, 1e-9)
		}
		if e.From == 1 && e.To == 2 {
			assert.Equal(t, model.Level(9), e.Level)
		}
	}
}

func TestBuild_TieBreakSmallestID(t *testing.T) {
	s := []model.Settlement{settlement(7, 9), settlement(3, 9), settlement(5, 4)}
	m := symmetric(t, []int64{7, 3, 5}, map[[2]int64]float64{
		{5, 7}: 25, {5, 3}: 25, {3, 7}: 10,
	})
	g, err := Build(s, m)
	require.NoError(t, err)
	assert.True(t, g.HasEdge(5, 3))
	assert.False(t, g.HasEdge(5, 7))
}

func TestBuild_NoDuplicateEdges(t *testing.T) {
	s := []model.Settlement{settlement(1, 9), settlement(2, 9), settlement(3, 9), settlement(4, 6), settlement(5, 6), settlement(6, 2)}
	m := symmetric(t, []int64{1, 2, 3, 4, 5, 6}, map[[2]int64]float64{
		{1, 2}: 5, {2, 3}: 6, {1, 3}: 7,
		{4, 1}: 3, {5, 1}: 3, {6, 4}: 1,
	})
	g, err := Build(s, m)
	require.NoError(t, err)

	seen := map[[2]int64]bool{}
	for _, e := range g.Edges() {
		k := pairKey(e.From, e.To)
		assert.False(t, seen[k], "duplicate edge %v", k)
		seen[k] = true
	}
	// Three nearest-denser links plus two tree edges.
	assert.Len(t, g.Edges(), 3+2)
}

func TestBuild_Deterministic(t *testing.T) {
	s := []model.Settlement{settlement(1, 10), settlement(2, 10), settlement(3, 10), settlement(4, 10), settlement(5, 2)}
	// All top pairs tie.
	m := symmetric(t, []int64{1, 2, 3, 4, 5}, map[[2]int64]float64{
		{1, 2}: 10, {1, 3}: 10, {1, 4}: 10, {2, 3}: 10, {2, 4}: 10, {3, 4}: 10,
		{5, 1}: 1,
	})
	first, err := Build(s, m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Build(s, m)
		require.NoError(t, err)
		assert.Equal(t, first.Edges(), again.Edges())
	}
}

func TestBuild_ConnectedAcrossTiers(t *testing.T) {
	// One settlement per tier from 1 to 10 plus a second top node.
	var s []model.Settlement
	var ids []int64
	times := map[[2]int64]float64{}
	for lvl := int64(1); lvl <= 10; lvl++ {
		s = append(s, settlement(lvl, model.Level(lvl)))
		ids = append(ids, lvl)
	}
	s = append(s, settlement(11, 10))
	ids = append(ids, 11)
	for _, a := range ids {
		for _, b := range ids {
			if a < b {
				times[[2]int64{a, b}] = float64(b-a) * 10
			}
		}
	}
	g, err := Build(s, symmetric(t, ids, times))
	require.NoError(t, err)
	assert.True(t, g.Connected())
	assert.Empty(t, g.Isolated())
	assert.Len(t, g.Edges(), len(ids)-1)

	// Single settlement: trivially connected, nothing isolated to report.
	one, err := Build([]model.Settlement{settlement(1, 3)}, symmetric(t, []int64{1}, nil))
	require.NoError(t, err)
	assert.True(t, one.Connected())
	assert.Empty(t, one.Isolated())
	assert.Empty(t, one.Edges())
}

func TestBuild_Empty(t *testing.T) {
	m, err := model.NewMatrix(nil, nil)
	require.NoError(t, err)
	g, err := Build(nil, m)
	require.NoError(t, err)
	assert.Empty(t, g.Edges())
	assert.True(t, g.Connected())
}

func TestBuild_InvalidInput(t *testing.T) {
	m := symmetric(t, []int64{1, 2}, map[[2]int64]float64{{1, 2}: 1})

	_, err := Build([]model.Settlement{settlement(1, 0), settlement(2, 3)}, m)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidInput))

	_, err = Build([]model.Settlement{settlement(1, 3), settlement(9, 3)}, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settlement 9 missing from matrix")

	_, err = Build([]model.Settlement{settlement(1, 3)}, nil)
	require.Error(t, err)
}

func TestComponents(t *testing.T) {
	s := []model.Settlement{settlement(1, 9), settlement(2, 9), settlement(3, 4)}
	m := symmetric(t, []int64{1, 2, 3}, map[[2]int64]float64{{1, 2}: 10, {3, 2}: 5})
	g, err := Build(s, m)
	require.NoError(t, err)

	comps := g.Components()
	require.Len(t, comps, 1)
	assert.Equal(t, []int64{1, 2, 3}, comps[0])
	assert.Equal(t, 1, g.Degree(1))
	assert.Equal(t, 2, g.Degree(2))
	assert.Equal(t, 0, g.Degree(42))

	n, ok := g.Node(3)
	require.True(t, ok)
	assert.Equal(t, model.Level(4), n.Level)
	_, ok = g.Node(42)
	assert.False(t, ok)
}
