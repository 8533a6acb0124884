package region

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/popframe/internal/model"
)

func testBoundary() *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		-100000, -100000, 100000, -100000, 100000, 100000, -100000, 100000, -100000, -100000,
	}, []int{10}).SetSRID(3857)
}

func testSettlements() []model.Settlement {
	return []model.Settlement{
		{ID: 1, Name: "A", Population: 2000000, X: 0, Y: 0},
		{ID: 2, Name: "B", Population: 1800000, X: 30000, Y: 0},
		{ID: 3, Name: "C", Population: 400000, X: 0, Y: 42000},
	}
}

func testMatrix(t *testing.T) *model.Matrix {
	t.Helper()
	m, err := model.NewMatrix([]int64{1, 2, 3}, [][]float64{
		{0, 40, 70},
		{40, 0, 75},
		{70, 75, 0},
	})
	require.NoError(t, err)
	return m
}

func TestNew_ClassifiesLevels(t *testing.T) {
	r, err := New(testSettlements(), testMatrix(t), testBoundary())
	require.NoError(t, err)

	s, err := r.Settlements(UseDefault())
	require.NoError(t, err)
	require.Len(t, s, 3)
	assert.Equal(t, model.Level(9), s[0].Level)
	assert.Equal(t, "Largest city", s[0].LevelName)
	assert.Equal(t, model.Level(8), s[2].Level)
	assert.Equal(t, 3857, r.SRID())
}

func TestNew_KeepsProvidedLevel(t *testing.T) {
	in := testSettlements()
	in[2].Level = 9
	r, err := New(in, testMatrix(t), testBoundary())
	require.NoError(t, err)

	s, err := r.Settlements(UseDefault())
	require.NoError(t, err)
	assert.Equal(t, model.Level(9), s[2].Level)
}

func TestNew_InvalidInput(t *testing.T) {
	otherMatrix, err := model.NewMatrix([]int64{1, 2, 4}, [][]float64{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}})
	require.NoError(t, err)
	smallMatrix, err := model.NewMatrix([]int64{1, 2}, [][]float64{{0, 1}, {1, 0}})
	require.NoError(t, err)

	tests := []struct {
		name     string
		mutate   func([]model.Settlement) []model.Settlement
		matrix   *model.Matrix
		boundary geom.T
		opts     []Option
		want     string
	}{
		{
			name:   "zero population",
			mutate: func(s []model.Settlement) []model.Settlement { s[0].Population = 0; return s },
			want:   "settlement 1",
		},
		{
			name:   "negative population",
			mutate: func(s []model.Settlement) []model.Settlement { s[1].Population = -5; return s },
			want:   "settlement 2",
		},
		{
			name:   "missing name",
			mutate: func(s []model.Settlement) []model.Settlement { s[0].Name = ""; return s },
			want:   "settlement 1",
		},
		{
			name:   "duplicate id",
			mutate: func(s []model.Settlement) []model.Settlement { s[2].ID = 1; return s },
			want:   "duplicate settlement id 1",
		},
		{
			name:   "nan coordinate",
			mutate: func(s []model.Settlement) []model.Settlement { s[0].X = math.NaN(); return s },
			want:   "non-finite",
		},
		{
			name:   "level above top",
			mutate: func(s []model.Settlement) []model.Settlement { s[0].Level = 11; return s },
			want:   "level 11",
		},
		{name: "matrix id mismatch", matrix: otherMatrix, want: "settlement 3 missing from matrix"},
		{name: "matrix size mismatch", matrix: smallMatrix, want: "matrix has 2 ids for 3 settlements"},
		{name: "point boundary", boundary: geom.NewPointFlat(geom.XY, []float64{0, 0}), want: "must be polygonal"},
		{name: "empty boundary", boundary: geom.NewPolygon(geom.XY), want: "empty boundary"},
		{name: "crs mismatch", opts: []Option{WithSettlementSRID(4326)}, want: "srid 4326 differs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettlements()
			if tt.mutate != nil {
				s = tt.mutate(s)
			}
			m := tt.matrix
			if m == nil {
				m = testMatrix(t)
			}
			var b geom.T = testBoundary()
			if tt.boundary != nil {
				b = tt.boundary
			}
			_, err := New(s, m, b, tt.opts...)
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSettlements_Provided(t *testing.T) {
	r, err := New(testSettlements(), testMatrix(t), testBoundary())
	require.NoError(t, err)

	s, err := r.Settlements(Provided(map[int64]int{3: 3500000}))
	require.NoError(t, err)
	assert.Equal(t, 3500000, s[2].Population)
	assert.Equal(t, model.Level(10), s[2].Level)
	assert.Equal(t, "Super-large city", s[2].LevelName)

	// The region itself is unchanged.
	orig, err := r.Settlements(UseDefault())
	require.NoError(t, err)
	assert.Equal(t, 400000, orig[2].Population)
	assert.Equal(t, model.Level(8), orig[2].Level)
}

func TestSettlements_ProvidedInvalid(t *testing.T) {
	r, err := New(testSettlements(), testMatrix(t), testBoundary())
	require.NoError(t, err)

	_, err = r.Settlements(Provided(map[int64]int{99: 1000}))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidInput))

	_, err = r.Settlements(Provided(map[int64]int{1: 0}))
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrInvalidInput))
}

func TestPopulationSource(t *testing.T) {
	assert.True(t, UseDefault().IsDefault())

	updates := map[int64]int{1: 10}
	src := Provided(updates)
	assert.False(t, src.IsDefault())
	updates[1] = 20
	assert.Equal(t, 10, src.updates[1])
}

func TestBoundaryGeom(t *testing.T) {
	r, err := New(testSettlements(), testMatrix(t), testBoundary())
	require.NoError(t, err)
	g, err := r.BoundaryGeom()
	require.NoError(t, err)
	assert.InDelta(t, 4e10, g.Area(), 1)
}
