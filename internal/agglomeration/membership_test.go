package agglomeration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/popframe/internal/model"
)

func box(x0, y0, x1, y1 float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{x0, y0, x1, y0, x1, y1, x0, y1, x0, y0}, []int{10})
}

func TestMembership(t *testing.T) {
	aggs := []model.Agglomeration{
		{Name: "North", CoreCities: []string{"N"}, Level: 2, Geometry: box(0, 10, 10, 20)},
		{Name: "Overlap", CoreCities: []string{"O"}, Level: 3, Geometry: box(0, 0, 10, 12)},
	}
	settlements := []model.Settlement{
		{ID: 1, Name: "N", X: 5, Y: 15},   // core of North
		{ID: 2, Name: "M", X: 5, Y: 5},    // inside Overlap only
		{ID: 3, Name: "Both", X: 5, Y: 11}, // inside both, core of neither
		{ID: 4, Name: "O", X: 5, Y: 11},    // inside both, core of the second
		{ID: 5, Name: "Away", X: 50, Y: 50},
	}

	got, err := Membership(settlements, aggs)
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, model.StatusCenter, got[0].Status)
	assert.Equal(t, 2, got[0].Level)
	assert.Equal(t, "North", got[0].Agglomeration)

	assert.Equal(t, model.StatusMember, got[1].Status)
	assert.Equal(t, 3, got[1].Level)

	// Last containing agglomeration wins for plain members.
	assert.Equal(t, model.StatusMember, got[2].Status)
	assert.Equal(t, 3, got[2].Level)
	assert.Equal(t, "Overlap", got[2].Agglomeration)

	assert.Equal(t, model.StatusCenter, got[3].Status)
	assert.Equal(t, 3, got[3].Level)

	assert.Equal(t, model.StatusOutside, got[4].Status)
	assert.Equal(t, 0, got[4].Level)
	assert.Empty(t, got[4].Agglomeration)
}
