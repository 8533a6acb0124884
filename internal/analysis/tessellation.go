package analysis

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/geometry"
	"github.com/sells-group/popframe/internal/model"
)

// Tessellate returns the Voronoi cell of every settlement clipped to the
// boundary, keyed by settlement id. Cells left empty by the clip are
// omitted. Settlements sharing a location share a cell.
func Tessellate(settlements []model.Settlement, boundary *geos.Geom) (map[int64]*geos.Geom, error) {
	cells := make(map[int64]*geos.Geom, len(settlements))
	switch len(settlements) {
	case 0:
		return cells, nil
	case 1:
		cells[settlements[0].ID] = boundary.Clone()
		return cells, nil
	}

	coords := make([][2]float64, len(settlements))
	for i, s := range settlements {
		coords[i] = [2]float64{s.X, s.Y}
	}
	sites, err := geometry.MultiPoint(coords)
	if err != nil {
		return nil, err
	}
	env := boundary.Envelope()
	diagram, err := geometry.Safe("voronoi", func() *geos.Geom { return sites.VoronoiDiagram(env, 0, false) })
	if err != nil {
		return nil, eris.Wrap(err, "analysis: voronoi")
	}
	raw := geometry.Parts(diagram)

	for _, s := range settlements {
		pt, err := geometry.Point(s.X, s.Y)
		if err != nil {
			return nil, err
		}
		cell := cellFor(pt, raw)
		if cell == nil {
			zap.L().Warn("analysis: no voronoi cell for settlement", zap.Int64("id", s.ID))
			continue
		}
		clipped, err := geometry.Intersection(cell, boundary)
		if err != nil {
			return nil, eris.Wrapf(err, "analysis: clip cell of %d", s.ID)
		}
		polys := geometry.Parts(clipped)
		if len(polys) == 0 {
			continue
		}
		merged, err := geometry.UnionAll(polys)
		if err != nil {
			return nil, err
		}
		if merged == nil || merged.IsEmpty() {
			continue
		}
		cells[s.ID] = merged
	}
	return cells, nil
}

// cellFor returns the cell containing pt, falling back to the first cell
// touching it.
func cellFor(pt *geos.Geom, cells []*geos.Geom) *geos.Geom {
	for _, c := range cells {
		if c.Contains(pt) {
			return c
		}
	}
	for _, c := range cells {
		if c.Intersects(pt) {
			return c
		}
	}
	return nil
}
