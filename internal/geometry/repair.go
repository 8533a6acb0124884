package geometry

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
)

// RepairOrDrop returns a valid, non-empty polygonal geometry derived from g,
// or false when no repair succeeds. Valid polygonal input is returned as is.
// Otherwise it tries a zero-width buffer, then rebuilds every polygon from
// its exterior ring alone.
func RepairOrDrop(g *geos.Geom) (*geos.Geom, bool) {
	if usable(g) {
		return g, true
	}
	if g == nil || g.IsEmpty() {
		return nil, false
	}

	if buffered, err := Safe("buffer(0)", func() *geos.Geom { return g.Buffer(0, 8) }); err == nil && usable(buffered) {
		zap.L().Debug("geometry: repaired with zero buffer")
		return buffered, true
	}

	if rebuilt, err := exteriorOnly(g); err == nil && usable(rebuilt) {
		zap.L().Debug("geometry: repaired from exterior ring")
		return rebuilt, true
	}

	zap.L().Debug("geometry: dropped irreparable geometry")
	return nil, false
}

func usable(g *geos.Geom) bool {
	return IsPolygonal(g) && !g.IsEmpty() && g.IsValid()
}

// exteriorOnly rebuilds every polygon part of g from its shell, discarding
// holes, and returns them as one multipolygon.
func exteriorOnly(g *geos.Geom) (*geos.Geom, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, part := range Parts(g) {
		t, err := ToGeom(part)
		if err != nil {
			return nil, err
		}
		p, ok := t.(*geom.Polygon)
		if !ok || p.NumLinearRings() == 0 {
			continue
		}
		shell := p.LinearRing(0)
		flat := shell.FlatCoords()
		rebuilt := geom.NewPolygonFlat(shell.Layout(), flat, []int{len(flat)})
		if err := mp.Push(rebuilt); err != nil {
			return nil, err
		}
	}
	if mp.NumPolygons() == 0 {
		return nil, nil
	}
	out, err := FromGeom(mp)
	if err != nil {
		return nil, err
	}
	if mp.NumPolygons() == 1 {
		return Largest(out), nil
	}
	return out, nil
}
