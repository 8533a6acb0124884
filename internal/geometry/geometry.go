// Package geometry bridges go-geom values and GEOS operations used by the
// agglomeration and tessellation engines.
package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// FromGeom converts a go-geom geometry into a GEOS geometry via WKB.
func FromGeom(g geom.T) (*geos.Geom, error) {
	data, err := wkb.Marshal(g, wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: marshal wkb")
	}
	gg, err := geos.NewGeomFromWKB(data)
	if err != nil {
		return nil, eris.Wrap(err, "geometry: parse wkb")
	}
	return gg, nil
}

// ToGeom converts a GEOS geometry back into go-geom.
func ToGeom(g *geos.Geom) (geom.T, error) {
	t, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, eris.Wrap(err, "geometry: unmarshal wkb")
	}
	return t, nil
}

// ToPolygon converts a GEOS polygon into a go-geom polygon stamped with srid.
func ToPolygon(g *geos.Geom, srid int) (*geom.Polygon, error) {
	t, err := ToGeom(g)
	if err != nil {
		return nil, err
	}
	p, ok := t.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("geometry: expected polygon, got %T", t)
	}
	return p.SetSRID(srid), nil
}

// Point returns a GEOS point.
func Point(x, y float64) (*geos.Geom, error) {
	return FromGeom(geom.NewPointFlat(geom.XY, []float64{x, y}))
}

// MultiPoint returns a GEOS multipoint over coords, preserving order.
func MultiPoint(coords [][2]float64) (*geos.Geom, error) {
	flat := make([]float64, 0, 2*len(coords))
	for _, c := range coords {
		flat = append(flat, c[0], c[1])
	}
	return FromGeom(geom.NewMultiPointFlat(geom.XY, flat))
}

// IsPolygonal reports whether g is a Polygon or MultiPolygon.
func IsPolygonal(g *geos.Geom) bool {
	if g == nil {
		return false
	}
	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
		return true
	}
	return false
}

// Parts returns the non-empty polygons contained in g, descending into
// multipolygons and collections. Each part is an independent clone.
func Parts(g *geos.Geom) []*geos.Geom {
	if g == nil || g.IsEmpty() {
		return nil
	}
	switch g.TypeID() {
	case geos.TypeIDPolygon:
		return []*geos.Geom{g.Clone()}
	case geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		var parts []*geos.Geom
		for i := 0; i < g.NumGeometries(); i++ {
			parts = append(parts, Parts(g.Geometry(i))...)
		}
		return parts
	}
	return nil
}

// Largest returns the polygon part of g with the greatest area, or nil when
// g has no polygonal part. Ties keep the first part.
func Largest(g *geos.Geom) *geos.Geom {
	var best *geos.Geom
	bestArea := -1.0
	for _, p := range Parts(g) {
		if a := p.Area(); a > bestArea {
			best, bestArea = p, a
		}
	}
	return best
}

// UnionAll unions gs into one geometry. Nil and empty inputs are skipped;
// the result is nil when nothing remains.
func UnionAll(gs []*geos.Geom) (*geos.Geom, error) {
	var acc *geos.Geom
	for _, g := range gs {
		if g == nil || g.IsEmpty() {
			continue
		}
		if acc == nil {
			acc = g.Clone()
			continue
		}
		next, err := Safe("union", func() *geos.Geom { return acc.Union(g) })
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// Intersection clips g by clip.
func Intersection(g, clip *geos.Geom) (*geos.Geom, error) {
	return Safe("intersection", func() *geos.Geom { return g.Intersection(clip) })
}

// Safe runs a GEOS operation, turning a GEOS panic (topology exception,
// null result) into an error.
func Safe(op string, fn func() *geos.Geom) (g *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			g = nil
			err = eris.Errorf("geometry: %s: %v", op, r)
		}
	}()
	return fn(), nil
}

// Intersects reports whether a and b share any point.
func Intersects(a, b *geos.Geom) (hit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			hit = false
			err = eris.Errorf("geometry: intersects: %v", r)
		}
	}()
	return a.Intersects(b), nil
}

// Within reports whether a lies inside b.
func Within(a, b *geos.Geom) (in bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			in = false
			err = eris.Errorf("geometry: within: %v", r)
		}
	}()
	return a.Within(b), nil
}
