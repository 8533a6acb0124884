package agglomeration

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geos"

	"github.com/sells-group/popframe/internal/geometry"
	"github.com/sells-group/popframe/internal/model"
)

// Membership classifies each settlement against the final agglomerations.
// A settlement named among the core cities of an agglomeration containing it
// is a center. Otherwise it is a member of the last agglomeration containing
// it, or outside with level 0.
func Membership(settlements []model.Settlement, aggs []model.Agglomeration) ([]model.Membership, error) {
	polys := make([]*geos.Geom, len(aggs))
	cores := make([]map[string]bool, len(aggs))
	for i, a := range aggs {
		g, err := geometry.FromGeom(a.Geometry)
		if err != nil {
			return nil, eris.Wrapf(err, "agglomeration: membership geometry %q", a.Name)
		}
		polys[i] = g
		cores[i] = make(map[string]bool, len(a.CoreCities))
		for _, c := range a.CoreCities {
			cores[i][c] = true
		}
	}

	out := make([]model.Membership, len(settlements))
	for i, s := range settlements {
		m := model.Membership{SettlementID: s.ID, Name: s.Name, Status: model.StatusOutside}
		pt, err := geometry.Point(s.X, s.Y)
		if err != nil {
			return nil, err
		}
		for j, poly := range polys {
			hit, err := geometry.Intersects(pt, poly)
			if err != nil {
				return nil, err
			}
			if !hit {
				continue
			}
			m.Status = model.StatusMember
			m.Level = aggs[j].Level
			m.Agglomeration = aggs[j].Name
			if cores[j][s.Name] {
				m.Status = model.StatusCenter
				break
			}
		}
		out[i] = m
	}
	return out, nil
}
