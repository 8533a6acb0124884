package analysis

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geos"

	"github.com/sells-group/popframe/internal/geometry"
	"github.com/sells-group/popframe/internal/model"
)

// Partition unions the cells of each community, splits every union into its
// disjoint parts and names each part after the most populous settlement
// located in it. Settlements sharing a location share a cell; that cell goes
// only to the community of the most populous of them, ties to the smallest
// id. Parts holding no settlement are dropped. Areas are ordered by
// community, then name.
func Partition(settlements []model.Settlement, communities map[int64]int, cells map[int64]*geos.Geom, srid int) ([]model.FrameArea, error) {
	owners := cellOwners(settlements, communities, cells)
	members := make(map[int][]*geos.Geom)
	for _, s := range settlements {
		if !owners[s.ID] {
			continue
		}
		c := communities[s.ID]
		members[c] = append(members[c], cells[s.ID])
	}

	points := make([]*geos.Geom, len(settlements))
	for i, s := range settlements {
		pt, err := geometry.Point(s.X, s.Y)
		if err != nil {
			return nil, err
		}
		points[i] = pt
	}

	areas := make([]model.FrameArea, 0, len(members))
	for c, group := range members {
		union, err := geometry.UnionAll(group)
		if err != nil {
			return nil, eris.Wrapf(err, "analysis: union community %d", c)
		}
		if union == nil {
			continue
		}
		for _, part := range geometry.Parts(union) {
			// Repair may split a part in several polygons.
			repaired, ok := geometry.RepairOrDrop(part)
			if !ok {
				continue
			}
			for _, piece := range geometry.Parts(repaired) {
				area, ok, err := label(piece, c, settlements, points, srid)
				if err != nil {
					return nil, err
				}
				if ok {
					areas = append(areas, area)
				}
			}
		}
	}

	sort.Slice(areas, func(i, j int) bool {
		if areas[i].Community != areas[j].Community {
			return areas[i].Community < areas[j].Community
		}
		return areas[i].Name < areas[j].Name
	})
	return areas, nil
}

// cellOwners picks, per location, the one settlement whose community
// receives the cell there. Settlements without a community or a cell own
// nothing.
func cellOwners(settlements []model.Settlement, communities map[int64]int, cells map[int64]*geos.Geom) map[int64]bool {
	best := make(map[[2]float64]model.Settlement)
	for _, s := range settlements {
		if _, ok := communities[s.ID]; !ok {
			continue
		}
		if _, ok := cells[s.ID]; !ok {
			continue
		}
		at := [2]float64{s.X, s.Y}
		cur, ok := best[at]
		if !ok || s.Population > cur.Population || (s.Population == cur.Population && s.ID < cur.ID) {
			best[at] = s
		}
	}
	owners := make(map[int64]bool, len(best))
	for _, s := range best {
		owners[s.ID] = true
	}
	return owners
}

// label names a valid polygon after the settlements inside it.
func label(part *geos.Geom, community int, settlements []model.Settlement, points []*geos.Geom, srid int) (model.FrameArea, bool, error) {
	area := model.FrameArea{Community: community}
	best := -1
	for i, s := range settlements {
		hit, err := geometry.Intersects(part, points[i])
		if err != nil {
			return model.FrameArea{}, false, err
		}
		if !hit {
			continue
		}
		area.Settlements = append(area.Settlements, s.ID)
		area.Population += s.Population
		if best < 0 || s.Population > settlements[best].Population ||
			(s.Population == settlements[best].Population && s.ID < settlements[best].ID) {
			best = i
		}
	}
	if best < 0 {
		return model.FrameArea{}, false, nil
	}
	area.Name = settlements[best].Name
	sort.Slice(area.Settlements, func(i, j int) bool { return area.Settlements[i] < area.Settlements[j] })

	poly, err := geometry.ToPolygon(part, srid)
	if err != nil {
		return model.FrameArea{}, false, eris.Wrapf(err, "analysis: area %q", area.Name)
	}
	area.Geometry = poly
	return area, true, nil
}
