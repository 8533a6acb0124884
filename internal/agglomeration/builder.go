// Package agglomeration grows travel-time reachability polygons around
// anchor settlements, merges overlapping ones and finalizes them against the
// region boundary.
package agglomeration

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/geometry"
	"github.com/sells-group/popframe/internal/model"
	"github.com/sells-group/popframe/internal/region"
)

// Seed is the reachability polygon of one or more anchors.
type Seed struct {
	Names    []string
	Anchors  int
	Geometry *geos.Geom
}

// Builder produces agglomerations. It holds no state between calls.
type Builder struct {
	params Params
	clip   func(g, boundary *geos.Geom) (*geos.Geom, error)
}

// NewBuilder returns a Builder using p.
func NewBuilder(p Params) *Builder {
	return &Builder{params: p, clip: geometry.Intersection}
}

// Result is the output of Run.
type Result struct {
	Settlements    []model.Settlement
	Agglomerations []model.Agglomeration
	Memberships    []model.Membership
}

// Run resolves the population source against the region, builds the
// agglomerations and classifies every settlement's membership.
func (b *Builder) Run(r *region.Region, src region.PopulationSource) (*Result, error) {
	settlements, err := r.Settlements(src)
	if err != nil {
		return nil, err
	}
	boundary, err := r.BoundaryGeom()
	if err != nil {
		return nil, eris.Wrap(err, "agglomeration: boundary")
	}
	aggs, err := b.Build(settlements, r.Matrix(), boundary, r.SRID())
	if err != nil {
		return nil, err
	}
	members, err := Membership(settlements, aggs)
	if err != nil {
		return nil, err
	}
	return &Result{Settlements: settlements, Agglomerations: aggs, Memberships: members}, nil
}

// Build runs seed growth, merge and finalize. An input with no qualifying
// anchor yields an empty, non-nil slice.
func (b *Builder) Build(settlements []model.Settlement, matrix *model.Matrix, boundary *geos.Geom, srid int) ([]model.Agglomeration, error) {
	if matrix == nil || boundary == nil {
		return nil, eris.Wrap(model.ErrInvalidInput, "agglomeration: matrix and boundary are required")
	}
	points, err := pointsOf(settlements)
	if err != nil {
		return nil, err
	}

	seeds, err := b.Grow(settlements, points, matrix)
	if err != nil {
		return nil, err
	}
	merged, err := Merge(seeds)
	if err != nil {
		return nil, err
	}

	out := make([]model.Agglomeration, 0, len(merged))
	for _, s := range merged {
		a, ok, err := b.finalize(s, boundary, settlements, points, srid)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, a)
		}
	}

	zap.L().Info("agglomeration: built",
		zap.Int("seeds", len(seeds)),
		zap.Int("merged", len(merged)),
		zap.Int("agglomerations", len(out)),
	)
	return out, nil
}

func pointsOf(settlements []model.Settlement) (map[int64]*geos.Geom, error) {
	points := make(map[int64]*geos.Geom, len(settlements))
	for _, s := range settlements {
		p, err := geometry.Point(s.X, s.Y)
		if err != nil {
			return nil, eris.Wrapf(err, "agglomeration: point for settlement %d", s.ID)
		}
		points[s.ID] = p
	}
	return points, nil
}

// Grow builds one seed per anchor. Anchors are taken densest level first,
// then by descending population. The absorbed set lives for this call only.
func (b *Builder) Grow(settlements []model.Settlement, points map[int64]*geos.Geom, matrix *model.Matrix) ([]Seed, error) {
	order := model.CloneSettlements(settlements)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Level != order[j].Level {
			return order[i].Level > order[j].Level
		}
		if order[i].Population != order[j].Population {
			return order[i].Population > order[j].Population
		}
		return order[i].ID < order[j].ID
	})

	absorbed := make(map[int64]struct{})
	var seeds []Seed
	for _, anchor := range order {
		if _, ok := absorbed[anchor.ID]; ok || anchor.Population < b.params.MinPopulation {
			continue
		}
		maxTime := b.params.MaxTime(anchor.Level)
		if maxTime <= 0 {
			continue
		}

		g, reached, err := b.reach(anchor, maxTime, settlements, points, matrix)
		if err != nil {
			return nil, err
		}
		if len(reached) == 0 {
			continue
		}
		for _, s := range reached {
			if s.Population < b.params.MinPopulation {
				absorbed[s.ID] = struct{}{}
			}
		}

		repaired, ok := geometry.RepairOrDrop(g)
		if !ok {
			zap.L().Debug("agglomeration: dropped empty seed", zap.Int64("anchor", anchor.ID))
			continue
		}
		seeds = append(seeds, Seed{Names: []string{anchor.Name}, Anchors: 1, Geometry: repaired})
	}
	return seeds, nil
}

// reach buffers every settlement within maxTime of anchor by its remaining
// budget and unions the buffers.
func (b *Builder) reach(anchor model.Settlement, maxTime float64, settlements []model.Settlement, points map[int64]*geos.Geom, matrix *model.Matrix) (*geos.Geom, []model.Settlement, error) {
	var (
		reached []model.Settlement
		buffers []*geos.Geom
	)
	for _, s := range settlements {
		t, ok := matrix.Time(anchor.ID, s.ID)
		if !ok {
			return nil, nil, eris.Wrapf(model.ErrInvalidInput, "agglomeration: no travel time from %d to %d", anchor.ID, s.ID)
		}
		if t > maxTime {
			continue
		}
		reached = append(reached, s)
		radius := (maxTime - t) * b.params.RadiusUnit
		if radius <= 0 {
			continue
		}
		buffers = append(buffers, points[s.ID].Buffer(radius, b.params.QuadSegments))
	}
	g, err := geometry.UnionAll(buffers)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "agglomeration: union seed of %d", anchor.ID)
	}
	return g, reached, nil
}

// Merge joins seeds whose polygons intersect, transitively, and unions each
// group's geometry and anchor names. Output order follows the first seed of
// each group.
func Merge(seeds []Seed) ([]Seed, error) {
	ds := newDisjointSet(len(seeds))
	for i := range seeds {
		for j := i + 1; j < len(seeds); j++ {
			if ds.find(i) == ds.find(j) {
				continue
			}
			hit, err := geometry.Intersects(seeds[i].Geometry, seeds[j].Geometry)
			if err != nil {
				return nil, err
			}
			if hit {
				ds.union(i, j)
			}
		}
	}

	var out []Seed
	for _, group := range ds.groups() {
		var (
			geoms   []*geos.Geom
			names   []string
			seen    = map[string]bool{}
			anchors int
		)
		for _, i := range group {
			geoms = append(geoms, seeds[i].Geometry)
			anchors += seeds[i].Anchors
			for _, n := range seeds[i].Names {
				if !seen[n] {
					seen[n] = true
					names = append(names, n)
				}
			}
		}
		g, err := geometry.UnionAll(geoms)
		if err != nil {
			return nil, eris.Wrap(err, "agglomeration: merge")
		}
		repaired, ok := geometry.RepairOrDrop(g)
		if !ok {
			zap.L().Debug("agglomeration: dropped merged group", zap.Strings("anchors", names))
			continue
		}
		out = append(out, Seed{Names: names, Anchors: anchors, Geometry: repaired})
	}
	return out, nil
}

// finalize clips a merged seed to the boundary, keeps its largest part,
// repairs it and counts the population inside. A seed with nothing left
// after the clip is dropped; a failing clip is an error.
func (b *Builder) finalize(s Seed, boundary *geos.Geom, settlements []model.Settlement, points map[int64]*geos.Geom, srid int) (model.Agglomeration, bool, error) {
	clipped, err := b.clip(s.Geometry, boundary)
	if err != nil {
		return model.Agglomeration{}, false, eris.Wrapf(err, "agglomeration: clip %s", strings.Join(s.Names, ", "))
	}
	largest := geometry.Largest(clipped)
	final, ok := geometry.RepairOrDrop(largest)
	if !ok {
		zap.L().Debug("agglomeration: nothing left after clip", zap.Strings("anchors", s.Names))
		return model.Agglomeration{}, false, nil
	}
	// Repair may split a polygon; keep a single part.
	if final.TypeID() != geos.TypeIDPolygon {
		final = geometry.Largest(final)
	}

	population := 0
	for _, st := range settlements {
		hit, err := geometry.Intersects(points[st.ID], final)
		if err != nil {
			return model.Agglomeration{}, false, err
		}
		if hit {
			population += st.Population
		}
	}

	poly, err := geometry.ToPolygon(final, srid)
	if err != nil {
		return model.Agglomeration{}, false, eris.Wrap(err, "agglomeration: convert")
	}

	typ := model.Monocentric
	if s.Anchors > 1 {
		typ = model.Polycentric
	}
	return model.Agglomeration{
		Name:       strings.Join(s.Names, ", "),
		CoreCities: append([]string(nil), s.Names...),
		Type:       typ,
		Population: population,
		Level:      Level(population),
		Geometry:   poly,
	}, true, nil
}
