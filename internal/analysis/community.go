// Package analysis derives an alternative, topology-driven partition of the
// region: communities of the settlement network mapped onto a Voronoi
// tessellation of the settlement points.
package analysis

import (
	"math/rand/v2"
	"sort"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sells-group/popframe/internal/network"
)

// Weighting selects how network edges weigh in community detection.
type Weighting string

const (
	// Uniform gives every edge weight 1.
	Uniform Weighting = "uniform"
	// InverseTime weighs an edge by 1/(1+t) so faster links bind tighter.
	InverseTime Weighting = "inverse_time"
)

// Params configures community detection.
type Params struct {
	Resolution float64
	Seed       uint64
	Weighting  Weighting
}

// DefaultParams returns resolution 1, seed 1, uniform weights.
func DefaultParams() Params {
	return Params{Resolution: 1, Seed: 1, Weighting: Uniform}
}

func (p Params) weight(t float64) (float64, error) {
	switch p.Weighting {
	case Uniform, "":
		return 1, nil
	case InverseTime:
		return 1 / (1 + t), nil
	}
	return 0, eris.Errorf("analysis: unknown weighting %q", p.Weighting)
}

// Communities runs Louvain modularity optimisation over the settlement
// network and returns settlement id -> community id. Community ids are
// numbered from 0 in order of each community's smallest settlement id.
// A graph without edges puts every settlement in its own community.
func Communities(g *network.Graph, p Params) (map[int64]int, error) {
	if p.Resolution <= 0 {
		return nil, eris.Errorf("analysis: resolution must be > 0, got %v", p.Resolution)
	}
	nodes := g.Nodes()
	edges := g.Edges()

	var groups [][]int64
	if len(edges) == 0 {
		for _, n := range nodes {
			groups = append(groups, []int64{n.ID})
		}
	} else {
		wg := simple.NewWeightedUndirectedGraph(0, 0)
		for _, n := range nodes {
			wg.AddNode(simple.Node(n.ID))
		}
		for _, e := range edges {
			w, err := p.weight(e.Time)
			if err != nil {
				return nil, err
			}
			wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(e.From), simple.Node(e.To), w))
		}
		reduced := community.Modularize(wg, p.Resolution, rand.NewPCG(p.Seed, p.Seed))
		for _, c := range reduced.Communities() {
			ids := make([]int64, len(c))
			for i, n := range c {
				ids[i] = n.ID()
			}
			groups = append(groups, ids)
		}
	}

	for _, ids := range groups {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })

	out := make(map[int64]int, len(nodes))
	for c, ids := range groups {
		for _, id := range ids {
			out[id] = c
		}
	}
	return out, nil
}
