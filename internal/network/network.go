// Package network builds the multi-level settlement graph: every settlement
// links to its nearest strictly denser settlement, and the densest tier is
// tied together by a minimum spanning tree.
package network

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/sells-group/popframe/internal/model"
)

// Edge is one undirected link of the settlement graph. From always has the
// finer (lower) level; Level is that finer level.
type Edge struct {
	From  int64       `json:"from"`
	To    int64       `json:"to"`
	Level model.Level `json:"level"`
	Time  float64     `json:"time"`
}

// Graph is the settlement network. It is built fresh by Build and owned by
// the caller.
type Graph struct {
	g     *simple.WeightedUndirectedGraph
	nodes []model.Settlement
	byID  map[int64]int
	edges []Edge
}

// Build constructs the settlement network from a classified table and the
// accessibility matrix. Inputs are not modified.
func Build(settlements []model.Settlement, matrix *model.Matrix) (*Graph, error) {
	if matrix == nil {
		return nil, eris.Wrap(model.ErrInvalidInput, "network: missing accessibility matrix")
	}

	ng := &Graph{
		g:     simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		nodes: model.CloneSettlements(settlements),
		byID:  make(map[int64]int, len(settlements)),
	}
	for i, s := range ng.nodes {
		if s.Level == model.LevelUnset {
			return nil, eris.Wrapf(model.ErrInvalidInput, "network: settlement %d is not classified", s.ID)
		}
		if !matrix.Has(s.ID) {
			return nil, eris.Wrapf(model.ErrInvalidInput, "network: settlement %d missing from matrix", s.ID)
		}
		if _, dup := ng.byID[s.ID]; dup {
			return nil, eris.Wrapf(model.ErrInvalidInput, "network: duplicate settlement id %d", s.ID)
		}
		ng.byID[s.ID] = i
		ng.g.AddNode(simple.Node(s.ID))
	}
	if len(ng.nodes) == 0 {
		return ng, nil
	}

	byLevel := ng.sortedByLevel()
	top := byLevel[len(byLevel)-1].Level

	// Nearest strictly denser settlement, tiers processed least dense first.
	for i, s := range byLevel {
		if s.Level == top {
			break
		}
		var (
			best     int64
			bestTime = math.Inf(1)
			found    bool
		)
		// Ties go to the smallest candidate id.
		for _, c := range denser(byLevel[i:], s.Level) {
			t, _ := matrix.Time(s.ID, c.ID)
			if t < bestTime || (t == bestTime && c.ID < best) {
				best, bestTime, found = c.ID, t, true
			}
		}
		if !found {
			continue
		}
		ng.addEdge(s.ID, best, s.Level, bestTime)
	}

	var topIDs []int64
	for _, s := range byLevel {
		if s.Level == top {
			topIDs = append(topIDs, s.ID)
		}
	}
	for _, e := range SpanningTree(topIDs, matrix) {
		ng.addEdge(e.From, e.To, top, e.Time)
	}

	if iso := ng.Isolated(); len(iso) > 0 {
		zap.L().Warn("network: settlements without any link",
			zap.Int("count", len(iso)),
			zap.Int64s("ids", iso),
		)
	}
	zap.L().Info("network: built",
		zap.Int("nodes", len(ng.nodes)),
		zap.Int("edges", len(ng.edges)),
		zap.Int("top_level", int(top)),
		zap.Int("top_nodes", len(topIDs)),
	)
	return ng, nil
}

// denser returns the settlements of sorted whose level exceeds l.
func denser(sorted []model.Settlement, l model.Level) []model.Settlement {
	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].Level > l })
	return sorted[i:]
}

func (ng *Graph) sortedByLevel() []model.Settlement {
	out := model.CloneSettlements(ng.nodes)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// addEdge records an edge unless the unordered pair is already linked.
func (ng *Graph) addEdge(from, to int64, level model.Level, t float64) bool {
	if from == to || ng.g.HasEdgeBetween(from, to) {
		return false
	}
	ng.g.SetWeightedEdge(ng.g.NewWeightedEdge(simple.Node(from), simple.Node(to), t))
	ng.edges = append(ng.edges, Edge{From: from, To: to, Level: level, Time: t})
	return true
}

// Nodes returns the settlements of the graph in input order.
func (ng *Graph) Nodes() []model.Settlement {
	return model.CloneSettlements(ng.nodes)
}

// Node returns the settlement with the given id.
func (ng *Graph) Node(id int64) (model.Settlement, bool) {
	i, ok := ng.byID[id]
	if !ok {
		return model.Settlement{}, false
	}
	return ng.nodes[i], true
}

// Edges returns the edges in insertion order.
func (ng *Graph) Edges() []Edge {
	return append([]Edge(nil), ng.edges...)
}

// HasEdge reports whether a and b are linked.
func (ng *Graph) HasEdge(a, b int64) bool {
	return ng.g.HasEdgeBetween(a, b)
}

// Degree returns the number of links of a node.
func (ng *Graph) Degree(id int64) int {
	if ng.g.Node(id) == nil {
		return 0
	}
	return ng.g.From(id).Len()
}

// Isolated returns the ids of nodes with no links, ascending. A single
// settlement graph has one isolated node and is still connected.
func (ng *Graph) Isolated() []int64 {
	if len(ng.nodes) < 2 {
		return nil
	}
	var out []int64
	for _, s := range ng.nodes {
		if ng.Degree(s.ID) == 0 {
			out = append(out, s.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Components returns the connected components as sorted id sets, ordered by
// their smallest id.
func (ng *Graph) Components() [][]int64 {
	comps := topo.ConnectedComponents(ng.g)
	out := make([][]int64, 0, len(comps))
	for _, c := range comps {
		ids := make([]int64, len(c))
		for i, n := range c {
			ids[i] = n.ID()
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Connected reports whether every node reaches every other node.
func (ng *Graph) Connected() bool {
	return len(ng.nodes) == 0 || len(ng.Components()) == 1
}

// Undirected exposes the underlying gonum graph read-only.
func (ng *Graph) Undirected() graph.WeightedUndirected {
	return ng.g
}
