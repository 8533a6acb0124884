package network

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sells-group/popframe/internal/model"
)

// orderedGraph feeds Kruskal its edges in a fixed order so equal weights
// resolve identically on every run.
type orderedGraph struct {
	*simple.WeightedUndirectedGraph
	edges []graph.WeightedEdge
}

func (g orderedGraph) WeightedEdges() graph.WeightedEdges {
	return iterator.NewOrderedWeightedEdges(g.edges)
}

// SpanningTree returns the minimum spanning tree over the complete graph of
// ids, weighting each pair by the faster of its two directions. The result
// has len(ids)-1 edges, each with From < To, sorted by (From, To).
func SpanningTree(ids []int64, matrix *model.Matrix) []Edge {
	if len(ids) < 2 {
		return nil
	}
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	complete := orderedGraph{WeightedUndirectedGraph: simple.NewWeightedUndirectedGraph(0, math.Inf(1))}
	for _, id := range sorted {
		complete.AddNode(simple.Node(id))
	}
	for i, a := range sorted {
		for _, b := range sorted[i+1:] {
			ab, _ := matrix.Time(a, b)
			ba, _ := matrix.Time(b, a)
			e := complete.NewWeightedEdge(simple.Node(a), simple.Node(b), math.Min(ab, ba))
			complete.SetWeightedEdge(e)
			complete.edges = append(complete.edges, e)
		}
	}

	tree := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	path.Kruskal(tree, complete)

	var out []Edge
	for it := tree.WeightedEdges(); it.Next(); {
		e := it.WeightedEdge()
		from, to := e.From().ID(), e.To().ID()
		if from > to {
			from, to = to, from
		}
		out = append(out, Edge{From: from, To: to, Time: e.Weight()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}
