package analysis

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/model"
	"github.com/sells-group/popframe/internal/network"
	"github.com/sells-group/popframe/internal/region"
)

// Analyzer derives frame areas from the settlement network.
type Analyzer struct {
	params Params
}

// NewAnalyzer returns an Analyzer using p.
func NewAnalyzer(p Params) *Analyzer {
	return &Analyzer{params: p}
}

// Result is the output of Run.
type Result struct {
	Network     *network.Graph
	Communities map[int64]int
	Areas       []model.FrameArea
}

// Run builds the settlement network, detects its communities, tessellates
// the region and partitions the tessellation by community.
func (a *Analyzer) Run(r *region.Region, src region.PopulationSource) (*Result, error) {
	settlements, err := r.Settlements(src)
	if err != nil {
		return nil, err
	}
	g, err := network.Build(settlements, r.Matrix())
	if err != nil {
		return nil, err
	}
	communities, err := Communities(g, a.params)
	if err != nil {
		return nil, err
	}
	boundary, err := r.BoundaryGeom()
	if err != nil {
		return nil, eris.Wrap(err, "analysis: boundary")
	}
	cells, err := Tessellate(settlements, boundary)
	if err != nil {
		return nil, err
	}
	areas, err := Partition(settlements, communities, cells, r.SRID())
	if err != nil {
		return nil, err
	}

	zap.L().Info("analysis: frame areas built",
		zap.Int("settlements", len(settlements)),
		zap.Int("communities", countDistinct(communities)),
		zap.Int("areas", len(areas)),
	)
	return &Result{Network: g, Communities: communities, Areas: areas}, nil
}

func countDistinct(m map[int64]int) int {
	seen := make(map[int]struct{}, len(m))
	for _, c := range m {
		seen[c] = struct{}{}
	}
	return len(seen)
}
