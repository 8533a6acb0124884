package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/popframe/internal/agglomeration"
	"github.com/sells-group/popframe/internal/analysis"
	"github.com/sells-group/popframe/internal/config"
	"github.com/sells-group/popframe/internal/fetcher"
	"github.com/sells-group/popframe/internal/hierarchy"
	"github.com/sells-group/popframe/internal/loader"
	"github.com/sells-group/popframe/internal/model"
	"github.com/sells-group/popframe/internal/network"
	"github.com/sells-group/popframe/internal/region"
)

// inputFlags are the source flags shared by network, agglomerate and analyze.
type inputFlags struct {
	settlements string
	matrix      string
	boundary    string
	populations string
	units       string
	out         string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.settlements, "settlements", "", "settlement table: GeoJSON, shapefile, CSV or XLSX (path or URL)")
	cmd.Flags().StringVar(&f.matrix, "matrix", "", "travel-time matrix: CSV or XLSX (path or URL)")
	cmd.Flags().StringVar(&f.boundary, "boundary", "", "region boundary: GeoJSON or shapefile (path or URL)")
	cmd.Flags().StringVar(&f.populations, "populations", "", "optional population overrides: JSON object or id,population table")
	cmd.Flags().StringVar(&f.units, "units", "", "optional population units to split across settlements: GeoJSON or shapefile polygons")
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "GeoJSON output file (- for stdout)")
	_ = cmd.MarkFlagRequired("settlements")
	_ = cmd.MarkFlagRequired("matrix")
	_ = cmd.MarkFlagRequired("boundary")
}

func (f *inputFlags) sources() loader.Sources {
	return loader.Sources{
		Settlements: f.settlements,
		Matrix:      f.matrix,
		Boundary:    f.boundary,
		Populations: f.populations,
		Units:       f.units,
	}
}

// engine bundles the classifier and algorithm parameters derived from config.
type engine struct {
	classifier    *hierarchy.Classifier
	agglomeration agglomeration.Params
	analysis      analysis.Params
	srid          int
	multiplier    float64
}

func newEngine(c *config.Config) (*engine, error) {
	cls, err := hierarchy.Load(c.Hierarchy.File)
	if err != nil {
		return nil, err
	}
	ac := c.Agglomeration
	return &engine{
		classifier: cls,
		agglomeration: agglomeration.Params{
			BaseTime:      ac.BaseTime,
			TimeStep:      ac.TimeStep,
			MinPopulation: ac.MinPopulation,
			RadiusUnit:    ac.RadiusUnit,
			QuadSegments:  ac.QuadSegments,
			TopLevel:      cls.Top(),
		},
		analysis: analysis.Params{
			Resolution: c.Analysis.Resolution,
			Seed:       c.Analysis.Seed,
			Weighting:  analysis.Weighting(c.Analysis.Weighting),
		},
		srid:       c.Input.SRID,
		multiplier: c.Population.CityMultiplier,
	}, nil
}

// prepare validates the inputs into a region and resolves the population
// source. Populations filled from units come first; explicit overrides are
// applied on top.
func (e *engine) prepare(in *loader.Inputs) (*region.Region, region.PopulationSource, error) {
	r, err := in.Region(region.WithClassifier(e.classifier), region.WithSettlementSRID(e.srid))
	if err != nil {
		return nil, region.UseDefault(), err
	}
	if len(in.Units) == 0 {
		return r, in.Populations, nil
	}
	filled, err := r.FromUnits(in.Units, e.multiplier)
	if err != nil {
		return nil, region.UseDefault(), err
	}
	return r, filled.Overlay(in.Populations), nil
}

// networkResult is the output of runNetwork.
type networkResult struct {
	Settlements []model.Settlement
	Graph       *network.Graph
}

func (e *engine) runNetwork(r *region.Region, src region.PopulationSource) (*networkResult, error) {
	settlements, err := r.Settlements(src)
	if err != nil {
		return nil, err
	}
	g, err := network.Build(settlements, r.Matrix())
	if err != nil {
		return nil, err
	}
	return &networkResult{Settlements: settlements, Graph: g}, nil
}

func (e *engine) runAgglomeration(r *region.Region, src region.PopulationSource) (*agglomeration.Result, error) {
	return agglomeration.NewBuilder(e.agglomeration).Run(r, src)
}

func (e *engine) runAnalysis(r *region.Region, src region.PopulationSource) (*analysis.Result, error) {
	return analysis.NewAnalyzer(e.analysis).Run(r, src)
}

func networkSummary(res *networkResult, start time.Time) *model.RunSummary {
	return &model.RunSummary{
		Settlements: len(res.Settlements),
		Edges:       len(res.Graph.Edges()),
		Isolated:    len(res.Graph.Isolated()),
		DurationMs:  time.Since(start).Milliseconds(),
	}
}

func agglomerationSummary(res *agglomeration.Result, start time.Time) *model.RunSummary {
	var pop int64
	for _, a := range res.Agglomerations {
		pop += int64(a.Population)
	}
	return &model.RunSummary{
		Settlements:    len(res.Settlements),
		Agglomerations: len(res.Agglomerations),
		Population:     pop,
		DurationMs:     time.Since(start).Milliseconds(),
	}
}

func analysisSummary(res *analysis.Result, start time.Time) *model.RunSummary {
	distinct := make(map[int]bool)
	for _, c := range res.Communities {
		distinct[c] = true
	}
	return &model.RunSummary{
		Settlements: len(res.Network.Nodes()),
		Edges:       len(res.Network.Edges()),
		Communities: len(distinct),
		Areas:       len(res.Areas),
		DurationMs:  time.Since(start).Milliseconds(),
	}
}

// newResolver builds the input resolver from fetch config.
func newResolver() *fetcher.Resolver {
	return fetcher.NewResolver(fetcher.Options{
		Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		RatePerSec: cfg.Fetch.RatePerSec,
		UserAgent:  cfg.Fetch.UserAgent,
	})
}

func loadInputs(ctx context.Context, src loader.Sources) (*loader.Inputs, error) {
	res := newResolver()
	defer res.Close() //nolint:errcheck

	return loader.LoadAll(ctx, res, src, loader.Options{
		SRID:   cfg.Input.SRID,
		Fields: loader.DefaultFields(),
	})
}

// createOutput opens path for writing. "" and "-" mean stdout.
func createOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create %s", path)
	}
	return f, f.Close, nil
}
