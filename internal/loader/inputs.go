package loader

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/popframe/internal/model"
	"github.com/sells-group/popframe/internal/region"
)

// Resolver turns an input URI into a local file path.
type Resolver interface {
	Resolve(ctx context.Context, uri string) (string, error)
}

// Sources are the input URIs of one run. Populations and Units are
// optional.
type Sources struct {
	Settlements string
	Matrix      string
	Boundary    string
	Populations string
	Units       string
}

// Options controls parsing.
type Options struct {
	SRID   int
	Fields Fields
}

// Inputs is everything a region needs, parsed.
type Inputs struct {
	Settlements []model.Settlement
	Matrix      *model.Matrix
	Boundary    geom.T
	Populations region.PopulationSource
	Units       []model.Unit
}

// LoadAll resolves and parses every source concurrently.
func LoadAll(ctx context.Context, res Resolver, src Sources, opts Options) (*Inputs, error) {
	if src.Settlements == "" || src.Matrix == "" || src.Boundary == "" {
		return nil, eris.Wrap(model.ErrInvalidInput, "loader: settlements, matrix and boundary are required")
	}

	var in Inputs
	in.Populations = region.UseDefault()

	g, gctx := errgroup.WithContext(ctx)
	load := func(uri string, parse func(path string) error) {
		g.Go(func() error {
			path, err := res.Resolve(gctx, uri)
			if err != nil {
				return err
			}
			return parse(path)
		})
	}

	load(src.Settlements, func(path string) (err error) {
		in.Settlements, err = LoadSettlements(path, opts.Fields)
		return err
	})
	load(src.Matrix, func(path string) (err error) {
		in.Matrix, err = LoadMatrix(path)
		return err
	})
	load(src.Boundary, func(path string) (err error) {
		in.Boundary, err = LoadBoundary(path, opts.SRID)
		return err
	})
	if src.Populations != "" {
		load(src.Populations, func(path string) error {
			pops, err := LoadPopulations(path, opts.Fields)
			if err != nil {
				return err
			}
			in.Populations = region.Provided(pops)
			return nil
		})
	}

	if src.Units != "" {
		load(src.Units, func(path string) (err error) {
			in.Units, err = LoadUnits(path, opts.SRID, opts.Fields)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	zap.L().Info("loader: inputs loaded",
		zap.Int("settlements", len(in.Settlements)),
		zap.Int("matrix", in.Matrix.Len()),
		zap.Bool("populations", !in.Populations.IsDefault()),
		zap.Int("units", len(in.Units)),
	)
	return &in, nil
}

// Region builds a validated region from the inputs.
func (in *Inputs) Region(opts ...region.Option) (*region.Region, error) {
	return region.New(in.Settlements, in.Matrix, in.Boundary, opts...)
}
