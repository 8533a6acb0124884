// Package region bundles and validates the inputs every engine operation
// consumes: the settlement table, the accessibility matrix and the region
// boundary.
package region

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/geometry"
	"github.com/sells-group/popframe/internal/hierarchy"
	"github.com/sells-group/popframe/internal/model"
)

var validate = validator.New()

// Region is an immutable, validated set of engine inputs.
type Region struct {
	settlements []model.Settlement
	byID        map[int64]int
	matrix      *model.Matrix
	boundary    geom.T
	srid        int
	classifier  *hierarchy.Classifier
}

type options struct {
	classifier     *hierarchy.Classifier
	settlementSRID int
}

// Option customises New.
type Option func(*options)

// WithClassifier sets the hierarchy used for classification.
func WithClassifier(c *hierarchy.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// WithSettlementSRID declares the coordinate system of settlement points.
// Zero means unknown and disables the CRS check.
func WithSettlementSRID(srid int) Option {
	return func(o *options) { o.settlementSRID = srid }
}

// New validates the inputs and returns a Region. Every check runs before any
// algorithm; failures wrap model.ErrInvalidInput. Settlements with no level
// are classified from their population.
func New(settlements []model.Settlement, matrix *model.Matrix, boundary geom.T, opts ...Option) (*Region, error) {
	o := options{classifier: hierarchy.Default()}
	for _, fn := range opts {
		fn(&o)
	}

	if matrix == nil {
		return nil, eris.Wrap(model.ErrInvalidInput, "region: missing accessibility matrix")
	}
	if err := checkBoundary(boundary); err != nil {
		return nil, err
	}
	srid := boundary.SRID()
	if o.settlementSRID != 0 && srid != 0 && o.settlementSRID != srid {
		return nil, eris.Wrapf(model.ErrInvalidInput, "region: settlement srid %d differs from boundary srid %d", o.settlementSRID, srid)
	}
	if srid == 0 {
		srid = o.settlementSRID
	}

	out := model.CloneSettlements(settlements)
	byID := make(map[int64]int, len(out))
	top := o.classifier.Top()
	for i := range out {
		s := &out[i]
		if err := validate.Struct(s); err != nil {
			return nil, eris.Wrapf(model.ErrInvalidInput, "region: settlement %d: %v", s.ID, err)
		}
		if _, dup := byID[s.ID]; dup {
			return nil, eris.Wrapf(model.ErrInvalidInput, "region: duplicate settlement id %d", s.ID)
		}
		byID[s.ID] = i
		if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.IsInf(s.X, 0) || math.IsInf(s.Y, 0) {
			return nil, eris.Wrapf(model.ErrInvalidInput, "region: settlement %d has non-finite coordinates", s.ID)
		}
		if s.Level > top {
			return nil, eris.Wrapf(model.ErrInvalidInput, "region: settlement %d has level %d above %d", s.ID, s.Level, top)
		}
		if s.Level == model.LevelUnset {
			tier, err := o.classifier.Classify(s.Population)
			if err != nil {
				return nil, eris.Wrapf(err, "region: classify settlement %d", s.ID)
			}
			s.Level = tier.Rank
		}
		s.LevelName = o.classifier.Name(s.Level)
	}

	if matrix.Len() != len(out) {
		return nil, eris.Wrapf(model.ErrInvalidInput, "region: matrix has %d ids for %d settlements", matrix.Len(), len(out))
	}
	for _, s := range out {
		if !matrix.Has(s.ID) {
			return nil, eris.Wrapf(model.ErrInvalidInput, "region: settlement %d missing from matrix", s.ID)
		}
	}

	zap.L().Debug("region: inputs validated",
		zap.Int("settlements", len(out)),
		zap.Int("srid", srid),
	)

	return &Region{
		settlements: out,
		byID:        byID,
		matrix:      matrix,
		boundary:    boundary,
		srid:        srid,
		classifier:  o.classifier,
	}, nil
}

func checkBoundary(b geom.T) error {
	switch g := b.(type) {
	case *geom.Polygon:
		if g == nil || g.Empty() {
			return eris.Wrap(model.ErrInvalidInput, "region: empty boundary")
		}
	case *geom.MultiPolygon:
		if g == nil || g.Empty() {
			return eris.Wrap(model.ErrInvalidInput, "region: empty boundary")
		}
	case nil:
		return eris.Wrap(model.ErrInvalidInput, "region: missing boundary")
	default:
		return eris.Wrapf(model.ErrInvalidInput, "region: boundary must be polygonal, got %T", b)
	}
	return nil
}

// Settlements resolves src against the region's table and returns a copy.
// Provided populations replace the originals and those settlements are
// re-classified. Unknown ids and non-positive populations are invalid input.
func (r *Region) Settlements(src PopulationSource) ([]model.Settlement, error) {
	out := model.CloneSettlements(r.settlements)
	for id, pop := range src.updates {
		i, ok := r.byID[id]
		if !ok {
			return nil, eris.Wrapf(model.ErrInvalidInput, "region: population update for unknown settlement %d", id)
		}
		tier, err := r.classifier.Classify(pop)
		if err != nil {
			return nil, eris.Wrapf(err, "region: population update for settlement %d", id)
		}
		out[i].Population = pop
		out[i].Level = tier.Rank
		out[i].LevelName = tier.Name
	}
	return out, nil
}

// Matrix returns the accessibility matrix.
func (r *Region) Matrix() *model.Matrix { return r.matrix }

// Boundary returns the region boundary.
func (r *Region) Boundary() geom.T { return r.boundary }

// SRID returns the region's coordinate system id, or 0 when unknown.
func (r *Region) SRID() int { return r.srid }

// Classifier returns the hierarchy the region was classified with.
func (r *Region) Classifier() *hierarchy.Classifier { return r.classifier }

// BoundaryGeom returns the boundary as a GEOS geometry.
func (r *Region) BoundaryGeom() (*geos.Geom, error) {
	return geometry.FromGeom(r.boundary)
}
