package region

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/geometry"
	"github.com/sells-group/popframe/internal/model"
)

// DefaultCityMultiplier is the weight of a settlement flagged as a city
// relative to an ordinary one.
const DefaultCityMultiplier = 10.0

// FromUnits estimates settlement populations from polygonal units. Each
// unit's population is shared among the settlements lying within it, in
// proportion to weight / median travel time, where weight is
// cityMultiplier for cities and 1 otherwise. Shares are rounded half to
// even. A settlement inside several units takes the share of the last one.
// Settlements outside every unit keep their population, as do those whose
// share rounds to zero.
func (r *Region) FromUnits(units []model.Unit, cityMultiplier float64) (PopulationSource, error) {
	if cityMultiplier <= 0 {
		return UseDefault(), eris.Wrapf(model.ErrInvalidInput, "region: city multiplier %v must be > 0", cityMultiplier)
	}

	points := make([]*geos.Geom, len(r.settlements))
	for i, s := range r.settlements {
		p, err := geometry.Point(s.X, s.Y)
		if err != nil {
			return UseDefault(), eris.Wrapf(err, "region: point of settlement %d", s.ID)
		}
		points[i] = p
	}
	medians := make(map[int64]float64, len(r.settlements))

	updates := make(map[int64]int)
	var filled, skipped int
	for _, u := range units {
		if err := r.checkUnit(u); err != nil {
			return UseDefault(), err
		}
		ug, err := geometry.FromGeom(u.Geometry)
		if err != nil {
			return UseDefault(), eris.Wrapf(err, "region: unit %d geometry", u.ID)
		}

		var members []int
		var coefs []float64
		var sum float64
		for i, s := range r.settlements {
			in, err := geometry.Within(points[i], ug)
			if err != nil {
				return UseDefault(), eris.Wrapf(err, "region: unit %d", u.ID)
			}
			if !in {
				continue
			}
			med, ok := medians[s.ID]
			if !ok {
				if med, err = r.medianTime(s.ID); err != nil {
					return UseDefault(), err
				}
				medians[s.ID] = med
			}
			w := 1.0
			if s.IsCity {
				w = cityMultiplier
			}
			members = append(members, i)
			coefs = append(coefs, w/med)
			sum += w / med
		}
		if len(members) == 0 {
			zap.L().Debug("region: unit contains no settlements", zap.Int64("unit", u.ID))
			continue
		}

		for k, i := range members {
			id := r.settlements[i].ID
			pop := int(math.RoundToEven(float64(u.Population) * coefs[k] / sum))
			if pop < 1 {
				skipped++
				continue
			}
			updates[id] = pop
			filled++
		}
	}

	if skipped > 0 {
		zap.L().Warn("region: population shares rounded to zero", zap.Int("settlements", skipped))
	}
	zap.L().Info("region: populations filled from units",
		zap.Int("units", len(units)),
		zap.Int("settlements", filled),
	)
	return Provided(updates), nil
}

func (r *Region) checkUnit(u model.Unit) error {
	if err := validate.Struct(u); err != nil {
		return eris.Wrapf(model.ErrInvalidInput, "region: unit %d: %v", u.ID, err)
	}
	if err := checkBoundary(u.Geometry); err != nil {
		return eris.Wrapf(err, "region: unit %d", u.ID)
	}
	if srid := u.Geometry.SRID(); srid != 0 && r.srid != 0 && srid != r.srid {
		return eris.Wrapf(model.ErrInvalidInput, "region: unit %d srid %d differs from settlement srid %d", u.ID, srid, r.srid)
	}
	return nil
}

// medianTime is the median of id's matrix row, its own zero entry included.
func (r *Region) medianTime(id int64) (float64, error) {
	row, _ := r.matrix.Row(id)
	slices.Sort(row)
	n := len(row)
	med := row[n/2]
	if n%2 == 0 {
		med = (row[n/2-1] + row[n/2]) / 2
	}
	if med <= 0 {
		return 0, eris.Wrapf(model.ErrInvalidInput, "region: settlement %d has zero median travel time", id)
	}
	return med, nil
}
