package loader

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/model"
)

func openShapefile(path string) (*shp.Reader, header, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "loader: open shapefile %s", path)
	}
	fields := reader.Fields()
	h := make(header, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		h[strings.ToLower(name)] = i
	}
	return reader, h, nil
}

func readShapefileSettlements(path string, f Fields) ([]model.Settlement, error) {
	reader, h, err := openShapefile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	attr := func(col string) (string, bool) {
		i, ok := h[col]
		if !ok {
			return "", false
		}
		v := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		return v, v != ""
	}

	var out []model.Settlement
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()
		var s model.Settlement
		switch p := shape.(type) {
		case *shp.Point:
			s.X, s.Y = p.X, p.Y
		case *shp.PointZ:
			s.X, s.Y = p.X, p.Y
		case *shp.PointM:
			s.X, s.Y = p.X, p.Y
		default:
			skipped++
			continue
		}
		id, ok := attr(f.ID)
		if !ok {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: record %d has no %s", n, f.ID)
		}
		s, err := fillSettlement(s, id, attr, f)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: record %d", n)
		}
		out = append(out, s)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "loader: read shapefile %s", path)
	}

	if skipped > 0 {
		zap.L().Warn("loader: skipped non-point shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

// readShapefileBoundary collects every polygon record into one
// MultiPolygon. Clockwise rings open a new polygon, counter-clockwise rings
// are holes of the polygon before them.
func readShapefileBoundary(path string) (geom.T, error) {
	reader, _, err := openShapefile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	mp := geom.NewMultiPolygon(geom.XY)
	for reader.Next() {
		n, shape := reader.Shape()
		var parts []int32
		var pts []shp.Point
		switch p := shape.(type) {
		case *shp.Polygon:
			parts, pts = p.Parts, p.Points
		case *shp.PolygonZ:
			parts, pts = p.Parts, p.Points
		case *shp.PolygonM:
			parts, pts = p.Parts, p.Points
		default:
			zap.L().Debug("loader: skipping non-polygon boundary record", zap.Int("record", n))
			continue
		}
		for _, poly := range assembleRings(parts, pts) {
			if err := mp.Push(poly); err != nil {
				return nil, eris.Wrapf(err, "loader: boundary record %d", n)
			}
		}
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "loader: read shapefile %s", path)
	}
	if mp.NumPolygons() == 0 {
		return nil, eris.Wrapf(model.ErrInvalidInput, "loader: %s holds no polygons", path)
	}
	if mp.NumPolygons() == 1 {
		return mp.Polygon(0), nil
	}
	return mp, nil
}

// readShapefileUnits reads one unit per polygon record.
func readShapefileUnits(path string, f Fields) ([]model.Unit, error) {
	reader, h, err := openShapefile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	attr := func(col string) (string, bool) {
		i, ok := h[col]
		if !ok {
			return "", false
		}
		v := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		return v, v != ""
	}

	var out []model.Unit
	for reader.Next() {
		n, shape := reader.Shape()
		var parts []int32
		var pts []shp.Point
		switch p := shape.(type) {
		case *shp.Polygon:
			parts, pts = p.Parts, p.Points
		case *shp.PolygonZ:
			parts, pts = p.Parts, p.Points
		case *shp.PolygonM:
			parts, pts = p.Parts, p.Points
		default:
			zap.L().Debug("loader: skipping non-polygon unit record", zap.Int("record", n))
			continue
		}

		var g geom.T
		polys := assembleRings(parts, pts)
		switch len(polys) {
		case 0:
			continue
		case 1:
			g = polys[0]
		default:
			mp := geom.NewMultiPolygon(geom.XY)
			for _, poly := range polys {
				if err := mp.Push(poly); err != nil {
					return nil, eris.Wrapf(err, "loader: unit record %d", n)
				}
			}
			g = mp
		}

		id, ok := attr(f.ID)
		if !ok {
			id = strconv.Itoa(n + 1)
		}
		u, err := newUnit(g, id, attr, f)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: record %d", n)
		}
		out = append(out, u)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "loader: read shapefile %s", path)
	}
	return out, nil
}

func assembleRings(parts []int32, pts []shp.Point) []*geom.Polygon {
	var (
		polys []*geom.Polygon
		flat  []float64
		ends  []int
	)
	flush := func() {
		if len(ends) > 0 {
			polys = append(polys, geom.NewPolygonFlat(geom.XY, flat, ends))
		}
		flat, ends = nil, nil
	}

	for i := range parts {
		start := int(parts[i])
		end := len(pts)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if end-start < 4 {
			continue
		}
		ring := pts[start:end]
		if signedArea(ring) <= 0 {
			flush()
		}
		for _, p := range ring {
			flat = append(flat, p.X, p.Y)
		}
		ends = append(ends, len(flat))
	}
	flush()
	return polys
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []shp.Point) float64 {
	var a float64
	for i := 0; i+1 < len(ring); i++ {
		a += ring[i].X*ring[i+1].Y - ring[i+1].X*ring[i].Y
	}
	return a / 2
}
