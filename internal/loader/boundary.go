package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/popframe/internal/model"
)

// LoadBoundary reads the region boundary from GeoJSON or a shapefile and
// stamps srid on it.
func LoadBoundary(path string, srid int) (geom.T, error) {
	var (
		g   geom.T
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		g, err = readShapefileBoundary(path)
	case ".geojson", ".json":
		var data []byte
		if data, err = os.ReadFile(path); err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", path)
		}
		g, err = DecodeBoundary(data)
	default:
		return nil, eris.Wrapf(model.ErrInvalidInput, "loader: unsupported boundary format %s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "loader: boundary from %s", path)
	}
	return WithSRID(g, srid), nil
}

// DecodeBoundary accepts a GeoJSON geometry, Feature or FeatureCollection.
// Polygonal parts of several features are gathered into one MultiPolygon.
func DecodeBoundary(data []byte) (geom.T, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, eris.Wrapf(model.ErrInvalidInput, "loader: decode boundary: %v", err)
	}

	var geoms []geom.T
	switch probe.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: decode boundary: %v", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: decode boundary: %v", err)
		}
		geoms = append(geoms, f.Geometry)
	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: decode boundary: %v", err)
		}
		geoms = append(geoms, g)
	}

	if len(geoms) == 1 {
		return geoms[0], nil
	}
	mp := geom.NewMultiPolygon(geom.XY)
	for _, g := range geoms {
		switch t := g.(type) {
		case *geom.Polygon:
			if err := mp.Push(t); err != nil {
				return nil, eris.Wrap(err, "loader: gather boundary")
			}
		case *geom.MultiPolygon:
			for i := 0; i < t.NumPolygons(); i++ {
				if err := mp.Push(t.Polygon(i)); err != nil {
					return nil, eris.Wrap(err, "loader: gather boundary")
				}
			}
		default:
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: boundary feature of type %T", g)
		}
	}
	return mp, nil
}

// WithSRID stamps srid on polygonal geometries. Other types and srid 0
// pass through unchanged.
func WithSRID(g geom.T, srid int) geom.T {
	if srid == 0 {
		return g
	}
	switch t := g.(type) {
	case *geom.Polygon:
		return t.SetSRID(srid)
	case *geom.MultiPolygon:
		return t.SetSRID(srid)
	}
	return g
}
