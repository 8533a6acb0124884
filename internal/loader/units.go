package loader

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/popframe/internal/model"
)

// LoadUnits reads population units from a GeoJSON FeatureCollection or a
// polygon shapefile and stamps srid on their geometry. Each unit carries
// the population column of f; the id column is optional and defaults to
// the record position.
func LoadUnits(path string, srid int, f Fields) ([]model.Unit, error) {
	var (
		out []model.Unit
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		out, err = readShapefileUnits(path, f)
	case ".geojson", ".json":
		var data []byte
		if data, err = os.ReadFile(path); err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", path)
		}
		out, err = DecodeUnits(data, f)
	default:
		return nil, eris.Wrapf(model.ErrInvalidInput, "loader: unsupported units format %s", path)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "loader: units from %s", path)
	}
	for i := range out {
		out[i].Geometry = WithSRID(out[i].Geometry, srid)
	}
	return out, nil
}

// DecodeUnits parses a GeoJSON FeatureCollection of Polygon or
// MultiPolygon features.
func DecodeUnits(data []byte, f Fields) ([]model.Unit, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(model.ErrInvalidInput, "loader: decode units: %v", err)
	}

	out := make([]model.Unit, 0, len(fc.Features))
	for i, feat := range fc.Features {
		attr := func(col string) (string, bool) {
			v, ok := feat.Properties[col]
			if !ok || v == nil {
				return "", false
			}
			return propString(v), true
		}
		id, ok := attr(f.ID)
		if !ok && feat.ID != "" {
			id, ok = feat.ID, true
		}
		if !ok {
			id = strconv.Itoa(i + 1)
		}
		u, err := newUnit(feat.Geometry, id, attr, f)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: unit feature %d", i)
		}
		out = append(out, u)
	}
	return out, nil
}

// IsFeatureCollection reports whether data is a GeoJSON FeatureCollection.
func IsFeatureCollection(data []byte) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Type == "FeatureCollection"
}

func newUnit(g geom.T, id string, attr func(string) (string, bool), f Fields) (model.Unit, error) {
	var u model.Unit
	switch g.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
		u.Geometry = g
	default:
		return u, eris.Wrapf(model.ErrInvalidInput, "loader: unit geometry %T is not polygonal", g)
	}

	var err error
	if u.ID, err = parseID(id); err != nil {
		return u, err
	}
	pop, ok := attr(f.Population)
	if !ok {
		return u, eris.Wrapf(model.ErrInvalidInput, "loader: unit %d has no population", u.ID)
	}
	if u.Population, err = parseInt(pop); err != nil {
		return u, eris.Wrapf(err, "loader: unit %d population", u.ID)
	}
	return u, nil
}
