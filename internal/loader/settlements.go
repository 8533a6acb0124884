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

// Fields names the attribute columns that carry settlement data.
type Fields struct {
	ID         string
	Name       string
	Population string
	Level      string
	X          string
	Y          string
	IsCity     string
}

// DefaultFields returns the lower-case column names id, name, population,
// level, x, y and is_city.
func DefaultFields() Fields {
	return Fields{ID: "id", Name: "name", Population: "population", Level: "level", X: "x", Y: "y", IsCity: "is_city"}
}

// LoadSettlements reads settlements from a GeoJSON, shapefile, CSV or XLSX
// file chosen by extension. Tabular files carry x and y columns. A level
// column is optional; settlements without one are classified later.
func LoadSettlements(path string, f Fields) ([]model.Settlement, error) {
	var (
		out []model.Settlement
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: read %s", path)
		}
		out, err = DecodeSettlements(data, f)
	case ".shp":
		out, err = readShapefileSettlements(path, f)
	default:
		var rows [][]string
		rows, err = ReadTable(path)
		if err != nil {
			return nil, err
		}
		out, err = tableSettlements(rows, f)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "loader: settlements from %s", path)
	}
	return out, nil
}

// DecodeSettlements parses a GeoJSON FeatureCollection of Point features.
// The feature id stands in when the properties carry no id.
func DecodeSettlements(data []byte, f Fields) ([]model.Settlement, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(model.ErrInvalidInput, "loader: decode feature collection: %v", err)
	}

	out := make([]model.Settlement, 0, len(fc.Features))
	for i, feat := range fc.Features {
		s, err := featureSettlement(feat, f)
		if err != nil {
			return nil, eris.Wrapf(err, "loader: feature %d", i)
		}
		out = append(out, s)
	}
	return out, nil
}

func featureSettlement(feat *geojson.Feature, f Fields) (model.Settlement, error) {
	var s model.Settlement
	switch g := feat.Geometry.(type) {
	case *geom.Point:
		s.X, s.Y = g.X(), g.Y()
	case *geom.MultiPoint:
		if g.NumPoints() != 1 {
			return s, eris.Wrapf(model.ErrInvalidInput, "loader: multipoint with %d points", g.NumPoints())
		}
		p := g.Point(0)
		s.X, s.Y = p.X(), p.Y()
	default:
		return s, eris.Wrapf(model.ErrInvalidInput, "loader: settlement geometry %T is not a point", feat.Geometry)
	}

	attr := func(col string) (string, bool) {
		v, ok := feat.Properties[col]
		if !ok || v == nil {
			return "", false
		}
		return propString(v), true
	}

	id, ok := attr(f.ID)
	if !ok {
		id, ok = feat.ID, feat.ID != ""
	}
	if !ok {
		return s, eris.Wrap(model.ErrInvalidInput, "loader: feature has no id")
	}
	return fillSettlement(s, id, attr, f)
}

// fillSettlement parses the non-coordinate columns through attr.
func fillSettlement(s model.Settlement, id string, attr func(string) (string, bool), f Fields) (model.Settlement, error) {
	var err error
	if s.ID, err = parseID(id); err != nil {
		return s, err
	}
	name, _ := attr(f.Name)
	s.Name = cleanName(name)

	pop, ok := attr(f.Population)
	if !ok {
		return s, eris.Wrapf(model.ErrInvalidInput, "loader: settlement %d has no population", s.ID)
	}
	if s.Population, err = parseInt(pop); err != nil {
		return s, eris.Wrapf(err, "loader: settlement %d population", s.ID)
	}

	if lv, ok := attr(f.Level); ok && lv != "" {
		n, err := parseInt(lv)
		if err != nil {
			return s, eris.Wrapf(err, "loader: settlement %d level", s.ID)
		}
		s.Level = model.Level(n)
	}

	if c, ok := attr(f.IsCity); ok && c != "" {
		if s.IsCity, err = strconv.ParseBool(strings.TrimSpace(c)); err != nil {
			return s, eris.Wrapf(model.ErrInvalidInput, "loader: settlement %d is_city %q", s.ID, c)
		}
	}
	return s, nil
}

func propString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func tableSettlements(rows [][]string, f Fields) ([]model.Settlement, error) {
	if len(rows) == 0 {
		return nil, eris.Wrap(model.ErrInvalidInput, "loader: empty settlement table")
	}
	h := newHeader(rows[0])
	for _, col := range []string{f.ID, f.Population, f.X, f.Y} {
		if _, ok := h[col]; !ok {
			return nil, eris.Wrapf(model.ErrInvalidInput, "loader: settlement table lacks column %q", col)
		}
	}

	out := make([]model.Settlement, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		attr := func(col string) (string, bool) { return h.get(row, col) }
		id, _ := attr(f.ID)

		var s model.Settlement
		var err error
		x, _ := attr(f.X)
		y, _ := attr(f.Y)
		if s.X, err = parseFloat(x); err != nil {
			return nil, eris.Wrapf(err, "loader: row %d x", i+2)
		}
		if s.Y, err = parseFloat(y); err != nil {
			return nil, eris.Wrapf(err, "loader: row %d y", i+2)
		}
		if s, err = fillSettlement(s, id, attr, f); err != nil {
			return nil, eris.Wrapf(err, "loader: row %d", i+2)
		}
		out = append(out, s)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}
