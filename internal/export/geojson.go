// Package export renders results as GeoJSON feature collections and as
// CSV or XLSX tables.
package export

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/popframe/internal/model"
	"github.com/sells-group/popframe/internal/network"
)

func point(s model.Settlement) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
}

// polygon keeps a nil polygon from becoming a non-nil geom.T.
func polygon(p *geom.Polygon) geom.T {
	if p == nil {
		return nil
	}
	return p
}

func settlementProps(s model.Settlement) map[string]any {
	return map[string]any{
		"id":         s.ID,
		"name":       s.Name,
		"population": s.Population,
		"level":      int(s.Level),
		"level_name": s.LevelName,
	}
}

// SettlementFeatures renders classified settlements as Point features.
func SettlementFeatures(settlements []model.Settlement) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(settlements))}
	for _, s := range settlements {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.FormatInt(s.ID, 10),
			Geometry:   point(s),
			Properties: settlementProps(s),
		})
	}
	return fc
}

// NodeFeatures renders the network's settlements as Point features.
func NodeFeatures(g *network.Graph) *geojson.FeatureCollection {
	return SettlementFeatures(g.Nodes())
}

// EdgeFeatures renders the network's edges as LineString features carrying
// the edge level and travel time.
func EdgeFeatures(g *network.Graph) *geojson.FeatureCollection {
	edges := g.Edges()
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(edges))}
	for _, e := range edges {
		from, _ := g.Node(e.From)
		to, _ := g.Node(e.To)
		line := geom.NewLineStringFlat(geom.XY, []float64{from.X, from.Y, to.X, to.Y})
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       strconv.FormatInt(e.From, 10) + "-" + strconv.FormatInt(e.To, 10),
			Geometry: line,
			Properties: map[string]any{
				"from":  e.From,
				"to":    e.To,
				"level": int(e.Level),
				"time":  e.Time,
			},
		})
	}
	return fc
}

// NetworkFeatures joins NodeFeatures and EdgeFeatures into one collection,
// points first.
func NetworkFeatures(g *network.Graph) *geojson.FeatureCollection {
	fc := NodeFeatures(g)
	fc.Features = append(fc.Features, EdgeFeatures(g).Features...)
	return fc
}

// AgglomerationFeatures renders agglomeration polygons.
func AgglomerationFeatures(aggs []model.Agglomeration) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(aggs))}
	for _, a := range aggs {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: polygon(a.Geometry),
			Properties: map[string]any{
				"name":        a.Name,
				"core_cities": a.CoreCities,
				"type":        string(a.Type),
				"population":  a.Population,
				"level":       a.Level,
			},
		})
	}
	return fc
}

// MembershipFeatures renders settlements with their agglomeration status.
// Settlements without a membership row are skipped.
func MembershipFeatures(settlements []model.Settlement, members []model.Membership) *geojson.FeatureCollection {
	byID := make(map[int64]model.Membership, len(members))
	for _, m := range members {
		byID[m.SettlementID] = m
	}
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(members))}
	for _, s := range settlements {
		m, ok := byID[s.ID]
		if !ok {
			continue
		}
		props := settlementProps(s)
		props["status"] = string(m.Status)
		props["agglomeration"] = m.Agglomeration
		props["agglomeration_level"] = m.Level
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         strconv.FormatInt(s.ID, 10),
			Geometry:   point(s),
			Properties: props,
		})
	}
	return fc
}

// AreaFeatures renders frame areas.
func AreaFeatures(areas []model.FrameArea) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(areas))}
	for _, a := range areas {
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: polygon(a.Geometry),
			Properties: map[string]any{
				"name":        a.Name,
				"community":   a.Community,
				"population":  a.Population,
				"settlements": a.Settlements,
			},
		})
	}
	return fc
}

// WriteGeoJSON encodes fc to w.
func WriteGeoJSON(w io.Writer, fc *geojson.FeatureCollection) error {
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	return nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, " ")
}
