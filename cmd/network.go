package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/export"
	"github.com/sells-group/popframe/internal/model"
)

var (
	networkFlags inputFlags
	networkNodes string
	networkEdges string
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Build the settlement network",
	Long:  "Links every settlement to its nearest denser neighbour, connects the densest tier with a minimum spanning tree and writes the network as GeoJSON points and lines.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("agglomerate"); err != nil {
			return err
		}

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		in, err := loadInputs(ctx, networkFlags.sources())
		if err != nil {
			return err
		}
		r, src, err := eng.prepare(in)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}
		t, err := startRun(ctx, st, model.RunKindNetwork, networkFlags.sources())
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := eng.runNetwork(r, src)
		if err != nil {
			return t.finish(ctx, nil, err)
		}

		w, closeOut, err := createOutput(networkFlags.out)
		if err != nil {
			return t.finish(ctx, nil, err)
		}
		defer closeOut() //nolint:errcheck
		if err := export.WriteGeoJSON(w, export.NetworkFeatures(res.Graph)); err != nil {
			return t.finish(ctx, nil, err)
		}

		for _, side := range []struct {
			path string
			fc   *geojson.FeatureCollection
		}{
			{networkNodes, export.NodeFeatures(res.Graph)},
			{networkEdges, export.EdgeFeatures(res.Graph)},
		} {
			if side.path == "" {
				continue
			}
			sw, closeSide, err := createOutput(side.path)
			if err != nil {
				return t.finish(ctx, nil, err)
			}
			defer closeSide() //nolint:errcheck
			if err := export.WriteGeoJSON(sw, side.fc); err != nil {
				return t.finish(ctx, nil, err)
			}
		}

		zap.L().Info("network complete",
			zap.Int("settlements", len(res.Settlements)),
			zap.Int("edges", len(res.Graph.Edges())),
			zap.Int("components", len(res.Graph.Components())),
		)
		return t.finish(ctx, networkSummary(res, start), nil)
	},
}

func init() {
	networkFlags.register(networkCmd)
	networkCmd.Flags().StringVar(&networkNodes, "nodes", "", "also write settlement points alone to this GeoJSON file")
	networkCmd.Flags().StringVar(&networkEdges, "edges", "", "also write network lines alone to this GeoJSON file")
	rootCmd.AddCommand(networkCmd)
}
