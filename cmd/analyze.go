package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/export"
	"github.com/sells-group/popframe/internal/model"
)

var (
	analyzeFlags inputFlags
	analyzeXLSX  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Partition the region into frame areas",
	Long:  "Detects communities in the settlement network, tessellates the boundary around every settlement and writes one named polygon per connected community part.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		in, err := loadInputs(ctx, analyzeFlags.sources())
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
		t, err := startRun(ctx, st, model.RunKindAnalysis, cfg.Analysis)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := eng.runAnalysis(r, src)
		if err != nil {
			return t.finish(ctx, nil, err)
		}

		w, closeOut, err := createOutput(analyzeFlags.out)
		if err != nil {
			return t.finish(ctx, nil, err)
		}
		defer closeOut() //nolint:errcheck
		if err := export.WriteGeoJSON(w, export.AreaFeatures(res.Areas)); err != nil {
			return t.finish(ctx, nil, err)
		}

		if analyzeXLSX != "" {
			if err := export.WriteXLSX(analyzeXLSX, export.AreaTable(res.Areas)); err != nil {
				return t.finish(ctx, nil, err)
			}
		}

		summary := analysisSummary(res, start)
		zap.L().Info("analyze complete",
			zap.Int("communities", summary.Communities),
			zap.Int("areas", summary.Areas),
		)
		return t.finish(ctx, summary, nil)
	},
}

func init() {
	analyzeFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeXLSX, "xlsx", "", "also write the area table to this workbook")
	rootCmd.AddCommand(analyzeCmd)
}
