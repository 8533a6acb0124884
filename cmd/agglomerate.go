package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/export"
	"github.com/sells-group/popframe/internal/model"
)

var (
	agglomerateFlags      inputFlags
	agglomerateMembership string
	agglomerateXLSX       string
)

var agglomerateCmd = &cobra.Command{
	Use:   "agglomerate",
	Short: "Grow agglomerations from anchor settlements",
	Long:  "Buffers every settlement reachable from each anchor within its travel budget, merges overlapping seeds, clips them to the boundary and writes the resulting agglomerations as GeoJSON.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("agglomerate"); err != nil {
			return err
		}

		eng, err := newEngine(cfg)
		if err != nil {
			return err
		}
		in, err := loadInputs(ctx, agglomerateFlags.sources())
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
		t, err := startRun(ctx, st, model.RunKindAgglomeration, cfg.Agglomeration)
		if err != nil {
			return err
		}

		start := time.Now()
		res, err := eng.runAgglomeration(r, src)
		if err != nil {
			return t.finish(ctx, nil, err)
		}

		w, closeOut, err := createOutput(agglomerateFlags.out)
		if err != nil {
			return t.finish(ctx, nil, err)
		}
		defer closeOut() //nolint:errcheck
		if err := export.WriteGeoJSON(w, export.AgglomerationFeatures(res.Agglomerations)); err != nil {
			return t.finish(ctx, nil, err)
		}

		if agglomerateMembership != "" {
			mw, closeMembers, err := createOutput(agglomerateMembership)
			if err != nil {
				return t.finish(ctx, nil, err)
			}
			defer closeMembers() //nolint:errcheck
			fc := export.MembershipFeatures(res.Settlements, res.Memberships)
			if err := export.WriteGeoJSON(mw, fc); err != nil {
				return t.finish(ctx, nil, err)
			}
		}

		if agglomerateXLSX != "" {
			err := export.WriteXLSX(agglomerateXLSX,
				export.AgglomerationTable(res.Agglomerations),
				export.MembershipTable(res.Memberships),
				export.SettlementTable(res.Settlements),
			)
			if err != nil {
				return t.finish(ctx, nil, err)
			}
		}

		if err := t.saveAgglomerations(ctx, res.Agglomerations, res.Memberships); err != nil {
			return t.finish(ctx, nil, err)
		}

		zap.L().Info("agglomerate complete",
			zap.Int("settlements", len(res.Settlements)),
			zap.Int("agglomerations", len(res.Agglomerations)),
		)
		return t.finish(ctx, agglomerationSummary(res, start), nil)
	},
}

func init() {
	agglomerateFlags.register(agglomerateCmd)
	agglomerateCmd.Flags().StringVar(&agglomerateMembership, "membership", "", "also write settlement membership as GeoJSON to this file")
	agglomerateCmd.Flags().StringVar(&agglomerateXLSX, "xlsx", "", "also write agglomeration, membership and settlement sheets to this workbook")
	rootCmd.AddCommand(agglomerateCmd)
}
