package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/export"
	"github.com/sells-group/popframe/internal/hierarchy"
	"github.com/sells-group/popframe/internal/loader"
)

var (
	classifyOut    string
	classifyFormat string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <settlements>",
	Short: "Assign hierarchy levels to a settlement table",
	Long:  "Reads a settlement table and writes it back with the level and level name of every settlement derived from its population.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cls, err := hierarchy.Load(cfg.Hierarchy.File)
		if err != nil {
			return err
		}

		res := newResolver()
		defer res.Close() //nolint:errcheck

		path, err := res.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		settlements, err := loader.LoadSettlements(path, loader.DefaultFields())
		if err != nil {
			return err
		}
		classified, err := cls.Apply(settlements)
		if err != nil {
			return eris.Wrap(err, "classify")
		}

		w, closeOut, err := createOutput(classifyOut)
		if err != nil {
			return err
		}
		defer closeOut() //nolint:errcheck

		switch classifyFormat {
		case "geojson":
			err = export.WriteGeoJSON(w, export.SettlementFeatures(classified))
		case "csv":
			err = export.WriteCSV(w, export.SettlementTable(classified))
		default:
			return eris.Errorf("classify: unknown format %q", classifyFormat)
		}
		if err != nil {
			return err
		}

		zap.L().Info("classify complete", zap.Int("settlements", len(classified)))
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyOut, "out", "o", "-", "output file (- for stdout)")
	classifyCmd.Flags().StringVar(&classifyFormat, "format", "geojson", "output format (geojson, csv)")
	rootCmd.AddCommand(classifyCmd)
}
