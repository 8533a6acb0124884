package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/popframe/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:          "popframe",
	Short:        "Settlement network and agglomeration engine",
	Long:         "Classifies settlements into an urbanisation hierarchy, links them into a settlement network, grows agglomerations from travel-time matrices and partitions a region into frame areas.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
