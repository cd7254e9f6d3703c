package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/config"
	"github.com/scout-pos/geo-analytics/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geo-analytics",
	Short: "Geographic point-of-sale analytics pipeline",
	Long:  "Ingests administrative boundaries, maps stores to them, materializes daily metrics, and serves choropleth and ranking queries.",
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

// openStore connects the configured backend; callers own the Close.
func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
