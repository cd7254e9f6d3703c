package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/mapping"
	"github.com/scout-pos/geo-analytics/internal/refresh"
	"github.com/scout-pos/geo-analytics/internal/rollup"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-run store mapping and rebuild the metric rollup",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		log := zap.L()
		orch := refresh.NewOrchestrator(st,
			mapping.NewStoreMapper(st, log, cfg.Mapping.Concurrency),
			rollup.NewMetricAggregator(st, log),
			log,
		)

		report, err := orch.Run(ctx)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
