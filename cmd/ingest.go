package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/ingest"
	"github.com/scout-pos/geo-analytics/internal/mapping"
	"github.com/scout-pos/geo-analytics/internal/refresh"
	"github.com/scout-pos/geo-analytics/internal/rollup"
)

var (
	ingestShapefile bool
	ingestBatchSize int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Replace the boundary set from a GeoJSON file or shapefile",
	Long:  "Replaces all administrative boundaries from the given file, then re-runs store mapping and the metric rollup.",
	Args:  cobra.ExactArgs(1),
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

		batchSize := ingestBatchSize
		if batchSize == 0 {
			batchSize = cfg.Ingest.BatchSize
		}
		ingestor := ingest.NewBoundaryIngestor(st, orch, log, batchSize)

		path := args[0]
		var report *ingest.Report
		if ingestShapefile || strings.HasSuffix(path, ".shp") {
			report, err = ingestor.IngestShapefile(ctx, path)
		} else {
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				return eris.Wrapf(readErr, "read %s", path)
			}
			report, err = ingestor.IngestGeoJSON(ctx, data)
		}
		if err != nil {
			return err
		}

		log.Info("ingest complete",
			zap.String("run_id", report.RunID),
			zap.Int("boundaries", report.Inserted),
			zap.Int("regions", report.Regions),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestShapefile, "shapefile", false, "treat the input as a shapefile")
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "insert batch size (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
