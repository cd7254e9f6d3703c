package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/analytics"
	"github.com/scout-pos/geo-analytics/internal/export"
	"github.com/scout-pos/geo-analytics/internal/model"
)

var (
	exportOut    string
	exportFrom   string
	exportTo     string
	exportMetric string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a top-regions ranking report to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		now := time.Now().UTC()
		from := exportFrom
		if from == "" {
			from = now.AddDate(0, 0, -30).Format(model.DateLayout)
		}
		to := exportTo
		if to == "" {
			to = now.Format(model.DateLayout)
		}
		metric, err := model.ParseMetric(exportMetric)
		if err != nil {
			return err
		}

		resp, err := analytics.NewClassifier(st, zap.L()).Dotstrip(ctx,
			model.DateRange{From: from, To: to}, metric, exportLimit)
		if err != nil {
			return err
		}
		if err := export.WriteRankingXLSX(exportOut, resp); err != nil {
			return err
		}

		zap.L().Info("report written",
			zap.String("path", exportOut),
			zap.String("metric", string(metric)),
			zap.Int("regions", len(resp.Dotstrip)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "report.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "range start YYYY-MM-DD (default 30 days ago)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "range end YYYY-MM-DD (default today)")
	exportCmd.Flags().StringVar(&exportMetric, "metric", "sales", "metric: sales, transactions, or customers")
	exportCmd.Flags().IntVar(&exportLimit, "limit", analytics.DefaultRankLimit, "number of regions to rank")
	rootCmd.AddCommand(exportCmd)
}
