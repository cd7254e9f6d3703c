package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/analytics"
	"github.com/scout-pos/geo-analytics/internal/api"
	"github.com/scout-pos/geo-analytics/internal/ingest"
	"github.com/scout-pos/geo-analytics/internal/mapping"
	"github.com/scout-pos/geo-analytics/internal/refresh"
	"github.com/scout-pos/geo-analytics/internal/rollup"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the analytics HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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
		server := api.NewServer(st,
			ingest.NewBoundaryIngestor(st, orch, log, cfg.Ingest.BatchSize),
			analytics.NewClassifier(st, log),
			orch,
			log,
			api.Config{
				DataDir:         cfg.Ingest.DataDir,
				RefreshInterval: time.Duration(cfg.Server.RefreshIntervalSecs) * time.Second,
			},
		)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           server.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			log.Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		log.Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
