package main

import (
	"fmt"
	"math/rand"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scout-pos/geo-analytics/internal/model"
)

var (
	seedStores int
	seedDays   int
)

// seedCmd loads synthetic stores and transactions for local development.
// Coordinates are scattered over the Philippine bounding box so most stores
// land inside real admin2 polygons after an ingest.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load synthetic stores and transactions for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		rng := rand.New(rand.NewSource(42))
		if seedDays > 30 {
			seedDays = 30
		}

		stores := make([]model.StoreLocation, seedStores)
		for i := range stores {
			lat := 5.0 + rng.Float64()*14.0   // 5..19 N
			lng := 117.0 + rng.Float64()*10.0 // 117..127 E
			stores[i] = model.StoreLocation{
				ID:        int64(i + 1),
				Name:      fmt.Sprintf("Store %03d", i+1),
				Latitude:  &lat,
				Longitude: &lng,
			}
		}
		if _, err := st.UpsertStoreLocations(ctx, stores); err != nil {
			return err
		}

		var txns []model.Transaction
		txnID := int64(1)
		for day := 0; day < seedDays; day++ {
			date := fmt.Sprintf("2025-06-%02d", day+1)
			for _, s := range stores {
				n := rng.Intn(5)
				for j := 0; j < n; j++ {
					txns = append(txns, model.Transaction{
						ID:         txnID,
						StoreID:    s.ID,
						CustomerID: fmt.Sprintf("c-%04d", rng.Intn(500)),
						Amount:     50 + rng.Float64()*950,
						Date:       date,
					})
					txnID++
				}
			}
		}
		if _, err := st.InsertTransactions(ctx, txns); err != nil {
			return err
		}

		zap.L().Info("seed complete",
			zap.Int("stores", len(stores)),
			zap.Int("transactions", len(txns)),
		)
		return nil
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedStores, "stores", 50, "number of synthetic stores")
	seedCmd.Flags().IntVar(&seedDays, "days", 30, "days of synthetic transactions")
	rootCmd.AddCommand(seedCmd)
}
