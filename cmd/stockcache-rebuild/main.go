package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"bitbucket.org/papermoa/trade_backend/config"
	"bitbucket.org/papermoa/trade_backend/models"
	"bitbucket.org/papermoa/trade_backend/workflow"
)

// Recomputes cached_quantity_available from the event ledger. The cache is
// maintained transactionally, so this only matters after manual data
// surgery or a bug; safe to run at any time.
func main() {
	companyID := flag.Int("company-id", 0, "Optional: limit to one company's stocks")
	stockID := flag.Int("stock-id", 0, "Optional: rebuild a single stock")
	continueOnError := flag.Bool("continue-on-error", false, "Skip failing stocks and continue")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	var stockIds []int
	q := db.Model(&models.Stock{}).Where("is_deleted = ?", false)
	if *stockID > 0 {
		q = q.Where("id = ?", *stockID)
	}
	if *companyID > 0 {
		q = q.Where("company_id = ?", *companyID)
	}
	if err := q.Order("id").Pluck("id", &stockIds).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list stocks: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("rebuilding cached quantity for %d stocks\n", len(stockIds))
	failed := 0
	for _, id := range stockIds {
		if err := workflow.RecomputeStockQuantity(db, logger, id); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "stock %d: %v\n", id, err)
			if !*continueOnError {
				os.Exit(1)
			}
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "done with %d failures\n", failed)
		os.Exit(1)
	}
	fmt.Println("done")
}
