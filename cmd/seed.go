package cmd

import (
	"fmt"
	"time"

	"github.com/jmehdipour/churn-predictor/internal/db"
	"github.com/jmehdipour/churn-predictor/internal/logger"
	"github.com/jmehdipour/churn-predictor/internal/model"
	"github.com/jmehdipour/churn-predictor/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed MySQL with demo retail transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		repo, err := repository.NewTransactionsRepository(sqlDB, cfg.Source.Table)
		if err != nil {
			return err
		}

		rows := demoTransactions()
		logger.Log.Info("seeding demo transactions", zap.Int("rows", len(rows)), zap.String("table", repo.Table()))

		if err := repo.InsertBatch(cmd.Context(), nil, rows); err != nil {
			return fmt.Errorf("insert demo transactions: %w", err)
		}

		logger.Log.Info("seed completed")
		return nil
	},
}

// demoTransactions is a deterministic data set around the default analysis date
// (2011-12-10): active and lapsed customers, a multi-line invoice, a return,
// a zero-price line and an anonymous purchase.
func demoTransactions() []model.TransactionRecord {
	at := func(y int, m time.Month, d, hh, mm int) time.Time {
		return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
	}
	id := func(v float64) *float64 { return &v }

	return []model.TransactionRecord{
		// 12346: one large order long ago, churned
		{CustomerID: id(12346), Invoice: "541431", InvoiceDate: at(2011, 1, 18, 10, 1), Quantity: 74215, Price: 1.04, Country: "United Kingdom"},
		{CustomerID: id(12346), Invoice: "C541433", InvoiceDate: at(2011, 1, 18, 10, 17), Quantity: -74215, Price: 1.04, Country: "United Kingdom"},

		// 12347: regular buyer, active
		{CustomerID: id(12347), Invoice: "537626", InvoiceDate: at(2010, 12, 7, 14, 57), Quantity: 12, Price: 2.10, Country: "Iceland"},
		{CustomerID: id(12347), Invoice: "537626", InvoiceDate: at(2010, 12, 7, 14, 57), Quantity: 4, Price: 4.25, Country: "Iceland"},
		{CustomerID: id(12347), Invoice: "573511", InvoiceDate: at(2011, 10, 31, 12, 25), Quantity: 24, Price: 1.25, Country: "Iceland"},
		{CustomerID: id(12347), Invoice: "581180", InvoiceDate: at(2011, 12, 7, 15, 52), Quantity: 12, Price: 2.08, Country: "Iceland"},

		// 12348: last paid purchase 65 days before the analysis date, churned
		{CustomerID: id(12348), Invoice: "539318", InvoiceDate: at(2010, 12, 16, 19, 9), Quantity: 144, Price: 0.29, Country: "Finland"},
		{CustomerID: id(12348), Invoice: "568172", InvoiceDate: at(2011, 10, 5, 9, 12), Quantity: 120, Price: 0.42, Country: "Finland"},
		{CustomerID: id(12348), Invoice: "568173", InvoiceDate: at(2011, 10, 5, 9, 30), Quantity: 1, Price: 0, Country: "Finland"},

		// 12350: country changes after the first purchase; the first one is kept
		{CustomerID: id(12350), Invoice: "543037", InvoiceDate: at(2011, 11, 2, 16, 1), Quantity: 12, Price: 1.65, Country: "Norway"},
		{CustomerID: id(12350), Invoice: "579999", InvoiceDate: at(2011, 12, 1, 10, 0), Quantity: 6, Price: 3.75, Country: "Sweden"},

		// anonymous walk-in purchase, discarded by cleaning
		{CustomerID: nil, Invoice: "536544", InvoiceDate: at(2010, 12, 1, 14, 32), Quantity: 1, Price: 2.51, Country: "United Kingdom"},
	}
}
