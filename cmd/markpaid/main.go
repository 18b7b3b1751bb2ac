// Command markpaid flags every recorded transaction as paid and exits.
package main

import (
	"context"
	"os"
	"time"

	"github.com/householdledger/server/internal/config"
	"github.com/householdledger/server/internal/utils"
)

func main() {
	config.LoadEnvFile()

	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewLogger("markpaid", utils.ParseLevel("")).Error("invalid configuration", utils.FieldError, err)
		os.Exit(1)
	}

	logger := utils.NewLogger("markpaid", utils.ParseLevel(cfg.Log.Level))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	repo, err := config.SetupDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up database", utils.FieldError, err)
		os.Exit(1)
	}
	defer repo.Close()

	n, err := repo.MarkAllTransactionsAsPaid(ctx)
	if err != nil {
		logger.Error("failed to mark transactions paid", utils.FieldError, err)
		os.Exit(1)
	}
	logger.Info("transactions marked paid", "count", n)
}
