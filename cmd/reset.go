package cmd

import (
	"context"
	"log"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/logger"
	"github.com/quellwerk/akquise-engine/internal/store"
)

var resetCmd = &cobra.Command{
	Use:   "reset <posting-id>",
	Short: "Clear a decided posting back to pending for re-scoring",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		reset(args[0])
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func reset(arg string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		logger.Fatal("posting id must be a number", zap.String("arg", arg))
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	st, err := store.Open(config.Database, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), zap.String("database", config.Database))
	}
	defer st.Close()

	if err := st.ResetPosting(ctx, id); err != nil {
		logger.Fatal("resetting the posting", zap.Error(err), zap.Int64("posting_id", id))
	}

	logger.Info("posting reset to pending", zap.Int64("posting_id", id))
}
