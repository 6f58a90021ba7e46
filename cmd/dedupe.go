package cmd

import (
	"context"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/dedup"
	"github.com/quellwerk/akquise-engine/internal/logger"
	"github.com/quellwerk/akquise-engine/internal/store"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Cluster the lookback window and mark cross-source duplicates",
	Run: func(cmd *cobra.Command, _ []string) {
		dedupe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(dedupeCmd)

	dedupeCmd.Flags().Int("days", 90, "lookback window in days")
	dedupeCmd.Flags().Bool("dry-run", false, "report what would be marked without writing")
}

func dedupe(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	days, _ := cmd.Flags().GetInt("days")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	st, err := store.Open(config.Database, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), zap.String("database", config.Database))
	}
	defer st.Close()

	window, err := st.PostingsSince(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		logger.Fatal("loading the lookback window", zap.Error(err))
	}

	clusterer := dedup.NewClusterer(logger)
	groups := clusterer.Cluster(window)

	marked, err := clusterer.Mark(&storeMarker{ctx: ctx, store: st}, groups, dryRun)
	if err != nil {
		logger.Fatal("marking duplicates", zap.Error(err))
	}

	logger.Info("deduplication complete",
		zap.Int("window", len(window)),
		zap.Int("groups", len(groups)),
		zap.Int("marked", marked),
		zap.Bool("dry_run", dryRun),
	)
}

type storeMarker struct {
	ctx   context.Context
	store *store.Store
}

func (m *storeMarker) MarkDuplicate(postingID, primaryID int64, confidence float64) error {
	return m.store.MarkDuplicate(m.ctx, postingID, primaryID, confidence)
}
