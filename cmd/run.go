package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quellwerk/akquise-engine/internal/assess"
	"github.com/quellwerk/akquise-engine/internal/assess/gemini"
	"github.com/quellwerk/akquise-engine/internal/cpv"
	"github.com/quellwerk/akquise-engine/internal/engine"
	"github.com/quellwerk/akquise-engine/internal/keyword"
	"github.com/quellwerk/akquise-engine/internal/logger"
	"github.com/quellwerk/akquise-engine/internal/rules"
	"github.com/quellwerk/akquise-engine/internal/secrets"
	"github.com/quellwerk/akquise-engine/internal/shortlist"
	"github.com/quellwerk/akquise-engine/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Score all pending postings and execute the decisions",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntP("workers", "w", 0, "worker pool size, overrides the config")
	runCmd.Flags().Bool("dry-run", false, "run the full pipeline without writing anything")

	viper.BindPFlag("engine.workers", runCmd.Flags().Lookup("workers"))
	viper.BindPFlag("engine.dry-run", runCmd.Flags().Lookup("dry-run"))
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the akquise-engine", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	st, err := store.Open(config.Database, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), zap.String("database", config.Database))
	}
	defer st.Close()

	eng, err := buildEngine(ctx, config, st, logger)
	if err != nil {
		logger.Fatal("assembling the engine", zap.Error(err))
	}

	stats, err := eng.Run(ctx)
	if err != nil {
		logger.Fatal("pipeline run failed", zap.Error(err))
	}

	logger.Info("run complete",
		zap.Int("processed", stats.Processed),
		zap.Int("applied", stats.Applied),
		zap.Int("review", stats.Review),
		zap.Int("rejected", stats.Rejected),
		zap.Int("errors", stats.Errors),
	)
}

// buildEngine wires the pipeline collaborators from the configuration.
func buildEngine(ctx context.Context, config *Config, st *store.Store, logger *zap.Logger) (*engine.Engine, error) {
	engineCfg := engineConfig(config.Engine)
	rulesCfg := rulesConfig(config.Rules, engineCfg)

	apiKey, err := geminiAPIKey(config.AI)
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	var model, embeddingModel string
	if config.AI != nil && config.AI.Gemini != nil {
		model = config.AI.Gemini.Model
		embeddingModel = config.AI.Gemini.EmbeddingModel
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, model)
	if err != nil {
		return nil, err
	}

	embedder, err := gemini.NewEmbedder(ctx, apiKey, embeddingModel)
	if err != nil {
		return nil, err
	}

	shortlister := shortlist.New(shortlist.NewEmbeddingService(embedder, st, logger), st, logger)
	if config.Shortlist != nil {
		shortlister = shortlister.WithTopK(config.Shortlist.TopK)
		if config.Shortlist.MinSimilarity > 0 {
			shortlister = shortlister.WithMinSimilarity(config.Shortlist.MinSimilarity)
		}
	}

	assessor := assess.New(generator, requestLimiter(config.AI), assessConfig(engineCfg), logger)

	var researcher engine.Researcher
	if config.AI != nil && config.AI.ResearchEnabled {
		researcher = assess.NewResearcher(generator, logger)
	}

	return engine.New(engineCfg, engine.Deps{
		Store:       st,
		Shortlister: shortlister,
		Researcher:  researcher,
		Assessor:    assessor,
		Overlay:     rules.New(rulesCfg, logger),
		Keywords:    keyword.DefaultConfig(),
		CPV:         cpv.DefaultFilter(),
		Logger:      logger,
	})
}

// assessConfig derives the prompt thresholds from the engine bands. The
// review band in the prompt is inclusive on both edges, so its upper edge
// sits one below the apply threshold.
func assessConfig(engineCfg engine.Config) assess.Config {
	return assess.Config{
		MaxActive:       engineCfg.MaxActiveApplications,
		ThresholdReject: engineCfg.ThresholdReject,
		ThresholdReview: engineCfg.ThresholdApply - 1,
		ThresholdApply:  engineCfg.ThresholdApply,
	}
}

func engineConfig(cfg *EngineConfig) engine.Config {
	out := engine.DefaultConfig()
	out.DryRun = viper.GetBool("engine.dry-run")
	if cfg == nil {
		return out
	}
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.MaxActiveApplications > 0 {
		out.MaxActiveApplications = cfg.MaxActiveApplications
	}
	if cfg.LowKeywordThreshold > 0 {
		out.LowKeywordThreshold = cfg.LowKeywordThreshold
	}
	if cfg.ThresholdReject > 0 {
		out.ThresholdReject = cfg.ThresholdReject
	}
	if cfg.ThresholdApply > 0 {
		out.ThresholdApply = cfg.ThresholdApply
	}
	if cfg.LookbackDays > 0 {
		out.LookbackDays = cfg.LookbackDays
	}
	return out
}

func rulesConfig(cfg *RulesConfig, engineCfg engine.Config) rules.Config {
	out := rules.DefaultConfig()
	out.ThresholdReject = engineCfg.ThresholdReject
	out.ThresholdApply = engineCfg.ThresholdApply
	if cfg == nil {
		return out
	}
	if cfg.BudgetCeiling > 0 {
		out.BudgetCeiling = cfg.BudgetCeiling
	}
	if cfg.BudgetHardMargin > 0 {
		out.BudgetHardMargin = cfg.BudgetHardMargin
	}
	if cfg.TeamSizeCap > 0 {
		out.TeamSizeCap = cfg.TeamSizeCap
	}
	if cfg.PublicSectorBonus > 0 {
		out.PublicSectorBonus = cfg.PublicSectorBonus
	}
	return out
}

func geminiAPIKey(cfg *AIConfig) (string, error) {
	file := viper.GetString("ai.gemini.api-key-file")
	if cfg != nil && cfg.Gemini != nil && cfg.Gemini.APIKeyFile != "" {
		file = cfg.Gemini.APIKeyFile
	}

	return secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: file,
	})
}

// requestLimiter builds the shared service rate limiter. Zero disables it.
func requestLimiter(cfg *AIConfig) *rate.Limiter {
	if cfg == nil || cfg.RequestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
}
