package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "akquise-engine"
)

type Config struct {
	Database  string           `mapstructure:"database"`
	Engine    *EngineConfig    `mapstructure:"engine"`
	Rules     *RulesConfig     `mapstructure:"rules"`
	Shortlist *ShortlistConfig `mapstructure:"shortlist"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type EngineConfig struct {
	Workers               int `mapstructure:"workers"`
	MaxActiveApplications int `mapstructure:"max-active-applications"`
	LowKeywordThreshold   int `mapstructure:"low-keyword-threshold"`
	ThresholdReject       int `mapstructure:"threshold-reject"`
	ThresholdApply        int `mapstructure:"threshold-apply"`
	LookbackDays          int `mapstructure:"lookback-days"`
}

type RulesConfig struct {
	BudgetCeiling     float64 `mapstructure:"budget-ceiling"`
	BudgetHardMargin  float64 `mapstructure:"budget-hard-margin"`
	TeamSizeCap       int     `mapstructure:"team-size-cap"`
	PublicSectorBonus int     `mapstructure:"public-sector-bonus"`
}

type ShortlistConfig struct {
	TopK          int     `mapstructure:"top-k"`
	MinSimilarity float64 `mapstructure:"min-similarity"`
}

type AIConfig struct {
	ResearchEnabled   bool          `mapstructure:"research-enabled"`
	RequestsPerMinute int           `mapstructure:"requests-per-minute"`
	Gemini            *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "akquise-engine scores scraped project postings and decides whether to apply",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is akquise-engine.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	viper.SetDefault("database", app+".db")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A missing config file is fine, the defaults carry. A broken one is not.
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
