package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/assess/gemini"
	"github.com/quellwerk/akquise-engine/internal/logger"
	"github.com/quellwerk/akquise-engine/internal/posting"
	"github.com/quellwerk/akquise-engine/internal/store"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage the candidate profiles used for shortlisting",
}

var profilesLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Load candidate profiles from a YAML file and embed them",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		loadProfiles(args[0])
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesLoadCmd)
}

// profileSpec is the file form of one candidate profile.
type profileSpec struct {
	Name            string   `mapstructure:"name"`
	Role            string   `mapstructure:"role"`
	Skills          []string `mapstructure:"skills"`
	YearsExperience int      `mapstructure:"years-experience"`
	MinHourlyRate   float64  `mapstructure:"min-hourly-rate"`
}

func loadProfiles(path string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	profiles, err := readProfilesFile(path)
	if err != nil {
		logger.Fatal("reading the profiles file", zap.Error(err), zap.String("file", path))
	}

	apiKey, err := geminiAPIKey(config.AI)
	if err != nil {
		logger.Fatal("loading the gemini api key", zap.Error(err))
	}

	var embeddingModel string
	if config.AI != nil && config.AI.Gemini != nil {
		embeddingModel = config.AI.Gemini.EmbeddingModel
	}
	embedder, err := gemini.NewEmbedder(ctx, apiKey, embeddingModel)
	if err != nil {
		logger.Fatal("creating the embedder", zap.Error(err))
	}

	st, err := store.Open(config.Database, logger)
	if err != nil {
		logger.Fatal("opening the database", zap.Error(err), zap.String("database", config.Database))
	}
	defer st.Close()

	loaded, err := syncProfiles(ctx, st, embedder, profiles, logger)
	if err != nil {
		logger.Fatal("loading profiles", zap.Error(err))
	}

	logger.Info("profiles loaded", zap.Int("count", loaded))
}

// readProfilesFile parses a YAML document with a top-level "profiles" list.
func readProfilesFile(path string) ([]posting.CandidateProfile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}

	var specs []profileSpec
	if err := v.UnmarshalKey("profiles", &specs); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no profiles in %s", path)
	}

	profiles := make([]posting.CandidateProfile, 0, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("profile without a name in %s", path)
		}
		profiles = append(profiles, posting.CandidateProfile{
			Name:            spec.Name,
			Role:            spec.Role,
			Skills:          spec.Skills,
			YearsExperience: spec.YearsExperience,
			MinHourlyRate:   spec.MinHourlyRate,
		})
	}
	return profiles, nil
}

// profileWriter is the store surface of the loader.
type profileWriter interface {
	InsertProfile(ctx context.Context, p *posting.CandidateProfile, embedding []float32) (int64, error)
	SaveProfileEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// batchEmbedder turns the profile texts into vectors in one call.
type batchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// syncProfiles inserts the profiles and attaches their embeddings. Profiles
// are persisted before embedding so an embedding failure leaves them stored
// and retryable.
func syncProfiles(ctx context.Context, st profileWriter, embedder batchEmbedder, profiles []posting.CandidateProfile, logger *zap.Logger) (int, error) {
	ids := make([]int64, len(profiles))
	texts := make([]string, len(profiles))
	for i := range profiles {
		id, err := st.InsertProfile(ctx, &profiles[i], nil)
		if err != nil {
			return i, fmt.Errorf("insert profile %q: %w", profiles[i].Name, err)
		}
		ids[i] = id
		texts[i] = profileText(profiles[i])
		logger.Debug("profile stored", zap.Int64("profile_id", id), zap.String("name", profiles[i].Name))
	}

	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return len(profiles), fmt.Errorf("embed profiles (stored without embeddings): %w", err)
	}
	if len(vectors) != len(profiles) {
		return len(profiles), fmt.Errorf("embedding count mismatch: %d vectors for %d profiles", len(vectors), len(profiles))
	}

	for i, id := range ids {
		if err := st.SaveProfileEmbedding(ctx, id, vectors[i]); err != nil {
			return len(profiles), err
		}
	}
	return len(profiles), nil
}

// profileText is the text a profile is embedded from. It mirrors the query
// side built from a posting: role and skills dominate.
func profileText(p posting.CandidateProfile) string {
	var parts []string
	if p.Role != "" {
		parts = append(parts, p.Role)
	}
	if len(p.Skills) > 0 {
		parts = append(parts, strings.Join(p.Skills, ", "))
	}
	if p.YearsExperience > 0 {
		parts = append(parts, fmt.Sprintf("%d Jahre Erfahrung", p.YearsExperience))
	}
	if len(parts) == 0 {
		return p.Name
	}
	return strings.Join(parts, "\n")
}
