package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/quellwerk/akquise-engine/internal/logger"
	"github.com/quellwerk/akquise-engine/internal/posting"
	"github.com/quellwerk/akquise-engine/internal/store"
)

const (
	PromptApply  = "Apply"
	PromptReject = "Reject"
	PromptSkip   = "Skip"
	PromptBack   = "back"
)

var errExit = errors.New("exit requested")

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Resolve the manual review queue interactively",
	Run: func(_ *cobra.Command, _ []string) {
		review()
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func review() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
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

	for {
		if err := reviewNext(ctx, st, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// reviewNext shows the open queue, lets the operator pick an entry and
// resolve it. Resolving moves the posting to its terminal status; the queue
// entry keeps the resolution as audit trail.
func reviewNext(ctx context.Context, st *store.Store, logger *zap.Logger) error {
	open, err := st.OpenReviews(ctx)
	if err != nil {
		return err
	}
	if len(open) == 0 {
		logger.Info("review queue is empty")
		return errExit
	}

	items := make([]string, 0, len(open)+1)
	for _, entry := range open {
		p, err := st.PostingByID(ctx, entry.PostingID)
		if err != nil {
			return err
		}
		items = append(items, fmt.Sprintf("#%d %s / %s / %s", entry.PostingID, p.Title, p.ClientName, entry.Reason))
	}
	items = append(items, PromptBack)

	entryPrompt := promptui.Select{
		Label: "Choose a posting and press ENTER",
		Items: items,
	}

	idx, selected, err := entryPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return errExit
	}
	entry := open[idx]

	actionPrompt := promptui.Select{
		Label: "Resolution",
		Items: []string{PromptApply, PromptReject, PromptSkip},
	}
	_, action, err := actionPrompt.Run()
	if err != nil {
		return err
	}

	switch action {
	case PromptApply:
		if err := st.UpdateStatus(ctx, entry.PostingID, posting.StatusApplied); err != nil {
			return err
		}
		if err := st.ResolveReview(ctx, entry.ID, "applied"); err != nil {
			return err
		}
		logger.Info("review resolved", zap.Int64("posting_id", entry.PostingID), zap.String("resolution", "applied"))

	case PromptReject:
		code, err := pickRejectionCode()
		if err != nil {
			return err
		}
		if err := st.AddRejectionReason(ctx, entry.PostingID, code); err != nil {
			return err
		}
		if err := st.UpdateStatus(ctx, entry.PostingID, posting.StatusRejected); err != nil {
			return err
		}
		if err := st.ResolveReview(ctx, entry.ID, "rejected"); err != nil {
			return err
		}
		logger.Info("review resolved", zap.Int64("posting_id", entry.PostingID), zap.String("resolution", "rejected"))

	case PromptSkip:
		return nil
	}

	return nil
}

// pickRejectionCode lets the operator choose from the closed taxonomy.
func pickRejectionCode() (string, error) {
	codes := make([]string, 0, len(posting.RejectionDescriptions))
	for code := range posting.RejectionDescriptions {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	items := make([]string, len(codes))
	for i, code := range codes {
		items[i] = fmt.Sprintf("%s (%s)", code, posting.RejectionDescriptions[code])
	}

	codePrompt := promptui.Select{
		Label: "Rejection code",
		Items: items,
		Size:  len(items),
	}
	idx, _, err := codePrompt.Run()
	if err != nil {
		return "", err
	}
	return codes[idx], nil
}
