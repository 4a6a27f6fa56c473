package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/orchestrator"
	"github.com/spigell/recrutabot/internal/storage"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errAborted = errors.New("aborted by user")

// confirm asks a yes/no question unless the command was given --yes.
func confirm(cmd *cobra.Command, label string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return nil
	}

	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}

	_, answer, err := prompt.Run()
	if err != nil {
		return err
	}
	if answer != PromptYes {
		return errAborted
	}
	return nil
}

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Inspect or replace the bot system prompt",
}

var promptShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active system prompt",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := setup("prompt show")

		store, err := newStore(ctx, config, logger)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer store.Close()

		active, err := store.ActivePrompt(ctx)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			logger.Info("no active prompt, showing the built-in default")
			fmt.Println(orchestrator.DefaultSystemPrompt())
			return
		case err != nil:
			logger.Fatal("getting the active prompt", zap.Error(err))
		}

		logger.Info("active prompt",
			zap.Uint("id", active.ID),
			zap.String("updated_by", active.UpdatedBy),
			zap.Time("updated_at", active.CreatedAt),
		)
		fmt.Println(active.Content)
	},
}

var promptSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Activate a new system prompt read from a file or --content",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := setup("prompt set")

		content, _ := cmd.Flags().GetString("content")
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				logger.Fatal("reading the prompt file", zap.Error(err))
			}
			content = string(data)
		}
		if strings.TrimSpace(content) == "" {
			logger.Fatal("prompt content is required", zap.String("hint", "use --file or --content"))
		}

		if err := confirm(cmd, fmt.Sprintf("Replace the active prompt with %d characters of new text?", len([]rune(content)))); err != nil {
			logger.Info("exiting", zap.Error(err))
			return
		}

		store, err := newStore(ctx, config, logger)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer store.Close()

		updatedBy, _ := cmd.Flags().GetString("updated-by")
		saved, err := store.SetPrompt(ctx, content, updatedBy)
		if err != nil {
			logger.Fatal("saving the prompt", zap.Error(err))
		}

		logger.Info("system prompt activated", zap.Uint("id", saved.ID), zap.String("updated_by", saved.UpdatedBy))
	},
}

var promptHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous system prompts, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := setup("prompt history")

		store, err := newStore(ctx, config, logger)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		history, err := store.PromptHistory(ctx, limit)
		if err != nil {
			logger.Fatal("listing prompts", zap.Error(err))
		}

		for _, p := range history {
			fmt.Printf("#%d\t%s\t%s\tactive=%t\t%s\n",
				p.ID, p.CreatedAt.Format("2006-01-02 15:04"), p.UpdatedBy, p.IsActive, firstLine(p.Content))
		}
	},
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.AddCommand(promptShowCmd, promptSetCmd, promptHistoryCmd)

	promptSetCmd.Flags().StringP("file", "f", "", "read the prompt from this file")
	promptSetCmd.Flags().String("content", "", "prompt text")
	promptSetCmd.Flags().String("updated-by", "cli", "author recorded with the prompt")
	promptSetCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	promptHistoryCmd.Flags().Int("limit", 10, "how many prompts to show")
}
