package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/completion"
	"github.com/spigell/recrutabot/internal/export"
	"github.com/spigell/recrutabot/internal/filtering"
	"github.com/spigell/recrutabot/internal/models"
	"github.com/spigell/recrutabot/internal/storage"
	"github.com/spigell/recrutabot/internal/whatsapp"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List, export or delete candidates",
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print candidates matching the filters",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := setup("candidates list")

		store, err := newStore(ctx, config, logger)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer store.Close()

		candidates, steps, err := filteredCandidates(ctx, cmd, store, logger)
		if err != nil {
			logger.Fatal("listing candidates", zap.Error(err))
		}

		fmt.Printf("Filters: %s\n\n", filtering.Summary(steps))

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PHONE\tNAME\tROLE\tSENIORITY\tSTATUS\tBOT\tSCORE\tCOMPLETE")
		for i := range candidates {
			c := &candidates[i]
			score := "-"
			if c.Score != nil {
				score = strconv.Itoa(*c.Score)
			}
			bot := models.BotActive
			if !c.IsBotActive() {
				bot = models.BotInactive
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
				c.Phone, c.Name, c.DesiredRole, c.Seniority, c.Status, bot, score, completion.Evaluate(c).Complete)
		}
		w.Flush()

		logger.Info("candidates listed", zap.Int("count", len(candidates)))
	},
}

var candidatesExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write candidates matching the filters to an XLSX workbook",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := setup("candidates export")

		store, err := newStore(ctx, config, logger)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer store.Close()

		candidates, _, err := filteredCandidates(ctx, cmd, store, logger)
		if err != nil {
			logger.Fatal("listing candidates", zap.Error(err))
		}

		jobs, err := store.ListJobs(ctx, "")
		if err != nil {
			logger.Fatal("listing jobs", zap.Error(err))
		}
		titles := make(map[string]string, len(jobs))
		for _, job := range jobs {
			titles[job.ID] = job.Title
		}

		output, _ := cmd.Flags().GetString("output")
		path, err := export.CandidatesToFile(output, candidates, titles)
		if err != nil {
			logger.Fatal("exporting candidates", zap.Error(err))
		}

		logger.Info("candidates exported", zap.String("filename", path), zap.Int("count", len(candidates)))
	},
}

var candidatesDeleteCmd = &cobra.Command{
	Use:   "delete PHONE",
	Short: "Delete a candidate and the whole conversation",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		config, logger := setup("candidates delete")

		store, err := newStore(ctx, config, logger)
		if err != nil {
			logger.Fatal("opening the store", zap.Error(err))
		}
		defer store.Close()

		phone := whatsapp.NormalizePhone(args[0])
		candidate, err := store.GetCandidate(ctx, phone)
		if err != nil {
			logger.Fatal("getting the candidate", zap.String("phone", phone), zap.Error(err))
		}

		if err := confirm(cmd, fmt.Sprintf("Delete %s (%s) and every message?", candidate.Name, candidate.Phone)); err != nil {
			logger.Info("exiting", zap.Error(err))
			return
		}

		if err := store.DeleteCandidate(ctx, phone); err != nil {
			logger.Fatal("deleting the candidate", zap.Error(err))
		}

		logger.Info("candidate deleted", zap.String("candidate_id", candidate.ID))
	},
}

func filteredCandidates(ctx context.Context, cmd *cobra.Command, store *storage.Store, logger *zap.Logger) ([]models.Candidate, []filtering.Filter, error) {
	flag := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}

	query := filtering.Query{
		Status:    flag("status"),
		JobID:     flag("job"),
		BotStatus: flag("bot-status"),
		Search:    flag("search"),
		Complete:  flag("complete"),
		MinScore:  flag("min-score"),
	}

	steps, err := query.Steps()
	if err != nil {
		return nil, nil, err
	}

	candidates, err := store.ListCandidates(ctx)
	if err != nil {
		return nil, nil, err
	}

	filtered, err := filtering.Run(ctx, logger, steps, candidates)
	return filtered, steps, err
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("status", "", "pipeline status (new, qualified, interviewing, offer, hired, rejected)")
	cmd.Flags().String("job", "", "job id, or 'none' for unassigned candidates")
	cmd.Flags().String("bot-status", "", "active or inactive")
	cmd.Flags().StringP("search", "q", "", "free text over name, phone, e-mail, role and location")
	cmd.Flags().String("complete", "", "true or false to filter by screening completion")
	cmd.Flags().String("min-score", "", "minimum score from 1 to 10")
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesCmd.AddCommand(candidatesListCmd, candidatesExportCmd, candidatesDeleteCmd)

	addFilterFlags(candidatesListCmd)
	addFilterFlags(candidatesExportCmd)

	candidatesExportCmd.Flags().StringP("output", "o", "candidatos.xlsx", "output workbook")
	candidatesDeleteCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")
}
