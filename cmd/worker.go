package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued résumés from the AMQP broker",
	Run: func(_ *cobra.Command, _ []string) {
		work()
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func work() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger := setup("worker")

	// In-memory tasks never leave the serving process.
	if !strings.EqualFold(config.Resumes.Backend, queue.BackendAMQP) {
		logger.Fatal("worker requires the amqp resume queue",
			zap.String("queue", config.Resumes.Backend),
			zap.String("hint", "set resumes.queue to amqp and AMQP_URL"),
		)
	}

	p, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}
	defer p.Close(logger)

	logger.Info("consuming resumes", zap.Int("workers", config.Resumes.Workers))

	if err := consumeResumes(ctx, p, logger); err != nil {
		logger.Error("consuming resumes", zap.Error(err))
		return
	}

	logger.Info("stopped")
}
