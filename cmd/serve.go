package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/recrutabot/internal/api"
	"github.com/spigell/recrutabot/internal/scoring"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the WhatsApp webhook and the admin API",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")
	serveCmd.Flags().Bool("no-consume", false, "do not process résumés in this process, leave them to 'worker'")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, logger := setup("serve")

	p, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the pipeline", zap.Error(err))
	}
	defer p.Close(logger)

	if p.secrets.verifyToken == "" {
		logger.Warn("webhook verification is disabled", zap.String("hint", "set WHATSAPP_VERIFY_TOKEN"))
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.New(api.Deps{
		Store:       p.store,
		Intake:      p.intake,
		Messenger:   p.messenger,
		Scorer:      scoring.New(p.generator, p.store, logger, config.AI.MaxLogLength),
		Generator:   p.generator,
		VerifyToken: p.secrets.verifyToken,
		AppSecret:   p.secrets.appSecret,
	}, logger.With(zap.String("component", "api")))

	srv := &http.Server{
		Addr:              config.Server.Listen,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	noConsume, _ := cmd.Flags().GetBool("no-consume")
	if !noConsume {
		g.Go(func() error {
			return consumeResumes(gctx, p, logger)
		})
	}

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.Bool("signature_check", p.secrets.appSecret != ""))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		timeout := config.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		logger.Info("shutting down", zap.Duration("timeout", timeout))
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("serving", zap.Error(err))
		return
	}

	logger.Info("stopped")
}
