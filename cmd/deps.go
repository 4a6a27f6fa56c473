package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/recrutabot/internal/ai"
	"github.com/spigell/recrutabot/internal/ai/gemini"
	"github.com/spigell/recrutabot/internal/ai/openai"
	"github.com/spigell/recrutabot/internal/ai/vertex"
	"github.com/spigell/recrutabot/internal/completion"
	"github.com/spigell/recrutabot/internal/extraction"
	"github.com/spigell/recrutabot/internal/intake"
	applog "github.com/spigell/recrutabot/internal/logger"
	"github.com/spigell/recrutabot/internal/orchestrator"
	"github.com/spigell/recrutabot/internal/queue"
	"github.com/spigell/recrutabot/internal/secrets"
	"github.com/spigell/recrutabot/internal/storage"
	"github.com/spigell/recrutabot/internal/whatsapp"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"
	providerVertex = "vertex"
)

// setup builds the logger and reads the configuration. Failures are fatal.
func setup(command string) (*Config, *zap.Logger) {
	logger, err := applog.New(viper.GetBool("json"), viper.GetBool("debug"), zap.String("service", app))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the "+app, zap.String("command", command), zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return config, logger
}

// redacted returns a copy of config that is safe to print.
func redacted(config *Config) Config {
	c := *config
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}

	if config.WhatsApp != nil {
		wa := *config.WhatsApp
		wa.AccessToken = mask(wa.AccessToken)
		wa.VerifyToken = mask(wa.VerifyToken)
		wa.AppSecret = mask(wa.AppSecret)
		c.WhatsApp = &wa
	}
	if config.AI != nil {
		aiCfg := *config.AI
		if aiCfg.Gemini != nil {
			g := *aiCfg.Gemini
			g.APIKey = mask(g.APIKey)
			aiCfg.Gemini = &g
		}
		if aiCfg.OpenAI != nil {
			o := *aiCfg.OpenAI
			o.APIKey = mask(o.APIKey)
			aiCfg.OpenAI = &o
		}
		c.AI = &aiCfg
	}
	c.Database.DSN = mask(c.Database.DSN)
	c.Resumes.AMQP.URL = mask(c.Resumes.AMQP.URL)

	return c
}

func newStore(ctx context.Context, config *Config, logger *zap.Logger) (*storage.Store, error) {
	store, err := storage.Open(config.Database, logger.With(zap.String("component", "storage")))
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	var (
		generator ai.Generator
		err       error
	)

	switch provider {
	case "", providerGemini:
		gc := cfg.Gemini
		if gc == nil {
			gc = &GeminiConfig{}
		}

		apiKey, kerr := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  gc.APIKeyFile,
			Value: gc.APIKey,
			Env:   "GEMINI_API_KEY",
		})
		if kerr != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", kerr)
		}

		genLogger := logger.With(zap.Int("ai_retry_attempts", gc.MaxRetries))
		generator, err = gemini.NewGenerator(ctx, apiKey, gc.Model, gc.MaxRetries, genLogger)
	case providerOpenAI:
		oc := cfg.OpenAI
		if oc == nil {
			oc = &OpenAIConfig{}
		}

		apiKey, kerr := secrets.Load(secrets.Source{
			Name:  "openai api key",
			File:  oc.APIKeyFile,
			Value: oc.APIKey,
			Env:   "OPENAI_API_KEY",
		})
		if kerr != nil {
			return nil, fmt.Errorf("%w (set ai.openai.api-key-file or OPENAI_API_KEY)", kerr)
		}

		generator, err = openai.NewGenerator(apiKey, oc.BaseURL, oc.Model, logger)
	case providerVertex:
		vc := cfg.Vertex
		if vc == nil {
			vc = &VertexConfig{}
		}
		generator, err = vertex.NewGenerator(ctx, vc.Project, vc.Location, vc.Model, logger)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("ai generator ready",
		append(applog.CommonFields(generator.Provider(), generator.Model()), zap.Duration("timeout", cfg.Timeout))...)

	return ai.WithTimeout(generator, cfg.Timeout), nil
}

type whatsappSecrets struct {
	accessToken string
	verifyToken string
	appSecret   string
}

func loadWhatsAppSecrets(cfg *WhatsAppConfig) (whatsappSecrets, error) {
	var (
		s   whatsappSecrets
		err error
	)

	s.accessToken, err = secrets.Load(secrets.Source{
		Name:  "whatsapp access token",
		File:  cfg.AccessTokenFile,
		Value: cfg.AccessToken,
		Env:   "WHATSAPP_ACCESS_TOKEN",
	})
	if err != nil {
		return s, err
	}

	s.verifyToken, err = secrets.Optional(secrets.Source{
		Name:  "whatsapp verify token",
		File:  cfg.VerifyTokenFile,
		Value: cfg.VerifyToken,
		Env:   "WHATSAPP_VERIFY_TOKEN",
	})
	if err != nil {
		return s, err
	}

	s.appSecret, err = secrets.Optional(secrets.Source{
		Name:  "whatsapp app secret",
		File:  cfg.AppSecretFile,
		Value: cfg.AppSecret,
		Env:   "WHATSAPP_APP_SECRET",
	})

	return s, err
}

// pipeline is everything a candidate turn needs, shared by serve and worker.
type pipeline struct {
	store     *storage.Store
	generator ai.Generator
	transport *whatsapp.Client
	queue     queue.Queue
	messenger *intake.Messenger
	dialogue  *orchestrator.Orchestrator
	intake    *intake.Service
	secrets   whatsappSecrets
}

func newPipeline(ctx context.Context, config *Config, logger *zap.Logger) (*pipeline, error) {
	creds, err := loadWhatsAppSecrets(config.WhatsApp)
	if err != nil {
		return nil, err
	}

	store, err := newStore(ctx, config, logger)
	if err != nil {
		return nil, fmt.Errorf("opening the store: %w", err)
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building the ai generator: %w", err)
	}

	resumes, err := queue.New(config.Resumes, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("building the resume queue: %w", err)
	}

	placeholder := config.Intake.PlaceholderName
	evaluator := completion.NewEvaluator(placeholder)
	extractor := extraction.New(generator, evaluator, logger, config.AI.MaxLogLength)
	dialogue := orchestrator.New(store, generator, extractor, evaluator, logger, config.AI.MaxLogLength)

	transport := whatsapp.New(config.WhatsApp.Config, creds.accessToken, logger)
	messenger := intake.NewMessenger(store, transport, placeholder, logger)

	service := intake.New(intake.Deps{
		Store:       store,
		Messenger:   messenger,
		Dialogue:    dialogue,
		Resumes:     extractor,
		Media:       transport,
		Queue:       resumes,
		Placeholder: placeholder,
	}, logger)

	return &pipeline{
		store:     store,
		generator: generator,
		transport: transport,
		queue:     resumes,
		messenger: messenger,
		dialogue:  dialogue,
		intake:    service,
		secrets:   creds,
	}, nil
}

func (p *pipeline) Close(logger *zap.Logger) {
	if err := p.queue.Close(); err != nil {
		logger.Warn("closing the resume queue", zap.Error(err))
	}
	if err := p.store.Close(); err != nil {
		logger.Warn("closing the store", zap.Error(err))
	}
}

// consumeResumes runs the résumé workers and logs every failed task until ctx is done.
func consumeResumes(ctx context.Context, p *pipeline, logger *zap.Logger) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case taskErr := <-p.queue.Errors():
				logger.Error("resume task failed",
					append(applog.CandidateFields(taskErr.Task.Phone, taskErr.Task.MessageID), zap.Error(taskErr.Err))...)
			}
		}
	}()

	return p.queue.Consume(ctx, p.intake.ProcessResume)
}
