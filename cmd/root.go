package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/recrutabot/internal/queue"
	"github.com/spigell/recrutabot/internal/storage"
	"github.com/spigell/recrutabot/internal/whatsapp"
)

const (
	app = "recrutabot"
)

type Config struct {
	Server   *ServerConfig   `mapstructure:"server"`
	Database storage.Config  `mapstructure:"database"`
	WhatsApp *WhatsAppConfig `mapstructure:"whatsapp"`
	AI       *AIConfig       `mapstructure:"ai"`
	Intake   *IntakeConfig   `mapstructure:"intake"`
	Resumes  queue.Config    `mapstructure:"resumes"`
}

type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

type WhatsAppConfig struct {
	whatsapp.Config `mapstructure:",squash"`

	AccessToken     string `mapstructure:"access-token"`
	AccessTokenFile string `mapstructure:"access-token-file"`
	VerifyToken     string `mapstructure:"verify-token"`
	VerifyTokenFile string `mapstructure:"verify-token-file"`
	AppSecret       string `mapstructure:"app-secret"`
	AppSecretFile   string `mapstructure:"app-secret-file"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
	Vertex       *VertexConfig `mapstructure:"vertex"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	MaxRetries int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
}

type VertexConfig struct {
	Project  string `mapstructure:"project"`
	Location string `mapstructure:"location"`
	Model    string `mapstructure:"model"`
}

type IntakeConfig struct {
	// PlaceholderName is stored as the name of unknown contacts.
	PlaceholderName string `mapstructure:"placeholder-name"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "recrutabot is a WhatsApp recruiting assistant with a candidate CRM",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"whatsapp.access-token": "WHATSAPP_ACCESS_TOKEN",
	"whatsapp.verify-token": "WHATSAPP_VERIFY_TOKEN",
	"whatsapp.app-secret":   "WHATSAPP_APP_SECRET",
	"ai.gemini.api-key":     "GEMINI_API_KEY",
	"ai.openai.api-key":     "OPENAI_API_KEY",
	"database.dsn":          "DATABASE_DSN",
	"resumes.amqp.url":      "AMQP_URL",
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is recrutabot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.shutdown-timeout", "15s")
	viper.SetDefault("database.driver", storage.DriverSQLite)
	viper.SetDefault("database.dsn", app+".db")
	viper.SetDefault("ai.provider", providerGemini)
	viper.SetDefault("ai.timeout", "30s")
	viper.SetDefault("ai.max-log-length", 500)
	viper.SetDefault("intake.placeholder-name", "Candidato")
	viper.SetDefault("resumes.queue", queue.BackendMemory)
	viper.SetDefault("resumes.workers", 2)
	viper.SetDefault("resumes.buffer", 64)
}

func initConfig() {
	// .env only seeds the environment; real variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// An explicit --config must exist, the default one is optional.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
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

	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.WhatsApp == nil {
		config.WhatsApp = &WhatsAppConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.Intake == nil {
		config.Intake = &IntakeConfig{}
	}

	return config, nil
}
