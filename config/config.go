package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is built once in main and handed to the components that need it.
type Config struct {
	Port      string    `yaml:"port" env:"PORT" env-default:"8080"`
	Database  Database  `yaml:"database"`
	Uploads   Uploads   `yaml:"uploads"`
	Admin     Admin     `yaml:"admin"`
	Payment   Payment   `yaml:"payment"`
	Search    Search    `yaml:"search"`
	GenAI     GenAI     `yaml:"genai"`
	Mail      Mail      `yaml:"mail"`
	Log       Log       `yaml:"log"`
	Features  Features  `yaml:"features"`
	Templates Templates `yaml:"templates"`
}

type Database struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"sqlite"`
	DSN    string `yaml:"dsn" env:"DATABASE_URL" env-default:"file:sensiboost.db?_pragma=busy_timeout(5000)"`
}

type Uploads struct {
	Dir      string `yaml:"dir" env:"UPLOAD_DIR" env-default:"uploads"`
	MaxBytes int64  `yaml:"max_bytes" env:"UPLOAD_MAX_BYTES" env-default:"6291456"`
}

type Admin struct {
	Token string `yaml:"token" env:"ADMIN_TOKEN"`
}

// Payment is shown on the upload page so users know where to send money.
type Payment struct {
	NequiNumber  string `yaml:"nequi_number" env:"NEQUI_NUMBER" env-default:"3000000000"`
	PremiumPrice string `yaml:"premium_price" env:"PREMIUM_PRICE" env-default:"10000 COP"`
}

type Search struct {
	APIKey   string        `yaml:"api_key" env:"GOOGLE_API_KEY"`
	EngineID string        `yaml:"engine_id" env:"GOOGLE_CSE_ID"`
	BaseURL  string        `yaml:"base_url" env:"SEARCH_BASE_URL" env-default:"https://www.googleapis.com/customsearch/v1"`
	Timeout  time.Duration `yaml:"timeout" env:"SEARCH_TIMEOUT" env-default:"8s"`
}

// GenAI selects the generation provider. Provider is "gemini", "openai" or
// empty; an empty provider or missing key leaves generation disabled.
type GenAI struct {
	Provider string        `yaml:"provider" env:"GENAI_PROVIDER"`
	APIKey   string        `yaml:"api_key" env:"GENAI_API_KEY"`
	Model    string        `yaml:"model" env:"GENAI_MODEL"`
	BaseURL  string        `yaml:"base_url" env:"GENAI_BASE_URL"`
	Timeout  time.Duration `yaml:"timeout" env:"GENAI_TIMEOUT" env-default:"30s"`
}

// Mail configures outbound notifications. SendGrid mails the admin and the
// account; the Slack webhook only ever hears about new receipts.
type Mail struct {
	SendGridKey  string `yaml:"sendgrid_key" env:"SENDGRID_API_KEY"`
	From         string `yaml:"from" env:"MAIL_FROM"`
	AdminEmail   string `yaml:"admin_email" env:"ADMIN_EMAIL"`
	SlackWebhook string `yaml:"slack_webhook" env:"SLACK_WEBHOOK_URL"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type Templates struct {
	Glob string `yaml:"glob" env:"TEMPLATES_GLOB" env-default:"templates/*"`
}

// Load reads the YAML file named by SENSI_CONFIG_PATH when set, then applies
// environment overrides. Without a file only the environment is used.
func Load() (*Config, error) {
	var cfg Config
	if path := os.Getenv("SENSI_CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) SearchEnabled() bool {
	return c.Search.APIKey != "" && c.Search.EngineID != ""
}

func (c *Config) GenAIEnabled() bool {
	return c.GenAI.Provider != "" && c.GenAI.APIKey != ""
}

func (c *Config) MailEnabled() bool {
	return c.Features.NotifyEnabled && c.Mail.SendGridKey != "" && c.Mail.From != ""
}

func (c *Config) SlackEnabled() bool {
	return c.Features.NotifyEnabled && c.Mail.SlackWebhook != ""
}
