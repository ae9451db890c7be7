// Package config loads sitelens configuration from a YAML file with
// environment overrides for credentials.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sitelens/sitelens/scrape"
)

// ErrMissingAPIKey is fatal at startup: without a model credential the
// analysis pipeline cannot run.
var ErrMissingAPIKey = errors.New("no API key configured for the selected provider")

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Browser struct {
	UserAgent  string `yaml:"userAgent"`
	ChromePath string `yaml:"chromePath"`
}

type Scrape struct {
	LoadTimeoutSeconds    int `yaml:"loadTimeoutSeconds"`
	ScrollIntervalSeconds int `yaml:"scrollIntervalSeconds"`
	MaxScrollPasses       int `yaml:"maxScrollPasses"`
}

type Config struct {
	Provider     string `yaml:"provider"`
	GeminiAPIKey string `yaml:"geminiApiKey"`
	GeminiModel  string `yaml:"geminiModel"`
	OpenAIAPIKey string `yaml:"openaiApiKey"`
	OpenAIModel  string `yaml:"openaiModel"`

	SlackAppToken string `yaml:"slackAppToken"`
	SlackBotToken string `yaml:"slackBotToken"`

	DataDir   string `yaml:"dataDir"`
	CachePath string `yaml:"cachePath"`

	Browser Browser `yaml:"browser"`
	Scrape  Scrape  `yaml:"scrape"`
}

// Load reads the config file at path, fills credentials from the environment
// where the file leaves them empty, and validates the result. A missing file
// is not an error; everything can come from the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	fromEnv(&cfg.GeminiAPIKey, "GEMINI_API_KEY")
	fromEnv(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	fromEnv(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	fromEnv(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")

	if cfg.Provider == "" {
		cfg.Provider = ProviderGemini
	}
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	cfg.DataDir = os.ExpandEnv(cfg.DataDir)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return ErrMissingAPIKey
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return ErrMissingAPIKey
		}
	default:
		return errors.Errorf("unknown provider: %s", c.Provider)
	}

	return nil
}

// ScrapeOptions maps the configured timing onto scrape options, falling back
// to the defaults for unset values.
func (c *Config) ScrapeOptions() scrape.Options {
	opts := scrape.DefaultOptions()
	if c.Scrape.LoadTimeoutSeconds > 0 {
		opts.LoadTimeout = time.Duration(c.Scrape.LoadTimeoutSeconds) * time.Second
	}
	if c.Scrape.ScrollIntervalSeconds > 0 {
		opts.ScrollInterval = time.Duration(c.Scrape.ScrollIntervalSeconds) * time.Second
	}
	if c.Scrape.MaxScrollPasses > 0 {
		opts.MaxScrollPasses = c.Scrape.MaxScrollPasses
	}
	return opts
}

// HasSlack reports whether both Slack tokens are configured.
func (c *Config) HasSlack() bool {
	return c.SlackAppToken != "" && c.SlackBotToken != ""
}

func fromEnv(target *string, key string) {
	if *target == "" {
		*target = os.Getenv(key)
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sitelens-data"
	}

	return filepath.Join(home, ".local", "share", "sitelens")
}
