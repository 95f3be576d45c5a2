package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the explicit run configuration. It is built once by Load and
// handed to every component that needs it.
type Config struct {
	OllamaModel       string            `mapstructure:"ollama_model"`
	MaxTokens         int               `mapstructure:"max_tokens"`
	UseConfirmation   bool              `mapstructure:"use_confirmation"`
	SaveHistory       bool              `mapstructure:"save_history"`
	HistoryPath       string            `mapstructure:"history_path"`
	MaxCharacters     int               `mapstructure:"max_characters"`
	SuggestedMessages int               `mapstructure:"suggested_messages"`
	Emojis            map[string]string `mapstructure:"emojis"`
	PromptTemplate    string            `mapstructure:"prompt_template"`
	Providers         []string          `mapstructure:"providers"`
	RequestTimeout    time.Duration     `mapstructure:"request_timeout"`
	RedactPrompt      bool              `mapstructure:"redact_prompt"`

	OpenRouter OpenRouter `mapstructure:"openrouter"`
	OpenAI     OpenAI     `mapstructure:"openai"`
	Ollama     Ollama     `mapstructure:"ollama"`
	Log        Log        `mapstructure:"log"`

	// Debug is set from the DEBUG environment variable.
	Debug bool `mapstructure:"-"`
	// File is the config file that was read, empty when only defaults apply.
	File string `mapstructure:"-"`
}

type OpenRouter struct {
	APIKey        string `mapstructure:"-"`
	BaseURL       string `mapstructure:"base_url"`
	Model         string `mapstructure:"model"`
	TopN          int    `mapstructure:"top_n"`
	BlacklistPath string `mapstructure:"blacklist_path"`
}

type OpenAI struct {
	APIKey  string `mapstructure:"-"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Tier    string `mapstructure:"tier"`
}

type Ollama struct {
	APIKey string `mapstructure:"-"`
	Host   string `mapstructure:"host"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// environment lists the variables that override the config file.
type environment struct {
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY"`
	OpenRouterModel  string `env:"OPENROUTER_MODEL"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIModel      string `env:"OPENAI_MODEL"`
	ModelTier        string `env:"MODEL_TIER"`
	OllamaAPIKey     string `env:"OLLAMA_API_KEY"`
	OllamaModel      string `env:"OLLAMA_MODEL"`
	OllamaHost       string `env:"OLLAMA_HOST"`
	Debug            bool   `env:"DEBUG"`
}

// DefaultEmojis are used for any emoji key the config file leaves out.
var DefaultEmojis = map[string]string{
	"header":  "🔀",
	"add":     "🆕",
	"change":  "📝",
	"delete":  "🗑️",
	"info":    "ℹ️",
	"summary": "🎯",
}

const DefaultPromptTemplate = `You are writing a git commit message.
Changes: {changes}
Diff summary: {diff}
Reply with a short conventional commit message (feat:, fix:, docs: or chore:) ` +
	`followed by at most two lines of detail. No code fences, no quotes.`

// Options controls where Load looks for its inputs.
type Options struct {
	// File is an explicit config path; when empty the search path is used.
	File string
	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

// Dir returns the per-user config directory, creating it if necessary.
func Dir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	base := filepath.Join(dir, "gcm")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	return base, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ollama_model", "llama3")
	v.SetDefault("max_tokens", 400)
	v.SetDefault("use_confirmation", true)
	v.SetDefault("save_history", true)
	v.SetDefault("history_path", "~/.gcm_history.log")
	v.SetDefault("max_characters", 160)
	v.SetDefault("suggested_messages", 1)
	for k, e := range DefaultEmojis {
		v.SetDefault("emojis."+k, e)
	}
	v.SetDefault("prompt_template", DefaultPromptTemplate)
	v.SetDefault("providers", []string{"OpenRouter", "OpenAI", "Ollama"})
	v.SetDefault("request_timeout", "120s")
	v.SetDefault("redact_prompt", true)

	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("openrouter.model", "FreeAll")
	v.SetDefault("openrouter.top_n", 5)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-3.5-turbo")
	v.SetDefault("openai.tier", "cheap")
	v.SetDefault("ollama.host", "http://localhost:11434")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads config.yml (if any), applies defaults and then environment
// overrides. A missing config file is not an error.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exe))
		}
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	cfg.File = v.ConfigFileUsed()

	var e environment
	envOpts := env.Options{}
	if opts.Environ != nil {
		envOpts.Environment = opts.Environ
	}
	if err := env.ParseWithOptions(&e, envOpts); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	cfg.applyEnvironment(e)

	if cfg.OpenRouter.BlacklistPath == "" {
		dir, err := Dir()
		if err != nil {
			return nil, errors.Wrap(err, "resolve config dir")
		}
		cfg.OpenRouter.BlacklistPath = filepath.Join(dir, "blacklist.txt")
	}
	cfg.HistoryPath = ExpandHome(cfg.HistoryPath)
	cfg.OpenRouter.BlacklistPath = ExpandHome(cfg.OpenRouter.BlacklistPath)

	if cfg.SuggestedMessages < 1 {
		cfg.SuggestedMessages = 1
	}
	if cfg.OpenRouter.TopN < 1 {
		cfg.OpenRouter.TopN = 5
	}
	return cfg, nil
}

func (c *Config) applyEnvironment(e environment) {
	c.OpenRouter.APIKey = strings.TrimSpace(e.OpenRouterAPIKey)
	c.OpenAI.APIKey = strings.TrimSpace(e.OpenAIAPIKey)
	c.Ollama.APIKey = strings.TrimSpace(e.OllamaAPIKey)
	if e.OpenRouterModel != "" {
		c.OpenRouter.Model = e.OpenRouterModel
	}
	if e.OpenAIModel != "" {
		c.OpenAI.Model = e.OpenAIModel
	}
	if e.ModelTier != "" {
		c.OpenAI.Tier = e.ModelTier
	}
	if e.OllamaModel != "" {
		c.OllamaModel = e.OllamaModel
	}
	if e.OllamaHost != "" {
		c.Ollama.Host = e.OllamaHost
	}
	if e.Debug {
		c.Debug = true
		c.Log.Level = "debug"
	}
}

// Emoji returns the configured emoji for key, falling back to the defaults.
func (c *Config) Emoji(key string) string {
	if e, ok := c.Emojis[key]; ok {
		return e
	}
	return DefaultEmojis[key]
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrapf(err, "load %s", p)
		}
	}
	return nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
