package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every key when read from the environment.
const EnvPrefix = "READMEGEN"

// Global configuration structure.
type Global struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`

	// Endpoint overrides
	GitHubAPIURL      string `mapstructure:"github_api_url" yaml:"github_api_url"`
	GeminiBaseURL     string `mapstructure:"gemini_base_url" yaml:"gemini_base_url,omitempty"`
	OpenRouterBaseURL string `mapstructure:"openrouter_base_url" yaml:"openrouter_base_url,omitempty"`

	// HTTP configuration
	HTTPTimeoutSec     int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	GenerateTimeoutSec int `mapstructure:"generate_timeout_sec" yaml:"generate_timeout_sec"`

	// Web server
	ListenAddr    string `mapstructure:"listen_addr" yaml:"listen_addr"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`

	// Where `generate` writes README files when --output is not given.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// Model catalog saved by `models sync`/`models fetch`; empty means
	// ~/.readmegen/models.json.
	CatalogFile string `mapstructure:"catalog_file" yaml:"catalog_file,omitempty"`
}

// HTTPTimeout returns the GitHub request timeout.
func (c *Global) HTTPTimeout() time.Duration { return secs(c.HTTPTimeoutSec, 30) }

// GenerateTimeout returns the generation request timeout.
func (c *Global) GenerateTimeout() time.Duration { return secs(c.GenerateTimeoutSec, 120) }

// SessionTTL returns how long an idle web session is kept.
func (c *Global) SessionTTL() time.Duration {
	if c.SessionTTLMin <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.SessionTTLMin) * time.Minute
}

// CatalogPath returns where the saved model catalog lives.
func (c *Global) CatalogPath() (string, error) {
	if c.CatalogFile != "" {
		return c.CatalogFile, nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "models.json"), nil
}

func secs(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

// DefaultDir returns ~/.readmegen.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".readmegen"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.readmegen/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	// The file may hold the API key.
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// NewViper returns a viper instance with defaults, env binding and the
// config file location set, but nothing read yet.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api_key", "")
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "gemini-1.5-flash")
	v.SetDefault("github_api_url", "https://api.github.com")
	v.SetDefault("gemini_base_url", "")
	v.SetDefault("openrouter_base_url", "")
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("generate_timeout_sec", 120)
	v.SetDefault("listen_addr", "127.0.0.1:8080")
	v.SetDefault("session_ttl_min", 30)
	v.SetDefault("output_dir", ".")
	v.SetDefault("catalog_file", "")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	return v, nil
}

// Decode reads the current values of v into a Global.
func Decode(v *viper.Viper) (*Global, error) {
	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A missing config file is not an error.
func Load(cfgFile string) (*Global, error) {
	v, err := NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := ReadOptional(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

// ReadOptional reads the config file, ignoring a file that does not exist.
func ReadOptional(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none)
// without overriding variables already set. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ResolveAPIKey picks the generation credential: flag, then READMEGEN_API_KEY,
// then GEMINI_API_KEY, then the config file value. The result may be empty.
func ResolveAPIKey(flagValue string, c *Global) string {
	if s := strings.TrimSpace(flagValue); s != "" {
		return s
	}
	for _, env := range []string{EnvPrefix + "_API_KEY", "GEMINI_API_KEY"} {
		if s := strings.TrimSpace(os.Getenv(env)); s != "" {
			return s
		}
	}
	if c != nil {
		return strings.TrimSpace(c.APIKey)
	}
	return ""
}

// MaskKey hides all but the last four characters of a secret.
func MaskKey(k string) string {
	if k == "" {
		return "(not set)"
	}
	if len(k) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}
