// Package config loads PRDWing settings from the config file, .env and
// PRDWING_* environment variables through Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/josephgoksu/PRDWing/internal/prd"
)

const (
	configName = ".prdwing"
	envPrefix  = "PRDWING"

	// DefaultServerPort is the local API port.
	DefaultServerPort = 7431
)

// Config is the full application configuration.
type Config struct {
	Verbose     bool              `mapstructure:"verbose"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Data        DataConfig        `mapstructure:"data"`
	Preferences PreferencesConfig `mapstructure:"preferences"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Server      ServerConfig      `mapstructure:"server"`
}

type LLMConfig struct {
	Provider string            `mapstructure:"provider" validate:"omitempty,oneof=openai anthropic gemini ollama"`
	Model    string            `mapstructure:"model"`
	BaseURL  string            `mapstructure:"baseURL" validate:"omitempty,url"`
	Timeout  time.Duration     `mapstructure:"timeout" validate:"gte=0"`
	APIKeys  map[string]string `mapstructure:"apiKeys"`
}

type DataConfig struct {
	Path string `mapstructure:"path"`
}

type PreferencesConfig struct {
	TechStack prd.TechPreferences `mapstructure:"techStack"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"apiKey"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" validate:"omitempty,hostname|ip"`
	Port int    `mapstructure:"port" validate:"gte=0,lte=65535"`

	// Origins lists the browser origins allowed to call the API.
	Origins []string `mapstructure:"origins"`
}

// validate is a single instance of Validate, it caches struct info
var validate = validator.New()

// SetDefaults registers default values.
func SetDefaults() {
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.timeout", time.Duration(0))
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", DefaultServerPort)
	viper.SetDefault("server.origins", []string{"http://localhost:5173", "wails://wails"})
}

// Init reads the config file and environment. cfgFile overrides the search
// path when set. A missing config file is not an error.
func Init(cfgFile string) (*Config, error) {
	// It's okay if .env file doesn't exist.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
		if info, err := os.Stat(LocalDir); err == nil && info.IsDir() {
			// ./.prdwing/.prdwing.yaml
			viper.AddConfigPath(LocalDir)
		}
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
	}

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return Load()
}

// Load unmarshals and validates the current Viper state.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
