package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Environment string `mapstructure:"ENVIRONMENT"`
	Port        string `mapstructure:"PORT"`
	BaseURL     string `mapstructure:"BASE_URL"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Auth
	JWTSecret     string `mapstructure:"JWT_SECRET"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`

	// Media storage root. Uploaded photos live under
	// MEDIA_ROOT/user_<id>/<filename>.
	MediaRoot string `mapstructure:"MEDIA_ROOT"`

	// Model artifacts (model.onnx + labels.txt) loaded once at startup.
	ModelDir string `mapstructure:"MODEL_DIR"`
	// Path to libonnxruntime.so / .dylib. Empty means the system default.
	OnnxRuntimeLib string `mapstructure:"ONNX_RUNTIME_LIB"`

	// Logging
	LogDir string `mapstructure:"LOG_DIR"`
}

// Load reads configuration from a .env file in path (if present) and from
// environment variables, environment taking precedence.
func Load(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("TOKEN_TTL_HOURS", 24)
	viper.SetDefault("MEDIA_ROOT", "media")
	viper.SetDefault("MODEL_DIR", "ml_models")
	viper.SetDefault("LOG_DIR", "logs")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.TokenTTLHours <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive")
	}
	return nil
}
