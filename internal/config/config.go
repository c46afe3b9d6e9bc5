// Package config loads voiceline configuration from environment
// variables and an optional config file via viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings for the voiceline server.
type Config struct {
	// Server
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// Database. Empty means the in-memory store is used (dev/test).
	DatabaseURL string `mapstructure:"database_url"`

	// Decision oracle (OpenAI-compatible chat completions endpoint)
	OracleBaseURL string        `mapstructure:"oracle_base_url"`
	OracleAPIKey  string        `mapstructure:"oracle_api_key"`
	OracleModel   string        `mapstructure:"oracle_model"`
	OracleTimeout time.Duration `mapstructure:"oracle_timeout"`

	// Speech recognition (Deepgram)
	DeepgramAPIKey string `mapstructure:"deepgram_api_key"`
	DeepgramModel  string `mapstructure:"deepgram_model"`

	// Speech synthesis (ElevenLabs)
	ElevenLabsAPIKey  string `mapstructure:"elevenlabs_api_key"`
	ElevenLabsVoiceID string `mapstructure:"elevenlabs_voice_id"`
	ElevenLabsModel   string `mapstructure:"elevenlabs_model"`

	// Audio
	SampleRate int `mapstructure:"sample_rate"`

	// Limits
	MaxConcurrentCalls int `mapstructure:"max_concurrent_calls"`

	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Load reads configuration from VOICELINE_* environment variables and,
// if present, a voiceline.yaml file in the working directory.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("oracle_base_url", "https://api.openai.com/v1")
	v.SetDefault("oracle_model", "gpt-4.1-mini")
	v.SetDefault("oracle_timeout", 15*time.Second)
	v.SetDefault("deepgram_model", "nova-2")
	v.SetDefault("elevenlabs_voice_id", "21m00Tcm4TlvDq8ikWAM")
	v.SetDefault("elevenlabs_model", "eleven_turbo_v2")
	v.SetDefault("sample_rate", 16000)
	v.SetDefault("max_concurrent_calls", 100)
	v.SetDefault("allowed_origins", "http://localhost:5173,http://localhost:3000")

	v.SetEnvPrefix("voiceline")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("voiceline")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that settings required for live operation are present.
// The oracle key is the only hard requirement; speech keys are checked
// lazily because text-mode sessions run without them.
func (c *Config) Validate() error {
	if c.OracleAPIKey == "" {
		return errors.New("config: oracle API key required (VOICELINE_ORACLE_API_KEY)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("config: invalid port")
	}
	return nil
}

// AllowedOriginsList splits the comma-separated origins setting.
func (c *Config) AllowedOriginsList() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
