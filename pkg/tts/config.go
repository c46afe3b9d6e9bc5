package tts

import (
	"log/slog"
	"os"
	"time"
)

// DefaultVoiceID is the Rachel voice, a neutral conversational voice.
const DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// VoiceSettings tunes the synthesized voice.
type VoiceSettings struct {
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
}

// Config holds synthesizer configuration.
type Config struct {
	APIKey        string
	VoiceID       string
	ModelID       string
	OutputFormat  string
	VoiceSettings VoiceSettings
	StreamTimeout time.Duration
	Logger        *slog.Logger
}

// DefaultConfig returns a Config tuned for low-latency conversational
// synthesis.
func DefaultConfig() *Config {
	return &Config{
		VoiceID:      DefaultVoiceID,
		ModelID:      "eleven_turbo_v2",
		OutputFormat: "mp3_44100_128",
		VoiceSettings: VoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			SpeakerBoost:    true,
		},
		StreamTimeout: 60 * time.Second,
		Logger:        slog.New(slog.NewTextHandler(os.Stderr, nil)),
	}
}

// Option configures a synthesizer.
type Option func(*Config)

// Apply applies options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	if c.VoiceID == "" {
		return ErrNoVoice
	}
	return nil
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithVoiceID sets the voice.
func WithVoiceID(id string) Option {
	return func(c *Config) { c.VoiceID = id }
}

// WithModelID sets the synthesis model.
func WithModelID(id string) Option {
	return func(c *Config) { c.ModelID = id }
}

// WithOutputFormat sets the audio output format.
func WithOutputFormat(format string) Option {
	return func(c *Config) { c.OutputFormat = format }
}

// WithVoiceSettings overrides the voice tuning parameters.
func WithVoiceSettings(vs VoiceSettings) Option {
	return func(c *Config) { c.VoiceSettings = vs }
}

// WithStreamTimeout sets the per-request streaming timeout.
func WithStreamTimeout(d time.Duration) Option {
	return func(c *Config) { c.StreamTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
