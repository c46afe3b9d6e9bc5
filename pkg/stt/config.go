package stt

import (
	"errors"
	"log/slog"
)

// ErrNoAPIKey indicates a recognizer was built without credentials.
var ErrNoAPIKey = errors.New("stt: API key is required")

// Config holds recognizer settings.
type Config struct {
	APIKey         string
	Model          string
	Language       string
	SampleRate     int
	Endpointing    int // ms of silence that ends an utterance
	UtteranceEndMs int // ms of silence that definitely ends an utterance
	Keywords       []string
	Logger         *slog.Logger
}

// DefaultConfig returns the settings used in production: Nova-2 over
// 16kHz linear PCM with banking keyword boosting.
func DefaultConfig() *Config {
	return &Config{
		Model:          "nova-2",
		Language:       "en-US",
		SampleRate:     16000,
		Endpointing:    300,
		UtteranceEndMs: 1000,
		Keywords: []string{
			"Bank ABC:2",
			"account:2",
			"balance:2",
			"routing number:3",
			"customer ID:3",
		},
		Logger: slog.Default(),
	}
}

// Option mutates a Config.
type Option func(*Config)

// Apply applies options in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

// WithAPIKey sets the Deepgram API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the recognition model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithSampleRate sets the input sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(c *Config) { c.SampleRate = rate }
}

// WithKeywords replaces the keyword boost list.
func WithKeywords(keywords []string) Option {
	return func(c *Config) { c.Keywords = keywords }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}
