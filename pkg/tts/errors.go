package tts

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey indicates the API key was not configured.
	ErrNoAPIKey = errors.New("tts: API key not configured")

	// ErrNoVoice indicates no voice was configured.
	ErrNoVoice = errors.New("tts: voice not configured")
)

// APIError is a non-200 response from the synthesis API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tts: API error (status %d): %s", e.StatusCode, e.Message)
}
