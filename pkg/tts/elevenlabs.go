package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabs implements Synthesizer against the ElevenLabs streaming
// text-to-speech API.
type ElevenLabs struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabs creates an ElevenLabs synthesizer.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &ElevenLabs{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.StreamTimeout},
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: elevenLabsBaseURL,
	}, nil
}

// Stream synthesizes text and delivers audio chunks as they arrive.
func (e *ElevenLabs) Stream(ctx context.Context, text string, onChunk func(chunk []byte)) error {
	if text == "" {
		return nil
	}

	start := time.Now()

	endpoint := fmt.Sprintf("%s/text-to-speech/%s/stream?%s",
		e.baseURL, e.config.VoiceID,
		url.Values{"output_format": {e.config.OutputFormat}}.Encode())

	body, err := json.Marshal(e.buildPayload(text))
	if err != nil {
		return fmt.Errorf("tts: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("tts: create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("tts: stream request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return e.parseError(resp)
	}

	var total int
	buf := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			total += n
			onChunk(chunk)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("tts: read stream: %w", err)
		}
	}

	e.logger.Debug("synthesized reply",
		"chars", len(text),
		"bytes", total,
		"latency_ms", time.Since(start).Milliseconds(),
		"model", e.config.ModelID,
	)
	return nil
}

// Close releases idle connections.
func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

func (e *ElevenLabs) buildPayload(text string) map[string]any {
	return map[string]any{
		"text":     text,
		"model_id": e.config.ModelID,
		"voice_settings": map[string]any{
			"stability":         e.config.VoiceSettings.Stability,
			"similarity_boost":  e.config.VoiceSettings.SimilarityBoost,
			"style":             e.config.VoiceSettings.Style,
			"use_speaker_boost": e.config.VoiceSettings.SpeakerBoost,
		},
	}
}

func (e *ElevenLabs) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
		} `json:"detail"`
	}

	message := string(body)
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		message = errResp.Detail.Message
	}

	return &APIError{StatusCode: resp.StatusCode, Message: message}
}

var _ Synthesizer = (*ElevenLabs)(nil)
