// Package stt provides streaming speech recognition for the voice
// pipeline. The production implementation streams raw PCM audio to
// Deepgram over a WebSocket and relays interim and final transcripts.
package stt

import "context"

// Transcript is one recognition event. Interim transcripts are partial
// and may be revised; only final transcripts should drive the agent.
type Transcript struct {
	Text    string
	IsFinal bool
}

// TranscriptHandler receives recognition events in arrival order.
type TranscriptHandler func(Transcript)

// Recognizer is a streaming speech-to-text session.
type Recognizer interface {
	// Start opens the streaming connection and registers the transcript
	// handler. Must be called before SendAudio.
	Start(ctx context.Context, onTranscript TranscriptHandler) error

	// SendAudio forwards raw PCM samples (16kHz, 16-bit, mono) to the
	// recognizer. Non-blocking; audio may be dropped under backpressure.
	SendAudio(data []byte) error

	// Close ends the stream and releases the connection.
	Close() error
}
