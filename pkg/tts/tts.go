// Package tts synthesizes agent replies into streamed audio.
package tts

import "context"

// Synthesizer converts text into audio delivered chunk by chunk as the
// provider produces it, so playback can begin before synthesis finishes.
type Synthesizer interface {
	// Stream synthesizes text and invokes onChunk for each audio chunk in
	// order. It returns once the stream is exhausted or the context ends.
	Stream(ctx context.Context, text string, onChunk func(chunk []byte)) error

	// Close releases any resources held by the synthesizer.
	Close() error
}
