package tts

import (
	"context"
	"sync"
)

// Mock implements Synthesizer for testing. By default it emits the text
// bytes as a single chunk.
type Mock struct {
	StreamFunc func(ctx context.Context, text string, onChunk func(chunk []byte)) error
	Err        error

	// Chunks, when set, is emitted instead of the text bytes.
	Chunks [][]byte

	mu     sync.Mutex
	texts  []string
	closed bool
}

// NewMockSynthesizer creates a mock synthesizer.
func NewMockSynthesizer() *Mock {
	return &Mock{}
}

func (m *Mock) Stream(ctx context.Context, text string, onChunk func(chunk []byte)) error {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, text, onChunk)
	}
	if m.Err != nil {
		return m.Err
	}

	if len(m.Chunks) > 0 {
		for _, chunk := range m.Chunks {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			onChunk(chunk)
		}
		return nil
	}
	onChunk([]byte(text))
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Texts returns every text passed to Stream so far.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.texts))
	copy(out, m.texts)
	return out
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Synthesizer = (*Mock)(nil)
