package stt

import (
	"context"
	"sync"
)

// Mock implements Recognizer for testing. Audio sent to it is recorded;
// transcripts are injected with Emit.
type Mock struct {
	StartFunc func(ctx context.Context, onTranscript TranscriptHandler) error
	CloseFunc func() error

	mu           sync.Mutex
	onTranscript TranscriptHandler
	audio        [][]byte
	started      bool
	closed       bool
}

// NewMockRecognizer creates an idle mock recognizer.
func NewMockRecognizer() *Mock {
	return &Mock{}
}

func (m *Mock) Start(ctx context.Context, onTranscript TranscriptHandler) error {
	if m.StartFunc != nil {
		return m.StartFunc(ctx, onTranscript)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTranscript = onTranscript
	m.started = true
	return nil
}

func (m *Mock) SendAudio(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.audio = append(m.audio, buf)
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Emit delivers a transcript event as if the service produced it.
func (m *Mock) Emit(text string, isFinal bool) {
	m.mu.Lock()
	handler := m.onTranscript
	m.mu.Unlock()
	if handler != nil {
		handler(Transcript{Text: text, IsFinal: isFinal})
	}
}

// Audio returns a copy of all audio chunks received so far.
func (m *Mock) Audio() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.audio))
	copy(out, m.audio)
	return out
}

// Started reports whether Start was called.
func (m *Mock) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Recognizer = (*Mock)(nil)
