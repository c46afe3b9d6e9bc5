// Package registry maps live session ids to their outbound transports so
// any pipeline stage can push frames to the client.
package registry

import (
	"sync"
)

// Transport is a live duplex connection to one client. Implementations
// must serialize concurrent writes themselves.
type Transport interface {
	// WriteJSON marshals v and sends it as a text frame.
	WriteJSON(v any) error
	// WriteBinary sends raw bytes as a binary frame.
	WriteBinary(data []byte) error
}

// Registry is a concurrent-safe map of session id to transport. Sessions
// are independent; the registry is the only state shared across them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Transport
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]Transport)}
}

// Register binds a transport to a session id, replacing any prior binding.
func (r *Registry) Register(sessionID string, t Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = t
}

// Unregister removes a session's transport. Unknown ids are ignored.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Send pushes a JSON frame to a session. Sending to an id with no
// registered transport is a silent no-op: the session may already be
// closed, which is not an error.
func (r *Registry) Send(sessionID string, v any) error {
	r.mu.RLock()
	t, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return t.WriteJSON(v)
}

// SendBinary pushes a binary frame to a session, with the same silent
// no-op semantics as Send.
func (r *Registry) SendBinary(sessionID string, data []byte) error {
	r.mu.RLock()
	t, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return t.WriteBinary(data)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
