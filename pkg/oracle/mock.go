package oracle

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Mock implements Oracle for testing.
type Mock struct {
	// DecideFunc is called when Decide is invoked. If nil, Decisions is
	// consulted by schema name instead.
	DecideFunc func(ctx context.Context, req *Request, out any) error

	// Decisions maps a schema name to a canned decision value which is
	// marshalled into out. Useful for simple deterministic scripts.
	Decisions map[string]any

	// Err, when set, is returned from every Decide call.
	Err error

	// CloseFunc is called when Close is invoked.
	CloseFunc func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a Decide invocation.
type MockCall struct {
	SchemaName string
	Request    *Request
	Time       time.Time
}

// NewMock creates a mock oracle with no canned decisions.
func NewMock() *Mock {
	return &Mock{Decisions: make(map[string]any)}
}

// WithError returns a mock that always fails with the given error.
func WithError(err error) *Mock {
	return &Mock{Err: err}
}

// Decide returns the scripted decision for the request's schema name.
func (m *Mock) Decide(ctx context.Context, req *Request, out any) error {
	m.record(req)

	if m.Err != nil {
		return m.Err
	}
	if m.DecideFunc != nil {
		return m.DecideFunc(ctx, req, out)
	}

	return m.Scripted(req, out)
}

// Scripted applies the canned decision for the request's schema name to
// out. Exposed so a custom DecideFunc can fall back to the script for
// schemas it does not intercept.
func (m *Mock) Scripted(req *Request, out any) error {
	m.mu.Lock()
	decision, ok := m.Decisions[req.SchemaName]
	m.mu.Unlock()
	if !ok {
		return ErrEmptyDecision
	}

	// Round-trip through JSON so the canned value lands in out exactly
	// as a real API response would.
	data, err := json.Marshal(decision)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// Close calls CloseFunc if set.
func (m *Mock) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Script sets the canned decision for a schema name.
func (m *Mock) Script(schemaName string, decision any) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Decisions == nil {
		m.Decisions = make(map[string]any)
	}
	m.Decisions[schemaName] = decision
	return m
}

// record adds a call to the tracking list.
func (m *Mock) record(req *Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		SchemaName: req.SchemaName,
		Request:    req,
		Time:       time.Now(),
	})
}

// Calls returns all recorded Decide calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of Decide calls for a schema name.
func (m *Mock) CallCount(schemaName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.SchemaName == schemaName {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Oracle at compile time.
var _ Oracle = (*Mock)(nil)
