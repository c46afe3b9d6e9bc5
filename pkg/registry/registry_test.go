package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames []any
	binary [][]byte
}

func (f *fakeTransport) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, v)
	return nil
}

func (f *fakeTransport) WriteBinary(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binary = append(f.binary, data)
	return nil
}

func TestSendToRegisteredSession(t *testing.T) {
	r := New()
	ft := &fakeTransport{}
	r.Register("s1", ft)

	assert.NoError(t, r.Send("s1", map[string]string{"type": "status"}))
	assert.Len(t, ft.frames, 1)
	assert.Equal(t, 1, r.Len())
}

func TestSendToUnknownSessionIsNoOp(t *testing.T) {
	r := New()
	assert.NoError(t, r.Send("missing", map[string]string{"type": "status"}))
	assert.NoError(t, r.SendBinary("missing", []byte{1, 2, 3}))
}

func TestUnregisterStopsDelivery(t *testing.T) {
	r := New()
	ft := &fakeTransport{}
	r.Register("s1", ft)
	r.Unregister("s1")

	assert.NoError(t, r.Send("s1", "frame"))
	assert.Empty(t, ft.frames)
	assert.Zero(t, r.Len())
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			r.Register(id, &fakeTransport{})
			_ = r.Send(id, "frame")
			r.Unregister(id)
		}(i)
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}
