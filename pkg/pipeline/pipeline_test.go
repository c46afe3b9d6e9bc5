package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telbank/voiceline/pkg/banking"
	"github.com/telbank/voiceline/pkg/oracle"
	"github.com/telbank/voiceline/pkg/protocol"
	"github.com/telbank/voiceline/pkg/registry"
	"github.com/telbank/voiceline/pkg/session"
	"github.com/telbank/voiceline/pkg/store"
	"github.com/telbank/voiceline/pkg/stt"
	"github.com/telbank/voiceline/pkg/tts"
)

var errDisconnected = errors.New("connection closed")

// fakeFrames is a channel-backed FrameReader with bounded reads.
type fakeFrames struct {
	ch     chan Frame
	closed chan struct{}
}

func newFakeFrames() *fakeFrames {
	return &fakeFrames{ch: make(chan Frame, 16), closed: make(chan struct{})}
}

func (f *fakeFrames) ReadFrame() (Frame, error) {
	select {
	case frame := <-f.ch:
		return frame, nil
	case <-f.closed:
		return Frame{}, errDisconnected
	case <-time.After(20 * time.Millisecond):
		return Frame{}, ErrReadTimeout
	}
}

func (f *fakeFrames) sendControl(t *testing.T, msgType protocol.MessageType) {
	t.Helper()
	data, err := json.Marshal(protocol.ClientFrame{Type: msgType})
	require.NoError(t, err)
	f.ch <- Frame{Data: data}
}

func (f *fakeFrames) disconnect() { close(f.closed) }

// fakeTransport records every frame pushed to the client.
type fakeTransport struct {
	mu     sync.Mutex
	frames []any
}

func (f *fakeTransport) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, v)
	return nil
}

func (f *fakeTransport) WriteBinary(data []byte) error { return nil }

func (f *fakeTransport) all() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.frames))
	copy(out, f.frames)
	return out
}

func (f *fakeTransport) audioFrames() []protocol.AudioFrame {
	var out []protocol.AudioFrame
	for _, v := range f.all() {
		if af, ok := v.(protocol.AudioFrame); ok {
			out = append(out, af)
		}
	}
	return out
}

type fixture struct {
	pipeline  *Pipeline
	frames    *fakeFrames
	transport *fakeTransport
	rec       *stt.Mock
	synth     *tts.Mock
	mock      *oracle.Mock
	store     *store.Memory
	sessionID string
	done      chan struct{}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := store.NewMemoryWithDemoData()
	sessionID, err := mem.CreateSession(context.Background())
	require.NoError(t, err)

	mock := oracle.NewMock()
	mock.Script("intent_classification", map[string]any{
		"intent":     "general_inquiry",
		"confidence": 0.9,
		"reasoning":  "test",
	})

	ctrl := session.NewController(mock, banking.NewService(mem, nil), nil)

	frames := newFakeFrames()
	transport := &fakeTransport{}
	rec := stt.NewMockRecognizer()
	synth := tts.NewMockSynthesizer()

	reg := registry.New()
	reg.Register(sessionID, transport)

	return &fixture{
		pipeline:  New(sessionID, frames, rec, synth, ctrl, reg, mem, nil),
		frames:    frames,
		transport: transport,
		rec:       rec,
		synth:     synth,
		mock:      mock,
		store:     mem,
		sessionID: sessionID,
		done:      make(chan struct{}),
	}
}

func (f *fixture) run(t *testing.T) {
	t.Helper()
	go func() {
		defer close(f.done)
		assert.NoError(t, f.pipeline.Run(context.Background()))
	}()
	require.Eventually(t, f.rec.Started, time.Second, 5*time.Millisecond)
}

func (f *fixture) waitDone(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(within):
		t.Fatal("pipeline did not stop in time")
	}
}

func TestStopFrameShutsDownAllStages(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.frames.sendControl(t, protocol.TypeStop)
	f.waitDone(t, time.Second)

	assert.True(t, f.rec.Closed())

	sessions, err := f.store.ListSessions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.NotNil(t, sessions[0].EndedAt)
}

func TestDisconnectShutsDown(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.frames.disconnect()
	f.waitDone(t, time.Second)
	assert.True(t, f.rec.Closed())
}

func TestFinalTranscriptsExecuteInOrder(t *testing.T) {
	f := newFixture(t)
	// An identity-gathering flow suspends every turn, so the session
	// stays open across all three utterances.
	f.mock.Script("intent_classification", map[string]any{
		"intent":     "card_atm",
		"confidence": 0.9,
		"reasoning":  "test",
	})
	f.mock.Script("identity_extraction", map[string]any{
		"customer_id":       "",
		"pin":               "",
		"has_identity_info": false,
	})
	f.run(t)

	f.rec.Emit("I lost my card", true)
	f.rec.Emit("hold on a moment", true)
	f.rec.Emit("let me find my wallet", true)

	require.Eventually(t, func() bool {
		return f.pipeline.Snapshot().TurnCount == 3
	}, 2*time.Second, 5*time.Millisecond)

	transcript := f.pipeline.Snapshot().Transcript
	var userTurns []string
	for _, turn := range transcript {
		if turn.Role == session.RoleUser {
			userTurns = append(userTurns, turn.Text)
		}
	}
	assert.Equal(t, []string{"I lost my card", "hold on a moment", "let me find my wallet"}, userTurns)

	// Each user turn is followed by its reply before the next turn starts.
	require.Len(t, transcript, 6)
	for i, turn := range transcript {
		if i%2 == 0 {
			assert.Equal(t, session.RoleUser, turn.Role)
		} else {
			assert.Equal(t, session.RoleAgent, turn.Role)
		}
	}

	f.frames.sendControl(t, protocol.TypeStop)
	f.waitDone(t, time.Second)
}

func TestInterimTranscriptsRelayedNotExecuted(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.rec.Emit("what can", false)
	f.rec.Emit("what can you", false)

	require.Eventually(t, func() bool {
		count := 0
		for _, v := range f.transport.all() {
			tf, ok := v.(protocol.TranscriptFrame)
			if ok && tf.Speaker == protocol.SpeakerUser {
				count++
			}
		}
		return count == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, f.pipeline.Snapshot().TurnCount)
	assert.Zero(t, f.mock.CallCount("intent_classification"))

	f.frames.sendControl(t, protocol.TypeStop)
	f.waitDone(t, time.Second)
}

func TestAudioFramesFollowReply(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.rec.Emit("what can you do", true)

	// Greeting plus one reply, each synthesized as one mock chunk.
	require.Eventually(t, func() bool {
		return len(f.transport.audioFrames()) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.GreaterOrEqual(t, len(f.synth.Texts()), 2)
	assert.Equal(t, session.Greeting, f.synth.Texts()[0])

	// Every audio burst is terminated by an audio_end marker.
	var ends int
	for _, v := range f.transport.all() {
		if _, ok := v.(protocol.AudioEndFrame); ok {
			ends++
		}
	}
	assert.GreaterOrEqual(t, ends, 1)

	f.frames.sendControl(t, protocol.TypeStop)
	f.waitDone(t, time.Second)
}

func TestBinaryFramesReachRecognizer(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.frames.ch <- Frame{Binary: true, Data: []byte{1, 2, 3, 4}}
	require.Eventually(t, func() bool {
		return len(f.rec.Audio()) == 1
	}, time.Second, 5*time.Millisecond)

	f.frames.sendControl(t, protocol.TypeStop)
	f.waitDone(t, time.Second)
}

func TestCompleteOutcomeStopsPipeline(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	// A general inquiry completes in one turn; the session must tear
	// itself down after the drain period without a stop frame.
	f.rec.Emit("what can you do", true)

	f.waitDone(t, 4*time.Second)
	assert.True(t, f.rec.Closed())
	assert.Equal(t, session.StageComplete, f.pipeline.Snapshot().FlowStage)

	sessions, err := f.store.ListSessions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.False(t, sessions[0].Escalated)
	assert.NotNil(t, sessions[0].EndedAt)
}

func TestEscalationDrainsThenStops(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.rec.Emit("someone told me to send money to them or else", true)

	f.waitDone(t, 4*time.Second)

	sessions, err := f.store.ListSessions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Escalated)
	assert.NotNil(t, sessions[0].EndedAt)
}

func TestTranscriptsPersistedWithRedaction(t *testing.T) {
	f := newFixture(t)
	f.run(t)

	f.rec.Emit("my social is 123-45-6789", true)

	require.Eventually(t, func() bool {
		return f.pipeline.Snapshot().TurnCount == 1
	}, 2*time.Second, 5*time.Millisecond)

	transcripts, err := f.store.ListTranscripts(context.Background(), f.sessionID)
	require.NoError(t, err)

	var found bool
	for _, tr := range transcripts {
		if tr.Speaker == "user" {
			found = true
			assert.Contains(t, tr.Content, "[SSN_REDACTED]")
			assert.Contains(t, tr.PIIDetected, "SSN")
		}
	}
	assert.True(t, found)

	f.frames.sendControl(t, protocol.TypeStop)
	f.waitDone(t, time.Second)
}
