package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrNoAPIKey)

	cfg.Apply(WithAPIKey("dg-test"))
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "nova-2", cfg.Model)
	assert.Equal(t, 16000, cfg.SampleRate)
}

func TestStreamURLParams(t *testing.T) {
	d, err := NewDeepgram(
		WithAPIKey("dg-test"),
		WithKeywords([]string{"balance", "transfer"}),
	)
	require.NoError(t, err)

	raw := d.streamURL()
	require.True(t, strings.HasPrefix(raw, deepgramWSBaseURL+"?"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()

	assert.Equal(t, "nova-2", q.Get("model"))
	assert.Equal(t, "en-US", q.Get("language"))
	assert.Equal(t, "linear16", q.Get("encoding"))
	assert.Equal(t, "16000", q.Get("sample_rate"))
	assert.Equal(t, "1", q.Get("channels"))
	assert.Equal(t, "true", q.Get("interim_results"))
	assert.Equal(t, "300", q.Get("endpointing"))
	assert.Equal(t, "1000", q.Get("utterance_end_ms"))
	assert.Equal(t, []string{"balance", "transfer"}, q["keywords"])
}

func TestMockRecordsAudioAndEmits(t *testing.T) {
	m := NewMockRecognizer()

	var got []Transcript
	err := m.Start(context.Background(), func(tr Transcript) {
		got = append(got, tr)
	})
	require.NoError(t, err)
	assert.True(t, m.Started())

	require.NoError(t, m.SendAudio([]byte{1, 2, 3}))
	require.NoError(t, m.SendAudio([]byte{4, 5}))
	assert.Len(t, m.Audio(), 2)

	m.Emit("I lost my", false)
	m.Emit("I lost my card", true)
	require.Len(t, got, 2)
	assert.False(t, got[0].IsFinal)
	assert.True(t, got[1].IsFinal)
	assert.Equal(t, "I lost my card", got[1].Text)

	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
}

func TestDeepgramStreamsOverLocalServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			msgType, _, err := c.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			result := `{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"hello"}]}}`
			if err := c.WriteMessage(websocket.TextMessage, []byte(result)); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	d, err := NewDeepgram(WithAPIKey("dg-test"))
	require.NoError(t, err)
	d.baseURL = "ws" + strings.TrimPrefix(srv.URL, "http")

	transcripts := make(chan Transcript, 64)
	err = d.Start(context.Background(), func(tr Transcript) { transcripts <- tr })
	require.NoError(t, err)
	assert.True(t, d.IsConnected())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 8; j++ {
				assert.NoError(t, d.SendAudio([]byte{0x01, 0x02, 0x03}))
			}
		}()
	}
	wg.Wait()

	select {
	case tr := <-transcripts:
		assert.Equal(t, "hello", tr.Text)
		assert.True(t, tr.IsFinal)
	case <-time.After(2 * time.Second):
		t.Fatal("no transcript delivered")
	}

	require.NoError(t, d.Close())
	assert.False(t, d.IsConnected())
}
