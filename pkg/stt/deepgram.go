package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	deepgramWSBaseURL = "wss://api.deepgram.com/v1/listen"
	keepaliveInterval = 8 * time.Second
)

var errNotConnected = errors.New("stt: not connected")

// Deepgram streams audio to the Deepgram live transcription API over a
// WebSocket and delivers transcript events to the registered handler.
type Deepgram struct {
	config *Config
	logger *slog.Logger

	baseURL string

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected bool

	// writeMu serializes all writes on the connection; audio, keepalives
	// and stream-close messages come from different goroutines.
	writeMu sync.Mutex

	onTranscript TranscriptHandler

	ctx     context.Context
	cancel  context.CancelFunc
	sendCh  chan []byte
	closeCh chan struct{}
	once    sync.Once
}

// NewDeepgram creates a Deepgram recognizer.
func NewDeepgram(opts ...Option) (*Deepgram, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Deepgram{
		config:  cfg,
		logger:  cfg.Logger.With("component", "stt.deepgram"),
		baseURL: deepgramWSBaseURL,
		sendCh:  make(chan []byte, 256),
		closeCh: make(chan struct{}),
	}, nil
}

// Start dials the live transcription endpoint and begins streaming.
func (d *Deepgram) Start(ctx context.Context, onTranscript TranscriptHandler) error {
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.onTranscript = onTranscript

	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.config.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(d.ctx, d.streamURL(), headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("stt: dial failed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("stt: dial failed: %w", err)
	}

	d.connMu.Lock()
	d.conn = conn
	d.connected = true
	d.connMu.Unlock()

	d.logger.Info("recognition stream opened", "model", d.config.Model)

	go d.readLoop()
	go d.writeLoop()
	go d.keepaliveLoop()

	return nil
}

// streamURL builds the live endpoint URL with the transcription options.
func (d *Deepgram) streamURL() string {
	q := url.Values{}
	q.Set("model", d.config.Model)
	q.Set("language", d.config.Language)
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(d.config.SampleRate))
	q.Set("channels", "1")
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("interim_results", "true")
	q.Set("endpointing", strconv.Itoa(d.config.Endpointing))
	q.Set("utterance_end_ms", strconv.Itoa(d.config.UtteranceEndMs))
	for _, kw := range d.config.Keywords {
		q.Add("keywords", kw)
	}
	return d.baseURL + "?" + q.Encode()
}

// SendAudio queues raw PCM for the stream. Drops the chunk with a warning
// if the send buffer is full rather than blocking the ingress stage.
func (d *Deepgram) SendAudio(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	select {
	case d.sendCh <- data:
		return nil
	case <-d.ctx.Done():
		return d.ctx.Err()
	default:
		d.logger.Warn("audio send buffer full, dropping chunk", "bytes", len(data))
		return nil
	}
}

// deepgramResult is the subset of the live API response the pipeline uses.
type deepgramResult struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (d *Deepgram) readLoop() {
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.closeCh:
			return
		default:
		}

		d.connMu.Lock()
		conn := d.conn
		d.connMu.Unlock()
		if conn == nil {
			return
		}

		var result deepgramResult
		if err := conn.ReadJSON(&result); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				d.logger.Error("recognition read error", "error", err)
			}
			d.markDisconnected()
			return
		}

		if result.Type != "Results" || len(result.Channel.Alternatives) == 0 {
			continue
		}
		text := result.Channel.Alternatives[0].Transcript
		if text == "" {
			continue
		}

		d.logger.Debug("transcript", "text", text, "final", result.IsFinal)
		if d.onTranscript != nil {
			d.onTranscript(Transcript{Text: text, IsFinal: result.IsFinal})
		}
	}
}

// liveConn returns the connection if the stream is up.
func (d *Deepgram) liveConn() *websocket.Conn {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	if !d.connected {
		return nil
	}
	return d.conn
}

func (d *Deepgram) writeMessage(messageType int, data []byte) error {
	conn := d.liveConn()
	if conn == nil {
		return errNotConnected
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return conn.WriteMessage(messageType, data)
}

func (d *Deepgram) writeJSON(v any) error {
	conn := d.liveConn()
	if conn == nil {
		return errNotConnected
	}
	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (d *Deepgram) writeLoop() {
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.closeCh:
			return
		case data := <-d.sendCh:
			err := d.writeMessage(websocket.BinaryMessage, data)
			if err == nil || errors.Is(err, errNotConnected) {
				continue
			}
			d.logger.Error("failed to send audio", "error", err)
			d.markDisconnected()
		}
	}
}

// keepaliveLoop keeps the stream open during silence. Deepgram closes
// connections that go ~10s without audio or a KeepAlive message.
func (d *Deepgram) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-d.closeCh:
			return
		case <-ticker.C:
			err := d.writeJSON(map[string]string{"type": "KeepAlive"})
			if err == nil || errors.Is(err, errNotConnected) {
				continue
			}
			d.logger.Warn("keepalive failed", "error", err)
			d.markDisconnected()
		}
	}
}

func (d *Deepgram) markDisconnected() {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	d.connected = false
}

// IsConnected reports whether the stream is live.
func (d *Deepgram) IsConnected() bool {
	d.connMu.Lock()
	defer d.connMu.Unlock()
	return d.connected
}

// Close finishes the stream and tears down the connection.
func (d *Deepgram) Close() error {
	d.once.Do(func() { close(d.closeCh) })
	if d.cancel != nil {
		d.cancel()
	}

	d.writeJSON(map[string]string{"type": "CloseStream"})
	d.writeMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	d.markDisconnected()
	return nil
}

var _ Recognizer = (*Deepgram)(nil)
