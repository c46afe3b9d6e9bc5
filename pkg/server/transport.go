package server

import (
	"errors"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/telbank/voiceline/pkg/pipeline"
)

// readPollInterval bounds each ReadFrame wait so the ingress stage can
// notice cancellation between frames.
const readPollInterval = time.Second

var errSessionClosed = errors.New("server: session closed")

// messageConn is the subset of the websocket connection the transport
// uses. Narrowed for tests.
type messageConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
}

// wsTransport adapts a websocket connection to the registry transport and
// the pipeline frame reader. Writes are serialized with a mutex because
// multiple pipeline stages push frames concurrently. Reads are owned by a
// single readLoop goroutine: websocket connections cannot be read again
// after any read error, so ReadFrame never touches the connection itself
// and timeouts are handled on the channel, not with read deadlines.
type wsTransport struct {
	writeMu sync.Mutex
	conn    messageConn

	frames   chan pipeline.Frame
	readDone chan struct{}
	readErr  error

	stopOnce sync.Once
	stopped  chan struct{}
}

func newWSTransport(conn messageConn) *wsTransport {
	return &wsTransport{
		conn:     conn,
		frames:   make(chan pipeline.Frame, 16),
		readDone: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (t *wsTransport) WriteJSON(v any) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(v)
}

func (t *wsTransport) WriteBinary(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.BinaryMessage, data)
}

// readLoop is the sole reader of the connection. It runs until the first
// read error (disconnect) or until stop is called after the session ends.
func (t *wsTransport) readLoop() {
	defer close(t.readDone)
	for {
		msgType, data, err := t.conn.ReadMessage()
		if err != nil {
			t.readErr = err
			return
		}
		select {
		case t.frames <- pipeline.Frame{Binary: msgType == websocket.BinaryMessage, Data: data}:
		case <-t.stopped:
			return
		}
	}
}

// stop releases the readLoop once the session is over.
func (t *wsTransport) stop() {
	t.stopOnce.Do(func() { close(t.stopped) })
}

// ReadFrame returns the next client frame, ErrReadTimeout if none arrived
// within the poll interval, or the read error that ended the connection.
func (t *wsTransport) ReadFrame() (pipeline.Frame, error) {
	select {
	case frame := <-t.frames:
		return frame, nil
	case <-t.readDone:
		// Drain frames that arrived before the error.
		select {
		case frame := <-t.frames:
			return frame, nil
		default:
		}
		if t.readErr != nil {
			return pipeline.Frame{}, t.readErr
		}
		return pipeline.Frame{}, errSessionClosed
	case <-time.After(readPollInterval):
		return pipeline.Frame{}, pipeline.ErrReadTimeout
	}
}
