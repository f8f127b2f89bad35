package processor

import (
	"io"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketTransport adapts a *websocket.Conn into the io.Reader/io.Writer
// pair Source and Sink expect, so the same framing/codec pipeline used
// over a plain byte stream also runs over a live-tail websocket connection
// (§C catch-up/live-tail supplemented transport). Each Write call is sent
// as one binary message; each Read call drains one message at a time into
// the caller's buffer, spilling any remainder into an internal carry
// buffer for the next call.
type WebSocketTransport struct {
	conn  *websocket.Conn
	carry []byte
}

// NewWebSocketTransport wraps conn. writeTimeout, if non-zero, bounds each
// Write call.
func NewWebSocketTransport(conn *websocket.Conn, writeTimeout time.Duration) *WebSocketTransport {
	if writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	}
	return &WebSocketTransport{conn: conn}
}

func (t *WebSocketTransport) Read(p []byte) (int, error) {
	for len(t.carry) == 0 {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		t.carry = data
	}
	n := copy(p, t.carry)
	t.carry = t.carry[n:]
	return n, nil
}

func (t *WebSocketTransport) Write(p []byte) (int, error) {
	if err := t.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *WebSocketTransport) Close() error {
	return t.conn.Close()
}
