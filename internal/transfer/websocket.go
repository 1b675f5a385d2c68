package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// closeGracePeriod bounds how long Close waits to deliver the close frame
const closeGracePeriod = time.Second

// WebsocketConn carries the channel over a websocket connection, one JSON text
// frame per message.
type WebsocketConn struct {
	cfg       Config
	ws        *websocket.Conn
	closeOnce sync.Once
	closed    chan struct{}
}

// NewWebsocketConn wraps an established websocket connection
func NewWebsocketConn(ws *websocket.Conn, cfg Config) *WebsocketConn {
	cfg = cfg.withDefaults()
	ws.SetReadLimit(ReadLimit(cfg.MaxChunkSize))
	return &WebsocketConn{
		cfg:    cfg,
		ws:     ws,
		closed: make(chan struct{}),
	}
}

// ReadLimit returns the largest encoded frame a channel with the given chunk
// size can produce: base64 expansion plus room for the JSON envelope.
func ReadLimit(maxChunkSize int) int64 {
	return int64((maxChunkSize+2)/3*4) + 4096
}

// Name returns the channel tag
func (c *WebsocketConn) Name() string {
	return c.cfg.Name
}

// MaxChunkSize returns the largest chunk payload Send accepts
func (c *WebsocketConn) MaxChunkSize() int {
	return c.cfg.MaxChunkSize
}

// Send writes msg as a single text frame
func (c *WebsocketConn) Send(ctx context.Context, msg Message) error {
	if err := c.cfg.checkSize(msg); err != nil {
		return err
	}
	frame, err := Encode(msg)
	if err != nil {
		return err
	}

	if c.isClosed() {
		return ErrDisconnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.ws.SetWriteDeadline(deadline)
	} else {
		c.ws.SetWriteDeadline(time.Time{})
	}

	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

// Receive reads the next text frame. Context cancellation interrupts the read
// by expiring the read deadline.
func (c *WebsocketConn) Receive(ctx context.Context) (Message, error) {
	if c.isClosed() {
		return nil, ErrDisconnected
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.ws.SetReadDeadline(deadline)
	} else {
		c.ws.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		c.ws.SetReadDeadline(time.Now())
	})
	defer stop()

	for {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil, ErrDisconnected
			}
			return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		return Decode(data)
	}
}

// Close sends a normal close frame and closes the underlying connection
func (c *WebsocketConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		err = c.ws.Close()
	})
	return err
}

func (c *WebsocketConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
