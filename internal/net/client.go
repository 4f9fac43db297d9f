package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"LiveBoard/internal/relay"
)

// Conn is a client's websocket session with a host.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Dial connects to the websocket endpoint of the host at addr ("host:port").
func Dial(ctx context.Context, addr string) (*Conn, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	return &Conn{ws: ws}, nil
}

// Send writes one frame. It is safe for concurrent use.
func (c *Conn) Send(f relay.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(f); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Receive reads frames until the connection closes or ctx ends, passing each
// to handle. A handler error is reported through onError and reading goes on.
func (c *Conn) Receive(ctx context.Context, handle func(relay.Frame) error, onError func(error)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.ws.Close() })
	defer stop()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		var f relay.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			err = errors.Join(relay.ErrInvalidPayload, err)
			if onError != nil {
				onError(err)
			}
			continue
		}
		if err := handle(f); err != nil && onError != nil {
			onError(err)
		}
	}
}

// Close says goodbye to the host and closes the socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.mu.Unlock()
	return c.ws.Close()
}
