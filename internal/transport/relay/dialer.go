package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Conn is the client side of a relay connection.
type Conn struct {
	ws     *websocket.Conn
	log    *zap.Logger
	events chan Envelope
	cancel context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to a relay at url (ws:// or wss://). Inbound envelopes are
// delivered on Events until the connection closes. ctx should live as long
// as the connection.
func Dial(ctx context.Context, url string, log *zap.Logger) (*Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing relay: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		ws:     ws,
		log:    log,
		events: make(chan Envelope, sendBufSize),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go c.readLoop(readCtx)
	return c, nil
}

// Events yields every envelope the relay forwards to this connection,
// including error and pong replies. It is closed when the connection ends.
func (c *Conn) Events() <-chan Envelope {
	return c.events
}

// Done is closed once the read loop has stopped.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Emit writes env as a single text frame. Safe for concurrent use.
func (c *Conn) Emit(ctx context.Context, env *Envelope) error {
	if err := wsjson.Write(ctx, c.ws, env); err != nil {
		return fmt.Errorf("writing envelope: %w", err)
	}
	return nil
}

// Send wraps payload in an envelope of the given kind and emits it.
func (c *Conn) Send(ctx context.Context, kind Kind, payload any) error {
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	return c.Emit(ctx, env)
}

func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close(websocket.StatusNormalClosure, "")
		c.cancel()
	})
	return err
}

func (c *Conn) readLoop(ctx context.Context) {
	defer func() {
		close(c.events)
		close(c.done)
	}()

	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				c.log.Debug("relay read error", zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Debug("ignoring malformed relay frame", zap.Error(err))
			continue
		}

		select {
		case c.events <- env:
		case <-ctx.Done():
			return
		}
	}
}
