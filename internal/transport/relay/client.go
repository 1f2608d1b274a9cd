package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 1 << 20
	sendBufSize    = 256
)

// Client is one relay connection. It carries no identity beyond a random
// connection ID.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	id   uuid.UUID
	log  *zap.Logger

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.New()
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		hub:  hub,
		conn: conn,
		id:   id,
		log:  hub.log.With(zap.Stringer("conn_id", id)),
		send: make(chan []byte, sendBufSize),
	}
}

// ReadPump reads frames from the connection and hands valid ones to the hub.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.leave(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				c.log.Debug("connection disconnected")
			} else {
				c.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			c.reject("INVALID_FRAME", "frames must be JSON text")
			continue
		}

		c.handleFrame(data)
	}
}

// WritePump writes queued frames to the connection until the hub closes
// the send channel.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				c.log.Debug("write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.log.Debug("ping error", zap.Error(err))
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) handleFrame(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.reject("INVALID_ENVELOPE", "frame is not a JSON envelope")
		return
	}

	if env.Kind == KindPing {
		c.reply(KindPong, nil)
		return
	}

	if err := env.Validate(); err != nil {
		code := "INVALID_PAYLOAD"
		if errors.Is(err, ErrUnknownKind) {
			code = "UNKNOWN_EVENT"
		}
		c.reject(code, err.Error())
		return
	}

	c.hub.Broadcast(c, env.Kind, data)
}

func (c *Client) reject(code, message string) {
	c.hub.metrics.rejected.Inc()
	c.log.Debug("rejected frame", zap.String("code", code), zap.String("reason", message))
	c.reply(KindError, ErrorPayload{Code: code, Message: message})
}

// reply queues a frame for this connection only. Replies are best effort
// and skipped when the buffer is full.
func (c *Client) reply(kind Kind, payload any) {
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// close is called by the hub goroutine once the client is removed.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}
