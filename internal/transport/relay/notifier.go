package relay

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	publishQueueSize = 128
	publishTimeout   = 5 * time.Second
)

// Publisher implements service.Notifier by emitting envelopes on a relay
// connection. Notifications are queued and sent from Run; when the queue is
// full or the relay is unreachable they are dropped.
type Publisher struct {
	url   string
	log   *zap.Logger
	queue chan *Envelope
	dial  func(ctx context.Context, url string, log *zap.Logger) (*Conn, error)
}

func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{
		url:   url,
		log:   log.With(zap.String("relay_url", url)),
		queue: make(chan *Envelope, publishQueueSize),
		dial:  Dial,
	}
}

func (p *Publisher) NotifyMessagesDeleted(conversationID *uuid.UUID, messageIDs []uuid.UUID) {
	env, err := NewEnvelope(KindMessageDeleted, MessageDeletedPayload{
		ConversationID: conversationID,
		IDs:            messageIDs,
	})
	if err != nil {
		p.log.Error("relay publisher: marshal error", zap.Error(err))
		return
	}

	select {
	case p.queue <- env:
	default:
		p.log.Warn("relay publisher: queue full, dropping event", zap.String("kind", string(env.Kind)))
	}
}

// Run drains the queue until ctx is cancelled. The relay connection is
// opened lazily and re-opened after a failed write.
func (p *Publisher) Run(ctx context.Context) {
	var conn *Conn
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case env := <-p.queue:
			if conn == nil {
				var err error
				if conn, err = p.connect(ctx); err != nil {
					p.log.Warn("relay publisher: dial failed, dropping event", zap.Error(err))
					continue
				}
			}

			emitCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := conn.Emit(emitCtx, env)
			cancel()
			if err != nil {
				p.log.Warn("relay publisher: emit failed, dropping event", zap.Error(err))
				_ = conn.Close()
				conn = nil
			}
		}
	}
}

// connect dials with the long-lived ctx; the handshake context must outlive
// the connection.
func (p *Publisher) connect(ctx context.Context) (*Conn, error) {
	conn, err := p.dial(ctx, p.url, p.log)
	if err != nil {
		return nil, err
	}

	// The relay forwards everything to us too; nothing here needs it.
	go func() {
		for range conn.Events() {
		}
	}()
	return conn, nil
}
