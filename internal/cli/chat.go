package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/client"
	"github.com/vedran77/relaychat/internal/domain"
	"github.com/vedran77/relaychat/internal/reconciler"
	"github.com/vedran77/relaychat/internal/transport/relay"
	"go.uber.org/zap"
)

// chat is an open conversation with a peer: the reconciler plus the relay
// connection it emits on, if any.
type chat struct {
	session *Session
	conv    *domain.Conversation
	r       *reconciler.Reconciler
	conn    *relay.Conn
	log     *zap.Logger
}

func (o *options) openChat(ctx context.Context, peerArg string, onChange func([]domain.Message)) (*chat, error) {
	peerID, err := uuid.Parse(peerArg)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q", peerArg)
	}

	log := o.logger()
	c, s, err := o.session()
	if err != nil {
		return nil, err
	}
	conv, err := c.OpenConversation(ctx, peerID)
	if err != nil {
		return nil, err
	}

	ch := &chat{session: s, conv: conv, log: log}
	var emitter reconciler.Emitter
	if ch.conn = dialRelay(ctx, o.relayURL, log); ch.conn != nil {
		emitter = ch.conn
	}
	ch.r = reconciler.New(c, emitter, reconciler.Config{
		UserID:         s.UserID,
		ConversationID: conv.ID,
		OnChange:       onChange,
	}, log)
	return ch, nil
}

// events is nil without a relay connection, which leaves Run polling only.
func (ch *chat) events() <-chan relay.Envelope {
	if ch.conn == nil {
		return nil
	}
	return ch.conn.Events()
}

func (ch *chat) Close() {
	if ch.conn != nil {
		_ = ch.conn.Close()
	}
}

// dialRelay connects to the relay, or returns nil when it is disabled or
// unreachable. The REST API alone is enough to chat, just not live.
func dialRelay(ctx context.Context, url string, log *zap.Logger) *relay.Conn {
	if url == "" {
		return nil
	}
	conn, err := relay.Dial(ctx, url, log)
	if err != nil {
		log.Warn("relay unavailable, continuing without live updates", zap.Error(err))
		return nil
	}
	return conn
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("invalid message id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var _ reconciler.API = (*client.Client)(nil)
