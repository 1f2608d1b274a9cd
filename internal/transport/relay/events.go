package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/domain"
)

type Kind string

// Broadcast kinds, forwarded to every other connection.
const (
	KindMessageSent     Kind = "message.sent"
	KindMessageDeleted  Kind = "message.deleted"
	KindReactionChanged Kind = "reaction.changed"
)

// Control kinds, answered to the sender only.
const (
	KindPing  Kind = "ping"
	KindPong  Kind = "pong"
	KindError Kind = "error"
)

var (
	ErrUnknownKind    = errors.New("unknown event kind")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Envelope is the wire format of every relay frame.
type Envelope struct {
	Kind      Kind            `json:"kind"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

type MessageDeletedPayload struct {
	ConversationID *uuid.UUID  `json:"conversationId,omitempty"`
	IDs            []uuid.UUID `json:"ids"`
}

type ReactionChangedPayload struct {
	MessageID      uuid.UUID             `json:"messageId"`
	ConversationID *uuid.UUID            `json:"conversationId,omitempty"`
	UserID         uuid.UUID             `json:"userId"`
	Emoji          string                `json:"emoji"`
	Action         domain.ReactionAction `json:"action"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEnvelope marshals payload and stamps the current time.
func NewEnvelope(kind Kind, payload any) (*Envelope, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return &Envelope{
		Kind:      kind,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Broadcast reports whether envelopes of this kind are fanned out.
func (k Kind) Broadcast() bool {
	switch k {
	case KindMessageSent, KindMessageDeleted, KindReactionChanged:
		return true
	}
	return false
}

// Validate checks a broadcast envelope: the kind must be known and the
// payload must decode with its required fields present.
func (e *Envelope) Validate() error {
	switch e.Kind {
	case KindMessageSent:
		_, err := e.Message()
		return err
	case KindMessageDeleted:
		_, err := e.MessageDeleted()
		return err
	case KindReactionChanged:
		_, err := e.ReactionChanged()
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
}

func (e *Envelope) Message() (*domain.Message, error) {
	var msg domain.Message
	if err := e.decode(&msg); err != nil {
		return nil, err
	}
	if msg.ID == uuid.Nil || msg.ConversationID == uuid.Nil || msg.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: message requires id, conversationId and userId", ErrInvalidPayload)
	}
	return &msg, nil
}

func (e *Envelope) MessageDeleted() (*MessageDeletedPayload, error) {
	var p MessageDeletedPayload
	if err := e.decode(&p); err != nil {
		return nil, err
	}
	if len(p.IDs) == 0 {
		return nil, fmt.Errorf("%w: ids must not be empty", ErrInvalidPayload)
	}
	for _, id := range p.IDs {
		if id == uuid.Nil {
			return nil, fmt.Errorf("%w: ids must not contain a nil id", ErrInvalidPayload)
		}
	}
	return &p, nil
}

func (e *Envelope) ReactionChanged() (*ReactionChangedPayload, error) {
	var p ReactionChangedPayload
	if err := e.decode(&p); err != nil {
		return nil, err
	}
	switch {
	case p.MessageID == uuid.Nil || p.UserID == uuid.Nil:
		return nil, fmt.Errorf("%w: reaction requires messageId and userId", ErrInvalidPayload)
	case p.Emoji == "":
		return nil, fmt.Errorf("%w: reaction requires an emoji", ErrInvalidPayload)
	case !p.Action.Valid():
		return nil, fmt.Errorf("%w: action must be add or remove", ErrInvalidPayload)
	}
	return &p, nil
}

func (e *Envelope) decode(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}
