package domain

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID             uuid.UUID   `json:"id"`
	ParticipantIDs []uuid.UUID `json:"participantIds"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	LastMessageAt  *time.Time  `json:"lastMessageAt,omitempty"`
	// Joined fields for clients
	Participants []User   `json:"participants,omitempty"`
	LastMessage  *Message `json:"lastMessage,omitempty"`
}

func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasParticipants reports whether every given user takes part in c,
// regardless of order.
func (c *Conversation) HasParticipants(userIDs ...uuid.UUID) bool {
	for _, id := range userIDs {
		if !c.HasParticipant(id) {
			return false
		}
	}
	return true
}

// OtherParticipant returns the first participant that is not userID.
func (c *Conversation) OtherParticipant(userID uuid.UUID) (uuid.UUID, bool) {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id, true
		}
	}
	return uuid.Nil, false
}

// ChatPreview is one row of the chat list: a user and, when a conversation
// with them exists, its latest message and unread count.
type ChatPreview struct {
	User           User            `json:"user"`
	ConversationID *uuid.UUID      `json:"conversationId,omitempty"`
	LastMessage    *PreviewMessage `json:"lastMessage,omitempty"`
	UnreadCount    int             `json:"unreadCount"`
}

type PreviewMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}
