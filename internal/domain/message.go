package domain

import (
	"time"

	"github.com/google/uuid"
)

type DeliveryStatus string

const (
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversationId"`
	UserID         uuid.UUID  `json:"userId"`
	Text           string     `json:"text"`
	FileURL        *string    `json:"fileUrl,omitempty"`
	FileType       *string    `json:"fileType,omitempty"`
	FileName       *string    `json:"fileName,omitempty"`
	Audio          []byte     `json:"audio,omitempty"`
	Delivered      bool       `json:"delivered"`
	Read           bool       `json:"read"`
	Reactions      []Reaction `json:"reactions"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	// Joined author
	User *User `json:"user,omitempty"`
}

// Status is the delivery state as observed by the author.
func (m *Message) Status() DeliveryStatus {
	switch {
	case m.Read:
		return StatusRead
	case m.Delivered:
		return StatusDelivered
	default:
		return StatusSent
	}
}

// HasContent reports whether the message has anything to show.
func (m *Message) HasContent() bool {
	return m.Text != "" || m.FileURL != nil || len(m.Audio) > 0
}
