package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/domain"
)

// Lookups return (nil, nil) when the record does not exist.

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// FindByParticipants returns the oldest conversation containing both
	// users. There is no uniqueness constraint behind it.
	FindByParticipants(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error)
	ListByParticipant(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	RemoveParticipant(ctx context.Context, userID uuid.UUID) error
	DeleteEmpty(ctx context.Context) ([]uuid.UUID, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
	Latest(ctx context.Context, conversationID uuid.UUID) (*domain.Message, error)
	CountUnread(ctx context.Context, conversationID, readerID uuid.UUID) (int, error)
	// MarkStatus only ever sets flags to true; false arguments leave the
	// stored value untouched.
	MarkStatus(ctx context.Context, id uuid.UUID, delivered, read bool) error
	UpdateReactions(ctx context.Context, id uuid.UUID, reactions []domain.Reaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
