package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/domain"
	"github.com/vedran77/relaychat/internal/repository"
	"github.com/vedran77/relaychat/internal/storage"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrOwnMessageStatus = errors.New("only the receiver can update delivery status")
	ErrEmptyMessage     = errors.New("message has no content")
	ErrNoStatusChange   = errors.New("delivered or read must be true")
	ErrNoMessageIDs     = errors.New("at least one message id is required")
)

// Notifier pushes server-initiated events to live clients. conversationID
// is nil when the deleted messages span several conversations.
type Notifier interface {
	NotifyMessagesDeleted(conversationID *uuid.UUID, messageIDs []uuid.UUID)
}

type MessageService struct {
	messageRepo repository.MessageRepository
	convRepo    repository.ConversationRepository
	blobs       storage.BlobStore
	notifier    Notifier
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	convRepo repository.ConversationRepository,
	blobs storage.BlobStore,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		blobs:       blobs,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	ConversationID uuid.UUID `json:"conversationId"`
	Text           string    `json:"text"`
}

type SendFileInput struct {
	ConversationID uuid.UUID
	Text           string
	FileName       string
	ContentType    string
	Body           io.Reader
}

type UpdateStatusInput struct {
	MessageID uuid.UUID
	Delivered bool
	Read      bool
}

type ReactInput struct {
	MessageID uuid.UUID
	Emoji     string
	Action    domain.ReactionAction
}

func (s *MessageService) List(ctx context.Context, userID, conversationID uuid.UUID) ([]domain.Message, error) {
	if _, err := s.checkParticipant(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

func (s *MessageService) Send(ctx context.Context, userID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrEmptyMessage
	}
	return s.create(ctx, userID, &domain.Message{
		ConversationID: input.ConversationID,
		Text:           input.Text,
	})
}

// SendFile stores the attachment in the blob store and records its URL on
// a new message.
func (s *MessageService) SendFile(ctx context.Context, userID uuid.UUID, input SendFileInput) (*domain.Message, error) {
	if _, err := s.checkParticipant(ctx, userID, input.ConversationID); err != nil {
		return nil, err
	}

	url, err := s.blobs.Put(ctx, input.FileName, input.Body)
	if err != nil {
		return nil, fmt.Errorf("storing attachment: %w", err)
	}

	fileType, fileName := input.ContentType, input.FileName
	return s.create(ctx, userID, &domain.Message{
		ConversationID: input.ConversationID,
		Text:           input.Text,
		FileURL:        &url,
		FileType:       &fileType,
		FileName:       &fileName,
	})
}

// SendAudio stores the recording inline on the message rather than in the
// blob store.
func (s *MessageService) SendAudio(ctx context.Context, userID, conversationID uuid.UUID, audio []byte) (*domain.Message, error) {
	return s.create(ctx, userID, &domain.Message{
		ConversationID: conversationID,
		Audio:          audio,
	})
}

// UpdateStatus marks a message delivered and/or read. Only a participant
// who is not the author may do so; read implies delivered.
func (s *MessageService) UpdateStatus(ctx context.Context, userID uuid.UUID, input UpdateStatusInput) (*domain.Message, error) {
	if !input.Delivered && !input.Read {
		return nil, ErrNoStatusChange
	}

	msg, err := s.loadForParticipant(ctx, userID, input.MessageID)
	if err != nil {
		return nil, err
	}
	if msg.UserID == userID {
		return nil, ErrOwnMessageStatus
	}

	if err := s.messageRepo.MarkStatus(ctx, msg.ID, input.Delivered || input.Read, input.Read); err != nil {
		return nil, fmt.Errorf("updating message status: %w", err)
	}

	return s.reload(ctx, msg.ID)
}

// React adds or removes the caller's reaction. Any participant may react,
// including the author.
func (s *MessageService) React(ctx context.Context, userID uuid.UUID, input ReactInput) (*domain.Message, error) {
	msg, err := s.loadForParticipant(ctx, userID, input.MessageID)
	if err != nil {
		return nil, err
	}

	reactions := domain.ApplyReaction(msg.Reactions, userID, input.Emoji, input.Action)
	if err := s.messageRepo.UpdateReactions(ctx, msg.ID, reactions); err != nil {
		return nil, fmt.Errorf("updating reactions: %w", err)
	}

	return s.reload(ctx, msg.ID)
}

// Delete removes one or more messages. Every id is checked before anything
// is deleted; the deletions themselves are independent writes.
func (s *MessageService) Delete(ctx context.Context, userID uuid.UUID, messageIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(messageIDs) == 0 {
		return nil, ErrNoMessageIDs
	}

	byConversation := make(map[uuid.UUID][]uuid.UUID)
	var order []uuid.UUID
	seen := make(map[uuid.UUID]bool, len(messageIDs))
	for _, id := range messageIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		msg, err := s.loadForParticipant(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if _, ok := byConversation[msg.ConversationID]; !ok {
			order = append(order, msg.ConversationID)
		}
		byConversation[msg.ConversationID] = append(byConversation[msg.ConversationID], id)
	}

	var deleted []uuid.UUID
	for _, convID := range order {
		ids := byConversation[convID]
		for _, id := range ids {
			if err := s.messageRepo.Delete(ctx, id); err != nil {
				return deleted, fmt.Errorf("deleting message %s: %w", id, err)
			}
			deleted = append(deleted, id)
		}
		if s.notifier != nil {
			s.notifier.NotifyMessagesDeleted(&convID, ids)
		}
	}

	return deleted, nil
}

func (s *MessageService) create(ctx context.Context, userID uuid.UUID, msg *domain.Message) (*domain.Message, error) {
	if !msg.HasContent() {
		return nil, ErrEmptyMessage
	}
	if _, err := s.checkParticipant(ctx, userID, msg.ConversationID); err != nil {
		return nil, err
	}

	now := time.Now()
	msg.ID = uuid.New()
	msg.UserID = userID
	msg.Reactions = []domain.Reaction{}
	msg.CreatedAt = now
	msg.UpdatedAt = now

	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	if err := s.convRepo.Touch(ctx, msg.ConversationID, now); err != nil {
		return nil, fmt.Errorf("touching conversation: %w", err)
	}

	return s.reload(ctx, msg.ID)
}

// reload re-reads a message with its author joined.
func (s *MessageService) reload(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	full, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if full == nil {
		return nil, ErrMessageNotFound
	}
	return full, nil
}

func (s *MessageService) loadForParticipant(ctx context.Context, userID, messageID uuid.UUID) (*domain.Message, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}
	if _, err := s.checkParticipant(ctx, userID, msg.ConversationID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) checkParticipant(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, err := s.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}
