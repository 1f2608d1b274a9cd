package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/domain"
	"github.com/vedran77/relaychat/internal/repository"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
	ErrCannotChatSelf       = errors.New("cannot start a conversation with yourself")
	ErrUserNotFound         = errors.New("user not found")
)

type ConversationService struct {
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
}

func NewConversationService(
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	userRepo repository.UserRepository,
) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
	}
}

// GetOrCreate returns the conversation between userID and otherUserID,
// creating it when none exists. The lookup and the insert are separate
// store calls, so two concurrent callers can both create one.
func (s *ConversationService) GetOrCreate(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error) {
	if userID == otherUserID {
		return nil, ErrCannotChatSelf
	}

	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	conv, err := s.convRepo.FindByParticipants(ctx, userID, otherUserID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		now := time.Now()
		conv = &domain.Conversation{
			ID:             uuid.New(),
			ParticipantIDs: []uuid.UUID{userID, otherUserID},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.convRepo.Create(ctx, conv); err != nil {
			return nil, fmt.Errorf("creating conversation: %w", err)
		}
	}

	if err := s.attachParticipants(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns the caller's conversations with participants and the latest
// message, most recently active first.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	if convs == nil {
		return []domain.Conversation{}, nil
	}

	for i := range convs {
		if err := s.attachParticipants(ctx, &convs[i]); err != nil {
			return nil, err
		}
		last, err := s.messageRepo.Latest(ctx, convs[i].ID)
		if err != nil {
			return nil, err
		}
		convs[i].LastMessage = last
	}
	return convs, nil
}

// Get returns a conversation the caller participates in.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, error) {
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

// Previews builds the chat list: one entry per other user, conversations
// with a latest message first (newest first), then everyone else.
func (s *ConversationService) Previews(ctx context.Context, userID uuid.UUID) ([]domain.ChatPreview, error) {
	convs, err := s.convRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u.Public()
	}

	previews := make([]domain.ChatPreview, 0, len(users))
	seen := map[uuid.UUID]bool{userID: true}

	for _, conv := range convs {
		otherID, ok := conv.OtherParticipant(userID)
		if !ok || seen[otherID] {
			continue
		}
		other, ok := byID[otherID]
		if !ok {
			continue
		}
		seen[otherID] = true

		convID := conv.ID
		preview := domain.ChatPreview{User: other, ConversationID: &convID}

		last, err := s.messageRepo.Latest(ctx, conv.ID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			preview.LastMessage = &domain.PreviewMessage{
				Content:   last.Text,
				CreatedAt: last.CreatedAt,
				IsRead:    last.Read,
			}
		}

		preview.UnreadCount, err = s.messageRepo.CountUnread(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}
		previews = append(previews, preview)
	}

	for _, u := range users {
		if seen[u.ID] {
			continue
		}
		previews = append(previews, domain.ChatPreview{User: u.Public()})
	}

	slices.SortStableFunc(previews, func(a, b domain.ChatPreview) int {
		switch {
		case a.LastMessage == nil && b.LastMessage == nil:
			return 0
		case a.LastMessage == nil:
			return 1
		case b.LastMessage == nil:
			return -1
		default:
			return b.LastMessage.CreatedAt.Compare(a.LastMessage.CreatedAt)
		}
	})

	return previews, nil
}

func (s *ConversationService) attachParticipants(ctx context.Context, conv *domain.Conversation) error {
	users, err := s.userRepo.ListByIDs(ctx, conv.ParticipantIDs)
	if err != nil {
		return err
	}
	conv.Participants = make([]domain.User, 0, len(users))
	for _, u := range users {
		conv.Participants = append(conv.Participants, u.Public())
	}
	return nil
}
