package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/domain"
	"github.com/vedran77/relaychat/internal/repository"
	"github.com/vedran77/relaychat/internal/storage"
)

type UserService struct {
	userRepo    repository.UserRepository
	convRepo    repository.ConversationRepository
	messageRepo repository.MessageRepository
	blobs       storage.BlobStore
	notifier    Notifier
}

func NewUserService(
	userRepo repository.UserRepository,
	convRepo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	blobs storage.BlobStore,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		convRepo:    convRepo,
		messageRepo: messageRepo,
		blobs:       blobs,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *UserService) SetNotifier(n Notifier) {
	s.notifier = n
}

type UpdateProfileInput struct {
	Name      string
	ImageName string
	Image     io.Reader
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	public := make([]domain.User, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	return public, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	public := user.Public()
	return &public, nil
}

// UpdateProfile changes the caller's name and/or avatar. An empty name keeps
// the current one; a nil Image keeps the current avatar.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		user.Name = name
	}

	if input.Image != nil {
		url, err := s.blobs.Put(ctx, input.ImageName, input.Image)
		if err != nil {
			return nil, fmt.Errorf("storing avatar: %w", err)
		}
		user.Image = &url
	}

	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}

	public := user.Public()
	return &public, nil
}

// DeleteAccount removes the caller's messages, takes them out of every
// conversation, drops conversations left without participants and finally
// deletes the user. The steps run in order with no rollback; a failure part
// way through leaves the earlier steps applied.
func (s *UserService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	deleted, err := s.messageRepo.DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	if len(deleted) > 0 && s.notifier != nil {
		s.notifier.NotifyMessagesDeleted(nil, deleted)
	}

	if err := s.convRepo.RemoveParticipant(ctx, userID); err != nil {
		return fmt.Errorf("leaving conversations: %w", err)
	}
	if _, err := s.convRepo.DeleteEmpty(ctx); err != nil {
		return fmt.Errorf("deleting empty conversations: %w", err)
	}
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}
