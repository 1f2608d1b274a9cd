// Package memory is an in-process implementation of the repository
// interfaces, used for STORE=memory and as the test store.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/domain"
)

// Store holds every collection behind one lock so message reads can join
// their author, mirroring the SQL schema's foreign keys.
type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]domain.User
	conversations map[uuid.UUID]domain.Conversation
	messages      map[uuid.UUID]domain.Message
}

func New() *Store {
	return &Store{
		users:         make(map[uuid.UUID]domain.User),
		conversations: make(map[uuid.UUID]domain.Conversation),
		messages:      make(map[uuid.UUID]domain.Message),
	}
}

func (s *Store) Users() *UserRepo                 { return &UserRepo{s: s} }
func (s *Store) Conversations() *ConversationRepo { return &ConversationRepo{s: s} }
func (s *Store) Messages() *MessageRepo           { return &MessageRepo{s: s} }

// --- users ---

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) List(_ context.Context) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := make([]domain.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, u)
	}
	sortUsers(users)
	return users, nil
}

func (r *UserRepo) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var users []domain.User
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			users = append(users, u)
		}
	}
	sortUsers(users)
	return users, nil
}

func (r *UserRepo) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.users[user.ID]
	if !ok {
		return nil
	}
	existing.Name = user.Name
	existing.Image = user.Image
	existing.UpdatedAt = user.UpdatedAt
	r.s.users[user.ID] = existing
	return nil
}

func (r *UserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	for mid, m := range r.s.messages {
		if m.UserID == id {
			delete(r.s.messages, mid)
		}
	}
	return nil
}

func sortUsers(users []domain.User) {
	slices.SortFunc(users, func(a, b domain.User) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}

// --- conversations ---

type ConversationRepo struct{ s *Store }

func (r *ConversationRepo) Create(_ context.Context, conv *domain.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *conv
	c.ParticipantIDs = slices.Clone(conv.ParticipantIDs)
	c.Participants = nil
	c.LastMessage = nil
	r.s.conversations[c.ID] = c
	return nil
}

func (r *ConversationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, nil
	}
	return cloneConversation(c), nil
}

func (r *ConversationRepo) FindByParticipants(_ context.Context, userID, otherUserID uuid.UUID) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var found *domain.Conversation
	for _, c := range r.s.conversations {
		if !c.HasParticipants(userID, otherUserID) {
			continue
		}
		if found == nil || c.CreatedAt.Before(found.CreatedAt) ||
			(c.CreatedAt.Equal(found.CreatedAt) && c.ID.String() < found.ID.String()) {
			found = cloneConversation(c)
		}
	}
	return found, nil
}

func (r *ConversationRepo) ListByParticipant(_ context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var convs []domain.Conversation
	for _, c := range r.s.conversations {
		if c.HasParticipant(userID) {
			convs = append(convs, *cloneConversation(c))
		}
	}
	slices.SortFunc(convs, func(a, b domain.Conversation) int {
		return activity(b).Compare(activity(a))
	})
	return convs, nil
}

func (r *ConversationRepo) Touch(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil
	}
	c.LastMessageAt = &at
	c.UpdatedAt = at
	r.s.conversations[id] = c
	return nil
}

func (r *ConversationRepo) RemoveParticipant(_ context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, c := range r.s.conversations {
		if !c.HasParticipant(userID) {
			continue
		}
		c.ParticipantIDs = slices.DeleteFunc(slices.Clone(c.ParticipantIDs), func(p uuid.UUID) bool { return p == userID })
		c.UpdatedAt = time.Now()
		r.s.conversations[id] = c
	}
	return nil
}

func (r *ConversationRepo) DeleteEmpty(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deleted []uuid.UUID
	for id, c := range r.s.conversations {
		if len(c.ParticipantIDs) > 0 {
			continue
		}
		delete(r.s.conversations, id)
		deleted = append(deleted, id)
		for mid, m := range r.s.messages {
			if m.ConversationID == id {
				delete(r.s.messages, mid)
			}
		}
	}
	return deleted, nil
}

func activity(c domain.Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

func cloneConversation(c domain.Conversation) *domain.Conversation {
	c.ParticipantIDs = slices.Clone(c.ParticipantIDs)
	return &c
}

// --- messages ---

type MessageRepo struct{ s *Store }

func (r *MessageRepo) Create(_ context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := *msg
	m.User = nil
	m.Reactions = slices.Clone(msg.Reactions)
	if m.Reactions == nil {
		m.Reactions = []domain.Reaction{}
	}
	r.s.messages[m.ID] = m
	return nil
}

func (r *MessageRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil, nil
	}
	return r.withAuthor(m), nil
}

func (r *MessageRepo) ListByConversation(_ context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.conversationMessages(conversationID), nil
}

func (r *MessageRepo) Latest(_ context.Context, conversationID uuid.UUID) (*domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	msgs := r.conversationMessages(conversationID)
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[len(msgs)-1], nil
}

func (r *MessageRepo) CountUnread(_ context.Context, conversationID, readerID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID && m.UserID != readerID && !m.Read {
			count++
		}
	}
	return count, nil
}

func (r *MessageRepo) MarkStatus(_ context.Context, id uuid.UUID, delivered, read bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil
	}
	m.Delivered = m.Delivered || delivered
	m.Read = m.Read || read
	m.UpdatedAt = time.Now()
	r.s.messages[id] = m
	return nil
}

func (r *MessageRepo) UpdateReactions(_ context.Context, id uuid.UUID, reactions []domain.Reaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.messages[id]
	if !ok {
		return nil
	}
	m.Reactions = slices.Clone(reactions)
	if m.Reactions == nil {
		m.Reactions = []domain.Reaction{}
	}
	m.UpdatedAt = time.Now()
	r.s.messages[id] = m
	return nil
}

func (r *MessageRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.messages, id)
	return nil
}

func (r *MessageRepo) DeleteByUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var deleted []uuid.UUID
	for id, m := range r.s.messages {
		if m.UserID == userID {
			delete(r.s.messages, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// conversationMessages must be called with the lock held. Messages whose
// author no longer exists are skipped, like the inner join in SQL.
func (r *MessageRepo) conversationMessages(conversationID uuid.UUID) []domain.Message {
	var msgs []domain.Message
	for _, m := range r.s.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if full := r.withAuthor(m); full != nil {
			msgs = append(msgs, *full)
		}
	}
	slices.SortFunc(msgs, func(a, b domain.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return msgs
}

func (r *MessageRepo) withAuthor(m domain.Message) *domain.Message {
	u, ok := r.s.users[m.UserID]
	if !ok {
		return nil
	}
	author := u.Public()
	m.User = &author
	m.Reactions = slices.Clone(m.Reactions)
	return &m
}
