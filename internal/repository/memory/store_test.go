package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/relaychat/internal/domain"
)

func seedUser(t *testing.T, s *Store, name string) domain.User {
	t.Helper()
	u := domain.User{ID: uuid.New(), Name: name, Email: name + "@example.com", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, s.Users().Create(context.Background(), &u))
	return u
}

func TestFindByParticipantsIgnoresOrderAndPrefersOldest(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, b := uuid.New(), uuid.New()
	older := domain.Conversation{ID: uuid.New(), ParticipantIDs: []uuid.UUID{a, b}, CreatedAt: time.Now().Add(-time.Minute)}
	newer := domain.Conversation{ID: uuid.New(), ParticipantIDs: []uuid.UUID{b, a}, CreatedAt: time.Now()}
	require.NoError(t, s.Conversations().Create(ctx, &newer))
	require.NoError(t, s.Conversations().Create(ctx, &older))

	found, err := s.Conversations().FindByParticipants(ctx, b, a)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, older.ID, found.ID)

	missing, err := s.Conversations().FindByParticipants(ctx, a, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMarkStatusNeverClearsFlags(t *testing.T) {
	ctx := context.Background()
	s := New()
	author := seedUser(t, s, "ana")
	msg := domain.Message{ID: uuid.New(), ConversationID: uuid.New(), UserID: author.ID, Text: "hi", CreatedAt: time.Now()}
	require.NoError(t, s.Messages().Create(ctx, &msg))

	require.NoError(t, s.Messages().MarkStatus(ctx, msg.ID, true, false))
	require.NoError(t, s.Messages().MarkStatus(ctx, msg.ID, false, true))
	require.NoError(t, s.Messages().MarkStatus(ctx, msg.ID, false, false))

	got, err := s.Messages().GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Delivered)
	assert.True(t, got.Read)
	require.NotNil(t, got.User)
	assert.Equal(t, "ana", got.User.Name)
	assert.Empty(t, got.User.PasswordHash)
}

func TestRemoveParticipantAndDeleteEmptyCascade(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedUser(t, s, "ana")
	b := seedUser(t, s, "bo")
	conv := domain.Conversation{ID: uuid.New(), ParticipantIDs: []uuid.UUID{a.ID, b.ID}, CreatedAt: time.Now()}
	require.NoError(t, s.Conversations().Create(ctx, &conv))
	msg := domain.Message{ID: uuid.New(), ConversationID: conv.ID, UserID: b.ID, Text: "hey", CreatedAt: time.Now()}
	require.NoError(t, s.Messages().Create(ctx, &msg))

	require.NoError(t, s.Conversations().RemoveParticipant(ctx, a.ID))
	deleted, err := s.Conversations().DeleteEmpty(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted, "conversation still has one participant")

	require.NoError(t, s.Conversations().RemoveParticipant(ctx, b.ID))
	deleted, err = s.Conversations().DeleteEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{conv.ID}, deleted)

	got, err := s.Messages().GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListByConversationOrdersByCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedUser(t, s, "ana")
	convID := uuid.New()
	base := time.Now()
	for i, text := range []string{"third", "first", "second"} {
		offset := map[int]time.Duration{0: 2, 1: 0, 2: 1}[i]
		m := domain.Message{ID: uuid.New(), ConversationID: convID, UserID: a.ID, Text: text, CreatedAt: base.Add(offset * time.Second)}
		require.NoError(t, s.Messages().Create(ctx, &m))
	}

	msgs, err := s.Messages().ListByConversation(ctx, convID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Text)
	assert.Equal(t, "second", msgs[1].Text)
	assert.Equal(t, "third", msgs[2].Text)

	latest, err := s.Messages().Latest(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, "third", latest.Text)
}
