//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/relaychat/internal/database"
	"github.com/vedran77/relaychat/internal/domain"
)

// Run with: DATABASE_URL=postgres://... go test -tags integration ./internal/repository/postgres/
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	_, err := database.Migrate(url)
	require.NoError(t, err)

	pool, err := database.Connect(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func createUser(t *testing.T, repo *UserRepo, name string) *domain.User {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	u := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	t.Cleanup(func() { _ = repo.Delete(context.Background(), u.ID) })
	return u
}

func createConversation(t *testing.T, repo *ConversationRepo, at time.Time, ids ...uuid.UUID) *domain.Conversation {
	t.Helper()
	c := &domain.Conversation{
		ID:             uuid.New(),
		ParticipantIDs: ids,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
	require.NoError(t, repo.Create(context.Background(), c))
	t.Cleanup(func() {
		_, _ = repo.pool.Exec(context.Background(), `DELETE FROM conversations WHERE id = $1`, c.ID)
	})
	return c
}

func TestFindByParticipantsReturnsOldest(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users, convs := NewUserRepo(pool), NewConversationRepo(pool)

	ana, ben, cem := createUser(t, users, "Ana"), createUser(t, users, "Ben"), createUser(t, users, "Cem")
	now := time.Now().UTC().Truncate(time.Microsecond)
	older := createConversation(t, convs, now.Add(-time.Hour), ana.ID, ben.ID)
	createConversation(t, convs, now, ben.ID, ana.ID)

	for _, pair := range [][2]uuid.UUID{{ana.ID, ben.ID}, {ben.ID, ana.ID}} {
		found, err := convs.FindByParticipants(ctx, pair[0], pair[1])
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, older.ID, found.ID)
	}

	found, err := convs.FindByParticipants(ctx, ana.ID, cem.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMarkStatusOnlySetsFlags(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users, convs, msgs := NewUserRepo(pool), NewConversationRepo(pool), NewMessageRepo(pool)

	ana, ben := createUser(t, users, "Ana"), createUser(t, users, "Ben")
	now := time.Now().UTC().Truncate(time.Microsecond)
	conv := createConversation(t, convs, now, ana.ID, ben.ID)

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		UserID:         ana.ID,
		Text:           "hi",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, msgs.Create(ctx, msg))

	require.NoError(t, msgs.MarkStatus(ctx, msg.ID, true, false))
	got, err := msgs.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Delivered)
	assert.False(t, got.Read)

	// false never clears a flag
	require.NoError(t, msgs.MarkStatus(ctx, msg.ID, false, true))
	got, err = msgs.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Delivered)
	assert.True(t, got.Read)
	assert.Equal(t, domain.StatusRead, got.Status())

	unread, err := msgs.CountUnread(ctx, conv.ID, ben.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	missing, err := msgs.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDeleteEmptyAfterRemoveParticipant(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	users, convs := NewUserRepo(pool), NewConversationRepo(pool)

	ana, ben, cem := createUser(t, users, "Ana"), createUser(t, users, "Ben"), createUser(t, users, "Cem")
	now := time.Now().UTC().Truncate(time.Microsecond)
	shared := createConversation(t, convs, now, ana.ID, ben.ID)
	alone := createConversation(t, convs, now, ana.ID)
	other := createConversation(t, convs, now, ben.ID, cem.ID)

	require.NoError(t, convs.RemoveParticipant(ctx, ana.ID))

	got, err := convs.GetByID(ctx, shared.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []uuid.UUID{ben.ID}, got.ParticipantIDs)

	deleted, err := convs.DeleteEmpty(ctx)
	require.NoError(t, err)
	assert.Contains(t, deleted, alone.ID)
	assert.NotContains(t, deleted, shared.ID)
	assert.NotContains(t, deleted, other.ID)

	gone, err := convs.GetByID(ctx, alone.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
