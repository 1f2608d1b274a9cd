package client

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/relaychat/internal/apitest"
	"github.com/vedran77/relaychat/internal/domain"
)

func register(t *testing.T, env *apitest.Env, name string) *Client {
	t.Helper()
	c := New(env.APIURL)
	_, err := c.Register(context.Background(), name, strings.ToLower(name)+"@example.com", "Passw0rd!")
	require.NoError(t, err)
	return c
}

func me(t *testing.T, c *Client, name string) uuid.UUID {
	t.Helper()
	users, err := c.Users(context.Background())
	require.NoError(t, err)
	for _, u := range users {
		if u.Name == name {
			return u.ID
		}
	}
	t.Fatalf("user %s not found", name)
	return uuid.Nil
}

func TestAPIErrorDecoding(t *testing.T) {
	env := apitest.Start(t)
	c := New(env.APIURL)

	_, err := c.Login(context.Background(), "ghost@example.com", "Passw0rd!")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)

	_, err = c.Register(context.Background(), "x", "bad", "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Fields, "email")

	_, err = c.Users(context.Background())
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestMessagingRoundTrip(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()
	ana, ben := register(t, env, "Ana"), register(t, env, "Ben")
	anaID, benID := me(t, ana, "Ana"), me(t, ben, "Ben")

	conv, err := ana.OpenConversation(ctx, benID)
	require.NoError(t, err)
	again, err := ben.OpenConversation(ctx, anaID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, again.ID)

	sent, err := ana.SendMessage(ctx, conv.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, sent.Status())

	_, err = ana.MarkStatus(ctx, sent.ID, StatusUpdate{Read: true})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	read, err := ben.MarkStatus(ctx, sent.ID, StatusUpdate{Read: true})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRead, read.Status())

	reacted, err := ben.React(ctx, sent.ID, "❤️", domain.ReactionAdd)
	require.NoError(t, err)
	assert.True(t, domain.HasReaction(reacted.Reactions, benID, "❤️"))

	file, err := ben.SendFile(ctx, conv.ID, "doc", "a.txt", strings.NewReader("abc"))
	require.NoError(t, err)
	require.NotNil(t, file.FileURL)

	audio, err := ben.SendAudio(ctx, conv.ID, strings.NewReader("ogg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ogg"), audio.Audio)

	msgs, err := ana.Messages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)

	previews, err := ana.ChatPreviews(ctx)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, 2, previews[0].UnreadCount)

	convs, err := ben.Conversations(ctx)
	require.NoError(t, err)
	assert.Len(t, convs, 1)

	require.NoError(t, ben.DeleteMessage(ctx, file.ID))
	deleted, err := ana.DeleteMessages(ctx, []uuid.UUID{sent.ID, audio.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{sent.ID, audio.ID}, deleted)

	msgs, err = ben.Messages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestProfile(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()
	ana := register(t, env, "Ana")
	anaID := me(t, ana, "Ana")

	user, err := ana.UpdateProfile(ctx, "Anabel", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Anabel", user.Name)

	user, err = ana.UpdateProfile(ctx, "", "avatar.jpg", strings.NewReader("jpg"))
	require.NoError(t, err)
	assert.Equal(t, "Anabel", user.Name)
	require.NotNil(t, user.Image)

	fetched, err := ana.User(ctx, anaID)
	require.NoError(t, err)
	assert.Equal(t, *user.Image, *fetched.Image)

	require.NoError(t, ana.DeleteProfile(ctx))

	_, err = ana.User(ctx, anaID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
