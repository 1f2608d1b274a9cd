package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/relaychat/internal/apitest"
	"github.com/vedran77/relaychat/internal/client"
	"github.com/vedran77/relaychat/internal/domain"
)

// syncBuffer lets a running command write while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func run(ctx context.Context, env *apitest.Env, stateDir string, out *syncBuffer, args ...string) error {
	cmd := NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(append([]string{"--api", env.APIURL, "--relay", env.RelayURL, "--state-dir", stateDir}, args...))
	return cmd.ExecuteContext(ctx)
}

func TestRegisterLoginAndUsers(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()
	dir := t.TempDir()
	out := &syncBuffer{}

	err := run(ctx, env, dir, out, "users")
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, run(ctx, env, dir, out, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "Passw0rd!"))
	assert.Contains(t, out.String(), "Logged in as Ana")

	s, err := LoadSession(dir)
	require.NoError(t, err)
	assert.Equal(t, "Ana", s.Name)
	assert.NotEmpty(t, s.Token)

	require.NoError(t, run(ctx, env, dir, out, "login", "--email", "ana@example.com", "--password", "Passw0rd!"))

	err = run(ctx, env, dir, out, "login", "--email", "ana@example.com", "--password", "wrong-pass")
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)

	out = &syncBuffer{}
	require.NoError(t, run(ctx, env, dir, out, "users"))
	assert.Contains(t, out.String(), "Ana (you)")
	assert.Contains(t, out.String(), s.UserID.String())
}

func TestSendStoresMessage(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()

	ben := client.New(env.APIURL)
	benAuth, err := ben.Register(ctx, "Ben", "ben@example.com", "Passw0rd!")
	require.NoError(t, err)

	dir := t.TempDir()
	out := &syncBuffer{}
	require.NoError(t, run(ctx, env, dir, out, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "Passw0rd!"))
	require.NoError(t, run(ctx, env, dir, out, "send", benAuth.User.ID.String(), "hello", "there"))
	assert.Contains(t, out.String(), "Sent ")

	err = run(ctx, env, dir, out, "send", "not-a-uuid", "hi")
	assert.ErrorContains(t, err, "invalid user id")

	previews, err := ben.ChatPreviews(ctx)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	require.NotNil(t, previews[0].LastMessage)
	assert.Equal(t, "hello there", previews[0].LastMessage.Content)
}

func TestSendWithoutRelay(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()

	ben := client.New(env.APIURL)
	benAuth, err := ben.Register(ctx, "Ben", "ben@example.com", "Passw0rd!")
	require.NoError(t, err)

	dir := t.TempDir()
	out := &syncBuffer{}
	require.NoError(t, run(ctx, env, dir, out, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "Passw0rd!"))
	require.NoError(t, run(ctx, env, dir, out, "--relay", "", "send", benAuth.User.ID.String(), "offline"))
	assert.Contains(t, out.String(), "Sent ")
}

func TestWatchMarksIncomingRead(t *testing.T) {
	env := apitest.Start(t)

	ben := client.New(env.APIURL)
	_, err := ben.Register(context.Background(), "Ben", "ben@example.com", "Passw0rd!")
	require.NoError(t, err)

	dir := t.TempDir()
	out := &syncBuffer{}
	require.NoError(t, run(context.Background(), env, dir, out, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "Passw0rd!"))
	ana, err := LoadSession(dir)
	require.NoError(t, err)

	conv, err := ben.OpenConversation(context.Background(), ana.UserID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, env, dir, out, "watch", "--interval", "50ms", ana.UserID.String())
	}()

	// Watching yourself is rejected by the API.
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch on self did not fail")
	}
	cancel()

	benID, ok := conv.OtherParticipant(ana.UserID)
	require.True(t, ok)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	go func() {
		done <- run(ctx, env, dir, out, "watch", "--interval", "50ms", benID.String())
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching conversation "+conv.ID.String())
	}, 5*time.Second, 10*time.Millisecond)

	sent, err := ben.SendMessage(context.Background(), conv.ID, "are you there?")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		m, err := env.Store.Messages().GetByID(context.Background(), sent.ID)
		return err == nil && m != nil && m.Read
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Ben: are you there?")
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// anaAndBen registers Ben through the client and Ana through chatctl, and
// returns Ben's client with a conversation Ben opened with Ana.
func anaAndBen(t *testing.T, env *apitest.Env, dir string) (*client.Client, *Session, *domain.Conversation) {
	t.Helper()
	ctx := context.Background()

	ben := client.New(env.APIURL)
	_, err := ben.Register(ctx, "Ben", "ben@example.com", "Passw0rd!")
	require.NoError(t, err)

	require.NoError(t, run(ctx, env, dir, &syncBuffer{}, "register", "--name", "Ana", "--email", "ana@example.com", "--password", "Passw0rd!"))
	ana, err := LoadSession(dir)
	require.NoError(t, err)

	conv, err := ben.OpenConversation(ctx, ana.UserID)
	require.NoError(t, err)
	return ben, ana, conv
}

func TestChatsListsPreviews(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()
	dir := t.TempDir()

	ben, _, conv := anaAndBen(t, env, dir)
	_, err := ben.SendMessage(ctx, conv.ID, "see you at noon")
	require.NoError(t, err)

	out := &syncBuffer{}
	require.NoError(t, run(ctx, env, dir, out, "chats"))
	assert.Contains(t, out.String(), "LAST MESSAGE")
	assert.Contains(t, out.String(), "Ben")
	assert.Contains(t, out.String(), "see you at noon")
}

func TestReactToggles(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()
	dir := t.TempDir()

	ben, ana, conv := anaAndBen(t, env, dir)
	sent, err := ben.SendMessage(ctx, conv.ID, "lunch?")
	require.NoError(t, err)
	benID := sent.UserID.String()

	out := &syncBuffer{}
	require.NoError(t, run(ctx, env, dir, out, "--relay", "", "react", benID, sent.ID.String(), "👍"))
	assert.Contains(t, out.String(), "Reaction 👍 added on "+sent.ID.String())

	stored, err := env.Store.Messages().GetByID(ctx, sent.ID)
	require.NoError(t, err)
	require.Len(t, stored.Reactions, 1)
	assert.Equal(t, ana.UserID, stored.Reactions[0].UserID)

	// Loading for a reaction does not mark the message read.
	assert.False(t, stored.Read)

	require.NoError(t, run(ctx, env, dir, out, "--relay", "", "react", benID, sent.ID.String(), "👍"))
	assert.Contains(t, out.String(), "Reaction 👍 removed on "+sent.ID.String())

	stored, err = env.Store.Messages().GetByID(ctx, sent.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Reactions)

	err = run(ctx, env, dir, out, "react", benID, uuid.NewString(), "👍")
	assert.ErrorContains(t, err, "not in the conversation")

	err = run(ctx, env, dir, out, "react", benID, "nope", "👍")
	assert.ErrorContains(t, err, "invalid message id")
}

func TestDeleteOneAndMany(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()
	dir := t.TempDir()

	ben, _, conv := anaAndBen(t, env, dir)
	var ids []uuid.UUID
	var peerArg string
	for _, text := range []string{"one", "two", "three"} {
		m, err := ben.SendMessage(ctx, conv.ID, text)
		require.NoError(t, err)
		ids = append(ids, m.ID)
		peerArg = m.UserID.String()
	}

	out := &syncBuffer{}
	require.NoError(t, run(ctx, env, dir, out, "delete", peerArg, ids[0].String()))
	assert.Contains(t, out.String(), "Deleted 1 message(s)")

	require.NoError(t, run(ctx, env, dir, out, "delete", peerArg, ids[1].String(), ids[2].String()))
	assert.Contains(t, out.String(), "Deleted 2 message(s)")

	for _, id := range ids {
		m, err := env.Store.Messages().GetByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, m, "message %s still stored", id)
	}

	err := run(ctx, env, dir, out, "delete", peerArg)
	assert.Error(t, err)
}

func TestSendFile(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()
	dir := t.TempDir()

	ben, _, conv := anaAndBen(t, env, dir)
	benID, ok := conv.OtherParticipant(mustSession(t, dir).UserID)
	require.True(t, ok)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("agenda"), 0o600))

	out := &syncBuffer{}
	require.NoError(t, run(ctx, env, dir, out, "send", "--file", path, benID.String(), "see attached"))
	assert.Contains(t, out.String(), "Sent ")

	msgs, err := ben.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].FileName)
	assert.Equal(t, "notes.txt", *msgs[0].FileName)
	assert.Equal(t, "see attached", msgs[0].Text)

	err = run(ctx, env, dir, out, "send", benID.String())
	assert.ErrorContains(t, err, "nothing to send")
}

func TestDeleteAccount(t *testing.T) {
	env := apitest.Start(t)
	ctx := context.Background()
	dir := t.TempDir()

	anaAndBen(t, env, dir)
	ana := mustSession(t, dir)

	out := &syncBuffer{}
	err := run(ctx, env, dir, out, "delete-account")
	assert.ErrorContains(t, err, "--yes")

	require.NoError(t, run(ctx, env, dir, out, "delete-account", "--yes"))
	assert.Contains(t, out.String(), "Deleted account "+ana.UserID.String())

	u, err := env.Store.Users().GetByID(ctx, ana.UserID)
	require.NoError(t, err)
	assert.Nil(t, u)

	_, err = LoadSession(dir)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestWatchRejectsNonPositiveInterval(t *testing.T) {
	env := apitest.Start(t)
	dir := t.TempDir()
	_, _, conv := anaAndBen(t, env, dir)
	peer, ok := conv.OtherParticipant(mustSession(t, dir).UserID)
	require.True(t, ok)

	err := run(context.Background(), env, dir, &syncBuffer{}, "watch", "--interval", "0s", peer.String())
	assert.ErrorContains(t, err, "must be positive")
}

func mustSession(t *testing.T, dir string) *Session {
	t.Helper()
	s, err := LoadSession(dir)
	require.NoError(t, err)
	return s
}

func TestPrinterReportsChanges(t *testing.T) {
	self, peer := uuid.New(), uuid.New()
	out := &syncBuffer{}
	p := newPrinter(out, self)

	name := "Ben"
	msg := domain.Message{
		ID:        uuid.New(),
		UserID:    peer,
		Text:      "hi",
		User:      &domain.User{Name: name},
		CreatedAt: time.Now(),
	}
	p.print([]domain.Message{msg})
	assert.Contains(t, out.String(), "Ben: hi [sent]")

	msg.Delivered, msg.Read = true, true
	msg.Reactions = []domain.Reaction{{UserID: self, Emoji: "👍"}}
	p.print([]domain.Message{msg})
	assert.Contains(t, out.String(), shortID(msg.ID)+" [read] 👍1")

	before := out.String()
	p.print([]domain.Message{msg})
	assert.Equal(t, before, out.String())

	p.print(nil)
	assert.Contains(t, out.String(), shortID(msg.ID)+" deleted")
}
