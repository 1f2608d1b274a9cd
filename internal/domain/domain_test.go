package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReactionAddIsIdempotent(t *testing.T) {
	alice := uuid.New()

	reactions := ApplyReaction(nil, alice, "👍", ReactionAdd)
	reactions = ApplyReaction(reactions, alice, "👍", ReactionAdd)

	require.Len(t, reactions, 1)
	assert.Equal(t, Reaction{UserID: alice, Emoji: "👍"}, reactions[0])
}

func TestApplyReactionKeepsOtherPairs(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()

	reactions := ApplyReaction(nil, alice, "👍", ReactionAdd)
	reactions = ApplyReaction(reactions, alice, "❤️", ReactionAdd)
	reactions = ApplyReaction(reactions, bob, "👍", ReactionAdd)
	reactions = ApplyReaction(reactions, alice, "👍", ReactionRemove)

	assert.Len(t, reactions, 2)
	assert.False(t, HasReaction(reactions, alice, "👍"))
	assert.True(t, HasReaction(reactions, alice, "❤️"))
	assert.True(t, HasReaction(reactions, bob, "👍"))
}

func TestApplyReactionDoesNotMutateInput(t *testing.T) {
	alice := uuid.New()
	in := []Reaction{{UserID: alice, Emoji: "👍"}}

	_ = ApplyReaction(in, alice, "👍", ReactionRemove)

	assert.Len(t, in, 1)
}

func TestMessageStatus(t *testing.T) {
	m := Message{}
	assert.Equal(t, StatusSent, m.Status())
	m.Delivered = true
	assert.Equal(t, StatusDelivered, m.Status())
	m.Read = true
	assert.Equal(t, StatusRead, m.Status())
}

func TestConversationParticipants(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	conv := Conversation{ParticipantIDs: []uuid.UUID{a, b}}

	assert.True(t, conv.HasParticipants(b, a))
	assert.False(t, conv.HasParticipants(a, c))

	other, ok := conv.OtherParticipant(a)
	require.True(t, ok)
	assert.Equal(t, b, other)
}

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	u := User{ID: uuid.New(), Name: "Ana", Email: "ana@example.com", PasswordHash: "salt:hash"}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "salt:hash")
	assert.Empty(t, u.Public().PasswordHash)
}
