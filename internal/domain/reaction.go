package domain

import "github.com/google/uuid"

type ReactionAction string

const (
	ReactionAdd    ReactionAction = "add"
	ReactionRemove ReactionAction = "remove"
)

func (a ReactionAction) Valid() bool {
	return a == ReactionAdd || a == ReactionRemove
}

type Reaction struct {
	UserID uuid.UUID `json:"userId"`
	Emoji  string    `json:"emoji"`
}

// ApplyReaction returns a new reaction list with (userID, emoji) added or
// removed. Adding filters any existing identical pair before appending, so a
// pair appears at most once.
func ApplyReaction(reactions []Reaction, userID uuid.UUID, emoji string, action ReactionAction) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	for _, r := range reactions {
		if r.UserID == userID && r.Emoji == emoji {
			continue
		}
		out = append(out, r)
	}
	if action == ReactionAdd {
		out = append(out, Reaction{UserID: userID, Emoji: emoji})
	}
	return out
}

// HasReaction reports whether userID reacted with emoji.
func HasReaction(reactions []Reaction, userID uuid.UUID, emoji string) bool {
	for _, r := range reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return true
		}
	}
	return false
}
