package chat

import (
	"slices"
	"strings"

	"github.com/pigeonchat/pigeon/internal/docstore"
)

// IDSeparator joins sorted participant ids into a chat id.
const IDSeparator = "_"

// SelfChatName is the display name of a chat whose only participant is the
// viewer.
const SelfChatName = "Me"

// Chat is the conversation record stored at chats/{chatId}. The display name
// is viewer-relative and derived on read, never persisted, so concurrent
// viewers cannot overwrite each other's derived name.
type Chat struct {
	ID             string   `json:"chatId"`
	ParticipantIDs []string `json:"participantIds"`
	LastMessage    string   `json:"lastMessage"`
	Timestamp      int64    `json:"timestamp"`
	AvatarURL      string   `json:"avatarUrl"`
}

// ID computes the deterministic chat identifier for a participant set:
// dedupe, sort lexicographically, join with the separator. The same unordered
// set always resolves to the same id, which is what substitutes for a
// server-side uniqueness constraint.
func ID(participantIDs []string) string {
	ids := slices.Clone(participantIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)
	return strings.Join(ids, IDSeparator)
}

// ToValue encodes the chat record for storage.
func (c Chat) ToValue() docstore.Value {
	participants := make([]any, len(c.ParticipantIDs))
	for i, p := range c.ParticipantIDs {
		participants[i] = p
	}
	return docstore.Value{
		"participantIds": participants,
		"lastMessage":    c.LastMessage,
		"timestamp":      c.Timestamp,
		"avatarUrl":      c.AvatarURL,
	}
}

// FromValue decodes a stored chat document keyed by id.
func FromValue(id string, v docstore.Value) Chat {
	c := Chat{ID: id}
	if raw, ok := v["participantIds"].([]any); ok {
		for _, p := range raw {
			if s, ok := p.(string); ok {
				c.ParticipantIDs = append(c.ParticipantIDs, s)
			}
		}
	}
	c.LastMessage, _ = v["lastMessage"].(string)
	c.Timestamp = toInt64(v["timestamp"])
	c.AvatarURL, _ = v["avatarUrl"].(string)
	return c
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}
