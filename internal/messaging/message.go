package messaging

import (
	"strings"

	"github.com/pigeonchat/pigeon/internal/docstore"
)

// Message content kinds.
const (
	KindText    = "text"
	KindSticker = "sticker"
)

// StickerMarker prefixes a chat summary that encodes a sticker reference
// rather than literal preview text.
const StickerMarker = "sticker:"

// Message is an immutable entry in a chat's message log. The chat id is a
// parent reference; the chat owns the log.
type Message struct {
	ChatID    string `json:"chatId"`
	ID        string `json:"messageId"`
	SenderID  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
	Kind      string `json:"kind"`
	Text      string `json:"text,omitempty"`
	StickerID string `json:"stickerId,omitempty"`
}

// Summary returns the chat's lastMessage preview for this message: the text
// itself, or the marker-prefixed sticker reference.
func (m Message) Summary() string {
	if m.Kind == KindSticker {
		return StickerSummary(m.StickerID)
	}
	return m.Text
}

// StickerSummary encodes a sticker id for the lastMessage field.
func StickerSummary(stickerID string) string {
	return StickerMarker + stickerID
}

// ParseStickerSummary reports whether a summary string encodes a sticker
// reference, and the id if so.
func ParseStickerSummary(summary string) (string, bool) {
	return strings.CutPrefix(summary, StickerMarker)
}

// ToValue encodes the message for storage.
func (m Message) ToValue() docstore.Value {
	v := docstore.Value{
		"chatId":    m.ChatID,
		"messageId": m.ID,
		"senderId":  m.SenderID,
		"timestamp": m.Timestamp,
		"kind":      m.Kind,
	}
	switch m.Kind {
	case KindSticker:
		v["stickerId"] = m.StickerID
	default:
		v["text"] = m.Text
	}
	return v
}

// FromValue decodes a stored message document keyed by id.
func FromValue(chatID, id string, v docstore.Value) Message {
	m := Message{ChatID: chatID, ID: id}
	m.SenderID, _ = v["senderId"].(string)
	m.Kind, _ = v["kind"].(string)
	m.Text, _ = v["text"].(string)
	m.StickerID, _ = v["stickerId"].(string)
	switch t := v["timestamp"].(type) {
	case int64:
		m.Timestamp = t
	case int:
		m.Timestamp = int64(t)
	case float64:
		m.Timestamp = int64(t)
	}
	return m
}
