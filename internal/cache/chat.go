package cache

import (
	"database/sql"
	"time"
)

// ChatSummary is one denormalized chat-list row, viewer-relative: the
// display name is the one resolved for the profile's signed-in user.
type ChatSummary struct {
	ChatID      string
	DisplayName string
	LastMessage string
	AvatarURL   string
	Timestamp   int64
}

// UpsertChatSummary inserts or updates a chat-list row.
func (db *DB) UpsertChatSummary(c *ChatSummary) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO chat_summaries (chat_id, display_name, last_message, avatar_url, timestamp, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			display_name = excluded.display_name,
			last_message = excluded.last_message,
			avatar_url = excluded.avatar_url,
			timestamp = excluded.timestamp,
			updated_at = excluded.updated_at`,
		c.ChatID, c.DisplayName, c.LastMessage, c.AvatarURL, c.Timestamp, now)
	return err
}

// ListChatSummaries returns chats sorted by last message timestamp descending.
func (db *DB) ListChatSummaries() ([]ChatSummary, error) {
	rows, err := db.Query(`
		SELECT chat_id, display_name, last_message, avatar_url, timestamp
		FROM chat_summaries
		ORDER BY timestamp DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []ChatSummary
	for rows.Next() {
		var c ChatSummary
		if err := rows.Scan(&c.ChatID, &c.DisplayName, &c.LastMessage, &c.AvatarURL, &c.Timestamp); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChatSummary returns a single row by chat id, nil when absent.
func (db *DB) GetChatSummary(chatID string) (*ChatSummary, error) {
	var c ChatSummary
	err := db.QueryRow(`
		SELECT chat_id, display_name, last_message, avatar_url, timestamp
		FROM chat_summaries WHERE chat_id = ?`, chatID).
		Scan(&c.ChatID, &c.DisplayName, &c.LastMessage, &c.AvatarURL, &c.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteChatSummaries clears rows absent from the keep set. The view layer
// calls this after a full rebuild so chats the viewer left no longer linger.
func (db *DB) DeleteChatSummaries(keep []string) error {
	existing, err := db.ListChatSummaries()
	if err != nil {
		return err
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	for _, c := range existing {
		if _, ok := keepSet[c.ChatID]; ok {
			continue
		}
		if _, err := db.Exec(`DELETE FROM chat_summaries WHERE chat_id = ?`, c.ChatID); err != nil {
			return err
		}
	}
	return nil
}
