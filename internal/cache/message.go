package cache

import "time"

// Message is one cached message-log row.
type Message struct {
	ID        int64
	ChatID    string
	MessageID string
	SenderID  string
	Kind      string
	Body      string
	StickerID string
	Timestamp int64
}

// UpsertMessage inserts or updates a message (idempotent on chat_id + message_id).
func (db *DB) UpsertMessage(m *Message) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO messages (chat_id, message_id, sender_id, kind, body, sticker_id, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id, message_id) DO UPDATE SET
			sender_id = excluded.sender_id,
			kind = excluded.kind,
			body = excluded.body,
			sticker_id = excluded.sticker_id,
			timestamp = excluded.timestamp`,
		m.ChatID, m.MessageID, m.SenderID, m.Kind, m.Body, m.StickerID, m.Timestamp, now)
	return err
}

// ListMessages returns a chat's cached log ordered by timestamp ascending.
func (db *DB) ListMessages(chatID string) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, chat_id, message_id, sender_id, kind, body, sticker_id, timestamp
		FROM messages
		WHERE chat_id = ?
		ORDER BY timestamp ASC, message_id ASC`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.MessageID, &m.SenderID, &m.Kind, &m.Body, &m.StickerID, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MessageCount returns the number of cached messages for a chat.
func (db *DB) MessageCount(chatID string) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID).Scan(&count)
	return count, err
}
