package views

import (
	"sync"

	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/cache"
	"github.com/pigeonchat/pigeon/internal/docstore"
	"github.com/pigeonchat/pigeon/internal/messaging"
	"go.uber.org/zap"
)

// Notification is the payload of notify.message events, one per newly
// observed message from another sender. Delivering it to the platform
// notification service is someone else's job.
type Notification struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	SenderID  string `json:"senderId"`
	Preview   string `json:"preview"`
}

// WatchMessages keeps a live message list for one chat. Every store fan-out
// rebuilds the entire local list from the snapshot, with no incremental
// diffing, then notifies. Messages not seen before that come from another
// sender additionally raise notify.message events; the initial snapshot is
// exempt so opening an old chat does not replay its history as
// notifications.
func (m *Manager) WatchMessages(viewerID, chatID string, onUpdate func([]messaging.Message)) (docstore.Subscription, error) {
	var (
		mu    sync.Mutex
		seen  = make(map[string]struct{})
		first = true
	)

	sub, err := m.msgs.LoadMessages(chatID, func(msgs []messaging.Message) {
		mu.Lock()
		initial := first
		first = false
		var fresh []messaging.Message
		for _, msg := range msgs {
			if _, ok := seen[msg.ID]; ok {
				continue
			}
			seen[msg.ID] = struct{}{}
			fresh = append(fresh, msg)
		}
		mu.Unlock()

		for _, msg := range fresh {
			if err := m.cache.UpsertMessage(&cache.Message{
				ChatID:    msg.ChatID,
				MessageID: msg.ID,
				SenderID:  msg.SenderID,
				Kind:      msg.Kind,
				Body:      msg.Text,
				StickerID: msg.StickerID,
				Timestamp: msg.Timestamp,
			}); err != nil {
				m.logger.Error("message upsert failed",
					zap.String("message_id", msg.ID), zap.Error(err))
			}
			if !initial && msg.SenderID != viewerID {
				m.bus.Emit(bus.KindNotifyMessage, Notification{
					ChatID:    msg.ChatID,
					MessageID: msg.ID,
					SenderID:  msg.SenderID,
					Preview:   msg.Summary(),
				})
			}
		}

		m.bus.Emit(bus.KindMessagesView, msgs)
		if onUpdate != nil {
			onUpdate(msgs)
		}
	})
	if err != nil {
		return nil, err
	}
	return m.track(sub), nil
}
