package views

import (
	"context"
	"slices"
	"sort"

	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/cache"
	"github.com/pigeonchat/pigeon/internal/chat"
	"github.com/pigeonchat/pigeon/internal/docstore"
	"go.uber.org/zap"
)

// ChatRow is one entry of the viewer's chat list.
type ChatRow struct {
	ChatID      string `json:"chatId"`
	DisplayName string `json:"displayName"`
	LastMessage string `json:"lastMessage"`
	AvatarURL   string `json:"avatarUrl"`
	Timestamp   int64  `json:"timestamp"`
}

// ChatList reads the viewer's chat list once: membership filter,
// viewer-relative display names, newest activity first. Same shape WatchChats
// maintains live, but built from a plain collection read so request/response
// callers never wait on listener delivery.
func (m *Manager) ChatList(ctx context.Context, viewerID string) ([]ChatRow, error) {
	children, err := m.store.ReadChildren(ctx, docstore.ChatsPath())
	if err != nil {
		return nil, err
	}
	return m.buildChatRows(ctx, viewerID, children), nil
}

// WatchChats keeps a live chat list for viewerID. Every store fan-out
// rebuilds the whole list: chats not containing the viewer are dropped,
// display names are re-derived for the viewer, rows are materialized into
// the local cache, and onUpdate receives the fresh list. The returned handle
// is tracked by the manager until canceled.
func (m *Manager) WatchChats(viewerID string, onUpdate func([]ChatRow)) (docstore.Subscription, error) {
	sub, err := m.store.SubscribeChildren(docstore.ChatsPath(), func(snap docstore.Snapshot) {
		rows := m.buildChatRows(context.Background(), viewerID, snap.Children)

		m.materializeChats(rows)
		m.bus.Emit(bus.KindChatsView, rows)
		if onUpdate != nil {
			onUpdate(rows)
		}
	})
	if err != nil {
		return nil, err
	}
	return m.track(sub), nil
}

func (m *Manager) buildChatRows(ctx context.Context, viewerID string, children []docstore.Child) []ChatRow {
	rows := make([]ChatRow, 0, len(children))
	for _, child := range children {
		c := chat.FromValue(child.Key, child.Value)
		if !slices.Contains(c.ParticipantIDs, viewerID) {
			continue
		}
		name, err := m.chats.ResolveDisplayName(ctx, c.ParticipantIDs, viewerID)
		if err != nil {
			m.logger.Warn("display name resolution failed",
				zap.String("chat_id", c.ID), zap.Error(err))
			name = c.ID
		}
		rows = append(rows, ChatRow{
			ChatID:      c.ID,
			DisplayName: name,
			LastMessage: c.LastMessage,
			AvatarURL:   c.AvatarURL,
			Timestamp:   c.Timestamp,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp > rows[j].Timestamp })
	return rows
}

func (m *Manager) materializeChats(rows []ChatRow) {
	keep := make([]string, 0, len(rows))
	for _, r := range rows {
		keep = append(keep, r.ChatID)
		err := m.cache.UpsertChatSummary(&cache.ChatSummary{
			ChatID:      r.ChatID,
			DisplayName: r.DisplayName,
			LastMessage: r.LastMessage,
			AvatarURL:   r.AvatarURL,
			Timestamp:   r.Timestamp,
		})
		if err != nil {
			m.logger.Error("chat summary upsert failed",
				zap.String("chat_id", r.ChatID), zap.Error(err))
		}
	}
	if err := m.cache.DeleteChatSummaries(keep); err != nil {
		m.logger.Error("chat summary prune failed", zap.Error(err))
	}
}
