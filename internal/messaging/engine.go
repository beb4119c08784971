package messaging

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/docstore"
	"github.com/pigeonchat/pigeon/internal/sticker"
	"go.uber.org/zap"
)

// ErrEmptyMessage is a local validation failure; nothing reaches the store.
var ErrEmptyMessage = errors.New("messaging: empty message text")

// Engine appends messages to chat logs and maintains each chat's
// denormalized last-message summary.
type Engine struct {
	store  docstore.Store
	ledger *sticker.Ledger
	bus    *bus.Bus
	logger *zap.Logger
}

// NewEngine creates a messaging engine.
func NewEngine(store docstore.Store, ledger *sticker.Ledger, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{store: store, ledger: ledger, bus: b, logger: logger}
}

// SendText appends a text message and updates the chat summary. Message
// write and summary update are two sequential writes with no multi-path
// atomicity: a failure after the first leaves a message without a summary
// update, and no rollback is attempted. Every failure is terminal for this
// attempt; retry is the user's.
func (e *Engine) SendText(ctx context.Context, chatID, senderID, text string) (*Message, error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}
	msg := Message{
		ChatID:    chatID,
		ID:        e.store.GenerateChildKey(docstore.MessagesPath(chatID)),
		SenderID:  senderID,
		Timestamp: time.Now().UnixMilli(),
		Kind:      KindText,
		Text:      text,
	}
	return e.deliver(ctx, msg)
}

// SendSticker counts the usage first and only then appends the message: the
// usage increment is a precondition of sending, not a side effect. An
// aborted or failed increment means no message is sent. The sticker id need
// not exist in any catalog; pricing unknown ids is the cost report's
// problem.
func (e *Engine) SendSticker(ctx context.Context, chatID, senderID, stickerID string) (*Message, error) {
	if stickerID == "" {
		return nil, ErrEmptyMessage
	}
	if err := e.ledger.IncrementUsage(ctx, senderID, stickerID); err != nil {
		e.bus.Emit(bus.KindMessageSendFailed, SendFailure{ChatID: chatID, Err: err.Error()})
		return nil, fmt.Errorf("sticker usage precondition: %w", err)
	}
	msg := Message{
		ChatID:    chatID,
		ID:        e.store.GenerateChildKey(docstore.MessagesPath(chatID)),
		SenderID:  senderID,
		Timestamp: time.Now().UnixMilli(),
		Kind:      KindSticker,
		StickerID: stickerID,
	}
	return e.deliver(ctx, msg)
}

func (e *Engine) deliver(ctx context.Context, msg Message) (*Message, error) {
	if err := e.store.Write(ctx, docstore.MessagePath(msg.ChatID, msg.ID), msg.ToValue()); err != nil {
		e.bus.Emit(bus.KindMessageSendFailed, SendFailure{ChatID: msg.ChatID, Err: err.Error()})
		return nil, fmt.Errorf("write message: %w", err)
	}
	err := e.store.UpdateFields(ctx, docstore.ChatPath(msg.ChatID), docstore.Value{
		"lastMessage": msg.Summary(),
		"timestamp":   msg.Timestamp,
	})
	if err != nil {
		// The message is already in the log; the stale summary stays until
		// the next successful send.
		e.bus.Emit(bus.KindMessageSendFailed, SendFailure{ChatID: msg.ChatID, Err: err.Error()})
		return nil, fmt.Errorf("update chat summary: %w", err)
	}

	e.logger.Info("message sent",
		zap.String("chat_id", msg.ChatID),
		zap.String("message_id", msg.ID),
		zap.String("kind", msg.Kind))
	e.bus.Emit(bus.KindMessageSent, msg)
	return &msg, nil
}

// SendFailure is the payload of message.send_failed events.
type SendFailure struct {
	ChatID string `json:"chatId"`
	Err    string `json:"error"`
}

// Messages reads a chat's full message log once, sorted by timestamp then
// id. This is a plain collection read with no subscription behind it, so it
// is safe for request/response callers that must not wait on listener
// delivery.
func (e *Engine) Messages(ctx context.Context, chatID string) ([]Message, error) {
	children, err := e.store.ReadChildren(ctx, docstore.MessagesPath(chatID))
	if err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return decodeMessages(chatID, children), nil
}

// LoadMessages subscribes to a chat's message log. Every snapshot rebuilds
// the entire list from scratch, sorted by timestamp then id; there is no
// diffing. The returned handle must be canceled when the observer goes away.
func (e *Engine) LoadMessages(chatID string, onSnapshot func([]Message)) (docstore.Subscription, error) {
	return e.store.SubscribeChildren(docstore.MessagesPath(chatID), func(snap docstore.Snapshot) {
		onSnapshot(decodeMessages(chatID, snap.Children))
	})
}

func decodeMessages(chatID string, children []docstore.Child) []Message {
	msgs := make([]Message, 0, len(children))
	for _, c := range children {
		msgs = append(msgs, FromValue(chatID, c.Key, c.Value))
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
	return msgs
}
