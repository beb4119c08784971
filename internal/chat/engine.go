package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pigeonchat/pigeon/internal/docstore"
	"github.com/pigeonchat/pigeon/internal/identity"
	"go.uber.org/zap"
)

// Engine derives chat identity and resolves viewer-relative display names.
type Engine struct {
	store  docstore.Store
	logger *zap.Logger
}

// NewEngine creates a chat engine over the given store.
func NewEngine(store docstore.Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// FindOrCreate resolves the chat for a participant set, creating the record
// on first contact. The caller's id is always part of the set. Idempotent:
// two callers racing on the same set converge on the same chat id, and the
// second read-then-write at worst rewrites an identical record (last write
// wins, no data diverges).
func (e *Engine) FindOrCreate(ctx context.Context, callerID string, participantIDs []string, initialText string) (string, bool, error) {
	ids := slices.Clone(participantIDs)
	if !slices.Contains(ids, callerID) {
		ids = append(ids, callerID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)
	chatID := strings.Join(ids, IDSeparator)

	existing, err := e.store.ReadOnce(ctx, docstore.ChatPath(chatID))
	if err != nil {
		return "", false, fmt.Errorf("read chat: %w", err)
	}
	if existing != nil {
		return chatID, false, nil
	}

	// The participant profiles are read before creation so a chat only comes
	// into existence with resolvable members. The fan-in is counted with a
	// WaitGroup, never by parsing an accumulated name string: names that are
	// empty or contain the join separator must not skew completion counting.
	if _, err := e.participantNames(ctx, ids, callerID); err != nil {
		return "", false, err
	}

	record := Chat{
		ID:             chatID,
		ParticipantIDs: ids,
		LastMessage:    initialText,
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := e.store.Write(ctx, docstore.ChatPath(chatID), record.ToValue()); err != nil {
		return "", false, fmt.Errorf("create chat: %w", err)
	}

	e.logger.Info("chat created",
		zap.String("chat_id", chatID),
		zap.Int("participants", len(ids)))
	return chatID, true, nil
}

// Get reads a chat record. Absent chats return (nil, nil).
func (e *Engine) Get(ctx context.Context, chatID string) (*Chat, error) {
	v, err := e.store.ReadOnce(ctx, docstore.ChatPath(chatID))
	if err != nil {
		return nil, fmt.Errorf("read chat: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	c := FromValue(chatID, v)
	return &c, nil
}

// ResolveDisplayName derives the chat name as seen by viewerID: the names of
// the remaining participants, iterated in sorted-participant order, joined
// with ", ". A chat with no remaining participants resolves to SelfChatName.
func (e *Engine) ResolveDisplayName(ctx context.Context, participantIDs []string, viewerID string) (string, error) {
	others := slices.Clone(participantIDs)
	slices.Sort(others)
	others = slices.Compact(others)
	others = slices.DeleteFunc(others, func(id string) bool { return id == viewerID })
	if len(others) == 0 {
		return SelfChatName, nil
	}

	names, err := e.participantNames(ctx, others, "")
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(others))
	for _, id := range others {
		parts = append(parts, names[id])
	}
	return strings.Join(parts, ", "), nil
}

// participantNames fans out one profile read per id (skipping skipID) and
// fans the results back in. A participant without a profile record falls
// back to its raw id so a single dangling reference cannot wedge chat
// creation.
func (e *Engine) participantNames(ctx context.Context, ids []string, skipID string) (map[string]string, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		names    = make(map[string]string, len(ids))
		firstErr error
	)
	for _, id := range ids {
		if id == skipID {
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			v, err := e.store.ReadOnce(ctx, docstore.UserPath(id))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("read participant %s: %w", id, err)
				}
				return
			}
			if v == nil {
				e.logger.Debug("participant has no profile", zap.String("user_id", id))
				names[id] = id
				return
			}
			names[id] = identity.UserFromValue(v).Name
		}(id)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return names, nil
}
