package sticker

import (
	"context"
	"fmt"

	"github.com/pigeonchat/pigeon/internal/docstore"
	"go.uber.org/zap"
)

// Usage is one per-user sticker usage count, stored in the "stickers" field
// of the user document. Two usages are the same iff their sticker ids match;
// the count is not part of identity.
type Usage struct {
	StickerID string `json:"stickerId"`
	Count     int    `json:"count"`
}

// Ledger tracks per-user sticker usage counts.
type Ledger struct {
	store  docstore.Store
	logger *zap.Logger
}

// NewLedger creates a sticker ledger over the given store.
func NewLedger(store docstore.Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// IncrementUsage atomically increments the owner's usage count for
// stickerID, inserting a fresh entry at count 1 when absent. The update is
// the one store operation protected by single-path optimistic concurrency:
// N concurrent increments yield exactly N counted uses, no lost updates.
func (l *Ledger) IncrementUsage(ctx context.Context, ownerID, stickerID string) error {
	err := l.store.TransactionalUpdate(ctx, docstore.UserPath(ownerID), func(cur docstore.Value) (docstore.Value, error) {
		if cur == nil {
			return nil, fmt.Errorf("owner %s has no profile", ownerID)
		}
		list, _ := cur["stickers"].([]any)
		for _, raw := range list {
			entry, ok := raw.(docstore.Value)
			if !ok {
				continue
			}
			if entry["stickerId"] == stickerID {
				entry["count"] = toInt(entry["count"]) + 1
				return cur, nil
			}
		}
		cur["stickers"] = append(list, docstore.Value{
			"stickerId": stickerID,
			"count":     1,
		})
		return cur, nil
	})
	if err != nil {
		return fmt.Errorf("increment sticker usage: %w", err)
	}
	l.logger.Debug("sticker usage incremented",
		zap.String("owner", ownerID), zap.String("sticker", stickerID))
	return nil
}

// Usages reads the owner's usage counts. An absent owner or empty list both
// return nil.
func (l *Ledger) Usages(ctx context.Context, ownerID string) ([]Usage, error) {
	v, err := l.store.ReadOnce(ctx, docstore.UserPath(ownerID))
	if err != nil {
		return nil, fmt.Errorf("read sticker usages: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	list, _ := v["stickers"].([]any)
	var out []Usage
	for _, raw := range list {
		entry, ok := raw.(docstore.Value)
		if !ok {
			continue
		}
		id, _ := entry["stickerId"].(string)
		if id == "" {
			continue
		}
		out = append(out, Usage{StickerID: id, Count: toInt(entry["count"])})
	}
	return out, nil
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}
