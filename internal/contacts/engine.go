package contacts

import (
	"context"
	"fmt"
	"sync"

	"github.com/pigeonchat/pigeon/internal/docstore"
	"github.com/pigeonchat/pigeon/internal/identity"
	"go.uber.org/zap"
)

// Engine maintains per-user contact references and resolves them into full
// profile records.
type Engine struct {
	store  docstore.Store
	logger *zap.Logger
}

// NewEngine creates a contact directory engine.
func NewEngine(store docstore.Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger}
}

// Add appends contactID to the owner's contact list. The append is a
// transactional update on the owner's user document, so concurrent additions
// from other sessions cannot drop each other; adding an id that is already
// present is a no-op, leaving exactly one occurrence.
func (e *Engine) Add(ctx context.Context, ownerID, contactID string) error {
	if contactID == "" || contactID == ownerID {
		return fmt.Errorf("contacts: invalid contact id %q", contactID)
	}
	err := e.store.TransactionalUpdate(ctx, docstore.UserPath(ownerID), func(cur docstore.Value) (docstore.Value, error) {
		if cur == nil {
			return nil, fmt.Errorf("owner %s has no profile", ownerID)
		}
		list, _ := cur["contacts"].([]any)
		for _, c := range list {
			if c == contactID {
				return cur, nil
			}
		}
		cur["contacts"] = append(list, contactID)
		return cur, nil
	})
	if err != nil {
		return fmt.Errorf("add contact: %w", err)
	}
	e.logger.Info("contact added", zap.String("owner", ownerID), zap.String("contact", contactID))
	return nil
}

// SearchByUsername returns users whose username exactly matches the query.
// No fuzzy or partial matching.
func (e *Engine) SearchByUsername(ctx context.Context, username string) ([]identity.User, error) {
	if username == "" {
		return nil, nil
	}
	children, err := e.store.QueryEqual(ctx, docstore.UsersPath(), "username", username)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	users := make([]identity.User, 0, len(children))
	for _, c := range children {
		users = append(users, identity.UserFromValue(c.Value))
	}
	return users, nil
}

// Resolve reads the owner's contact list once, then fans out one profile
// read per id, invoking onContact as each resolves. Arrival order is
// non-deterministic; callbacks are serialized. A contact whose profile read
// fails is logged and skipped, matching the view's tolerance for dangling
// references.
func (e *Engine) Resolve(ctx context.Context, ownerID string, onContact func(identity.User)) error {
	owner, err := e.store.ReadOnce(ctx, docstore.UserPath(ownerID))
	if err != nil {
		return fmt.Errorf("read owner: %w", err)
	}
	if owner == nil {
		return nil
	}
	ids := identity.UserFromValue(owner).Contacts

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			v, err := e.store.ReadOnce(ctx, docstore.UserPath(id))
			if err != nil {
				e.logger.Warn("contact resolution failed", zap.String("contact", id), zap.Error(err))
				return
			}
			if v == nil {
				return
			}
			u := identity.UserFromValue(v)
			mu.Lock()
			onContact(u)
			mu.Unlock()
		}(id)
	}
	wg.Wait()
	return nil
}
