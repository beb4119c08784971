// Package views subscribes to store changes and republishes denormalized
// collections to presentation observers. Every subscription callback clears
// and fully repopulates its target collection before notifying; observers
// cannot tell "item added" from "everything changed", which is the accepted
// cost of skipping diffing entirely.
package views

import (
	"sync"

	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/cache"
	"github.com/pigeonchat/pigeon/internal/chat"
	"github.com/pigeonchat/pigeon/internal/contacts"
	"github.com/pigeonchat/pigeon/internal/docstore"
	"github.com/pigeonchat/pigeon/internal/messaging"
	"go.uber.org/zap"
)

// Manager owns the live views of a signed-in session and the store
// subscriptions behind them. Handles are tracked so teardown cancels every
// subscription; a leaked one would keep calling into a dead observer.
type Manager struct {
	store    docstore.Store
	cache    *cache.DB
	chats    *chat.Engine
	msgs     *messaging.Engine
	contacts *contacts.Engine
	bus      *bus.Bus
	logger   *zap.Logger

	mu     sync.Mutex
	open   map[int]docstore.Subscription
	nextID int
}

// NewManager creates a view manager.
func NewManager(store docstore.Store, db *cache.DB, chats *chat.Engine, msgs *messaging.Engine, contacts *contacts.Engine, b *bus.Bus, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		cache:    db,
		chats:    chats,
		msgs:     msgs,
		contacts: contacts,
		bus:      b,
		logger:   logger,
		open:     make(map[int]docstore.Subscription),
	}
}

// managedSub removes itself from the manager's registry on Cancel, so a
// watch opened and closed many times over a daemon's lifetime leaves nothing
// behind.
type managedSub struct {
	m   *Manager
	id  int
	sub docstore.Subscription
}

func (s *managedSub) Cancel() {
	s.m.mu.Lock()
	delete(s.m.open, s.id)
	s.m.mu.Unlock()
	s.sub.Cancel()
}

func (m *Manager) track(sub docstore.Subscription) docstore.Subscription {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.open[id] = sub
	m.mu.Unlock()
	return &managedSub{m: m, id: id, sub: sub}
}

// Close cancels every open subscription. Called on sign-out and on daemon
// shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	open := m.open
	m.open = make(map[int]docstore.Subscription)
	m.mu.Unlock()
	for _, sub := range open {
		sub.Cancel()
	}
	if len(open) > 0 {
		m.logger.Info("view subscriptions canceled", zap.Int("count", len(open)))
	}
}
