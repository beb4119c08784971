package views

import (
	"context"
	"slices"
	"sync"

	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/identity"
)

// LoadContacts resolves the owner's contact list once. The outer list is a
// snapshot read, but profile records arrive incrementally: onUpdate is
// invoked with the full accumulated list on every arrival, in
// non-deterministic order. It returns once every profile read has settled.
func (m *Manager) LoadContacts(ctx context.Context, ownerID string, onUpdate func([]identity.User)) error {
	var (
		mu  sync.Mutex
		acc []identity.User
	)
	return m.contacts.Resolve(ctx, ownerID, func(u identity.User) {
		mu.Lock()
		acc = append(acc, u)
		snapshot := slices.Clone(acc)
		mu.Unlock()

		m.bus.Emit(bus.KindContactsView, snapshot)
		if onUpdate != nil {
			onUpdate(snapshot)
		}
	})
}
