package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-process implementation of Store with the same semantics
// as the hosted backend: last write wins, per-path optimistic concurrency,
// listener fan-out on every change. It backs the "memory" configuration and
// serves as the injectable double in engine tests.
type MemStore struct {
	mu       sync.Mutex
	docs     map[string]Value
	versions map[string]uint64
	seq      uint64
	subs     map[int]*memSub
	nextSub  int
}

var _ Store = (*MemStore)(nil)

type memSub struct {
	store    *MemStore
	id       int
	path     string
	children bool
	fn       func(Snapshot)

	// Deliveries are ordered per subscriber by store sequence number. A
	// snapshot older than one already delivered is dropped: full-rebuild
	// observers must never regress to stale state.
	deliverMu sync.Mutex
	fired     bool
	lastSeq   uint64
}

func (s *memSub) Cancel() {
	s.store.mu.Lock()
	delete(s.store.subs, s.id)
	s.store.mu.Unlock()
}

func (s *memSub) deliver(seq uint64, snap Snapshot) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.fired && seq <= s.lastSeq {
		return
	}
	s.fired = true
	s.lastSeq = seq
	s.fn(snap)
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		docs:     make(map[string]Value),
		versions: make(map[string]uint64),
		subs:     make(map[int]*memSub),
	}
}

func (m *MemStore) ReadOnce(_ context.Context, path string) (Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.docs[path]
	if !ok {
		return nil, nil
	}
	return cloneValue(v), nil
}

func (m *MemStore) ReadChildren(_ context.Context, path string) ([]Child, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.childrenLocked(path), nil
}

func (m *MemStore) QueryEqual(_ context.Context, path, field string, value any) ([]Child, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Child
	for _, c := range m.childrenLocked(path) {
		if c.Value[field] == value {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemStore) Subscribe(path string, fn func(Snapshot)) (Subscription, error) {
	sub, seq, snap := m.register(path, false, fn)
	sub.deliver(seq, snap)
	return sub, nil
}

func (m *MemStore) SubscribeChildren(path string, fn func(Snapshot)) (Subscription, error) {
	sub, seq, snap := m.register(path, true, fn)
	sub.deliver(seq, snap)
	return sub, nil
}

func (m *MemStore) register(path string, children bool, fn func(Snapshot)) (*memSub, uint64, Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := &memSub{store: m, id: m.nextSub, path: path, children: children, fn: fn}
	m.subs[sub.id] = sub
	m.nextSub++
	return sub, m.seq, m.snapshotLocked(path, children)
}

func (m *MemStore) Write(_ context.Context, path string, v Value) error {
	m.mu.Lock()
	m.docs[path] = cloneValue(v)
	m.versions[path]++
	pending := m.affectedLocked(path)
	m.mu.Unlock()
	m.deliver(pending)
	return nil
}

func (m *MemStore) UpdateFields(_ context.Context, path string, fields Value) error {
	m.mu.Lock()
	doc, ok := m.docs[path]
	if !ok {
		doc = Value{}
	}
	for k, v := range fields {
		doc[k] = cloneAny(v)
	}
	m.docs[path] = doc
	m.versions[path]++
	pending := m.affectedLocked(path)
	m.mu.Unlock()
	m.deliver(pending)
	return nil
}

func (m *MemStore) GenerateChildKey(_ string) string {
	return uuid.NewString()
}

func (m *MemStore) TransactionalUpdate(ctx context.Context, path string, mutate func(Value) (Value, error)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.mu.Lock()
		ver := m.versions[path]
		var cur Value
		if doc, ok := m.docs[path]; ok {
			cur = cloneValue(doc)
		}
		m.mu.Unlock()

		next, err := mutate(cur)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAborted, err)
		}

		m.mu.Lock()
		if m.versions[path] != ver {
			// Conflicting write landed between read and commit; retry
			// against the fresh value.
			m.mu.Unlock()
			continue
		}
		m.docs[path] = cloneValue(next)
		m.versions[path]++
		pending := m.affectedLocked(path)
		m.mu.Unlock()
		m.deliver(pending)
		return nil
	}
}

type pendingNotify struct {
	sub  *memSub
	seq  uint64
	snap Snapshot
}

// affectedLocked collects the subscriptions touched by a mutation of the
// document at path, with their fresh snapshots stamped with the mutation's
// sequence number.
func (m *MemStore) affectedLocked(path string) []pendingNotify {
	m.seq++
	parent := parentPath(path)
	var out []pendingNotify
	for _, sub := range m.subs {
		switch {
		case !sub.children && sub.path == path:
			out = append(out, pendingNotify{sub, m.seq, m.snapshotLocked(sub.path, false)})
		case sub.children && sub.path == parent:
			out = append(out, pendingNotify{sub, m.seq, m.snapshotLocked(sub.path, true)})
		}
	}
	return out
}

// deliver runs callbacks outside the store lock, on the mutating goroutine.
// Callbacks must not block.
func (m *MemStore) deliver(pending []pendingNotify) {
	for _, p := range pending {
		p.sub.deliver(p.seq, p.snap)
	}
}

func (m *MemStore) snapshotLocked(path string, children bool) Snapshot {
	if children {
		return Snapshot{Path: path, Children: m.childrenLocked(path)}
	}
	var v Value
	if doc, ok := m.docs[path]; ok {
		v = cloneValue(doc)
	}
	return Snapshot{Path: path, Value: v}
}

func (m *MemStore) childrenLocked(path string) []Child {
	prefix := path + Sep
	var out []Child
	for k, v := range m.docs {
		rest, ok := strings.CutPrefix(k, prefix)
		if !ok || strings.Contains(rest, Sep) {
			continue
		}
		out = append(out, Child{Key: rest, Value: cloneValue(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func parentPath(path string) string {
	i := strings.LastIndex(path, Sep)
	if i < 0 {
		return ""
	}
	return path[:i]
}

func cloneValue(v Value) Value {
	if v == nil {
		return nil
	}
	out := make(Value, len(v))
	for k, val := range v {
		out[k] = cloneAny(val)
	}
	return out
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case Value:
		return cloneValue(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneAny(e)
		}
		return out
	default:
		return v
	}
}
