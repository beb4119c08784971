package docstore

import (
	"context"
	"errors"
)

// Value is a document's field map as stored in the backend.
type Value = map[string]any

// Child is one document inside a collection, keyed by its final path segment.
type Child struct {
	Key   string
	Value Value
}

// Snapshot is delivered to subscribers. Exactly one of Value or Children is
// meaningful depending on whether the subscription targets a document or a
// collection of children.
type Snapshot struct {
	Path     string
	Value    Value
	Children []Child
}

// Subscription is the handle returned by every subscribe call. The owning
// component must call Cancel when its lifecycle ends; a leaked subscription
// keeps consuming store bandwidth and can call back into a dead observer.
type Subscription interface {
	Cancel()
}

// ErrAborted is returned by TransactionalUpdate when the mutator refuses the
// current value.
var ErrAborted = errors.New("docstore: transaction aborted")

// Store is the contract with the hosted document database. All failures are
// generic: callers treat them as terminal for the attempt, there is no retry
// policy above this interface.
//
// ReadOnce returns (nil, nil) for an absent path; absence and an empty
// collection are indistinguishable to callers.
type Store interface {
	ReadOnce(ctx context.Context, path string) (Value, error)
	ReadChildren(ctx context.Context, path string) ([]Child, error)

	// QueryEqual returns the children of a collection whose named field
	// exactly equals value. No fuzzy or partial matching.
	QueryEqual(ctx context.Context, path, field string, value any) ([]Child, error)

	// Subscribe fires fn once immediately with the current document value,
	// then on every subsequent change until the subscription is canceled.
	Subscribe(path string, fn func(Snapshot)) (Subscription, error)

	// SubscribeChildren is Subscribe for a collection: every fire carries the
	// full child set, not a diff.
	SubscribeChildren(path string, fn func(Snapshot)) (Subscription, error)

	Write(ctx context.Context, path string, v Value) error

	// UpdateFields merges the named fields into the document at path without
	// clobbering sibling fields. The document is created if absent.
	UpdateFields(ctx context.Context, path string, fields Value) error

	// GenerateChildKey returns an opaque key unique within the collection at
	// path. It performs no I/O.
	GenerateChildKey(path string) string

	// TransactionalUpdate applies mutate exactly once against the value
	// present at commit time, retrying internally on conflict. Optimistic
	// concurrency holds per single path only; there is no multi-path
	// atomicity anywhere in this contract. A nil current value means the
	// document is absent. Mutator errors abort the transaction and surface
	// wrapped in ErrAborted.
	TransactionalUpdate(ctx context.Context, path string, mutate func(Value) (Value, error)) error
}
