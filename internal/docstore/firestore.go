package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FireStore implements Store against the hosted document database. Document
// paths must have even depth (alternating collection/document segments);
// the helpers in paths.go guarantee that.
type FireStore struct {
	client *firestore.Client
	logger *zap.Logger
}

var _ Store = (*FireStore)(nil)

// NewFireStore wraps an authenticated client.
func NewFireStore(client *firestore.Client, logger *zap.Logger) *FireStore {
	return &FireStore{client: client, logger: logger}
}

func (f *FireStore) ReadOnce(ctx context.Context, path string) (Value, error) {
	snap, err := f.client.Doc(path).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return snap.Data(), nil
}

func (f *FireStore) ReadChildren(ctx context.Context, path string) ([]Child, error) {
	return drain(path, f.client.Collection(path).Documents(ctx))
}

func (f *FireStore) QueryEqual(ctx context.Context, path, field string, value any) ([]Child, error) {
	it := f.client.Collection(path).Where(field, "==", value).Documents(ctx)
	return drain(path, it)
}

func drain(path string, it *firestore.DocumentIterator) ([]Child, error) {
	defer it.Stop()
	var out []Child
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", path, err)
		}
		out = append(out, Child{Key: snap.Ref.ID, Value: snap.Data()})
	}
}

type fsSub struct {
	cancel context.CancelFunc
}

func (s *fsSub) Cancel() { s.cancel() }

func (f *FireStore) Subscribe(path string, fn func(Snapshot)) (Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())
	it := f.client.Doc(path).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil {
					f.logger.Warn("document subscription ended",
						zap.String("path", path), zap.Error(err))
				}
				return
			}
			var v Value
			if snap.Exists() {
				v = snap.Data()
			}
			fn(Snapshot{Path: path, Value: v})
		}
	}()

	return &fsSub{cancel: cancel}, nil
}

func (f *FireStore) SubscribeChildren(path string, fn func(Snapshot)) (Subscription, error) {
	ctx, cancel := context.WithCancel(context.Background())
	it := f.client.Collection(path).Snapshots(ctx)

	go func() {
		defer it.Stop()
		for {
			qs, err := it.Next()
			if err != nil {
				if ctx.Err() == nil {
					f.logger.Warn("collection subscription ended",
						zap.String("path", path), zap.Error(err))
				}
				return
			}
			children, err := drain(path, qs.Documents)
			if err != nil {
				f.logger.Warn("collection snapshot read failed",
					zap.String("path", path), zap.Error(err))
				continue
			}
			fn(Snapshot{Path: path, Children: children})
		}
	}()

	return &fsSub{cancel: cancel}, nil
}

func (f *FireStore) Write(ctx context.Context, path string, v Value) error {
	if _, err := f.client.Doc(path).Set(ctx, v); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (f *FireStore) UpdateFields(ctx context.Context, path string, fields Value) error {
	if _, err := f.client.Doc(path).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (f *FireStore) GenerateChildKey(path string) string {
	return f.client.Collection(path).NewDoc().ID
}

func (f *FireStore) TransactionalUpdate(ctx context.Context, path string, mutate func(Value) (Value, error)) error {
	ref := f.client.Doc(path)
	var aborted error
	err := f.client.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		var cur Value
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil && snap.Exists() {
			cur = snap.Data()
		}
		next, err := mutate(cur)
		if err != nil {
			aborted = err
			return err
		}
		return tx.Set(ref, next)
	})
	if aborted != nil {
		return fmt.Errorf("%w: %v", ErrAborted, aborted)
	}
	if err != nil {
		return fmt.Errorf("transactional update %s: %w", path, err)
	}
	return nil
}
