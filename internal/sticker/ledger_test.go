package sticker

import (
	"context"
	"sync"
	"testing"

	"github.com/pigeonchat/pigeon/internal/docstore"
	"go.uber.org/zap"
)

func seedOwner(t *testing.T, s docstore.Store, id string) {
	t.Helper()
	if err := s.Write(context.Background(), docstore.UserPath(id), docstore.Value{"name": "Alice"}); err != nil {
		t.Fatal(err)
	}
}

func usageFor(usages []Usage, stickerID string) int {
	for _, u := range usages {
		if u.StickerID == stickerID {
			return u.Count
		}
	}
	return 0
}

func TestIncrementCreatesEntry(t *testing.T) {
	s := docstore.NewMemStore()
	l := NewLedger(s, zap.NewNop())
	ctx := context.Background()
	seedOwner(t, s, "u1")

	if err := l.IncrementUsage(ctx, "u1", "1"); err != nil {
		t.Fatal(err)
	}
	usages, err := l.Usages(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if usageFor(usages, "1") != 1 {
		t.Fatalf("expected count 1, got %v", usages)
	}
}

func TestIncrementAccumulates(t *testing.T) {
	s := docstore.NewMemStore()
	l := NewLedger(s, zap.NewNop())
	ctx := context.Background()
	seedOwner(t, s, "u1")

	for i := 0; i < 3; i++ {
		if err := l.IncrementUsage(ctx, "u1", "2"); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.IncrementUsage(ctx, "u1", "3"); err != nil {
		t.Fatal(err)
	}

	usages, err := l.Usages(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if usageFor(usages, "2") != 3 {
		t.Fatalf("expected count 3 for sticker 2, got %v", usages)
	}
	if usageFor(usages, "3") != 1 {
		t.Fatalf("expected count 1 for sticker 3, got %v", usages)
	}
	if len(usages) != 2 {
		t.Fatalf("expected exactly one entry per sticker id, got %v", usages)
	}
}

func TestIncrementUnknownOwner(t *testing.T) {
	s := docstore.NewMemStore()
	l := NewLedger(s, zap.NewNop())

	if err := l.IncrementUsage(context.Background(), "ghost", "1"); err == nil {
		t.Fatal("expected error for owner without profile")
	}
}

func TestConcurrentIncrementsAllCount(t *testing.T) {
	s := docstore.NewMemStore()
	l := NewLedger(s, zap.NewNop())
	ctx := context.Background()
	seedOwner(t, s, "u1")

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if err := l.IncrementUsage(ctx, "u1", "1"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	usages, err := l.Usages(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got := usageFor(usages, "1"); got != n {
		t.Fatalf("expected %d counted uses, got %d: lost updates", n, got)
	}
}

func TestUsagesAbsentOwner(t *testing.T) {
	s := docstore.NewMemStore()
	l := NewLedger(s, zap.NewNop())

	usages, err := l.Usages(context.Background(), "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if usages != nil {
		t.Fatalf("expected nil, got %v", usages)
	}
}

func TestIncrementPreservesProfileFields(t *testing.T) {
	s := docstore.NewMemStore()
	l := NewLedger(s, zap.NewNop())
	ctx := context.Background()
	seedOwner(t, s, "u1")

	if err := l.IncrementUsage(ctx, "u1", "1"); err != nil {
		t.Fatal(err)
	}
	v, _ := s.ReadOnce(ctx, docstore.UserPath("u1"))
	if v["name"] != "Alice" {
		t.Fatalf("increment clobbered sibling field: %v", v)
	}
}
