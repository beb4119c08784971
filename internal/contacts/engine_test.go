package contacts

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/pigeonchat/pigeon/internal/docstore"
	"github.com/pigeonchat/pigeon/internal/identity"
	"go.uber.org/zap"
)

func seedUser(t *testing.T, s docstore.Store, id, name, username string) {
	t.Helper()
	u := identity.User{ID: id, Name: name, Username: username}
	if err := s.Write(context.Background(), docstore.UserPath(id), u.ToValue()); err != nil {
		t.Fatal(err)
	}
}

func contactList(t *testing.T, s docstore.Store, ownerID string) []string {
	t.Helper()
	v, err := s.ReadOnce(context.Background(), docstore.UserPath(ownerID))
	if err != nil {
		t.Fatal(err)
	}
	return identity.UserFromValue(v).Contacts
}

func TestAdd(t *testing.T) {
	s := docstore.NewMemStore()
	e := NewEngine(s, zap.NewNop())
	seedUser(t, s, "u1", "Alice", "alice")

	if err := e.Add(context.Background(), "u1", "u2"); err != nil {
		t.Fatal(err)
	}
	if got := contactList(t, s, "u1"); len(got) != 1 || got[0] != "u2" {
		t.Fatalf("expected [u2], got %v", got)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	s := docstore.NewMemStore()
	e := NewEngine(s, zap.NewNop())
	ctx := context.Background()
	seedUser(t, s, "u1", "Alice", "alice")

	for i := 0; i < 3; i++ {
		if err := e.Add(ctx, "u1", "u2"); err != nil {
			t.Fatal(err)
		}
	}
	if got := contactList(t, s, "u1"); len(got) != 1 {
		t.Fatalf("repeated add duplicated the contact: %v", got)
	}
}

func TestAddRejectsSelfAndEmpty(t *testing.T) {
	s := docstore.NewMemStore()
	e := NewEngine(s, zap.NewNop())
	seedUser(t, s, "u1", "Alice", "alice")

	if err := e.Add(context.Background(), "u1", "u1"); err == nil {
		t.Fatal("expected error adding self")
	}
	if err := e.Add(context.Background(), "u1", ""); err == nil {
		t.Fatal("expected error adding empty id")
	}
}

func TestAddUnknownOwner(t *testing.T) {
	s := docstore.NewMemStore()
	e := NewEngine(s, zap.NewNop())

	if err := e.Add(context.Background(), "ghost", "u2"); err == nil {
		t.Fatal("expected error for owner without profile")
	}
}

func TestConcurrentAddsAllLand(t *testing.T) {
	s := docstore.NewMemStore()
	e := NewEngine(s, zap.NewNop())
	ctx := context.Background()
	seedUser(t, s, "u1", "Alice", "alice")

	ids := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
	var wg sync.WaitGroup
	wg.Add(len(ids))
	for _, id := range ids {
		go func(id string) {
			defer wg.Done()
			if err := e.Add(ctx, "u1", id); err != nil {
				t.Error(err)
			}
		}(id)
	}
	wg.Wait()

	got := contactList(t, s, "u1")
	sort.Strings(got)
	if len(got) != len(ids) {
		t.Fatalf("concurrent adds dropped entries: %v", got)
	}
	for i, id := range ids {
		if got[i] != id {
			t.Fatalf("expected %v, got %v", ids, got)
		}
	}
}

func TestSearchByUsername(t *testing.T) {
	s := docstore.NewMemStore()
	e := NewEngine(s, zap.NewNop())
	ctx := context.Background()
	seedUser(t, s, "u1", "Alice", "alice")
	seedUser(t, s, "u2", "Bob", "bob")
	seedUser(t, s, "u3", "Alice Two", "alice2")

	users, err := e.SearchByUsername(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].ID != "u1" {
		t.Fatalf("expected exactly u1, got %v", users)
	}

	// Exact match only.
	users, err = e.SearchByUsername(ctx, "alic")
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 0 {
		t.Fatalf("partial match should find nothing, got %v", users)
	}
}

func TestResolve(t *testing.T) {
	s := docstore.NewMemStore()
	e := NewEngine(s, zap.NewNop())
	ctx := context.Background()
	seedUser(t, s, "u1", "Alice", "alice")
	seedUser(t, s, "u2", "Bob", "bob")
	seedUser(t, s, "u3", "Carol", "carol")
	if err := e.Add(ctx, "u1", "u2"); err != nil {
		t.Fatal(err)
	}
	if err := e.Add(ctx, "u1", "u3"); err != nil {
		t.Fatal(err)
	}

	var got []string
	err := e.Resolve(ctx, "u1", func(u identity.User) {
		got = append(got, u.Name)
	})
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "Bob" || got[1] != "Carol" {
		t.Fatalf("expected Bob and Carol, got %v", got)
	}
}

func TestResolveSkipsDanglingContacts(t *testing.T) {
	s := docstore.NewMemStore()
	e := NewEngine(s, zap.NewNop())
	ctx := context.Background()
	seedUser(t, s, "u1", "Alice", "alice")
	seedUser(t, s, "u2", "Bob", "bob")
	if err := e.Add(ctx, "u1", "u2"); err != nil {
		t.Fatal(err)
	}
	if err := e.Add(ctx, "u1", "gone"); err != nil {
		t.Fatal(err)
	}

	count := 0
	if err := e.Resolve(ctx, "u1", func(identity.User) { count++ }); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 resolved contact, got %d", count)
	}
}

func TestResolveUnknownOwner(t *testing.T) {
	s := docstore.NewMemStore()
	e := NewEngine(s, zap.NewNop())

	called := false
	if err := e.Resolve(context.Background(), "ghost", func(identity.User) { called = true }); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Fatal("no contacts expected for unknown owner")
	}
}
