package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pigeonchat/pigeon/internal/docstore"
	"go.uber.org/zap"
)

func newService() *Service {
	return NewService(docstore.NewMemStore(), zap.NewNop())
}

func signUp(t *testing.T, s *Service, username string) string {
	t.Helper()
	id, err := s.SignUp(context.Background(), SignUpParams{
		Name:     username,
		Username: username,
		Password: "hunter2",
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestSignUp(t *testing.T) {
	s := newService()
	id, err := s.SignUp(context.Background(), SignUpParams{
		Name:           "Alice",
		Username:       "alice",
		Email:          "alice@example.com",
		WelcomeMessage: "hey there",
		Password:       "hunter2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if id == "" {
		t.Fatal("no user id issued")
	}

	u, err := s.Profile(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if u == nil || u.Name != "Alice" || u.Username != "alice" {
		t.Fatalf("unexpected profile %+v", u)
	}
}

func TestSignUpDoesNotSignIn(t *testing.T) {
	s := newService()
	signUp(t, s, "alice")
	if got := s.CurrentUserID(); got != "" {
		t.Fatalf("sign-up must not sign in, current=%q", got)
	}
}

func TestSignUpEmptyFields(t *testing.T) {
	s := newService()
	ctx := context.Background()

	if _, err := s.SignUp(ctx, SignUpParams{Password: "x"}); !errors.Is(err, ErrEmptyField) {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
	if _, err := s.SignUp(ctx, SignUpParams{Username: "x"}); !errors.Is(err, ErrEmptyField) {
		t.Fatalf("expected ErrEmptyField, got %v", err)
	}
}

func TestSignUpUsernameTaken(t *testing.T) {
	s := newService()
	signUp(t, s, "alice")

	_, err := s.SignUp(context.Background(), SignUpParams{Username: "alice", Password: "other"})
	if !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestConcurrentSignUpsOneWins(t *testing.T) {
	s := newService()
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.SignUp(ctx, SignUpParams{Username: "alice", Password: "pw"})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrUsernameTaken):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestSignIn(t *testing.T) {
	s := newService()
	id := signUp(t, s, "alice")

	got, err := s.SignIn(context.Background(), "alice", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if got != id {
		t.Fatalf("expected %s, got %s", id, got)
	}
	if s.CurrentUserID() != id {
		t.Fatal("current user not set")
	}
}

func TestSignInWrongPassword(t *testing.T) {
	s := newService()
	signUp(t, s, "alice")

	if _, err := s.SignIn(context.Background(), "alice", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
	if s.CurrentUserID() != "" {
		t.Fatal("failed sign-in must not set the current user")
	}
}

func TestSignInUnknownUser(t *testing.T) {
	s := newService()
	if _, err := s.SignIn(context.Background(), "nobody", "pw"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("expected ErrBadCredentials, got %v", err)
	}
}

func TestSignOut(t *testing.T) {
	s := newService()
	signUp(t, s, "alice")
	if _, err := s.SignIn(context.Background(), "alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	s.SignOut()
	if s.CurrentUserID() != "" {
		t.Fatal("sign-out did not clear the current user")
	}
}

func TestProfileAbsent(t *testing.T) {
	s := newService()
	u, err := s.Profile(context.Background(), "ghost")
	if err != nil {
		t.Fatal(err)
	}
	if u != nil {
		t.Fatalf("expected nil for absent user, got %+v", u)
	}
}
