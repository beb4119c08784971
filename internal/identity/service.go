package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pigeonchat/pigeon/internal/docstore"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUsernameTaken is returned by SignUp when the username is claimed.
	ErrUsernameTaken = errors.New("identity: username already taken")
	// ErrBadCredentials is returned by SignIn for an unknown username or a
	// wrong password; the two cases are deliberately indistinguishable.
	ErrBadCredentials = errors.New("identity: bad credentials")
	// ErrEmptyField is returned for missing required sign-up fields.
	ErrEmptyField = errors.New("identity: required field is empty")
)

// SignUpParams are the profile fields collected at registration.
type SignUpParams struct {
	Name           string
	Username       string
	Email          string
	WelcomeMessage string
	ImageURL       string
	Password       string
}

// Service issues stable user ids and tracks the signed-in user for this
// daemon session. Credentials live at credentials/{username} so username
// uniqueness is enforced by a single-path transactional claim.
type Service struct {
	store  docstore.Store
	logger *zap.Logger

	mu        sync.RWMutex
	currentID string
}

// NewService creates an identity service over the given store.
func NewService(store docstore.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// SignUp registers a new user and returns the issued user id. The caller is
// not signed in afterwards; SignIn is a separate step, as in the app flow.
func (s *Service) SignUp(ctx context.Context, p SignUpParams) (string, error) {
	if p.Username == "" || p.Password == "" {
		return "", ErrEmptyField
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.NewString()

	// Claim the username atomically: the mutator refuses a credential record
	// that already exists, so concurrent sign-ups of the same name cannot
	// both succeed.
	err = s.store.TransactionalUpdate(ctx, docstore.CredentialPath(p.Username), func(cur docstore.Value) (docstore.Value, error) {
		if cur != nil {
			return nil, ErrUsernameTaken
		}
		return docstore.Value{
			"userId":       userID,
			"passwordHash": string(hash),
		}, nil
	})
	if err != nil {
		if errors.Is(err, docstore.ErrAborted) {
			return "", ErrUsernameTaken
		}
		return "", fmt.Errorf("claim username: %w", err)
	}

	user := User{
		ID:             userID,
		Name:           p.Name,
		Username:       p.Username,
		Email:          p.Email,
		WelcomeMessage: p.WelcomeMessage,
		ImageURL:       p.ImageURL,
	}
	if err := s.store.Write(ctx, docstore.UserPath(userID), user.ToValue()); err != nil {
		return "", fmt.Errorf("write profile: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", userID), zap.String("username", p.Username))
	return userID, nil
}

// SignIn checks the credential record and marks the user as the session's
// current user.
func (s *Service) SignIn(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", ErrBadCredentials
	}
	cred, err := s.store.ReadOnce(ctx, docstore.CredentialPath(username))
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}
	if cred == nil {
		return "", ErrBadCredentials
	}
	hash, _ := cred["passwordHash"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrBadCredentials
	}
	userID, _ := cred["userId"].(string)

	s.mu.Lock()
	s.currentID = userID
	s.mu.Unlock()

	s.logger.Info("user signed in", zap.String("user_id", userID))
	return userID, nil
}

// SignOut clears the session's current user.
func (s *Service) SignOut() {
	s.mu.Lock()
	s.currentID = ""
	s.mu.Unlock()
}

// CurrentUserID returns the signed-in user id, or "" when signed out.
func (s *Service) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentID
}

// Profile reads a user record. Absent users return (nil, nil).
func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	v, err := s.store.ReadOnce(ctx, docstore.UserPath(userID))
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	u := UserFromValue(v)
	return &u, nil
}
