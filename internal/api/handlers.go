package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/pigeonchat/pigeon/internal/identity"
	"github.com/pigeonchat/pigeon/internal/messaging"
	"github.com/pigeonchat/pigeon/internal/status"
	"github.com/pigeonchat/pigeon/internal/sticker"
	"github.com/pigeonchat/pigeon/internal/views"
	"go.uber.org/zap"
)

type signUpRequest struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	WelcomeMessage string `json:"welcomeMessage"`
	ImageURL       string `json:"imageUrl"`
	Password       string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createChatRequest struct {
	ParticipantIDs []string `json:"participantIds"`
	InitialText    string   `json:"initialText"`
}

type sendTextRequest struct {
	Text string `json:"text"`
}

type sendStickerRequest struct {
	StickerID string `json:"stickerId"`
}

func errJSON(c *fiber.Ctx, code int, err error) error {
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// currentUser rejects the request with 401 unless somebody is signed in.
func (s *Server) currentUser(c *fiber.Ctx) (string, error) {
	id := s.identity.CurrentUserID()
	if id == "" {
		return "", c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not signed in"})
	}
	return id, nil
}

// SignUpHandler registers a new account. Does not sign the user in.
func (s *Server) SignUpHandler(c *fiber.Ctx) error {
	var req signUpRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err)
	}
	id, err := s.identity.SignUp(c.Context(), identity.SignUpParams{
		Name:           req.Name,
		Username:       req.Username,
		Email:          req.Email,
		WelcomeMessage: req.WelcomeMessage,
		ImageURL:       req.ImageURL,
		Password:       req.Password,
	})
	switch {
	case errors.Is(err, identity.ErrUsernameTaken):
		return errJSON(c, fiber.StatusConflict, err)
	case errors.Is(err, identity.ErrEmptyField):
		return errJSON(c, fiber.StatusBadRequest, err)
	case err != nil:
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"userId": id})
}

// LoginHandler signs the user in, drives the session state machine and
// starts the viewer's live chat list.
func (s *Server) LoginHandler(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err)
	}
	if err := s.machine.Transition(status.Authenticating); err != nil {
		return errJSON(c, fiber.StatusConflict, err)
	}
	id, err := s.identity.SignIn(c.Context(), req.Username, req.Password)
	if err != nil {
		_ = s.machine.Transition(status.SignedOut)
		if errors.Is(err, identity.ErrBadCredentials) {
			return errJSON(c, fiber.StatusUnauthorized, err)
		}
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	if _, err := s.views.WatchChats(id, nil); err != nil {
		s.logger.Warn("chat list watch failed", zap.Error(err))
	}
	_ = s.machine.Transition(status.Ready)
	return c.JSON(fiber.Map{"userId": id})
}

// LogoutHandler tears down all live views and signs the user out.
func (s *Server) LogoutHandler(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}
	s.mu.Lock()
	for id, sub := range s.watches {
		sub.Cancel()
		delete(s.watches, id)
	}
	s.mu.Unlock()
	s.views.Close()
	s.identity.SignOut()
	_ = s.machine.Transition(status.SignedOut)
	return c.SendStatus(fiber.StatusNoContent)
}

// StatusHandler reports the session state.
func (s *Server) StatusHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"state":  s.machine.Current(),
		"userId": s.identity.CurrentUserID(),
	})
}

// SearchUsersHandler finds accounts by exact username.
func (s *Server) SearchUsersHandler(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}
	username := c.Query("username")
	if username == "" {
		return errJSON(c, fiber.StatusBadRequest, errors.New("username query is required"))
	}
	users, err := s.contacts.SearchByUsername(c.Context(), username)
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	if users == nil {
		users = []identity.User{}
	}
	return c.JSON(users)
}

// ContactsHandler returns the caller's resolved contact profiles.
func (s *Server) ContactsHandler(c *fiber.Ctx) error {
	userID, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var list []identity.User
	if err := s.views.LoadContacts(c.Context(), userID, func(users []identity.User) {
		list = users
	}); err != nil {
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	if list == nil {
		list = []identity.User{}
	}
	return c.JSON(list)
}

// AddContactHandler appends a user to the caller's contact list.
func (s *Server) AddContactHandler(c *fiber.Ctx) error {
	userID, err := s.currentUser(c)
	if err != nil {
		return err
	}
	contactID := c.Query("userId")
	if contactID == "" {
		return errJSON(c, fiber.StatusBadRequest, errors.New("userId query is required"))
	}
	if err := s.contacts.Add(c.Context(), userID, contactID); err != nil {
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateChatHandler finds or creates the chat for a participant set.
func (s *Server) CreateChatHandler(c *fiber.Ctx) error {
	userID, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req createChatRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err)
	}
	chatID, created, err := s.chats.FindOrCreate(c.Context(), userID, req.ParticipantIDs, req.InitialText)
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	code := fiber.StatusOK
	if created {
		code = fiber.StatusCreated
	}
	return c.Status(code).JSON(fiber.Map{"chatId": chatID, "created": created})
}

// ChatsHandler returns the viewer's chat list with derived display names,
// newest activity first. A plain snapshot read: the hosted backend delivers
// subscription snapshots asynchronously, so request/response reads must not
// go through a listener.
func (s *Server) ChatsHandler(c *fiber.Ctx) error {
	userID, err := s.currentUser(c)
	if err != nil {
		return err
	}
	rows, err := s.views.ChatList(c.Context(), userID)
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	if rows == nil {
		rows = []views.ChatRow{}
	}
	return c.JSON(rows)
}

// MessagesHandler returns the full message log of one chat, read once from
// the store.
func (s *Server) MessagesHandler(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}
	msgs, err := s.msgs.Messages(c.Context(), c.Params("id"))
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	if msgs == nil {
		msgs = []messaging.Message{}
	}
	return c.JSON(msgs)
}

// HistoryHandler serves the locally cached message log for a chat. Unlike
// MessagesHandler it never touches the store, so it works while the backend
// is unreachable; it only knows messages a live view has materialized.
func (s *Server) HistoryHandler(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}
	cached, err := s.cache.ListMessages(c.Params("id"))
	if err != nil {
		return errJSON(c, fiber.StatusInternalServerError, err)
	}
	msgs := make([]messaging.Message, 0, len(cached))
	for _, row := range cached {
		msgs = append(msgs, messaging.Message{
			ChatID:    row.ChatID,
			ID:        row.MessageID,
			SenderID:  row.SenderID,
			Timestamp: row.Timestamp,
			Kind:      row.Kind,
			Text:      row.Body,
			StickerID: row.StickerID,
		})
	}
	return c.JSON(msgs)
}

// SendTextHandler posts a text message to a chat.
func (s *Server) SendTextHandler(c *fiber.Ctx) error {
	userID, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req sendTextRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err)
	}
	msg, err := s.msgs.SendText(c.Context(), c.Params("id"), userID, req.Text)
	switch {
	case errors.Is(err, messaging.ErrEmptyMessage):
		return errJSON(c, fiber.StatusBadRequest, err)
	case err != nil:
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// SendStickerHandler posts a sticker message. The sender's usage counter is
// charged first; the message is only delivered if the charge succeeds.
func (s *Server) SendStickerHandler(c *fiber.Ctx) error {
	userID, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req sendStickerRequest
	if err := c.BodyParser(&req); err != nil {
		return errJSON(c, fiber.StatusBadRequest, err)
	}
	if req.StickerID == "" {
		return errJSON(c, fiber.StatusBadRequest, errors.New("stickerId is required"))
	}
	msg, err := s.msgs.SendSticker(c.Context(), c.Params("id"), userID, req.StickerID)
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// WatchChatHandler opens a live message view on a chat. Updates and incoming
// message notifications flow over the websocket stream.
func (s *Server) WatchChatHandler(c *fiber.Ctx) error {
	userID, err := s.currentUser(c)
	if err != nil {
		return err
	}
	chatID := c.Params("id")
	s.mu.Lock()
	_, open := s.watches[chatID]
	s.mu.Unlock()
	if open {
		return c.SendStatus(fiber.StatusNoContent)
	}
	sub, err := s.views.WatchMessages(userID, chatID, nil)
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	s.mu.Lock()
	s.watches[chatID] = sub
	s.mu.Unlock()
	return c.SendStatus(fiber.StatusNoContent)
}

// UnwatchChatHandler closes the live message view on a chat.
func (s *Server) UnwatchChatHandler(c *fiber.Ctx) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}
	chatID := c.Params("id")
	s.mu.Lock()
	sub, ok := s.watches[chatID]
	delete(s.watches, chatID)
	s.mu.Unlock()
	if ok {
		sub.Cancel()
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StickersHandler lists the selectable sticker catalog.
func (s *Server) StickersHandler(c *fiber.Ctx) error {
	return c.JSON(s.catalog.All())
}

// CostsHandler reports the caller's accumulated sticker spend.
func (s *Server) CostsHandler(c *fiber.Ctx) error {
	userID, err := s.currentUser(c)
	if err != nil {
		return err
	}
	usages, err := s.ledger.Usages(c.Context(), userID)
	if err != nil {
		return errJSON(c, fiber.StatusBadGateway, err)
	}
	return c.JSON(sticker.ComputeCostReport(usages, s.catalog))
}
