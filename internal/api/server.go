package api

import (
	"context"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/pigeonchat/pigeon/internal/bus"
	"github.com/pigeonchat/pigeon/internal/cache"
	"github.com/pigeonchat/pigeon/internal/chat"
	"github.com/pigeonchat/pigeon/internal/contacts"
	"github.com/pigeonchat/pigeon/internal/docstore"
	"github.com/pigeonchat/pigeon/internal/identity"
	"github.com/pigeonchat/pigeon/internal/messaging"
	"github.com/pigeonchat/pigeon/internal/status"
	"github.com/pigeonchat/pigeon/internal/sticker"
	"github.com/pigeonchat/pigeon/internal/views"
	"go.uber.org/zap"
)

// Server is the HTTP/websocket surface presentation observers attach to.
// REST for actions and snapshots, websocket for the live event stream.
type Server struct {
	app    *fiber.App
	addr   string
	logger *zap.Logger

	identity *identity.Service
	contacts *contacts.Engine
	chats    *chat.Engine
	msgs     *messaging.Engine
	ledger   *sticker.Ledger
	catalog  sticker.Catalog
	views    *views.Manager
	cache    *cache.DB
	machine  *status.Machine
	bus      *bus.Bus

	mu      sync.Mutex
	watches map[string]docstore.Subscription // chatID -> message watch
}

// Deps bundles the server's collaborators.
type Deps struct {
	Addr     string
	Logger   *zap.Logger
	Identity *identity.Service
	Contacts *contacts.Engine
	Chats    *chat.Engine
	Messages *messaging.Engine
	Ledger   *sticker.Ledger
	Catalog  sticker.Catalog
	Views    *views.Manager
	Cache    *cache.DB
	Machine  *status.Machine
	Bus      *bus.Bus
}

// NewServer builds the fiber app and wires its routes.
func NewServer(d Deps) *Server {
	s := &Server{
		addr:     d.Addr,
		logger:   d.Logger,
		identity: d.Identity,
		contacts: d.Contacts,
		chats:    d.Chats,
		msgs:     d.Messages,
		ledger:   d.Ledger,
		catalog:  d.Catalog,
		views:    d.Views,
		cache:    d.Cache,
		machine:  d.Machine,
		bus:      d.Bus,
		watches:  make(map[string]docstore.Subscription),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	api := app.Group("/api")
	api.Post("/signup", s.SignUpHandler)
	api.Post("/login", s.LoginHandler)
	api.Post("/logout", s.LogoutHandler)
	api.Get("/status", s.StatusHandler)

	api.Get("/users/search", s.SearchUsersHandler)
	api.Get("/contacts", s.ContactsHandler)
	api.Post("/contacts", s.AddContactHandler)

	api.Post("/chats", s.CreateChatHandler)
	api.Get("/chats", s.ChatsHandler)
	api.Get("/chats/:id/messages", s.MessagesHandler)
	api.Get("/chats/:id/history", s.HistoryHandler)
	api.Post("/chats/:id/messages", s.SendTextHandler)
	api.Post("/chats/:id/stickers", s.SendStickerHandler)
	api.Post("/chats/:id/watch", s.WatchChatHandler)
	api.Delete("/chats/:id/watch", s.UnwatchChatHandler)

	api.Get("/stickers", s.StickersHandler)
	api.Get("/stickers/costs", s.CostsHandler)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(s.StreamHandler))

	s.app = app
	return s
}

// Start begins serving. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("api server starting", zap.String("addr", s.addr))
	return s.app.Listen(s.addr)
}

// Stop performs a graceful shutdown.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("api server stopping")
	_ = s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
