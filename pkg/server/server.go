// Package server exposes the WebSocket endpoints for text and voice
// sessions plus a small admin API over the session store.
package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/telbank/voiceline/pkg/banking"
	"github.com/telbank/voiceline/pkg/oracle"
	"github.com/telbank/voiceline/pkg/registry"
	"github.com/telbank/voiceline/pkg/session"
	"github.com/telbank/voiceline/pkg/store"
	"github.com/telbank/voiceline/pkg/stt"
	"github.com/telbank/voiceline/pkg/tts"
)

// Deps carries everything the server needs to run sessions. The factories
// build one recognizer/synthesizer per voice session.
type Deps struct {
	Store          store.Store
	Oracle         oracle.Oracle
	Registry       *registry.Registry
	Logger         *slog.Logger
	NewRecognizer  func() (stt.Recognizer, error)
	NewSynthesizer func() (tts.Synthesizer, error)
}

// Server is the voiceline HTTP/WebSocket server.
type Server struct {
	app    *fiber.App
	deps   Deps
	ctrl   *session.Controller
	logger *slog.Logger
}

// NewServer wires up routes and middleware.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")

	bank := banking.NewService(deps.Store, deps.Logger)

	s := &Server{
		deps:   deps,
		ctrl:   session.NewController(deps.Oracle, bank, deps.Logger),
		logger: logger,
	}

	app := fiber.New(fiber.Config{
		AppName:               "voiceline",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)

	api := app.Group("/api")
	api.Get("/sessions", s.handleListSessions)
	api.Get("/sessions/:id/transcripts", s.handleListTranscripts)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/text", websocket.New(s.handleTextWS))
	app.Get("/ws/voice", websocket.New(s.handleVoiceWS))

	s.app = app
	return s
}

// Start listens on the given address and blocks.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
