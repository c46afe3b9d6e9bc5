package server

import (
	"context"

	"github.com/gofiber/websocket/v2"

	"github.com/telbank/voiceline/pkg/pipeline"
	"github.com/telbank/voiceline/pkg/protocol"
)

// handleVoiceWS runs a voice-mode session through the four-stage
// pipeline. It blocks until the pipeline finishes.
func (s *Server) handleVoiceWS(c *websocket.Conn) {
	ctx := context.Background()

	sessionID, err := s.deps.Store.CreateSession(ctx)
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		c.WriteJSON(protocol.NewError("unable to start session"))
		return
	}
	logger := s.logger.With("session_id", sessionID, "mode", "voice")
	logger.Info("session started")

	t := newWSTransport(c)
	s.deps.Registry.Register(sessionID, t)
	t.WriteJSON(protocol.NewSession(sessionID))

	rec, err := s.deps.NewRecognizer()
	if err != nil {
		logger.Error("failed to create recognizer", "error", err)
		t.WriteJSON(protocol.NewError("speech recognition unavailable"))
		s.deps.Registry.Unregister(sessionID)
		return
	}

	synth, err := s.deps.NewSynthesizer()
	if err != nil {
		logger.Error("failed to create synthesizer", "error", err)
		t.WriteJSON(protocol.NewError("speech synthesis unavailable"))
		rec.Close()
		s.deps.Registry.Unregister(sessionID)
		return
	}
	defer synth.Close()

	go t.readLoop()
	defer t.stop()

	p := pipeline.New(sessionID, t, rec, synth, s.ctrl, s.deps.Registry, s.deps.Store, s.deps.Logger)
	if err := p.Run(ctx); err != nil {
		logger.Error("pipeline failed", "error", err)
	}
}
