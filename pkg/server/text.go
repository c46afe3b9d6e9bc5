package server

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/telbank/voiceline/pkg/protocol"
	"github.com/telbank/voiceline/pkg/redact"
	"github.com/telbank/voiceline/pkg/session"
	"github.com/telbank/voiceline/pkg/store"
)

// handleTextWS runs a text-mode session: one turn per incoming text
// frame, no audio stages.
func (s *Server) handleTextWS(c *websocket.Conn) {
	ctx := context.Background()

	sessionID, err := s.deps.Store.CreateSession(ctx)
	if err != nil {
		s.logger.Error("failed to create session", "error", err)
		c.WriteJSON(protocol.NewError("unable to start session"))
		return
	}
	logger := s.logger.With("session_id", sessionID, "mode", "text")
	logger.Info("session started")

	t := newWSTransport(c)
	s.deps.Registry.Register(sessionID, t)
	start := time.Now()
	defer func() {
		s.deps.Registry.Unregister(sessionID)
		if err := s.deps.Store.CloseSession(ctx, sessionID, time.Since(start)); err != nil {
			logger.Warn("failed to close session record", "error", err)
		}
		logger.Info("session ended", "duration", time.Since(start).Round(time.Second))
	}()

	t.WriteJSON(protocol.NewSession(sessionID))
	t.WriteJSON(protocol.NewTranscript(protocol.SpeakerAgent, session.Greeting))
	s.persistTranscript(ctx, sessionID, protocol.SpeakerAgent, session.Greeting)

	snap := session.NewSnapshot(sessionID)
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}

		frame, err := protocol.ParseClientFrame(data)
		if err != nil {
			t.WriteJSON(protocol.NewError("invalid message"))
			continue
		}

		switch frame.Type {
		case protocol.TypeStop:
			return
		case protocol.TypeText:
			if frame.Content == "" {
				continue
			}

			t.WriteJSON(protocol.NewStatus(protocol.StatusThinking))
			s.persistTranscript(ctx, sessionID, protocol.SpeakerUser, frame.Content)

			var reply string
			snap, reply = s.ctrl.RunTurn(ctx, snap, frame.Content)

			if reply != "" {
				t.WriteJSON(protocol.NewTranscript(protocol.SpeakerAgent, reply))
				s.persistTranscript(ctx, sessionID, protocol.SpeakerAgent, reply)
			}
			t.WriteJSON(protocol.NewStateUpdate(
				string(snap.Intent), snap.Authenticated, snap.FlowStage, snap.EscalationRequested))
			t.WriteJSON(protocol.NewStatus(protocol.StatusIdle))
			s.persistState(ctx, sessionID, snap)

			if snap.EscalationRequested {
				return
			}
		default:
			logger.Debug("ignoring client frame", "type", frame.Type)
		}
	}
}

func (s *Server) persistTranscript(ctx context.Context, sessionID string, speaker protocol.Speaker, text string) {
	redacted, flags := redact.Redact(text, false)
	err := s.deps.Store.AppendTranscript(ctx, &store.Transcript{
		SessionID:   sessionID,
		Speaker:     string(speaker),
		Content:     redacted,
		PIIDetected: flags,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("failed to persist transcript", "session_id", sessionID, "error", err)
	}
}

func (s *Server) persistState(ctx context.Context, sessionID string, snap session.Snapshot) {
	intent := string(snap.Intent)
	upd := store.SessionUpdate{
		Intent:           &intent,
		Authenticated:    &snap.Authenticated,
		Escalated:        &snap.EscalationRequested,
		EscalationReason: &snap.EscalationReason,
	}
	if snap.CustomerID != "" {
		upd.CustomerID = &snap.CustomerID
	}
	if snap.AuthMethod != "" {
		upd.AuthMethod = &snap.AuthMethod
	}
	if err := s.deps.Store.UpdateSession(ctx, sessionID, upd); err != nil {
		s.logger.Warn("failed to persist session state", "session_id", sessionID, "error", err)
	}
}
