package server

import (
	"github.com/gofiber/fiber/v2"
)

const defaultSessionLimit = 50

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "ok",
		"live_sessions": s.deps.Registry.Len(),
	})
}

// handleListSessions returns recent call sessions, newest first.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultSessionLimit)

	sessions, err := s.deps.Store.ListSessions(c.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list sessions",
		})
	}

	out := make([]fiber.Map, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, fiber.Map{
			"session_id":        sess.SessionID,
			"customer_id":       sess.CustomerID,
			"intent":            sess.Intent,
			"authenticated":     sess.Authenticated,
			"escalated":         sess.Escalated,
			"escalation_reason": sess.EscalationReason,
			"duration_seconds":  sess.DurationSeconds,
			"started_at":        sess.StartedAt,
			"ended_at":          sess.EndedAt,
		})
	}
	return c.JSON(fiber.Map{"sessions": out})
}

// handleListTranscripts returns the redacted transcript of one session.
func (s *Server) handleListTranscripts(c *fiber.Ctx) error {
	sessionID := c.Params("id")

	transcripts, err := s.deps.Store.ListTranscripts(c.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to list transcripts", "session_id", sessionID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list transcripts",
		})
	}

	out := make([]fiber.Map, 0, len(transcripts))
	for _, tr := range transcripts {
		out = append(out, fiber.Map{
			"speaker":      tr.Speaker,
			"content":      tr.Content,
			"pii_detected": tr.PIIDetected,
			"timestamp":    tr.Timestamp,
		})
	}
	return c.JSON(fiber.Map{"session_id": sessionID, "transcripts": out})
}
