package session

import (
	"context"
	"log/slog"

	"github.com/telbank/voiceline/pkg/banking"
	"github.com/telbank/voiceline/pkg/fraud"
	"github.com/telbank/voiceline/pkg/oracle"
)

// Greeting is the agent's opening line on every new session.
const Greeting = "Hello! I'm Bank ABC's virtual assistant. How can I help you today?"

// escalationReply is what the caller hears whenever a session is handed
// off to a human.
const escalationReply = "Thank you for your patience. I'm connecting you with a specialist " +
	"who can better assist you. Please hold while I transfer your call."

// maxReentries bounds handler re-entries within one macro-step so a
// misbehaving decision loop cannot spin forever.
const maxReentries = 8

// Controller drives the state machine. One instance is built at startup
// and shared by every session; all per-call state lives in the Snapshot.
type Controller struct {
	oracle oracle.Oracle
	bank   *banking.Service
	logger *slog.Logger
}

// NewController wires the state machine to its collaborators.
func NewController(o oracle.Oracle, bank *banking.Service, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		oracle: o,
		bank:   bank,
		logger: logger.With("component", "session"),
	}
}

func (s Snapshot) caller() banking.Caller {
	return banking.Caller{
		SessionID:     s.SessionID,
		CustomerID:    s.CustomerID,
		Authenticated: s.Authenticated,
	}
}

// RunTurn processes one user utterance through a full macro-step: append
// the turn, classify (or resume), run handlers until the session settles
// on suspend, complete, or escalate, and return the new snapshot plus the
// reply to speak. An already-escalated session is returned unchanged.
func (c *Controller) RunTurn(ctx context.Context, s Snapshot, userText string) (Snapshot, string) {
	if s.EscalationRequested {
		return s, ""
	}

	// A completed flow restarts classification on the next utterance.
	// Authentication persists for the rest of the session.
	if IsTerminalStage(s.FlowStage) {
		s.FlowStage = ""
		s.Intent = ""
		s.IntentConfidence = 0
		s.ResumePoint = ""
	}

	s = s.withTurn(RoleUser, userText)
	s.TurnCount++
	s.NeedsUserInput = false
	base := len(s.Transcript)

	report := fraud.Detect(fraud.Signals{
		UserUtterances:     s.userTexts(),
		FailedAuthAttempts: s.FailedAttempts,
		CriticalActions:    len(s.CriticalActions),
	}, c.logger)
	if report.EscalateImmediate {
		s.EscalationRequested = true
		s.EscalationReason = "Suspected fraud or coercion"
		s = c.escalate(s)
		return s, s.lastReplyAfter(base)
	}

	var next HandlerID
	if s.ResumePoint != "" {
		// Mid-flow resumption: skip classification, keep the prior
		// intent. The driver owns clearing the resume point; a handler
		// that suspends again sets it anew.
		next = s.ResumePoint
		s.ResumePoint = ""
		c.logger.Info("resuming mid-flow", "handler", next, "session_id", s.SessionID)
	} else {
		s, next = c.classify(ctx, s)
	}

	for i := 0; ; i++ {
		if i >= maxReentries {
			c.logger.Error("handler loop did not settle", "session_id", s.SessionID, "handler", next)
			s.EscalationRequested = true
			s.EscalationReason = "agent error: handler loop did not settle"
			s = c.escalate(s)
			break
		}

		s = c.dispatch(ctx, next, s)

		outcome := CheckCompletion(s)
		if outcome == OutcomeEscalate {
			s = c.escalate(s)
			break
		}
		if outcome == OutcomeSuspend || outcome == OutcomeComplete {
			break
		}

		// Continue: authentication hands over to the task handler for
		// the originally classified intent.
		if next == HandlerAuth && s.Authenticated {
			next = afterAuth(s.Intent)
			if next == "" {
				s.EscalationRequested = true
				s.EscalationReason = "no handler for intent " + string(s.Intent)
				s = c.escalate(s)
				break
			}
		}
	}

	return s, s.lastReplyAfter(base)
}

func (c *Controller) dispatch(ctx context.Context, id HandlerID, s Snapshot) Snapshot {
	switch id {
	case HandlerAuth:
		return c.authenticate(ctx, s)
	case HandlerCard:
		return c.handleCard(ctx, s)
	case HandlerAccount:
		return c.handleAccount(ctx, s)
	case HandlerOpening:
		return c.handleOpening(ctx, s)
	case HandlerDigital:
		return c.handleDigital(s)
	case HandlerTransfer:
		return c.handleTransfer(s)
	case HandlerClosure:
		return c.handleClosure(s)
	case HandlerGeneral:
		return c.handleGeneral(s)
	default:
		c.logger.Error("unknown handler", "handler", id, "session_id", s.SessionID)
		s.EscalationRequested = true
		s.EscalationReason = "agent error: unknown handler " + string(id)
		return s
	}
}

// escalate finishes a hand-off: the caller hears the transfer message and
// the session becomes terminal.
func (c *Controller) escalate(s Snapshot) Snapshot {
	c.logger.Warn("escalating to human",
		"session_id", s.SessionID, "reason", s.EscalationReason)
	s = s.withReply(escalationReply)
	s.FlowStage = StageEscalated
	return s
}
