package session

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// handleOpening captures an account-opening lead. New customers have no
// credentials, so no authentication gate. If the accumulated user text
// carries an email address the lead is created and the flow completes;
// otherwise the handler asks for contact details and suspends.
func (c *Controller) handleOpening(ctx context.Context, s Snapshot) Snapshot {
	c.logger.Info("account opening agent activated", "session_id", s.SessionID)

	allUserText := strings.Join(s.userTexts(), " ")
	email := emailRe.FindString(allUserText)

	if email == "" {
		return s.suspend(HandlerOpening,
			"Thank you for your interest in opening an account with Bank ABC! "+
				"Our account specialists can help you choose the right account for your needs. "+
				"May I have your name, email, and phone number to have someone contact you?")
	}

	lead, err := c.bank.CreateLead(ctx, s.caller(), "Prospective Customer", email, "TBD", "checking")
	if err != nil {
		return c.agentError(s, err)
	}

	s.FlowStage = StageComplete
	return s.withReply(fmt.Sprintf(
		"Thank you! I've created a reference for you: %s. %s",
		lead.ReferenceID, lead.Message))
}

// handleDigital escalates unconditionally: app and online banking issues
// need screen sharing and technical troubleshooting.
func (c *Controller) handleDigital(s Snapshot) Snapshot {
	c.logger.Info("digital support agent activated", "session_id", s.SessionID)
	return s.escalated(
		"Digital support - requires technical specialist",
		"I understand you're having trouble with our digital banking services. "+
			"Our technical support team is best equipped to help you with app and online banking issues. "+
			"Let me connect you with a digital banking specialist who can assist you right away.")
}

// handleTransfer escalates unconditionally: transfer issues need
// transaction investigation by a human.
func (c *Controller) handleTransfer(s Snapshot) Snapshot {
	c.logger.Info("transfer/payment agent activated", "session_id", s.SessionID)
	return s.escalated(
		"Transfer/payment issue - requires specialist",
		"I can help connect you with our payments team. "+
			"Transfer and payment issues require detailed investigation. "+
			"Let me transfer you to a specialist who can review your transaction and resolve this for you.")
}

// handleClosure makes exactly one retention attempt on first entry, then
// escalates to a retention specialist on the following turn.
func (c *Controller) handleClosure(s Snapshot) Snapshot {
	c.logger.Info("account closure agent activated", "session_id", s.SessionID)

	if s.FlowStage == "" {
		s.FlowStage = StageRetention
		return s.suspend(HandlerClosure,
			"I'm sorry to hear you're considering closing your account. "+
				"May I ask what's prompting this decision? "+
				"Perhaps there's something we can do to address your concerns.")
	}

	return s.escalated(
		"Account closure - retention specialist needed",
		"I appreciate you sharing that with me. "+
			"Our customer retention team would like to discuss options with you personally. "+
			"Let me connect you with a specialist who can help.")
}

// handleGeneral replies with a capability summary and completes.
func (c *Controller) handleGeneral(s Snapshot) Snapshot {
	c.logger.Info("general inquiry agent activated", "session_id", s.SessionID)
	s.FlowStage = StageComplete
	return s.withReply(
		"I'm Bank ABC's virtual assistant. I can help you with:\n" +
			"- Card issues (lost/stolen, blocked cards)\n" +
			"- Account servicing (balance, statements, profile updates)\n" +
			"- Account opening inquiries\n" +
			"- Digital banking support\n" +
			"\nWhat can I help you with today?")
}
