package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/telbank/voiceline/pkg/oracle"
	"github.com/telbank/voiceline/pkg/store"
)

const cardPrompt = `You are a specialized agent for Bank ABC handling card and ATM issues.

**Your Capabilities:**
- Help with lost/stolen cards
- Block cards (requires explicit user confirmation)
- Check card status
- Report ATM issues (cash not dispensed, card stuck)
- Help with declined payments

**Conversation Flow for Lost/Stolen Card:**
1. Ask which card (if customer has multiple)
2. Confirm they want to block it (REQUIRED before blocking)
3. Block the card using the tool
4. Provide reference number and explain next steps (replacement card)

**Important Rules:**
- NEVER block a card without explicit confirmation from the user
- If user says "my card was stolen" ask "To protect your account, would you like me to block this card?"
- After blocking, tell them the reference number and that a replacement will arrive in 5-7 business days
- For ATM issues (cash not dispensed), create a dispute case
- Stay focused on card/ATM issues only

**Current State:**
- Customer ID: %s
- Authenticated: %t

Analyze the conversation and decide the next action.`

var cardSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action": map[string]any{
			"type": "string",
			"enum": []string{"block_card", "check_status", "gather_info", "complete", "escalate"},
		},
		"card_id":             map[string]any{"type": []string{"string", "null"}},
		"reason":              map[string]any{"type": []string{"string", "null"}},
		"confirmation_needed": map[string]any{"type": "boolean"},
		"response":            map[string]any{"type": "string"},
	},
	"required":             []string{"action", "card_id", "reason", "confirmation_needed", "response"},
	"additionalProperties": false,
}

type cardAction struct {
	Action             string `json:"action"`
	CardID             string `json:"card_id"`
	Reason             string `json:"reason"`
	ConfirmationNeeded bool   `json:"confirmation_needed"`
	Response           string `json:"response"`
}

// handleCard runs one card/ATM turn. Card blocking is gated behind an
// explicit confirmation: when the decision signals confirmation is needed
// the handler suspends without touching the card, and only a later turn
// that resolves the confirmation invokes the block.
func (c *Controller) handleCard(ctx context.Context, s Snapshot) Snapshot {
	var decision cardAction
	err := c.oracle.Decide(ctx, &oracle.Request{
		System:     fmt.Sprintf(cardPrompt, s.CustomerID, s.Authenticated),
		Messages:   []oracle.Message{oracle.NewUserMessage("Conversation:\n" + s.window(10))},
		SchemaName: "card_action",
		Schema:     cardSchema,
	}, &decision)
	if err != nil {
		return c.agentError(s, err)
	}

	c.logger.Info("card agent action", "action", decision.Action, "session_id", s.SessionID)

	switch decision.Action {
	case "block_card":
		if decision.ConfirmationNeeded {
			s.FlowStage = StageAwaitConfirm
			return s.suspend(HandlerCard, decision.Response)
		}
		if decision.CardID == "" {
			return s.suspend(HandlerCard,
				"Could you provide your card number or the last 4 digits?")
		}
		return c.blockCard(ctx, s, decision)

	case "check_status":
		if decision.CardID == "" {
			return s.suspend(HandlerCard,
				"Could you provide your card number or the last 4 digits?")
		}
		return c.checkCardStatus(ctx, s, decision.CardID)

	case "escalate":
		return s.escalated("Card issue requires specialist", decision.Response)

	case "complete":
		s.FlowStage = StageComplete
		return s.withReply(decision.Response)

	default: // gather_info
		return s.suspend(HandlerCard, decision.Response)
	}
}

func (c *Controller) blockCard(ctx context.Context, s Snapshot, decision cardAction) Snapshot {
	reason := decision.Reason
	if reason == "" {
		reason = "Customer request"
	}

	result, err := c.bank.BlockCard(ctx, s.caller(), decision.CardID, reason)
	if err != nil {
		return s.escalated(
			fmt.Sprintf("Card block failed: %v", err),
			"I encountered an issue blocking your card. Let me transfer you to a specialist.")
	}

	s = s.withCriticalAction("CARD_BLOCKED")
	s = s.withCached("block_result", result.ReferenceID)
	s.FlowStage = StageCardBlocked
	return s.withReply(fmt.Sprintf(
		"%s Reference number: %s. "+
			"A replacement card will be mailed to your address on file within 5-7 business days. "+
			"Is there anything else I can help you with?",
		result.Message, result.ReferenceID))
}

func (c *Controller) checkCardStatus(ctx context.Context, s Snapshot, cardID string) Snapshot {
	card, err := c.bank.CardDetails(ctx, s.caller(), cardID)
	if errors.Is(err, store.ErrNotFound) {
		return s.suspend(HandlerCard,
			"I couldn't find that card in our system. Could you verify the card number?")
	}
	if err != nil {
		return c.agentError(s, err)
	}

	reply := fmt.Sprintf("Your card ending in %s is currently %s.", card.Last4, card.Status)
	if card.Status == store.CardBlocked && card.BlockedAt != nil {
		reply += fmt.Sprintf(" It was blocked on %s due to: %s.",
			card.BlockedAt.Format("January 2, 2006"), card.BlockedReason)
	}
	s.FlowStage = StageComplete
	s = s.withCached("card_details", card.Status)
	return s.withReply(reply)
}

// agentError converts any handler failure into a terminal escalation with
// a generic apology. Errors never propagate to the turn driver.
func (c *Controller) agentError(s Snapshot, err error) Snapshot {
	c.logger.Error("handler error", "error", err, "session_id", s.SessionID)
	return s.escalated(
		fmt.Sprintf("agent error: %v", err),
		"I'm having trouble processing your request. Let me connect you with a specialist.")
}
