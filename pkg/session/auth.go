package session

import (
	"context"
	"fmt"

	"github.com/telbank/voiceline/pkg/oracle"
)

// maxAuthAttempts is the PIN retry budget. Reaching it escalates.
const maxAuthAttempts = 3

const identityPrompt = `You are an identity extraction expert for Bank ABC.

Analyze the conversation and extract:
1. **Customer ID**: Usually in format "CUST00001" or similar
2. **PIN**: A 4-digit number mentioned as password/PIN

**Important Rules:**
- Only extract if EXPLICITLY mentioned by the user
- Do NOT invent or guess IDs
- PINs are exactly 4 digits
- If user says "my ID is CUST00001" extract "CUST00001"
- If user says "my PIN is 1234" extract "1234"
- If user says "I don't know my ID" extract nothing

Look only at the most recent messages for new information.`

var identitySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"customer_id": map[string]any{"type": []string{"string", "null"}},
		"pin":         map[string]any{"type": []string{"string", "null"}},
		"has_identity_info": map[string]any{
			"type": "boolean",
		},
	},
	"required":             []string{"customer_id", "pin", "has_identity_info"},
	"additionalProperties": false,
}

type identityExtraction struct {
	CustomerID      string `json:"customer_id"`
	PIN             string `json:"pin"`
	HasIdentityInfo bool   `json:"has_identity_info"`
}

const (
	askCustomerID = "For security purposes, I'll need to verify your identity. " +
		"Could you please provide your Customer ID? " +
		"It should be in the format CUST followed by numbers, like CUST00001."
	askPIN = "Thank you. Now, could you please provide your 4-digit PIN " +
		"to verify your identity?"
	askBoth     = "Could you please provide your Customer ID and PIN?"
	authSuccess = "Thank you for verifying your identity. How can I assist you today?"
)

// authenticate verifies the caller's identity before sensitive tasks.
// Already-authenticated sessions pass through unchanged. The attempt
// budget is checked before any other work; extraction failures reprompt
// without consuming an attempt, only a wrong PIN does.
func (c *Controller) authenticate(ctx context.Context, s Snapshot) Snapshot {
	if s.Authenticated {
		return s
	}

	if s.FailedAttempts >= maxAuthAttempts {
		c.logger.Warn("max verification attempts reached", "session_id", s.SessionID)
		return s.escalated(
			"Failed authentication after 3 attempts",
			"I'm sorry, but for your security, I need to transfer you "+
				"to a representative after multiple failed verification attempts. "+
				"Please hold while I connect you.")
	}

	var extraction identityExtraction
	err := c.oracle.Decide(ctx, &oracle.Request{
		System:     identityPrompt,
		Messages:   []oracle.Message{oracle.NewUserMessage(s.window(5))},
		SchemaName: "identity_extraction",
		Schema:     identitySchema,
	}, &extraction)
	if err != nil {
		// Soft extraction failure: reprompt, no attempt consumed.
		c.logger.Error("identity extraction failed", "error", err, "session_id", s.SessionID)
		return s.suspend(HandlerAuth,
			"I apologize, but I'm having trouble verifying your identity. "+
				"Could you please provide your Customer ID and PIN?")
	}

	c.logger.Info("identity extracted",
		"customer_id", extraction.CustomerID,
		"has_pin", extraction.PIN != "",
		"session_id", s.SessionID)

	if !extraction.HasIdentityInfo {
		if s.CustomerID == "" {
			return s.suspend(HandlerAuth, askCustomerID)
		}
		return s.suspend(HandlerAuth, askPIN)
	}

	if extraction.CustomerID != "" {
		s.CustomerID = extraction.CustomerID
	}

	if extraction.CustomerID != "" && extraction.PIN != "" {
		return c.verifyPIN(ctx, s, extraction.CustomerID, extraction.PIN)
	}

	// Have an ID but no PIN yet.
	if s.CustomerID != "" {
		return s.suspend(HandlerAuth, askPIN)
	}

	return s.suspend(HandlerAuth, askBoth)
}

func (c *Controller) verifyPIN(ctx context.Context, s Snapshot, customerID, pin string) Snapshot {
	_, err := c.bank.VerifyIdentity(ctx, s.caller(), customerID, pin)
	if err == nil {
		c.logger.Info("authentication successful", "customer_id", customerID, "session_id", s.SessionID)
		s.Authenticated = true
		s.AuthMethod = "pin"
		s.CustomerID = customerID
		s.NeedsUserInput = false
		s.ResumePoint = ""
		return s.withReply(authSuccess)
	}

	c.logger.Warn("authentication failed", "customer_id", customerID, "session_id", s.SessionID)
	s.FailedAttempts++
	remaining := maxAuthAttempts - s.FailedAttempts

	if remaining > 0 {
		return s.suspend(HandlerAuth, fmt.Sprintf(
			"I'm sorry, but that PIN doesn't match our records. "+
				"You have %d attempt(s) remaining. Please try again.", remaining))
	}
	return s.escalated(
		"Failed authentication after 3 attempts",
		"I'm sorry, but I need to transfer you to a representative "+
			"for security reasons. Please hold.")
}
