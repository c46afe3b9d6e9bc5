package session

import (
	"context"

	"github.com/telbank/voiceline/pkg/oracle"
)

const classifyPrompt = `You are an intent classification expert for Bank ABC's voice assistant.

Analyze the customer's message and classify it into ONE of these categories:

1. **card_atm**: Lost/stolen cards, ATM issues, card declined, cash not dispensed, card fraud
2. **account_servicing**: Statement requests, profile updates (address, phone, email), balance inquiries
3. **account_opening**: New account inquiries, eligibility, appointment booking, lead capture
4. **digital_support**: App issues, login problems, OTP not received, device change, app crashes
5. **transfer_payment**: Failed/pending transfers, beneficiary management, bill payment issues
6. **account_closure**: Account closure requests, retention attempts
7. **general_inquiry**: Hours, locations, product information, general questions

**Classification Guidelines:**
- If the user mentions "card" with a problem, choose card_atm
- If the user wants to update their information, choose account_servicing
- If the user can't access the app, choose digital_support
- If the user wants to close their account, choose account_closure
- If unclear or multiple intents, choose general_inquiry

**Important:**
- Only classify based on the user's MOST RECENT message
- Set confidence below 0.6 if uncertain
- Provide clear reasoning for your choice`

var classifySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"intent": map[string]any{
			"type": "string",
			"enum": []string{
				"card_atm", "account_servicing", "account_opening",
				"digital_support", "transfer_payment", "account_closure",
				"general_inquiry",
			},
		},
		"confidence": map[string]any{"type": "number"},
		"reasoning":  map[string]any{"type": "string"},
	},
	"required":             []string{"intent", "confidence", "reasoning"},
	"additionalProperties": false,
}

type intentDecision struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// classify determines the caller's intent from their most recent utterance
// and returns the entry handler for it. Classification never fails hard:
// with no user turn yet it defaults to general inquiry at confidence 0.5,
// and on an oracle failure it falls back to general inquiry at 0.3.
func (c *Controller) classify(ctx context.Context, s Snapshot) (Snapshot, HandlerID) {
	last := s.lastUserText()
	if last == "" {
		c.logger.Warn("no user turn to classify", "session_id", s.SessionID)
		s.Intent = IntentGeneralInquiry
		s.IntentConfidence = 0.5
		return s, routeIntent(s.Intent, s.IntentConfidence)
	}

	var decision intentDecision
	err := c.oracle.Decide(ctx, &oracle.Request{
		System:     classifyPrompt,
		Messages:   []oracle.Message{oracle.NewUserMessage(last)},
		SchemaName: "intent_classification",
		Schema:     classifySchema,
	}, &decision)
	if err != nil {
		c.logger.Error("intent classification failed", "error", err, "session_id", s.SessionID)
		s.Intent = IntentGeneralInquiry
		s.IntentConfidence = 0.3
		return s, routeIntent(s.Intent, s.IntentConfidence)
	}

	s.Intent = Intent(decision.Intent)
	s.IntentConfidence = decision.Confidence
	c.logger.Info("intent classified",
		"intent", decision.Intent,
		"confidence", decision.Confidence,
		"reasoning", decision.Reasoning,
		"session_id", s.SessionID)
	return s, routeIntent(s.Intent, s.IntentConfidence)
}
