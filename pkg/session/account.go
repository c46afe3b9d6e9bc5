package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/telbank/voiceline/pkg/oracle"
)

const accountPrompt = `You are a specialized agent for Bank ABC handling account servicing requests.

**Your Capabilities:**
- Provide account balance
- Request account statements (monthly, quarterly, annual)
- Update profile information (email, phone)
- Answer account-related questions

**Conversation Flow Examples:**

**Balance Inquiry:**
User: "What's my balance?"
Action: get_balance, then tell them total and per account

**Statement Request:**
User: "I need a statement"
Action: gather_info (which period?), then request_statement, then confirm it will be emailed

**Profile Update:**
User: "Update my email to john@example.com"
Action: update_profile, then confirm update successful

**Important Rules:**
- For balance, show both total and breakdown by account
- For statements, confirm period (monthly/quarterly/annual) before requesting
- For profile updates, only allow email and phone changes
- Stay focused on account servicing only

**Current State:**
- Customer ID: %s
- Authenticated: %t

Analyze the conversation and decide the next action.`

var accountSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action": map[string]any{
			"type": "string",
			"enum": []string{
				"get_balance", "request_statement", "update_profile",
				"gather_info", "complete", "escalate",
			},
		},
		"statement_period": map[string]any{
			"type": []string{"string", "null"},
			"enum": []any{"monthly", "quarterly", "annual", nil},
		},
		"email":    map[string]any{"type": []string{"string", "null"}},
		"phone":    map[string]any{"type": []string{"string", "null"}},
		"response": map[string]any{"type": "string"},
	},
	"required":             []string{"action", "statement_period", "email", "phone", "response"},
	"additionalProperties": false,
}

type accountAction struct {
	Action          string `json:"action"`
	StatementPeriod string `json:"statement_period"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Response        string `json:"response"`
}

// handleAccount runs one account-servicing turn: balance inquiries,
// statement requests, and profile updates over the banking service.
func (c *Controller) handleAccount(ctx context.Context, s Snapshot) Snapshot {
	var decision accountAction
	err := c.oracle.Decide(ctx, &oracle.Request{
		System:     fmt.Sprintf(accountPrompt, s.CustomerID, s.Authenticated),
		Messages:   []oracle.Message{oracle.NewUserMessage("Conversation:\n" + s.window(10))},
		SchemaName: "account_action",
		Schema:     accountSchema,
	}, &decision)
	if err != nil {
		return c.agentError(s, err)
	}

	c.logger.Info("account servicing action", "action", decision.Action, "session_id", s.SessionID)

	switch decision.Action {
	case "get_balance":
		return c.getBalance(ctx, s)

	case "request_statement":
		period := decision.StatementPeriod
		if period == "" {
			period = "monthly"
		}
		result, err := c.bank.RequestStatement(ctx, s.caller(), s.CustomerID, period)
		if err != nil {
			return c.agentError(s, err)
		}
		s.FlowStage = StageComplete
		return s.withReply(fmt.Sprintf(
			"Your %s statement has been requested. Reference number: %s. %s",
			period, result.ReferenceID, result.Message))

	case "update_profile":
		return c.updateProfile(ctx, s, decision)

	case "escalate":
		return s.escalated("Account servicing requires specialist", decision.Response)

	case "complete":
		s.FlowStage = StageComplete
		return s.withReply(decision.Response)

	default: // gather_info
		return s.suspend(HandlerAccount, decision.Response)
	}
}

func (c *Controller) getBalance(ctx context.Context, s Snapshot) Snapshot {
	balance, err := c.bank.GetBalance(ctx, s.caller(), s.CustomerID)
	if err != nil {
		return c.agentError(s, err)
	}

	var lines []string
	for _, acc := range balance.Accounts {
		lines = append(lines, fmt.Sprintf("- %s: $%s", titleCase(acc.AccountType), formatAmount(acc.Balance)))
	}

	s = s.withCached("account_balance", balance.Total)
	s.FlowStage = StageComplete
	return s.withReply(fmt.Sprintf(
		"Here are your account balances:\n%s\nTotal: $%s\nIs there anything else I can help you with?",
		strings.Join(lines, "\n"), formatAmount(balance.Total)))
}

func (c *Controller) updateProfile(ctx context.Context, s Snapshot, decision accountAction) Snapshot {
	var email, phone *string
	if decision.Email != "" {
		email = &decision.Email
	}
	if decision.Phone != "" {
		phone = &decision.Phone
	}
	if email == nil && phone == nil {
		return s.suspend(HandlerAccount,
			"Which contact detail would you like to update, and what is the new value?")
	}

	result, err := c.bank.UpdateProfile(ctx, s.caller(), s.CustomerID, email, phone)
	if err != nil {
		return c.agentError(s, err)
	}

	s.FlowStage = StageComplete
	return s.withReply(fmt.Sprintf(
		"Your %s has been updated successfully.", strings.Join(result.UpdatedFields, ", ")))
}

// formatAmount renders a dollar amount with thousands separators and two
// decimals, e.g. 17743.87 becomes "17,743.87".
func formatAmount(v float64) string {
	raw := fmt.Sprintf("%.2f", v)
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	dot := strings.IndexByte(raw, '.')
	whole, frac := raw[:dot], raw[dot:]

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, ch := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	b.WriteString(frac)
	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
