// Package oracle provides the decision oracle abstraction: a component
// that maps a conversation window to a structured decision matching a
// fixed response schema supplied per call site.
//
// The production implementation talks to any OpenAI-compatible chat
// completions API using structured output (JSON schema response format).
// Tests substitute the deterministic Mock so state-machine behavior is
// fully reproducible.
//
// Example usage:
//
//	orc, _ := oracle.NewClient(
//	    oracle.WithAPIKey(os.Getenv("VOICELINE_ORACLE_API_KEY")),
//	    oracle.WithModel("gpt-4.1-mini"),
//	)
//	defer orc.Close()
//
//	var decision intentDecision
//	err := orc.Decide(ctx, &oracle.Request{
//	    System:     classifierPrompt,
//	    Messages:   window,
//	    SchemaName: "intent_classification",
//	    Schema:     intentSchema,
//	}, &decision)
package oracle

import "context"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation window passed to the oracle.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request describes one structured decision call.
type Request struct {
	// System is the instruction prompt for this call site.
	System string

	// Messages is the conversation window the decision is based on.
	Messages []Message

	// SchemaName labels the response schema (required by the API).
	SchemaName string

	// Schema is the JSON schema the response must satisfy.
	Schema map[string]any

	// MaxTokens limits the response length (0 = provider default).
	MaxTokens int
}

// Oracle maps a conversation window to a structured decision.
// Decide unmarshals the decision into out, which must be a pointer to a
// struct matching the request schema.
type Oracle interface {
	Decide(ctx context.Context, req *Request, out any) error

	// Close releases any resources held by the oracle.
	Close() error
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
