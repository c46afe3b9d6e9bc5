// Package store provides the persistence layer for voiceline: customers,
// accounts, cards, call sessions, transcripts, and the agent action audit
// trail.
//
// Two implementations are provided: Postgres (pgx) for production and an
// in-memory store for tests and keyless development. The conversation core
// treats every write as fire-and-forget: errors are logged by callers, never
// fatal to a turn.
package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyBlocked is returned when blocking an already-blocked card.
	ErrAlreadyBlocked = errors.New("store: card already blocked")
)

// Card status values.
const (
	CardActive  = "active"
	CardBlocked = "blocked"
	CardExpired = "expired"
)

// Customer is a bank customer with a hashed PIN credential.
type Customer struct {
	CustomerID string
	Name       string
	Email      string
	Phone      string
	PINHash    string
	CreatedAt  time.Time
}

// Account is one bank account belonging to a customer.
type Account struct {
	AccountID   string
	CustomerID  string
	AccountType string // checking, savings
	Balance     float64
	Currency    string
}

// Card is a debit/credit card linked to an account.
type Card struct {
	CardID        string
	AccountID     string
	Last4         string
	Status        string
	BlockedAt     *time.Time
	BlockedReason string
	Expiration    *time.Time
}

// Session is one call session record.
type Session struct {
	SessionID        string
	CustomerID       string
	Intent           string
	Authenticated    bool
	AuthMethod       string
	Escalated        bool
	EscalationReason string
	DurationSeconds  int
	StartedAt        time.Time
	EndedAt          *time.Time
}

// SessionUpdate carries the mutable session metadata fields. Nil pointers
// leave the column untouched.
type SessionUpdate struct {
	CustomerID       *string
	Intent           *string
	Authenticated    *bool
	AuthMethod       *string
	Escalated        *bool
	EscalationReason *string
}

// Transcript is one persisted conversation turn, PII-redacted.
type Transcript struct {
	SessionID   string
	Speaker     string // user or agent
	Content     string
	PIIDetected []string
	Timestamp   time.Time
}

// Action is one audit-trail entry for a banking operation.
type Action struct {
	SessionID  string
	ActionType string // tool_call, escalation
	ToolName   string
	Input      map[string]any
	Output     map[string]any
	Error      string
	Timestamp  time.Time
}

// Store is the persistence interface consumed by the conversation core
// and the admin routes.
type Store interface {
	// Customers
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	UpdateCustomerProfile(ctx context.Context, customerID string, email, phone *string) error

	// Accounts and cards
	ListAccounts(ctx context.Context, customerID string) ([]Account, error)
	GetCard(ctx context.Context, cardID string) (*Card, error)
	BlockCard(ctx context.Context, cardID, reason string, at time.Time) (*Card, error)

	// Call sessions
	CreateSession(ctx context.Context) (string, error)
	UpdateSession(ctx context.Context, sessionID string, upd SessionUpdate) error
	CloseSession(ctx context.Context, sessionID string, duration time.Duration) error
	ListSessions(ctx context.Context, limit int) ([]Session, error)

	// Transcripts and audit trail
	AppendTranscript(ctx context.Context, t *Transcript) error
	ListTranscripts(ctx context.Context, sessionID string) ([]Transcript, error)
	LogAction(ctx context.Context, a *Action) error

	// Close releases underlying resources.
	Close() error
}
